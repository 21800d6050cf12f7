//go:build !unix

package mem

// Fallback page source for platforms without the unix mmap surface.
// Arenas come from the Go heap; advise/unmap degrade to no-ops so the
// facade keeps identical semantics minus the OS page reclamation.

func mapPages(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func unmapPages(data []byte) error {
	return nil
}

func advisePagesFree(data []byte) error {
	return nil
}
