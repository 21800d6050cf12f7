//go:build unix

package mem

import (
	"golang.org/x/sys/unix"
)

// mapPages reserves an anonymous read-write mapping of exactly size bytes
// (a page multiple). The region is zero-filled by the kernel.
func mapPages(size int) ([]byte, error) {
	data, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// unmapPages releases a mapping obtained from mapPages.
func unmapPages(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return unix.Munmap(data)
}

// advisePagesFree tells the kernel the region's contents are no longer
// needed. The mapping stays valid; pages are refaulted as zero on next
// touch. Best effort.
func advisePagesFree(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return unix.Madvise(data, unix.MADV_DONTNEED)
}
