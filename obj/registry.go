package obj

import "sync/atomic"

// Registry is the collector-side hook. The gc package installs its
// collector here during Init and removes it at Shutdown; tests may
// install fakes. Keeping the hook explicit makes shutdown ordering
// between the subsystems visible instead of baked into a hidden global.
type Registry interface {
	Register(Object)
	Unregister(Object)
}

type registryBox struct{ r Registry }

var registry atomic.Pointer[registryBox]

// SetRegistry installs r as the active collector registry and returns
// the previous one (nil if none). Pass nil to detach.
func SetRegistry(r Registry) Registry {
	var prev *registryBox
	if r == nil {
		prev = registry.Swap(nil)
	} else {
		prev = registry.Swap(&registryBox{r: r})
	}
	if prev == nil {
		return nil
	}
	return prev.r
}

func currentRegistry() Registry {
	box := registry.Load()
	if box == nil {
		return nil
	}
	return box.r
}
