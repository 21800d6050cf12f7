package handle

import "sync/atomic"

// control is the bookkeeping record shared by every handle derived from
// one wrap. Invariants: the pointee is valid iff strong > 0; the block
// is valid iff weak > 0. The block itself holds one weak reference,
// released after the last strong release destroys the pointee.
type control struct {
	strong  atomic.Int32
	weak    atomic.Int32
	destroy func()
}

func newControl(destroy func()) *control {
	c := &control{destroy: destroy}
	c.strong.Store(1)
	c.weak.Store(1)
	return c
}

func (c *control) addStrong() {
	c.strong.Add(1)
}

// tryAddStrong is the weak-promotion CAS loop: it succeeds only while
// the strong count is observed above zero.
func (c *control) tryAddStrong() bool {
	for {
		n := c.strong.Load()
		if n <= 0 {
			return false
		}
		if c.strong.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// releaseStrong drops one strong reference. The thread that drives the
// count to zero runs the destruction closure, then releases the block's
// own weak reference.
func (c *control) releaseStrong() {
	if c.strong.Add(-1) != 0 {
		return
	}
	if c.destroy != nil {
		c.destroy()
	}
	c.releaseWeak()
}

func (c *control) addWeak() {
	c.weak.Add(1)
}

// releaseWeak drops one weak reference. At zero the block is dead: the
// destruction closure is cleared so it cannot pin the pointee's memory.
// The block's storage is reclaimed by the runtime once unreferenced.
func (c *control) releaseWeak() {
	if c.weak.Add(-1) != 0 {
		return
	}
	c.destroy = nil
}

func (c *control) strongCount() int32 {
	return c.strong.Load()
}

func (c *control) weakCount() int32 {
	return c.weak.Load()
}
