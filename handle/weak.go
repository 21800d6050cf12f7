package handle

// Weak observes a pointee without extending its lifetime. The zero
// value is the empty weak handle. Lock promotes to a strong handle.
type Weak[T any] struct {
	ptr *T
	ctl *control
}

// Lock attempts promotion. While the strong count is above zero it
// increments it and returns a strong handle; once the count is observed
// at zero the pointee is gone and the empty handle is returned.
func (w *Weak[T]) Lock() Shared[T] {
	if w.ctl == nil || !w.ctl.tryAddStrong() {
		return Shared[T]{}
	}
	return Shared[T]{ptr: w.ptr, ctl: w.ctl}
}

// Expired reports whether the pointee has been destroyed. An empty weak
// handle is always expired.
func (w *Weak[T]) Expired() bool {
	return w.ctl == nil || w.ctl.strongCount() <= 0
}

// Clone returns another weak handle to the same family (weak+1).
func (w *Weak[T]) Clone() Weak[T] {
	if w.ctl == nil {
		return Weak[T]{}
	}
	w.ctl.addWeak()
	return Weak[T]{ptr: w.ptr, ctl: w.ctl}
}

// Release drops this weak reference and empties the handle. Safe on an
// empty handle.
func (w *Weak[T]) Release() {
	if w.ctl == nil {
		return
	}
	ctl := w.ctl
	w.ptr = nil
	w.ctl = nil
	ctl.releaseWeak()
}
