package handle

// refCounted matches the managed-object intrusive count. Declared
// structurally so this package stays allocator- and object-agnostic.
type refCounted interface {
	AddRef() int32
	Release() int32
}

// Shared is a strong handle. The zero value is the empty handle.
// Assignment moves; Clone copies; Release drops this handle's strong
// reference.
type Shared[T any] struct {
	ptr *T
	ctl *control
}

// New wraps ptr in a fresh control block (strong=1, weak=1). A nil ptr
// yields the empty handle.
//
// When the pointee exposes an intrusive count, one intrusive reference
// is taken here and dropped on the final strong release, so handle
// ownership is visible to the tracing collector's refcount guard.
func New[T any](ptr *T) Shared[T] {
	if ptr == nil {
		return Shared[T]{}
	}
	var destroy func()
	if rc, ok := any(ptr).(refCounted); ok {
		rc.AddRef()
		destroy = func() { rc.Release() }
	}
	s := Shared[T]{ptr: ptr, ctl: newControl(destroy)}
	bindSelfRef(&s)
	return s
}

// NewWithDeleter wraps ptr with a custom destruction closure. The
// closure fully owns termination: no intrusive reference is taken, and
// the closure may recycle the pointee instead of freeing it.
func NewWithDeleter[T any](ptr *T, deleter func(*T)) Shared[T] {
	if ptr == nil {
		return Shared[T]{}
	}
	var destroy func()
	if deleter != nil {
		destroy = func() { deleter(ptr) }
	}
	s := Shared[T]{ptr: ptr, ctl: newControl(destroy)}
	bindSelfRef(&s)
	return s
}

// Get returns the pointee, nil for an empty handle.
func (s *Shared[T]) Get() *T {
	if s.ctl == nil {
		return nil
	}
	return s.ptr
}

// Valid reports whether the handle owns a pointee.
func (s *Shared[T]) Valid() bool {
	return s.ctl != nil
}

// RefCount returns the strong count, 0 for an empty handle. Every
// handle of the same family observes the same value.
func (s *Shared[T]) RefCount() int32 {
	if s.ctl == nil {
		return 0
	}
	return s.ctl.strongCount()
}

// Clone returns a new strong handle to the same pointee (strong+1).
func (s *Shared[T]) Clone() Shared[T] {
	if s.ctl == nil {
		return Shared[T]{}
	}
	s.ctl.addStrong()
	return Shared[T]{ptr: s.ptr, ctl: s.ctl}
}

// Release drops this handle's strong reference and empties the handle.
// The last strong release runs the destruction closure, then drops the
// block's own weak reference. Safe on an empty handle.
func (s *Shared[T]) Release() {
	if s.ctl == nil {
		return
	}
	ctl := s.ctl
	s.ptr = nil
	s.ctl = nil
	ctl.releaseStrong()
}

// Reset releases the current pointee and wraps ptr in a fresh family.
func (s *Shared[T]) Reset(ptr *T) {
	s.Release()
	*s = New(ptr)
}

// Weak derives a weak handle (weak+1) that observes the pointee without
// extending its lifetime.
func (s *Shared[T]) Weak() Weak[T] {
	if s.ctl == nil {
		return Weak[T]{}
	}
	s.ctl.addWeak()
	return Weak[T]{ptr: s.ptr, ctl: s.ctl}
}

// SameFamily reports whether two handles share a control block.
func (s *Shared[T]) SameFamily(other *Shared[T]) bool {
	return s.ctl != nil && s.ctl == other.ctl
}

// Convert produces a handle of another type sharing the same control
// block, using adjust to derive the new pointee (the pointer-adjusting
// cast: embedded field, wrapper, const view). The result holds its own
// strong reference.
func Convert[U, T any](s *Shared[T], adjust func(*T) *U) Shared[U] {
	if s.ctl == nil {
		return Shared[U]{}
	}
	p := adjust(s.ptr)
	if p == nil {
		return Shared[U]{}
	}
	s.ctl.addStrong()
	return Shared[U]{ptr: p, ctl: s.ctl}
}

// Any is a type-erased strong handle, the covariant view used to pass a
// handle across interfaces without its concrete type.
type Any struct {
	val any
	ctl *control
}

// Erase produces the type-erased view (strong+1).
func (s *Shared[T]) Erase() Any {
	if s.ctl == nil {
		return Any{}
	}
	s.ctl.addStrong()
	return Any{val: s.ptr, ctl: s.ctl}
}

// Valid reports whether the erased handle owns a pointee.
func (a *Any) Valid() bool { return a.ctl != nil }

// Value returns the erased pointee.
func (a *Any) Value() any {
	if a.ctl == nil {
		return nil
	}
	return a.val
}

// RefCount returns the strong count, 0 for an empty handle.
func (a *Any) RefCount() int32 {
	if a.ctl == nil {
		return 0
	}
	return a.ctl.strongCount()
}

// Release drops the erased handle's strong reference.
func (a *Any) Release() {
	if a.ctl == nil {
		return
	}
	ctl := a.ctl
	a.val = nil
	a.ctl = nil
	ctl.releaseStrong()
}

// As is the checked downcast: it recovers a typed handle from an erased
// one, sharing the block, or returns the empty handle when the pointee
// is not a *U. The erased handle keeps its own reference either way.
func As[U any](a *Any) Shared[U] {
	if a.ctl == nil {
		return Shared[U]{}
	}
	p, ok := a.val.(*U)
	if !ok {
		return Shared[U]{}
	}
	a.ctl.addStrong()
	return Shared[U]{ptr: p, ctl: a.ctl}
}
