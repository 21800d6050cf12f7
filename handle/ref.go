package handle

// Ref is the non-nil strong handle: construction rejects a nil pointer,
// so use sites never check. Semantics otherwise match Shared.
type Ref[T any] struct {
	s Shared[T]
}

// NewRef wraps ptr like New but fails with ErrNilPointer on nil.
func NewRef[T any](ptr *T) (Ref[T], error) {
	if ptr == nil {
		return Ref[T]{}, ErrNilPointer
	}
	return Ref[T]{s: New(ptr)}, nil
}

// NewRefWithDeleter wraps ptr with a custom destruction closure,
// rejecting nil.
func NewRefWithDeleter[T any](ptr *T, deleter func(*T)) (Ref[T], error) {
	if ptr == nil {
		return Ref[T]{}, ErrNilPointer
	}
	return Ref[T]{s: NewWithDeleter(ptr, deleter)}, nil
}

// Get returns the pointee. Never nil for a constructed Ref.
func (r *Ref[T]) Get() *T { return r.s.Get() }

// RefCount returns the family's strong count.
func (r *Ref[T]) RefCount() int32 { return r.s.RefCount() }

// Clone returns a new counted copy.
func (r *Ref[T]) Clone() Ref[T] {
	return Ref[T]{s: r.s.Clone()}
}

// Shared returns a counted Shared view of the same family.
func (r *Ref[T]) Shared() Shared[T] { return r.s.Clone() }

// Release drops the reference. The Ref is unusable afterwards.
func (r *Ref[T]) Release() { r.s.Release() }

// Weak derives the non-nil weak counterpart.
func (r *Ref[T]) Weak() WeakRef[T] {
	return WeakRef[T]{w: r.s.Weak()}
}

// WeakRef is the weak counterpart of Ref. Lock reports promotion
// success explicitly instead of returning a maybe-empty handle.
type WeakRef[T any] struct {
	w Weak[T]
}

// Lock promotes to a Ref. ok is false once the pointee is gone.
func (w *WeakRef[T]) Lock() (Ref[T], bool) {
	s := w.w.Lock()
	if !s.Valid() {
		return Ref[T]{}, false
	}
	return Ref[T]{s: s}, true
}

// Expired reports whether the pointee has been destroyed.
func (w *WeakRef[T]) Expired() bool { return w.w.Expired() }

// Clone returns another weak reference to the family.
func (w *WeakRef[T]) Clone() WeakRef[T] {
	return WeakRef[T]{w: w.w.Clone()}
}

// Release drops the weak reference.
func (w *WeakRef[T]) Release() { w.w.Release() }
