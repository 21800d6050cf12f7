package handle

// Unique is the sole-ownership handle: no control block, no counts,
// exactly one live owner by convention. Assigning a Unique value is a
// move; use Transfer to make the handoff explicit and empty the source.
type Unique[T any] struct {
	ptr     *T
	deleter func(*T)
}

// NewUnique wraps a raw pointer as the sole owner. An intrusively
// counted pointee (a managed object) gets one reference taken up front
// and dropped on Release, the same bridge Shared uses, so the
// collector's refcount guard sees unique ownership too. A nil pointer
// yields an empty handle.
func NewUnique[T any](ptr *T) Unique[T] {
	if ptr == nil {
		return Unique[T]{}
	}
	u := Unique[T]{ptr: ptr}
	if rc, ok := any(ptr).(refCounted); ok {
		rc.AddRef()
		u.deleter = func(*T) { rc.Release() }
	}
	return u
}

// NewUniqueWithDeleter wraps a raw pointer with a caller-supplied
// deleter that fully owns destruction. No intrusive reference is taken.
func NewUniqueWithDeleter[T any](ptr *T, deleter func(*T)) Unique[T] {
	if ptr == nil {
		return Unique[T]{}
	}
	return Unique[T]{ptr: ptr, deleter: deleter}
}

// Get returns the owned pointer, nil when empty.
func (u *Unique[T]) Get() *T { return u.ptr }

// Valid reports whether the handle owns a pointee.
func (u *Unique[T]) Valid() bool { return u.ptr != nil }

// Release destroys the pointee through the deleter and empties the
// handle. Idempotent on an empty handle.
func (u *Unique[T]) Release() {
	if u.ptr == nil {
		return
	}
	ptr, del := u.ptr, u.deleter
	u.ptr, u.deleter = nil, nil
	if del != nil {
		del(ptr)
	}
}

// Detach gives up ownership without running the deleter and returns
// the raw pointer. The caller is now responsible for the pointee's
// destruction, including any intrusive reference NewUnique took.
func (u *Unique[T]) Detach() *T {
	ptr := u.ptr
	u.ptr, u.deleter = nil, nil
	return ptr
}

// Transfer moves ownership into the returned handle and empties the
// receiver, keeping the single-owner convention visible at the call
// site.
func (u *Unique[T]) Transfer() Unique[T] {
	out := Unique[T]{ptr: u.ptr, deleter: u.deleter}
	u.ptr, u.deleter = nil, nil
	return out
}

// Swap exchanges the pointees and deleters of two handles.
func (u *Unique[T]) Swap(other *Unique[T]) {
	u.ptr, other.ptr = other.ptr, u.ptr
	u.deleter, other.deleter = other.deleter, u.deleter
}
