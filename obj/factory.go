package obj

import (
	"fmt"
	"reflect"

	"github.com/tmcallister/memkit/mem"
)

// New constructs a managed object of type T, reserves its footprint
// against the default facade and registers it with the installed
// collector registry. T must embed Base.
//
// A non-nil error means the object does not exist and must not be used;
// footprint exhaustion surfaces as ErrAllocFailed and is fatal for the
// construction path.
func New[T any]() (*T, error) {
	return NewOn[T](mem.Default(), true)
}

// NewUntracked constructs a managed object that participates in
// intrusive counting only: it is never registered with the collector, so
// reclamation is entirely refcount-driven. Use this for objects whose
// ownership is strictly scoped and which must never be swept.
func NewUntracked[T any]() (*T, error) {
	return NewOn[T](mem.Default(), false)
}

// NewOn is the explicit-facade form of New used by subsystems that carry
// their own facade (and by tests).
func NewOn[T any](facade *mem.Facade, track bool) (*T, error) {
	p := new(T)
	eb, ok := any(p).(embedsBase)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotManaged, p)
	}

	typ := reflect.TypeOf((*T)(nil)).Elem()
	size := int(typ.Size())
	if size == 0 {
		size = 1
	}
	if err := facade.AllocateObject(size); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocFailed, err)
	}

	b := eb.base()
	b.initBase(any(p).(Object), typ, size, facade)

	if track {
		if r := currentRegistry(); r != nil {
			r.Register(b.self())
		}
	}
	return p, nil
}

// MustNew is New for construction sites where failure is already fatal.
func MustNew[T any]() *T {
	p, err := New[T]()
	if err != nil {
		panic(err)
	}
	return p
}
