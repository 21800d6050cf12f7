package obj

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/tmcallister/memkit/logging"
	"github.com/tmcallister/memkit/mem"
)

// nextID issues process-wide monotonic object identities. 0 is reserved
// as the "never initialized" sentinel.
var nextID atomic.Uint64

// Object is the surface every managed entity exposes. It is implemented
// by embedding Base; the factory functions are the only sanctioned way
// to produce one.
type Object interface {
	// ID returns the stable, process-wide identity.
	ID() uint64

	// AddRef increments the intrusive count and returns the new value.
	AddRef() int32

	// Release decrements the intrusive count and returns the new value.
	// The transition to zero runs Destroy exactly once.
	Release() int32

	// RefCount returns the current intrusive count.
	RefCount() int32

	// Valid reports whether Destroy has not yet run.
	Valid() bool

	// Destroy terminates the object: unregisters it, runs its Dispose
	// hook if any, and returns its footprint to the facade. Idempotent.
	Destroy()

	// Mark, Unmark and Marked manipulate the trace bit. Collector use
	// only; the bit is meaningless between collection cycles.
	Mark()
	Unmark()
	Marked() bool

	// Footprint is the byte size reserved for this object at
	// construction.
	Footprint() int

	// Equals and HashCode default to identity; concrete types may
	// shadow them.
	Equals(Object) bool
	HashCode() uint64

	fmt.Stringer
}

// Referencer is the graph-reporting capability. A type that owns other
// managed objects implements it so the collector's mark phase can walk
// its edges; types without it are leaves.
type Referencer interface {
	// CollectReferences appends every managed object this one owns and
	// returns the extended slice.
	CollectReferences(out []Object) []Object
}

// Disposer is an optional teardown hook run once by Destroy, before the
// footprint is returned.
type Disposer interface {
	Dispose()
}

// ClassInfo is the narrow reflection-record surface this core consumes.
// The registry that produces these records lives outside the package.
type ClassInfo struct {
	Name       string
	Properties []string
	Functions  []string
}

// Reflective is implemented by types that expose a reflection record.
type Reflective interface {
	ClassReflection() *ClassInfo
}

// Base carries the managed-object header: identity, intrusive count,
// trace bit and validity flag. Embed it as the first section of a
// managed type and construct through New or NewUntracked.
type Base struct {
	id     uint64
	refs   atomic.Int32
	marked atomic.Bool
	valid  atomic.Bool

	size   int
	typ    reflect.Type
	outer  Object
	facade *mem.Facade
}

var _ Object = (*Base)(nil)

// initBase is called by the factories only.
func (b *Base) initBase(outer Object, typ reflect.Type, size int, facade *mem.Facade) {
	b.id = nextID.Add(1)
	b.size = size
	b.typ = typ
	b.outer = outer
	b.facade = facade
	b.valid.Store(true)
}

// base gives the factories access to the embedded header regardless of
// where it sits in the outer struct.
func (b *Base) base() *Base { return b }

type embedsBase interface {
	base() *Base
}

// self returns the outermost Object for this header. Registration and
// graph traversal always see the outer type, never the bare Base.
func (b *Base) self() Object {
	if b.outer != nil {
		return b.outer
	}
	return b
}

// ID returns the stable identity, 0 for an uninitialized header.
func (b *Base) ID() uint64 { return b.id }

// AddRef increments the intrusive count.
func (b *Base) AddRef() int32 {
	if b.id == 0 {
		logging.Memory().Error().Msg("AddRef on unmanaged object; use obj.New")
		return 0
	}
	return b.refs.Add(1)
}

// Release decrements the intrusive count, destroying the object on the
// transition to zero. Releasing below zero is diagnosed, and destruction
// still happens at most once.
func (b *Base) Release() int32 {
	if b.id == 0 {
		logging.Memory().Error().Msg("Release on unmanaged object; use obj.New")
		return 0
	}
	n := b.refs.Add(-1)
	if n == 0 {
		b.Destroy()
	} else if n < 0 {
		logging.Memory().Warn().Uint64("id", b.id).Int32("refs", n).Msg("refcount underflow")
	}
	return n
}

// RefCount returns the current intrusive count.
func (b *Base) RefCount() int32 { return b.refs.Load() }

// Valid reports whether Destroy has not yet run.
func (b *Base) Valid() bool { return b.valid.Load() }

// Destroy terminates the object. Safe to call more than once; only the
// first call has effect.
func (b *Base) Destroy() {
	if b.id == 0 {
		return
	}
	if !b.valid.CompareAndSwap(true, false) {
		return
	}
	self := b.self()
	if r := currentRegistry(); r != nil {
		r.Unregister(self)
	}
	if d, ok := self.(Disposer); ok {
		d.Dispose()
	}
	if b.facade != nil && b.size > 0 {
		b.facade.DeallocateObject(b.size)
	}
}

// Mark sets the trace bit. Collector use only.
func (b *Base) Mark() { b.marked.Store(true) }

// Unmark clears the trace bit. Collector use only.
func (b *Base) Unmark() { b.marked.Store(false) }

// Marked reports the trace bit. Collector use only.
func (b *Base) Marked() bool { return b.marked.Load() }

// Footprint is the byte size reserved at construction.
func (b *Base) Footprint() int { return b.size }

// Type returns the concrete type recorded at construction, nil for an
// uninitialized header.
func (b *Base) Type() reflect.Type { return b.typ }

// TypeName returns the concrete type's name, "" when uninitialized.
func (b *Base) TypeName() string {
	if b.typ == nil {
		return ""
	}
	return b.typ.String()
}

// ClassReflection returns the reflection record for this type. The
// default is nil; reflective types shadow it.
func (b *Base) ClassReflection() *ClassInfo { return nil }

// Equals defaults to identity comparison.
func (b *Base) Equals(other Object) bool {
	return other != nil && other.ID() == b.id
}

// HashCode defaults to the identity.
func (b *Base) HashCode() uint64 { return b.id }

// String defaults to "TypeName#id".
func (b *Base) String() string {
	return fmt.Sprintf("%s#%d", b.TypeName(), b.id)
}
