// Package handle implements the allocator-agnostic shared-ownership
// layer: strong and weak handles over a shared control block, usable for
// any pointer, not only managed objects.
//
// # Control block
//
// Every family of handles derived from one wrap shares a control block
// holding a strong count, a weak count and a type-erased destruction
// closure. The pointee is valid while the strong count is above zero;
// the block itself is valid while the weak count is above zero, and the
// block's own existence is one weak reference released after the last
// strong release runs the destruction closure. A SelfRef-embedding type
// is the one planned exception: its instance keeps a weak reference to
// its first family for the object's whole life, so that family's block
// outlives its last external handle until the Go runtime reclaims the
// object.
//
// # Copy and move semantics
//
// Go has no copy constructors, so the C-family convention is made
// explicit: assigning a handle value is a move (counts untouched, use
// only one of the two), Clone is the counted copy, and Release drops the
// reference this handle holds. Release is idempotent on an empty handle.
//
// # Interop with intrusive counting
//
// Wrapping a pointee that exposes AddRef/Release (a managed object)
// without a custom deleter takes one intrusive reference up front and
// drops it on the final strong release. This keeps the tracing
// collector's refcount guard aware of handle ownership, so a swept-vs-
// handled object is impossible by construction. A custom deleter
// replaces this entirely: ownership semantics then belong to the
// deleter (the object pool relies on that to recycle instead of free).
//
// All counter transitions are atomic read-modify-write operations; the
// Go memory model gives them the acquire/release ordering the classic
// refcount pattern needs, and no lock is taken on the hot path.
package handle
