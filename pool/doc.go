// Package pool recycles managed objects instead of allocating fresh ones.
//
// # Ownership
//
// A Pool owns every object it creates: it holds one intrusive reference
// per pooled object, so neither the tracing collector nor a released
// handle can destroy an object while the pool still intends to reuse
// it. Acquire hands the object out behind a shared handle whose deleter
// returns it to the pool rather than destroying it. The object is only
// truly destroyed when the pool drops it (Clear, Shrink, Close, or an
// eviction) and no handle still holds it.
//
// # Strategies
//
// FixedSize pools never grow past their configured capacity and report
// ErrExhausted when every object is out. Dynamic pools grow by
// GrowthIncrement up to MaxSize. LRU pools make room by handing out the
// least recently used object again, sharing it between holders.
// Circular pools rotate through their slots round-robin regardless of
// use, which suits transient scratch objects where overlap is
// acceptable.
//
// # Concurrency
//
// All Pool and Manager methods are safe for concurrent use. Objects
// handed out by LRU and Circular pools may be shared between callers;
// coordinating access to the object's own state is the caller's
// responsibility.
package pool
