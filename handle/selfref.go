package handle

import "sync"

// SelfRef gives a type handle-of-self support: embed SelfRef[T] in T and
// the first wrap of a *T records a weak self-reference, so methods can
// mint new strong handles to their own instance without duplicating
// ownership. Storage is a plain per-instance field, so an instance
// wrapped on one goroutine is safely self-referenced from any other.
type SelfRef[T any] struct {
	mu    sync.Mutex
	weak  Weak[T]
	bound bool
}

// bindSelf records the weak self-reference. First wrap wins; rewrapping
// the same instance in a second family leaves the original binding.
func (s *SelfRef[T]) bindSelf(w Weak[T]) {
	s.mu.Lock()
	if s.bound {
		s.mu.Unlock()
		w.Release()
		return
	}
	s.weak = w
	s.bound = true
	s.mu.Unlock()
}

// SharedFromSelf mints a new strong handle to this instance. ok is
// false when the instance was never wrapped or its family has expired.
func (s *SelfRef[T]) SharedFromSelf() (Shared[T], bool) {
	s.mu.Lock()
	w := s.weak
	bound := s.bound
	s.mu.Unlock()
	if !bound {
		return Shared[T]{}, false
	}
	sh := w.Lock()
	return sh, sh.Valid()
}

// selfBinder is satisfied by *T when T embeds SelfRef[T].
type selfBinder[T any] interface {
	bindSelf(Weak[T])
}

// bindSelfRef wires the weak self-reference for self-aware types; a
// no-op for everything else.
func bindSelfRef[T any](s *Shared[T]) {
	if sb, ok := any(s.ptr).(selfBinder[T]); ok {
		sb.bindSelf(s.Weak())
	}
}
