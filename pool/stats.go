package pool

import "fmt"

// Stats accumulates over the pool's lifetime. Size, Available and
// InUse are point-in-time readings taken when the snapshot is built.
type Stats struct {
	Size      int
	Available int
	InUse     int

	Created   uint64
	Destroyed uint64
	Acquired  uint64
	Released  uint64
	Hits      uint64
	Misses    uint64

	// Shared counts checkouts of an object that was already out, which
	// only LRU and Circular strategies produce.
	Shared uint64
}

// Report renders the snapshot for humans.
func (s Stats) Report() string {
	return fmt.Sprintf(
		"=== Object Pool Report ===\n"+
			"Slots:     %d (%d available, %d in use)\n"+
			"Objects:   %d created, %d destroyed\n"+
			"Checkouts: %d acquired, %d released, %d shared\n"+
			"Hit Rate:  %d hits / %d misses",
		s.Size, s.Available, s.InUse,
		s.Created, s.Destroyed,
		s.Acquired, s.Released, s.Shared,
		s.Hits, s.Misses)
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Size = len(p.entries)
	for _, e := range p.entries {
		if e.outstanding == 0 {
			s.Available++
		} else {
			s.InUse++
		}
	}
	return s
}

// Report renders the pool's counters for humans.
func (p *Pool[T]) Report() string {
	return p.Stats().Report()
}
