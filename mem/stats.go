package mem

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Stats is a point-in-time snapshot of facade-wide counters.
type Stats struct {
	TotalAllocated    uint64 // cumulative bytes handed out
	TotalDeallocated  uint64 // cumulative bytes returned
	CurrentUsed       uint64 // bytes currently outstanding
	PeakUsed          uint64 // high-water mark of CurrentUsed
	AllocationCount   uint64 // number of successful allocations
	DeallocationCount uint64 // number of deallocations
}

// counters accumulates facade statistics under its own lock. The lock is
// never taken while the arena lock is held, so accounting can lag but
// never stalls allocation.
type counters struct {
	mu      sync.Mutex
	enabled atomic.Bool
	s       Stats
}

func newCounters() *counters {
	c := &counters{}
	c.enabled.Store(true)
	return c
}

func (c *counters) record(size uint64, alloc bool) {
	if !c.enabled.Load() {
		return
	}
	c.mu.Lock()
	if alloc {
		c.s.TotalAllocated += size
		c.s.AllocationCount++
		c.s.CurrentUsed += size
		if c.s.CurrentUsed > c.s.PeakUsed {
			c.s.PeakUsed = c.s.CurrentUsed
		}
	} else {
		c.s.TotalDeallocated += size
		c.s.DeallocationCount++
		if size > c.s.CurrentUsed {
			c.s.CurrentUsed = 0
		} else {
			c.s.CurrentUsed -= size
		}
	}
	c.mu.Unlock()
}

func (c *counters) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.s
}

func (c *counters) reset() {
	c.mu.Lock()
	c.s = Stats{}
	c.mu.Unlock()
}

// Report renders the snapshot for humans. Diagnostic only.
func (s Stats) Report() string {
	return fmt.Sprintf(
		"=== Memory Facade Report ===\n"+
			"Total Allocated:   %d bytes\n"+
			"Total Deallocated: %d bytes\n"+
			"Current Used:      %d bytes\n"+
			"Peak Used:         %d bytes\n"+
			"Allocations:       %d\n"+
			"Deallocations:     %d",
		s.TotalAllocated, s.TotalDeallocated, s.CurrentUsed, s.PeakUsed,
		s.AllocationCount, s.DeallocationCount)
}
