package gc

import (
	"fmt"
	"time"
)

// Stats accumulates across collection cycles.
type Stats struct {
	TotalCollections uint64
	MinorCollections uint64
	MajorCollections uint64
	FullCollections  uint64

	ObjectsCollected uint64
	BytesFreed       uint64 // estimated from object footprints

	TotalTime     time.Duration
	LastTime      time.Duration
	AverageTime   time.Duration
	LastTimestamp time.Time
}

// Report renders the snapshot for humans. Diagnostic only.
func (s Stats) Report() string {
	return fmt.Sprintf(
		"=== Garbage Collector Report ===\n"+
			"Collections:       %d (minor %d, major %d, full %d)\n"+
			"Objects Collected: %d\n"+
			"Bytes Freed:       %d (estimated)\n"+
			"Total GC Time:     %s\n"+
			"Average GC Time:   %s\n"+
			"Last GC:           %s",
		s.TotalCollections, s.MinorCollections, s.MajorCollections, s.FullCollections,
		s.ObjectsCollected, s.BytesFreed,
		s.TotalTime, s.AverageTime, s.LastTimestamp.Format(time.RFC3339))
}

func (c *Collector) updateStats(kind Kind, collected int, freed uint64, elapsed time.Duration) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats.TotalCollections++
	switch kind {
	case Minor:
		c.stats.MinorCollections++
	case Major:
		c.stats.MajorCollections++
	case Full:
		c.stats.FullCollections++
	}
	c.stats.ObjectsCollected += uint64(collected)
	c.stats.BytesFreed += freed
	c.stats.TotalTime += elapsed
	c.stats.LastTime = elapsed
	c.stats.AverageTime = c.stats.TotalTime / time.Duration(c.stats.TotalCollections)
	c.stats.LastTimestamp = time.Now()
}

// Stats returns a snapshot of the accumulated statistics.
func (c *Collector) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// ResetStats zeroes the accumulated statistics.
func (c *Collector) ResetStats() {
	c.statsMu.Lock()
	c.stats = Stats{}
	c.statsMu.Unlock()
}
