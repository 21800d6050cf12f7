package gc

import "time"

// Kind selects how aggressive a collection cycle is. The mark-sweep
// algorithm treats all kinds identically today; the kind feeds the
// statistics and reserves room for a generational mode.
type Kind uint8

const (
	Minor Kind = iota
	Major
	Full
)

func (k Kind) String() string {
	switch k {
	case Minor:
		return "minor"
	case Major:
		return "major"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// State is the collector's cycle phase.
type State uint32

const (
	Idle State = iota
	Marking
	Sweeping
	Finalizing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Marking:
		return "marking"
	case Sweeping:
		return "sweeping"
	case Finalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// Config tunes the collector.
type Config struct {
	// AutoEnabled turns the trigger policy on. When false, collections
	// happen only on explicit Request/Force.
	AutoEnabled bool

	// BackgroundEnabled runs collections on a dedicated worker
	// goroutine. When false, Request collects synchronously on the
	// calling goroutine.
	BackgroundEnabled bool

	// TriggerThreshold is the facade usage ratio above which a Minor
	// collection is requested. Default: 0.8.
	TriggerThreshold float64

	// EscalateThreshold is the ratio above which the request escalates
	// to Major. Default: 0.9.
	EscalateThreshold float64

	// MinInterval suppresses back-to-back cycles. Default: 1s.
	MinInterval time.Duration

	// MaxInterval forces a Minor collection when this much time passes
	// without one, and bounds the background worker's sleep.
	// Default: 30s.
	MaxInterval time.Duration

	// YoungGenerationSize and OldGenerationSize are accepted but unused
	// by the mark-sweep algorithm; reserved for a generational mode.
	YoungGenerationSize uint32
	OldGenerationSize   uint32
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		AutoEnabled:         true,
		BackgroundEnabled:   true,
		TriggerThreshold:    0.8,
		EscalateThreshold:   0.9,
		MinInterval:         time.Second,
		MaxInterval:         30 * time.Second,
		YoungGenerationSize: 16 << 20,
		OldGenerationSize:   64 << 20,
	}
}

// sanitize fills unusable fields with defaults.
func (c Config) sanitize() Config {
	d := DefaultConfig()
	if c.TriggerThreshold <= 0 || c.TriggerThreshold > 1 {
		c.TriggerThreshold = d.TriggerThreshold
	}
	if c.EscalateThreshold <= c.TriggerThreshold || c.EscalateThreshold > 1 {
		c.EscalateThreshold = d.EscalateThreshold
		if c.EscalateThreshold < c.TriggerThreshold {
			c.EscalateThreshold = c.TriggerThreshold
		}
	}
	if c.MinInterval <= 0 {
		c.MinInterval = d.MinInterval
	}
	if c.MaxInterval < c.MinInterval {
		c.MaxInterval = d.MaxInterval
		if c.MaxInterval < c.MinInterval {
			c.MaxInterval = c.MinInterval
		}
	}
	return c
}
