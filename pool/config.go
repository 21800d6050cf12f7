package pool

import "time"

// Strategy selects how a pool behaves at capacity.
type Strategy uint8

const (
	// FixedSize pools refuse to grow; Acquire fails when exhausted.
	FixedSize Strategy = iota

	// Dynamic pools grow by GrowthIncrement up to MaxSize.
	Dynamic

	// LRU pools hand out the least recently used object again when
	// exhausted.
	LRU

	// Circular pools rotate through their slots regardless of use.
	Circular
)

func (s Strategy) String() string {
	switch s {
	case FixedSize:
		return "fixed"
	case Dynamic:
		return "dynamic"
	case LRU:
		return "lru"
	case Circular:
		return "circular"
	default:
		return "unknown"
	}
}

// Config tunes a pool.
type Config struct {
	Strategy Strategy

	// InitialSize objects are created up front when Prewarm is set,
	// otherwise lazily on demand up to this count before the strategy
	// is consulted.
	InitialSize int

	// MaxSize caps the pool. Zero means InitialSize for FixedSize and
	// Circular pools and unbounded for Dynamic pools.
	MaxSize int

	// GrowthIncrement is how many objects a Dynamic pool adds at a
	// time. Default: 1.
	GrowthIncrement int

	// ShrinkThreshold is the surplus of available objects tolerated
	// before AutoShrink kicks in. Default: InitialSize.
	ShrinkThreshold int

	// MaxIdleTime makes an available object eligible for shrinking
	// once it has sat unused this long. Zero disables the idle check.
	MaxIdleTime time.Duration

	// AutoShrink trims surplus idle objects on release.
	AutoShrink bool

	// Prewarm creates InitialSize objects during construction.
	Prewarm bool

	// ResetOnReturn invokes the object's Resettable hook when it comes
	// back to the pool.
	ResetOnReturn bool
}

// DefaultConfig returns a small dynamic pool configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:        Dynamic,
		InitialSize:     8,
		MaxSize:         0,
		GrowthIncrement: 1,
		AutoShrink:      true,
		ResetOnReturn:   true,
	}
}

func (c Config) sanitize() Config {
	if c.InitialSize < 0 {
		c.InitialSize = 0
	}
	if c.MaxSize < 0 {
		c.MaxSize = 0
	}
	if c.MaxSize == 0 && c.Strategy != Dynamic {
		c.MaxSize = c.InitialSize
	}
	if c.MaxSize > 0 && c.InitialSize > c.MaxSize {
		c.InitialSize = c.MaxSize
	}
	if c.GrowthIncrement <= 0 {
		c.GrowthIncrement = 1
	}
	if c.ShrinkThreshold <= 0 {
		c.ShrinkThreshold = c.InitialSize
	}
	if c.MaxIdleTime < 0 {
		c.MaxIdleTime = 0
	}
	return c
}
