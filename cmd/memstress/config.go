package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// WorkloadConfig shapes the stress run. Fields map 1:1 onto the TOML
// file and onto flags; flags win when both are given.
type WorkloadConfig struct {
	Duration    duration `toml:"duration"`
	Workers     int      `toml:"workers"`
	GraphSize   int      `toml:"graph_size"`
	ChurnRatio  float64  `toml:"churn_ratio"`
	PoolSize    int      `toml:"pool_size"`
	PoolMaxSize int      `toml:"pool_max_size"`

	ArenaSize    int    `toml:"arena_size"`
	ObjectBudget uint64 `toml:"object_budget"`

	GCTriggerThreshold  float64  `toml:"gc_trigger_threshold"`
	GCEscalateThreshold float64  `toml:"gc_escalate_threshold"`
	GCMinInterval       duration `toml:"gc_min_interval"`
	GCMaxInterval       duration `toml:"gc_max_interval"`
}

// duration adds TOML string parsing ("500ms", "30s") to time.Duration.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// DefaultWorkloadConfig returns a run that finishes in a few seconds.
func DefaultWorkloadConfig() WorkloadConfig {
	return WorkloadConfig{
		Duration:            duration(10 * time.Second),
		Workers:             4,
		GraphSize:           64,
		ChurnRatio:          0.5,
		PoolSize:            16,
		PoolMaxSize:         64,
		ObjectBudget:        64 << 20,
		GCTriggerThreshold:  0.8,
		GCEscalateThreshold: 0.9,
		GCMinInterval:       duration(100 * time.Millisecond),
		GCMaxInterval:       duration(time.Second),
	}
}

// LoadConfig reads a TOML file over the defaults.
func LoadConfig(path string) (WorkloadConfig, error) {
	cfg := DefaultWorkloadConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cfg, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	return cfg, nil
}

// Flag values; registered here so the overrides only apply when the
// user actually set the flag.
var (
	flagDuration  = flag.Duration("duration", 0, "how long to run the workload")
	flagWorkers   = flag.Int("workers", 0, "concurrent workload goroutines")
	flagGraph     = flag.Int("graph-size", 0, "objects per worker graph")
	flagPoolSize  = flag.Int("pool-size", 0, "pooled objects kept warm")
	flagGCTrigger = flag.Float64("gc-trigger", 0, "usage ratio that triggers collection")
)

func (c *WorkloadConfig) applyFlags() {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "duration":
			c.Duration = duration(*flagDuration)
		case "workers":
			c.Workers = *flagWorkers
		case "graph-size":
			c.GraphSize = *flagGraph
		case "pool-size":
			c.PoolSize = *flagPoolSize
		case "gc-trigger":
			c.GCTriggerThreshold = *flagGCTrigger
		}
	})
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.GraphSize <= 0 {
		c.GraphSize = 1
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 1
	}
	if c.PoolMaxSize < c.PoolSize {
		c.PoolMaxSize = c.PoolSize
	}
	if c.ChurnRatio < 0 || c.ChurnRatio > 1 {
		c.ChurnRatio = 0.5
	}
}
