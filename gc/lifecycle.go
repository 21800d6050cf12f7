package gc

import (
	"sync"

	"github.com/tmcallister/memkit/logging"
	"github.com/tmcallister/memkit/mem"
	"github.com/tmcallister/memkit/obj"
)

// Process-wide collector lifecycle. The hook into the obj package is
// installed and removed here so the wiring between the subsystems stays
// explicit and testable.

var (
	defMu    sync.Mutex
	def      *Collector
	prevHook obj.Registry
)

// Init creates the process collector over the default facade, installs
// it as the obj package's registry and starts its background worker.
// Calling Init twice without Shutdown returns the existing collector.
func Init(cfg Config) *Collector {
	defMu.Lock()
	defer defMu.Unlock()
	if def != nil {
		logging.GC().Warn().Msg("collector already initialized")
		return def
	}
	def = New(cfg, mem.Default())
	prevHook = obj.SetRegistry(def)
	def.Start()
	logging.GC().Info().
		Bool("background", cfg.BackgroundEnabled).
		Msg("collector initialized")
	return def
}

// Shutdown detaches the registry hook, stops the collector (running a
// final full collection) and discards it. Safe to call without Init.
func Shutdown() {
	defMu.Lock()
	c := def
	def = nil
	if c != nil {
		obj.SetRegistry(prevHook)
		prevHook = nil
	}
	defMu.Unlock()
	if c != nil {
		c.Stop()
	}
}

// Default returns the process collector, nil before Init.
func Default() *Collector {
	defMu.Lock()
	defer defMu.Unlock()
	return def
}
