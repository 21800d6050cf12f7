package gc

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tmcallister/memkit/logging"
	"github.com/tmcallister/memkit/mem"
	"github.com/tmcallister/memkit/obj"
)

// Collector is the tracing garbage collector. Construct with New and
// start the background worker with Start (or use the package-level
// Init/Shutdown pair, which also installs the obj registry hook).
type Collector struct {
	cfgMu sync.RWMutex
	cfg   Config

	facade *mem.Facade

	// Registry and root set, keyed by object identity so a swept entry
	// can never dangle through a stale pointer.
	objMu      sync.Mutex
	registered map[uint64]obj.Object
	roots      map[uint64]obj.Object

	state      atomic.Uint32
	inProgress atomic.Bool

	// doneMu guards the in-progress transition observed by Wait.
	doneMu   sync.Mutex
	doneCond *sync.Cond

	lastMu sync.Mutex
	lastGC time.Time

	statsMu sync.Mutex
	stats   Stats

	reqCh    chan Kind
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  atomic.Bool
	stopping atomic.Bool
}

var _ obj.Registry = (*Collector)(nil)

// New constructs a collector over the given facade (nil means the
// process default). The background worker is not started.
func New(cfg Config, facade *mem.Facade) *Collector {
	if facade == nil {
		facade = mem.Default()
	}
	c := &Collector{
		cfg:        cfg.sanitize(),
		facade:     facade,
		registered: make(map[uint64]obj.Object, 1024),
		roots:      make(map[uint64]obj.Object, 256),
		reqCh:      make(chan Kind, 1),
		stopCh:     make(chan struct{}),
		lastGC:     time.Now(),
	}
	c.doneCond = sync.NewCond(&c.doneMu)
	return c
}

// Start launches the background worker when the configuration asks for
// one. Idempotent.
func (c *Collector) Start() {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	cfg := c.Config()
	if !cfg.BackgroundEnabled {
		return
	}
	c.wg.Add(1)
	go c.backgroundLoop()
	logging.GC().Info().Msg("background collection worker started")
}

// Stop halts the background worker, runs a final full collection over
// whatever is still registered, and clears the registry. The collector
// must not be used afterwards.
func (c *Collector) Stop() {
	if !c.stopping.CompareAndSwap(false, true) {
		return
	}
	if c.running.Load() {
		close(c.stopCh)
		c.wg.Wait()
	}
	c.collect(Full)

	c.objMu.Lock()
	leftover := len(c.registered)
	c.registered = make(map[uint64]obj.Object)
	c.roots = make(map[uint64]obj.Object)
	c.objMu.Unlock()

	s := c.Stats()
	logging.GC().Info().
		Uint64("collections", s.TotalCollections).
		Uint64("objects_collected", s.ObjectsCollected).
		Int("leftover", leftover).
		Msg("collector stopped")
}

// Config returns the active configuration.
func (c *Collector) Config() Config {
	c.cfgMu.RLock()
	defer c.cfgMu.RUnlock()
	return c.cfg
}

// UpdateConfig swaps the configuration. Takes effect on the next
// trigger evaluation; an in-flight cycle is unaffected.
func (c *Collector) UpdateConfig(cfg Config) {
	c.cfgMu.Lock()
	c.cfg = cfg.sanitize()
	c.cfgMu.Unlock()
	logging.GC().Info().Msg("collector configuration updated")
}

// Register adds an object to the collector's registry and evaluates the
// trigger policy. Nil objects are ignored.
func (c *Collector) Register(o obj.Object) {
	if o == nil || c.stopping.Load() {
		return
	}
	c.objMu.Lock()
	c.registered[o.ID()] = o
	c.objMu.Unlock()
	logging.GC().Trace().Uint64("id", o.ID()).Msg("object registered")
	c.checkTrigger()
}

// Unregister removes an object from the registry and the root set.
func (c *Collector) Unregister(o obj.Object) {
	if o == nil {
		return
	}
	c.objMu.Lock()
	delete(c.registered, o.ID())
	delete(c.roots, o.ID())
	c.objMu.Unlock()
	logging.GC().Trace().Uint64("id", o.ID()).Msg("object unregistered")
}

// AddRoot pins an object as always reachable. A root is implicitly
// registered, preserving the registry ⊇ roots invariant.
func (c *Collector) AddRoot(o obj.Object) {
	if o == nil {
		return
	}
	c.objMu.Lock()
	c.registered[o.ID()] = o
	c.roots[o.ID()] = o
	c.objMu.Unlock()
	logging.GC().Debug().Uint64("id", o.ID()).Msg("root added")
}

// RemoveRoot unpins an object. It stays registered.
func (c *Collector) RemoveRoot(o obj.Object) {
	if o == nil {
		return
	}
	c.objMu.Lock()
	delete(c.roots, o.ID())
	c.objMu.Unlock()
	logging.GC().Debug().Uint64("id", o.ID()).Msg("root removed")
}

// RegisteredCount reports the registry size.
func (c *Collector) RegisteredCount() int {
	c.objMu.Lock()
	defer c.objMu.Unlock()
	return len(c.registered)
}

// RootCount reports the root-set size.
func (c *Collector) RootCount() int {
	c.objMu.Lock()
	defer c.objMu.Unlock()
	return len(c.roots)
}

// State returns the current cycle phase.
func (c *Collector) State() State {
	return State(c.state.Load())
}

// InProgress reports whether a cycle is running.
func (c *Collector) InProgress() bool {
	return c.inProgress.Load()
}

// Request asks for a collection. With a background worker the request
// is handed off (coalescing with a pending one); otherwise the cycle
// runs synchronously on the calling goroutine.
func (c *Collector) Request(kind Kind) {
	if c.stopping.Load() {
		return
	}
	if c.running.Load() && c.Config().BackgroundEnabled {
		select {
		case c.reqCh <- kind:
		default: // a request is already pending
		}
		logging.GC().Debug().Stringer("kind", kind).Msg("collection requested")
		return
	}
	c.collect(kind)
}

// Force runs a collection synchronously on the calling goroutine,
// regardless of the background configuration. No timeout: it runs to
// completion.
func (c *Collector) Force(kind Kind) {
	if c.stopping.Load() {
		return
	}
	logging.GC().Info().Stringer("kind", kind).Msg("forced collection")
	c.collect(kind)
}

// Wait blocks the caller until no cycle is in progress.
func (c *Collector) Wait() {
	c.doneMu.Lock()
	for c.inProgress.Load() {
		c.doneCond.Wait()
	}
	c.doneMu.Unlock()
}

// collect runs one full cycle. Re-entrant calls are rejected. Panics
// raised by object callbacks are contained: the cycle is abandoned, the
// fault logged, and the state machine reset to Idle.
func (c *Collector) collect(kind Kind) {
	if !c.inProgress.CompareAndSwap(false, true) {
		logging.GC().Warn().Msg("collection already in progress, skipping")
		return
	}
	log := logging.GC()
	log.Debug().Stringer("kind", kind).Msg("collection started")

	start := time.Now()
	collected := 0
	freed := uint64(0)
	completed := false

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("fault during collection, state reset")
			}
			c.state.Store(uint32(Idle))
		}()
		c.state.Store(uint32(Marking))
		c.mark()
		c.state.Store(uint32(Sweeping))
		collected, freed = c.sweep()
		c.state.Store(uint32(Finalizing))
		c.finalize(kind)
		completed = true
	}()

	elapsed := time.Since(start)
	if completed {
		c.updateStats(kind, collected, freed, elapsed)
	}
	c.lastMu.Lock()
	c.lastGC = time.Now()
	c.lastMu.Unlock()

	c.doneMu.Lock()
	c.inProgress.Store(false)
	c.doneCond.Broadcast()
	c.doneMu.Unlock()

	log.Info().
		Stringer("kind", kind).
		Int("collected", collected).
		Uint64("bytes_freed", freed).
		Dur("elapsed", elapsed).
		Msg("collection finished")
}

// mark clears every trace bit, then walks depth-first from the roots.
// One critical section for the whole phase.
func (c *Collector) mark() {
	c.objMu.Lock()
	defer c.objMu.Unlock()

	for _, o := range c.registered {
		if o.Valid() {
			o.Unmark()
		}
	}

	stack := make([]obj.Object, 0, len(c.roots))
	for _, r := range c.roots {
		stack = append(stack, r)
	}
	var scratch []obj.Object
	for len(stack) > 0 {
		o := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if o == nil || !o.Valid() || o.Marked() {
			continue
		}
		o.Mark()
		if ref, ok := o.(obj.Referencer); ok {
			scratch = ref.CollectReferences(scratch[:0])
			stack = append(stack, scratch...)
		}
	}
}

// sweep removes unreachable objects from the registry and destroys
// them. An unmarked object whose intrusive strong count is above zero
// is skipped: external ownership is authoritative over reachability, so
// a live handle can never be outrun by the sweep. Victims are destroyed
// after the registry lock is dropped (Destroy re-enters Unregister).
func (c *Collector) sweep() (collected int, freed uint64) {
	c.objMu.Lock()
	var victims []obj.Object
	for id, o := range c.registered {
		if !o.Valid() {
			delete(c.registered, id)
			delete(c.roots, id)
			continue
		}
		if o.Marked() || o.RefCount() > 0 {
			continue
		}
		delete(c.registered, id)
		delete(c.roots, id)
		victims = append(victims, o)
	}
	c.objMu.Unlock()

	for _, o := range victims {
		freed += uint64(o.Footprint())
		o.Destroy()
		collected++
	}
	return collected, freed
}

// finalize is the reserved post-sweep maintenance hook. It currently
// only nudges the facade to hand free pages back.
func (c *Collector) finalize(kind Kind) {
	if kind == Full {
		c.facade.ReleaseMemoryToSystem()
	}
}

// checkTrigger evaluates the automatic trigger policy and requests a
// collection when warranted.
func (c *Collector) checkTrigger() {
	cfg := c.Config()
	if !cfg.AutoEnabled || c.inProgress.Load() || c.stopping.Load() {
		return
	}

	c.lastMu.Lock()
	since := time.Since(c.lastGC)
	c.lastMu.Unlock()
	if since < cfg.MinInterval {
		return
	}

	ratio := c.facade.UsageRatio()
	switch {
	case ratio > cfg.EscalateThreshold:
		c.Request(Major)
	case ratio > cfg.TriggerThreshold:
		c.Request(Minor)
	case since > cfg.MaxInterval:
		c.Request(Minor)
	}
}

// backgroundLoop services requests and re-evaluates the trigger policy
// at least once per MaxInterval.
func (c *Collector) backgroundLoop() {
	defer c.wg.Done()
	log := logging.GC()
	log.Debug().Msg("background loop running")
	for {
		timer := time.NewTimer(c.Config().MaxInterval)
		select {
		case <-c.stopCh:
			timer.Stop()
			log.Debug().Msg("background loop stopping")
			return
		case kind := <-c.reqCh:
			timer.Stop()
			c.collect(kind)
		case <-timer.C:
			c.checkTrigger()
		}
	}
}

// Report renders the collector's current standing for humans.
func (c *Collector) Report() string {
	return fmt.Sprintf("%s\nRegistered Objects: %d\nRoot Objects:       %d\nState:              %s",
		c.Stats().Report(), c.RegisteredCount(), c.RootCount(), c.State())
}
