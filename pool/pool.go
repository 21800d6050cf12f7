package pool

import (
	"sync"
	"time"

	"github.com/tmcallister/memkit/handle"
	"github.com/tmcallister/memkit/logging"
	"github.com/tmcallister/memkit/mem"
	"github.com/tmcallister/memkit/obj"
)

// Resettable is implemented by pooled objects that need to wipe state
// between uses. Invoked when the last handle to the object returns it
// and the pool's ResetOnReturn option is set.
type Resettable interface {
	Reset()
}

// entry is one pooled slot. outstanding counts the handles currently
// holding the object; LRU and Circular pools can push it above one.
type entry[T any] struct {
	p           *T
	o           obj.Object
	outstanding int
	created     time.Time
	lastUsed    time.Time
	uses        uint64
}

// Options configures construction beyond the strategy knobs.
type Options[T any] struct {
	// Facade backs the pooled objects. Nil means the process default.
	Facade *mem.Facade

	// Init runs once per freshly created object, before it is handed
	// out for the first time.
	Init func(*T) error
}

// Pool recycles managed objects of a single type. The zero value is
// not usable; construct with New.
type Pool[T any] struct {
	mu      sync.Mutex
	cfg     Config
	facade  *mem.Facade
	init    func(*T) error
	entries []*entry[T]
	next    int // circular cursor
	closed  bool
	stats   Stats
}

// New constructs a pool. With Prewarm set, InitialSize objects are
// created immediately and a construction failure tears the pool down.
func New[T any](cfg Config, opts Options[T]) (*Pool[T], error) {
	f := opts.Facade
	if f == nil {
		f = mem.Default()
	}
	p := &Pool[T]{
		cfg:    cfg.sanitize(),
		facade: f,
		init:   opts.Init,
	}
	if p.cfg.Prewarm {
		if err := p.Prewarm(p.cfg.InitialSize); err != nil {
			p.Close()
			return nil, err
		}
	}
	logging.Pool().Debug().
		Stringer("strategy", p.cfg.Strategy).
		Int("initial", p.cfg.InitialSize).
		Int("max", p.cfg.MaxSize).
		Msg("pool created")
	return p, nil
}

// create allocates one pooled object and pins it with an intrusive
// reference so the collector leaves it alone. Caller holds p.mu.
func (p *Pool[T]) create() (*entry[T], error) {
	ptr, err := obj.NewOn[T](p.facade, true)
	if err != nil {
		return nil, err
	}
	o := any(ptr).(obj.Object)
	if p.init != nil {
		if err := p.init(ptr); err != nil {
			o.Destroy()
			return nil, err
		}
	}
	o.AddRef()
	now := time.Now()
	e := &entry[T]{p: ptr, o: o, created: now, lastUsed: now}
	p.entries = append(p.entries, e)
	p.stats.Created++
	return e, nil
}

// drop unpins entry i and removes it from the slot list. The object is
// destroyed once no handle holds it. Caller holds p.mu.
func (p *Pool[T]) drop(i int) {
	e := p.entries[i]
	p.entries = append(p.entries[:i], p.entries[i+1:]...)
	if p.next > i {
		p.next--
	}
	e.o.Release()
	p.stats.Destroyed++
}

// capacity is the effective slot limit, 0 meaning unbounded.
func (p *Pool[T]) capacity() int {
	if p.cfg.Strategy == Dynamic {
		return p.cfg.MaxSize
	}
	c := p.cfg.MaxSize
	if c == 0 {
		c = p.cfg.InitialSize
	}
	return c
}

// Acquire checks an object out of the pool behind a shared handle. The
// handle's deleter returns the object to the pool; callers must
// Release (or let every clone release) rather than destroy. When the
// pool cannot supply an object the handle is empty and the error says
// why.
func (p *Pool[T]) Acquire() (handle.Shared[T], error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return handle.Shared[T]{}, ErrClosed
	}

	e, err := p.pick()
	if err != nil {
		p.mu.Unlock()
		logging.Pool().Debug().Err(err).Int("size", len(p.entries)).Msg("acquire failed")
		return handle.Shared[T]{}, err
	}

	if e.outstanding > 0 {
		p.stats.Shared++
	}
	e.outstanding++
	e.uses++
	e.lastUsed = time.Now()
	p.stats.Acquired++
	p.mu.Unlock()

	return handle.NewWithDeleter(e.p, func(*T) { p.release(e) }), nil
}

// pick selects or creates the slot to hand out. Caller holds p.mu.
func (p *Pool[T]) pick() (*entry[T], error) {
	if p.cfg.Strategy == Circular {
		return p.pickCircular()
	}

	for _, e := range p.entries {
		if e.outstanding == 0 {
			p.stats.Hits++
			return e, nil
		}
	}
	p.stats.Misses++

	limit := p.capacity()
	switch p.cfg.Strategy {
	case FixedSize:
		if limit > 0 && len(p.entries) >= limit {
			return nil, ErrExhausted
		}
		return p.create()
	case Dynamic:
		if limit > 0 && len(p.entries) >= limit {
			return nil, ErrExhausted
		}
		grow := p.cfg.GrowthIncrement
		if limit > 0 && len(p.entries)+grow > limit {
			grow = limit - len(p.entries)
		}
		first, err := p.create()
		if err != nil {
			return nil, err
		}
		for i := 1; i < grow; i++ {
			if _, err := p.create(); err != nil {
				break // the first object still serves the caller
			}
		}
		return first, nil
	case LRU:
		if limit > 0 && len(p.entries) >= limit {
			lru := p.entries[0]
			for _, e := range p.entries[1:] {
				if e.lastUsed.Before(lru.lastUsed) {
					lru = e
				}
			}
			return lru, nil
		}
		return p.create()
	default:
		return nil, ErrExhausted
	}
}

// pickCircular advances the rotor, creating slots until the pool is at
// capacity. Caller holds p.mu.
func (p *Pool[T]) pickCircular() (*entry[T], error) {
	limit := p.capacity()
	if limit <= 0 {
		limit = 1
	}
	if len(p.entries) < limit {
		p.stats.Misses++
		return p.create()
	}
	e := p.entries[p.next%len(p.entries)]
	p.next = (p.next + 1) % len(p.entries)
	p.stats.Hits++
	return e, nil
}

// release is the handle deleter path: the last strong reference to a
// checkout came back.
func (p *Pool[T]) release(e *entry[T]) {
	p.mu.Lock()
	p.stats.Released++
	if e.outstanding > 0 {
		e.outstanding--
	}
	idle := e.outstanding == 0
	if idle {
		e.lastUsed = time.Now()
	}

	if p.closed {
		// The pool no longer wants the object back.
		for i, cur := range p.entries {
			if cur == e && idle {
				p.drop(i)
				break
			}
		}
		p.mu.Unlock()
		return
	}

	if idle && p.cfg.ResetOnReturn {
		if r, ok := any(e.p).(Resettable); ok {
			r.Reset()
		}
	}
	p.autoShrink()
	p.mu.Unlock()
}

// autoShrink trims surplus idle slots. Caller holds p.mu.
func (p *Pool[T]) autoShrink() {
	if !p.cfg.AutoShrink {
		return
	}
	avail := 0
	inUse := 0
	for _, e := range p.entries {
		if e.outstanding == 0 {
			avail++
		} else {
			inUse++
		}
	}
	if avail <= 2*p.cfg.ShrinkThreshold {
		return
	}
	p.shrinkLocked(inUse + p.cfg.ShrinkThreshold)
}

// shrinkLocked drops idle slots until the pool holds at most target.
// With MaxIdleTime set only idle-expired slots are dropped. Caller
// holds p.mu. Returns how many slots were dropped.
func (p *Pool[T]) shrinkLocked(target int) int {
	dropped := 0
	now := time.Now()
	for i := len(p.entries) - 1; i >= 0 && len(p.entries) > target; i-- {
		e := p.entries[i]
		if e.outstanding != 0 {
			continue
		}
		if p.cfg.MaxIdleTime > 0 && now.Sub(e.lastUsed) < p.cfg.MaxIdleTime {
			continue
		}
		p.drop(i)
		dropped++
	}
	if dropped > 0 {
		logging.Pool().Debug().Int("dropped", dropped).Int("size", len(p.entries)).Msg("pool shrunk")
	}
	return dropped
}

// Shrink trims idle slots down to InitialSize, honoring MaxIdleTime.
// Returns how many objects were dropped.
func (p *Pool[T]) Shrink() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0
	}
	return p.shrinkLocked(p.cfg.InitialSize)
}

// Prewarm creates idle objects until the pool holds at least n,
// respecting the capacity limit.
func (p *Pool[T]) Prewarm(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	limit := p.capacity()
	for len(p.entries) < n && (limit == 0 || len(p.entries) < limit) {
		if _, err := p.create(); err != nil {
			return err
		}
	}
	return nil
}

// Clear drops every idle object. Checked-out objects are detached:
// they return to their handles' ownership and are destroyed when the
// last handle releases.
func (p *Pool[T]) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.entries) - 1; i >= 0; i-- {
		if p.entries[i].outstanding == 0 {
			p.drop(i)
		}
	}
}

// Close clears the pool and rejects further Acquire calls. Objects
// still checked out are destroyed as their handles release.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for i := len(p.entries) - 1; i >= 0; i-- {
		if p.entries[i].outstanding == 0 {
			p.drop(i)
		}
		// Checked-out slots are dropped by the deleter path.
	}
	logging.Pool().Debug().Msg("pool closed")
}

// Size reports the total slot count, checked out or not.
func (p *Pool[T]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Available reports how many objects are idle in the pool.
func (p *Pool[T]) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.entries {
		if e.outstanding == 0 {
			n++
		}
	}
	return n
}

// InUse reports how many objects are currently checked out.
func (p *Pool[T]) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.entries {
		if e.outstanding > 0 {
			n++
		}
	}
	return n
}

// UsageCount reports how many times the given checked-out object has
// been handed out, zero when the object is not pooled here.
func (p *Pool[T]) UsageCount(ptr *T) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		if e.p == ptr {
			return e.uses
		}
	}
	return 0
}
