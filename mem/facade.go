package mem

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tmcallister/memkit/logging"
)

const (
	pageSize = 4096

	// defaultArenaSize is the growth unit when an allocation does not fit
	// in any existing arena.
	defaultArenaSize = 1 << 20 // 1MB

	// headerSize is the per-cell bookkeeping prefix: a 4-byte size tag
	// plus padding so payloads stay 8-byte aligned.
	headerSize = 8

	// minCell is the smallest cell ever created. Splitting a free cell
	// never leaves a remainder below this.
	minCell = 16

	// maxAlign is the largest supported alignment. Arena bases are page
	// aligned, so offset alignment equals address alignment up to this.
	maxAlign = pageSize
)

// arena is one mmap'd region carved into cells. A cell starts with a
// 4-byte little-endian size tag: positive = free cell of that total size,
// negative = allocated cell of -tag total size. Cells tile the arena
// exactly and never cross arena boundaries.
type arena struct {
	data []byte
}

func (a *arena) tag(off int32) int32 {
	return int32(binary.LittleEndian.Uint32(a.data[off:]))
}

func (a *arena) setTag(off, v int32) {
	binary.LittleEndian.PutUint32(a.data[off:], uint32(v))
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func alignUp32(v, align int32) int32 {
	return (v + align - 1) &^ (align - 1)
}

// block records where a handed-out buffer lives so Deallocate can find
// its cell again.
type block struct {
	arena int
	off   int32 // cell start
	total int32 // total cell size including header
	size  int32 // user-visible length
}

// Options configures a Facade.
type Options struct {
	// ArenaSize is the growth unit in bytes, rounded up to a 4KB page
	// multiple. Default: 1MB.
	ArenaSize int

	// ObjectBudget caps outstanding managed-object bytes reserved via
	// AllocateObject. 0 means unlimited. When set, the budget also gives
	// UsageRatio meaning for the collector's trigger policy.
	ObjectBudget uint64
}

// Facade is the instrumented allocator every managed object is
// constructed against. The zero value is not usable; call New.
type Facade struct {
	mu     sync.Mutex
	arenas []*arena
	owned  map[*byte]block
	closed bool

	arenaSize    int
	objectBudget uint64
	objectUsed   atomic.Uint64

	stats *counters
}

// New constructs a Facade. No arena is mapped until the first raw
// allocation.
func New(opts Options) *Facade {
	size := opts.ArenaSize
	if size <= 0 {
		size = defaultArenaSize
	}
	size = (size + pageSize - 1) &^ (pageSize - 1)
	return &Facade{
		owned:        make(map[*byte]block),
		arenaSize:    size,
		objectBudget: opts.ObjectBudget,
		stats:        newCounters(),
	}
}

var (
	defaultMu     sync.Mutex
	defaultFacade *Facade
)

// Default returns the process-wide facade, creating it with default
// options on first use.
func Default() *Facade {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultFacade == nil {
		defaultFacade = New(Options{})
	}
	return defaultFacade
}

// SetDefault installs f as the process-wide facade and returns the
// previous one (nil if none). Intended for init/shutdown wiring and
// tests; swapping while allocations are outstanding is the caller's
// problem.
func SetDefault(f *Facade) *Facade {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultFacade
	defaultFacade = f
	return prev
}

// Allocate returns a buffer of exactly size bytes. align 0 means the
// default 8-byte alignment; otherwise align must be a power of two no
// larger than a page.
func (f *Facade) Allocate(size int, align int) ([]byte, error) {
	if size <= 0 || size > int(^uint32(0)>>2) {
		return nil, ErrBadSize
	}
	if align == 0 {
		align = 8
	}
	if align&(align-1) != 0 || align > maxAlign {
		return nil, ErrBadAlign
	}
	if align < 8 {
		align = 8
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	buf, err := f.carve(int32(size), int32(align))
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	f.stats.record(uint64(size), true)
	return buf, nil
}

// carve finds or creates a free cell that can hold size bytes at the
// requested alignment. Caller holds f.mu.
func (f *Facade) carve(size, align int32) ([]byte, error) {
	for i, a := range f.arenas {
		if buf, ok := f.carveFrom(i, a, size, align); ok {
			return buf, nil
		}
	}

	// No fit anywhere: map a fresh arena big enough for the worst case.
	need := int(size) + headerSize + int(align)
	grow := f.arenaSize
	if need > grow {
		grow = (need + pageSize - 1) &^ (pageSize - 1)
	}
	data, err := mapPages(grow)
	if err != nil {
		logging.Memory().Error().Err(err).Int("bytes", grow).Msg("arena map failed")
		return nil, fmt.Errorf("%w: %v", ErrAllocFailed, err)
	}
	a := &arena{data: data}
	a.setTag(0, int32(len(data)))
	f.arenas = append(f.arenas, a)
	logging.Memory().Debug().Int("bytes", grow).Int("arenas", len(f.arenas)).Msg("arena mapped")

	buf, ok := f.carveFrom(len(f.arenas)-1, a, size, align)
	if !ok {
		return nil, ErrAllocFailed
	}
	return buf, nil
}

// carveFrom walks one arena's cell chain first-fit. Returns false when no
// free cell can satisfy the request.
func (f *Facade) carveFrom(idx int, a *arena, size, align int32) ([]byte, bool) {
	end := int32(len(a.data))
	for off := int32(0); off < end; {
		t := a.tag(off)
		total := abs32(t)
		if t > 0 {
			payload := alignUp32(off+headerSize, align)
			needEnd := payload + size
			if needEnd <= off+total {
				used := alignUp32(needEnd-off, 8)
				rest := total - used
				if rest >= minCell {
					a.setTag(off+used, rest)
				} else {
					used = total
				}
				a.setTag(off, -used)
				buf := a.data[payload:needEnd:needEnd]
				f.owned[&buf[0]] = block{arena: idx, off: off, total: used, size: size}
				return buf, true
			}
		}
		off += total
	}
	return nil, false
}

// Deallocate returns a buffer obtained from Allocate. A nil or empty
// buffer is a no-op.
func (f *Facade) Deallocate(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	key := &buf[0]
	b, ok := f.owned[key]
	if !ok {
		f.mu.Unlock()
		return ErrBadPointer
	}
	delete(f.owned, key)
	f.release(b)
	f.mu.Unlock()
	f.stats.record(uint64(b.size), false)
	return nil
}

// release marks a cell free and coalesces it with free neighbors.
// Caller holds f.mu.
func (f *Facade) release(b block) {
	a := f.arenas[b.arena]
	total := b.total

	// Absorb the following cell while it is free.
	next := b.off + total
	for next < int32(len(a.data)) {
		nt := a.tag(next)
		if nt <= 0 {
			break
		}
		total += nt
		next += nt
	}

	// Absorb into the preceding cell when that one is free too.
	prev := int32(-1)
	for off := int32(0); off < b.off; {
		prev = off
		off += abs32(a.tag(off))
	}
	if prev >= 0 {
		if pt := a.tag(prev); pt > 0 {
			a.setTag(prev, pt+total)
			return
		}
	}
	a.setTag(b.off, total)
}

// Reallocate resizes a buffer, moving it if needed. A nil buffer behaves
// like Allocate; newSize 0 behaves like Deallocate and returns nil.
func (f *Facade) Reallocate(buf []byte, newSize int) ([]byte, error) {
	if newSize == 0 {
		if err := f.Deallocate(buf); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if len(buf) == 0 {
		return f.Allocate(newSize, 0)
	}
	if newSize == len(buf) {
		return buf, nil
	}
	fresh, err := f.Allocate(newSize, 0)
	if err != nil {
		return nil, err
	}
	copy(fresh, buf)
	if err := f.Deallocate(buf); err != nil {
		// The old buffer was not ours; undo and surface the misuse.
		_ = f.Deallocate(fresh)
		return nil, err
	}
	return fresh, nil
}

// AllocateZeroed allocates count*size bytes and guarantees the buffer is
// zero-filled even when the cell is recycled.
func (f *Facade) AllocateZeroed(count, size int) ([]byte, error) {
	if count <= 0 || size <= 0 {
		return nil, ErrBadSize
	}
	total := count * size
	if total/size != count {
		return nil, ErrBadSize
	}
	buf, err := f.Allocate(total, 0)
	if err != nil {
		return nil, err
	}
	clear(buf)
	return buf, nil
}

// AllocateAligned allocates size bytes whose first byte sits on an align
// boundary. align must be a power of two no larger than a page.
func (f *Facade) AllocateAligned(size, align int) ([]byte, error) {
	if align <= 0 {
		return nil, ErrBadAlign
	}
	return f.Allocate(size, align)
}

// DeallocateAligned releases a buffer from AllocateAligned.
func (f *Facade) DeallocateAligned(buf []byte) error {
	return f.Deallocate(buf)
}

// BlockSize reports the user-visible size of a facade-owned buffer, or 0
// when the buffer is not owned by this facade.
func (f *Facade) BlockSize(buf []byte) int {
	if len(buf) == 0 {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.owned[&buf[0]]
	if !ok {
		return 0
	}
	return int(b.size)
}

// AllocateObject reserves size bytes of managed-object budget. The
// object itself lives on the Go heap; the facade keeps the accounting
// authority and the failure semantics. A non-nil error is fatal for the
// construction path: the caller must not proceed with the object.
func (f *Facade) AllocateObject(size int) error {
	if size <= 0 {
		return ErrBadSize
	}
	if f.objectBudget > 0 {
		for {
			used := f.objectUsed.Load()
			next := used + uint64(size)
			if next > f.objectBudget {
				logging.Memory().Error().
					Uint64("used", used).
					Uint64("budget", f.objectBudget).
					Int("requested", size).
					Msg("object budget exhausted")
				return ErrAllocFailed
			}
			if f.objectUsed.CompareAndSwap(used, next) {
				break
			}
		}
	} else {
		f.objectUsed.Add(uint64(size))
	}
	f.stats.record(uint64(size), true)
	return nil
}

// DeallocateObject returns size bytes of managed-object budget.
func (f *Facade) DeallocateObject(size int) {
	if size <= 0 {
		return
	}
	for {
		used := f.objectUsed.Load()
		next := used - uint64(size)
		if used < uint64(size) {
			next = 0
		}
		if f.objectUsed.CompareAndSwap(used, next) {
			break
		}
	}
	f.stats.record(uint64(size), false)
}

// ObjectBytes reports outstanding managed-object bytes.
func (f *Facade) ObjectBytes() uint64 {
	return f.objectUsed.Load()
}

// UsageRatio reports outstanding object bytes as a fraction of the
// configured budget. Without a budget the ratio is always 0, which
// leaves the collector's threshold trigger dormant.
func (f *Facade) UsageRatio() float64 {
	if f.objectBudget == 0 {
		return 0
	}
	return float64(f.objectUsed.Load()) / float64(f.objectBudget)
}

// Stats returns a snapshot of the facade counters.
func (f *Facade) Stats() Stats {
	return f.stats.snapshot()
}

// ResetStats zeroes the counters. Outstanding allocations are unaffected.
func (f *Facade) ResetStats() {
	f.stats.reset()
}

// SetStatsEnabled toggles statistics collection.
func (f *Facade) SetStatsEnabled(enabled bool) {
	f.stats.enabled.Store(enabled)
}

// StatsEnabled reports whether statistics collection is on.
func (f *Facade) StatsEnabled() bool {
	return f.stats.enabled.Load()
}

// ReleaseMemoryToSystem advises the kernel that fully-free arenas may be
// reclaimed. Mappings stay valid. Best effort; returns the number of
// bytes advised.
func (f *Facade) ReleaseMemoryToSystem() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0
	}
	released := 0
	for _, a := range f.arenas {
		if t := a.tag(0); t == int32(len(a.data)) {
			if err := advisePagesFree(a.data); err == nil {
				// The whole-arena free tag lives in the advised pages
				// and refaults as zeros; restore it so the cell walk
				// still tiles the arena.
				a.setTag(0, int32(len(a.data)))
				released += len(a.data)
			}
		}
	}
	if released > 0 {
		logging.Memory().Debug().Int("bytes", released).Msg("released free arenas to system")
	}
	return released
}

// VerifyHeap walks every arena checking that cells tile the region
// exactly, tags are sane, and allocated cells match the ownership table.
// Non-mutating; failures are logged and reported as false so the check
// can run inside periodic health probes.
func (f *Facade) VerifyHeap() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	log := logging.Memory()
	allocated := 0
	for i, a := range f.arenas {
		end := int32(len(a.data))
		for off := int32(0); off < end; {
			t := a.tag(off)
			total := abs32(t)
			if t == 0 || total < minCell || off+total > end || total%8 != 0 {
				log.Error().Int("arena", i).Int32("offset", off).Int32("tag", t).Msg("heap corruption: bad cell tag")
				return false
			}
			if t < 0 {
				allocated++
			}
			off += total
		}
	}
	if allocated != len(f.owned) {
		log.Error().Int("cells", allocated).Int("owned", len(f.owned)).Msg("heap corruption: ownership table mismatch")
		return false
	}
	return true
}

// Close unmaps every arena. Buffers handed out earlier become invalid;
// the caller is responsible for ordering shutdown across subsystems.
func (f *Facade) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	if n := len(f.owned); n > 0 {
		logging.Memory().Warn().Int("outstanding", n).Msg("facade closed with live allocations")
	}
	var firstErr error
	for _, a := range f.arenas {
		if err := unmapPages(a.data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.arenas = nil
	f.owned = make(map[*byte]block)
	return firstErr
}
