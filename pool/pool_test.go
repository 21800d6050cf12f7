package pool

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tmcallister/memkit/gc"
	"github.com/tmcallister/memkit/mem"
	"github.com/tmcallister/memkit/obj"
)

// conn is the pooled guinea pig. Reset makes it Resettable.
type conn struct {
	obj.Base
	sessions int
	resets   int
}

func (c *conn) Reset() {
	c.sessions = 0
	c.resets++
}

func newFacade(t *testing.T) *mem.Facade {
	t.Helper()
	f := mem.New(mem.Options{})
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func Test_FixedSize_Exhaustion(t *testing.T) {
	p, err := New[conn](Config{
		Strategy:    FixedSize,
		InitialSize: 2,
		MaxSize:     2,
		Prewarm:     true,
	}, Options[conn]{Facade: newFacade(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	a, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}

	c, err := p.Acquire()
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v, want ErrExhausted", err)
	}
	if c.Valid() {
		t.Fatal("exhausted acquire returned a live handle")
	}

	a.Release()
	d, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	d.Release()
	b.Release()
}

func Test_Acquire_ReusesReleasedObject(t *testing.T) {
	p, err := New[conn](Config{
		Strategy:    FixedSize,
		InitialSize: 2,
		MaxSize:     2,
		Prewarm:     true,
	}, Options[conn]{Facade: newFacade(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	h1, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	first := h1.Get()
	h1.Release()

	h2, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	defer h2.Release()
	if h2.Get() != first {
		t.Fatal("released object was not handed out again")
	}
	if got := p.UsageCount(first); got != 2 {
		t.Fatalf("usage count = %d, want 2", got)
	}
	if s := p.Stats(); s.Hits != 2 || s.Created != 2 {
		t.Fatalf("stats = %+v", s)
	}
}

func Test_Dynamic_GrowsByIncrement(t *testing.T) {
	p, err := New[conn](Config{
		Strategy:        Dynamic,
		InitialSize:     0,
		MaxSize:         4,
		GrowthIncrement: 2,
		AutoShrink:      false,
	}, Options[conn]{Facade: newFacade(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	for i := 0; i < 4; i++ {
		h, err := p.Acquire()
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		defer h.Release()
	}
	if p.Size() != 4 {
		t.Fatalf("size = %d after growth, want 4", p.Size())
	}

	if _, err := p.Acquire(); !errors.Is(err, ErrExhausted) {
		t.Fatalf("err = %v past MaxSize, want ErrExhausted", err)
	}
	if s := p.Stats(); s.Created != 4 || s.Misses != 3 {
		t.Fatalf("stats = %+v", s)
	}
}

func Test_LRU_SharesLeastRecentlyUsed(t *testing.T) {
	p, err := New[conn](Config{
		Strategy: LRU,
		MaxSize:  2,
	}, Options[conn]{Facade: newFacade(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	a, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}

	c, err := p.Acquire() // at capacity: reuse the stalest checkout
	if err != nil {
		t.Fatal(err)
	}
	if c.Get() != a.Get() {
		t.Fatal("LRU did not hand out the least recently used object")
	}
	if s := p.Stats(); s.Shared != 1 {
		t.Fatalf("Shared = %d, want 1", s.Shared)
	}

	c.Release()
	a.Release()
	b.Release()
	if p.InUse() != 0 {
		t.Fatal("outstanding counts unbalanced after shared checkout")
	}
}

func Test_Circular_Rotates(t *testing.T) {
	p, err := New[conn](Config{
		Strategy: Circular,
		MaxSize:  3,
	}, Options[conn]{Facade: newFacade(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	var got []*conn
	for i := 0; i < 5; i++ {
		h, err := p.Acquire()
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, h.Get())
		defer h.Release()
	}

	if got[0] == got[1] || got[1] == got[2] || got[0] == got[2] {
		t.Fatal("first pass should create distinct objects")
	}
	if got[3] != got[0] || got[4] != got[1] {
		t.Fatal("rotation did not wrap around")
	}
	if p.Size() != 3 {
		t.Fatalf("size = %d, want 3", p.Size())
	}
}

func Test_ResetOnReturn(t *testing.T) {
	p, err := New[conn](Config{
		Strategy:      FixedSize,
		InitialSize:   1,
		MaxSize:       1,
		Prewarm:       true,
		ResetOnReturn: true,
	}, Options[conn]{Facade: newFacade(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	h, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	h.Get().sessions = 7
	h.Release()

	h2, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	defer h2.Release()
	if h2.Get().sessions != 0 || h2.Get().resets != 1 {
		t.Fatalf("sessions=%d resets=%d, want wiped state", h2.Get().sessions, h2.Get().resets)
	}
}

func Test_Init_RunsPerObject(t *testing.T) {
	seeded := 0
	p, err := New[conn](Config{
		Strategy:    FixedSize,
		InitialSize: 3,
		MaxSize:     3,
		Prewarm:     true,
	}, Options[conn]{
		Facade: newFacade(t),
		Init: func(c *conn) error {
			seeded++
			c.sessions = 1
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if seeded != 3 {
		t.Fatalf("init ran %d times, want 3", seeded)
	}
}

func Test_Init_FailureTearsDown(t *testing.T) {
	boom := errors.New("seed failed")
	_, err := New[conn](Config{
		Strategy:    FixedSize,
		InitialSize: 2,
		MaxSize:     2,
		Prewarm:     true,
	}, Options[conn]{
		Facade: newFacade(t),
		Init:   func(*conn) error { return boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the init failure", err)
	}
}

func Test_AutoShrink_TrimsSurplus(t *testing.T) {
	p, err := New[conn](Config{
		Strategy:        Dynamic,
		GrowthIncrement: 1,
		ShrinkThreshold: 1,
		AutoShrink:      true,
	}, Options[conn]{Facade: newFacade(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	handles := make([]func(), 0, 5)
	for i := 0; i < 5; i++ {
		h, err := p.Acquire()
		if err != nil {
			t.Fatal(err)
		}
		handles = append(handles, h.Release)
	}
	for _, release := range handles {
		release()
	}

	if got := p.Size(); got != 1 {
		t.Fatalf("size = %d after auto-shrink, want 1", got)
	}
}

func Test_Shrink_HonorsIdleTime(t *testing.T) {
	p, err := New[conn](Config{
		Strategy:    FixedSize,
		InitialSize: 1,
		MaxSize:     4,
		Prewarm:     true,
		MaxIdleTime: time.Hour,
		AutoShrink:  false,
	}, Options[conn]{Facade: newFacade(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if err := p.Prewarm(4); err != nil {
		t.Fatal(err)
	}

	if got := p.Shrink(); got != 0 {
		t.Fatalf("shrink dropped %d fresh objects, want 0", got)
	}
	if p.Size() != 4 {
		t.Fatalf("size = %d, want 4", p.Size())
	}
}

func Test_Clear_DetachesIdleOnly(t *testing.T) {
	p, err := New[conn](Config{
		Strategy:    FixedSize,
		InitialSize: 3,
		MaxSize:     3,
		Prewarm:     true,
	}, Options[conn]{Facade: newFacade(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	h, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	held := h.Get()

	p.Clear()
	if p.Size() != 1 {
		t.Fatalf("size = %d after Clear, want only the checkout", p.Size())
	}
	if !held.Valid() {
		t.Fatal("Clear destroyed a checked-out object")
	}
	h.Release()
}

func Test_Close_DestroysOnLastRelease(t *testing.T) {
	p, err := New[conn](Config{
		Strategy:    FixedSize,
		InitialSize: 2,
		MaxSize:     2,
		Prewarm:     true,
	}, Options[conn]{Facade: newFacade(t)})
	if err != nil {
		t.Fatal(err)
	}

	h, err := p.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	held := h.Get()

	p.Close()
	if _, err := p.Acquire(); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v after Close, want ErrClosed", err)
	}
	if !held.Valid() {
		t.Fatal("Close destroyed an object still checked out")
	}

	h.Release()
	if held.Valid() {
		t.Fatal("object survived last release into a closed pool")
	}
	if p.Size() != 0 {
		t.Fatalf("size = %d after final release, want 0", p.Size())
	}
}

func Test_PooledObjects_SurviveCollection(t *testing.T) {
	f := newFacade(t)
	c := gc.New(gc.Config{
		AutoEnabled:       false,
		BackgroundEnabled: false,
		MinInterval:       time.Second,
		MaxInterval:       time.Minute,
	}, f)
	prev := obj.SetRegistry(c)
	defer obj.SetRegistry(prev)

	p, err := New[conn](Config{
		Strategy:    FixedSize,
		InitialSize: 2,
		MaxSize:     2,
		Prewarm:     true,
	}, Options[conn]{Facade: f})
	if err != nil {
		t.Fatal(err)
	}

	// The idle pooled objects are unreachable from any root, but the
	// pool's pin keeps the sweep off them.
	c.Force(gc.Full)
	if got := c.Stats().ObjectsCollected; got != 0 {
		t.Fatalf("collector swept %d pooled objects", got)
	}
	if p.Size() != 2 {
		t.Fatalf("size = %d after collection, want 2", p.Size())
	}

	p.Close()
	c.Force(gc.Full)
	if c.RegisteredCount() != 0 {
		t.Fatalf("%d objects still registered after pool close", c.RegisteredCount())
	}
}

func Test_Manager_NamedPools(t *testing.T) {
	f := newFacade(t)
	m := NewManager()

	a, err := New[conn](Config{Strategy: FixedSize, InitialSize: 1, MaxSize: 1, Prewarm: true},
		Options[conn]{Facade: f})
	if err != nil {
		t.Fatal(err)
	}
	b, err := New[conn](Config{Strategy: Dynamic, InitialSize: 1},
		Options[conn]{Facade: f})
	if err != nil {
		t.Fatal(err)
	}

	if err := m.Add("conns", a); err != nil {
		t.Fatal(err)
	}
	if err := m.Add("scratch", b); err != nil {
		t.Fatal(err)
	}
	if err := m.Add("conns", b); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}

	got, ok := m.Get("conns")
	if !ok || got.Size() != 1 {
		t.Fatal("lookup returned the wrong pool")
	}

	report := m.Report()
	if !strings.Contains(report, "[conns]") || !strings.Contains(report, "[scratch]") {
		t.Fatalf("report missing pool sections:\n%s", report)
	}

	m.CloseAll()
	if m.Len() != 0 {
		t.Fatal("CloseAll left pools registered")
	}
	if _, err := a.Acquire(); !errors.Is(err, ErrClosed) {
		t.Fatal("CloseAll did not close the pools")
	}
}
