package pool

import (
	"sort"
	"strings"
	"sync"

	"github.com/tmcallister/memkit/logging"
)

// Pooler is the type-erased surface a Manager needs from a pool.
// Every Pool[T] satisfies it.
type Pooler interface {
	Size() int
	Available() int
	InUse() int
	Shrink() int
	Clear()
	Close()
	Report() string
}

// Manager tracks named pools so maintenance can run across all of them
// at once.
type Manager struct {
	mu    sync.RWMutex
	pools map[string]Pooler
}

// NewManager constructs an empty manager.
func NewManager() *Manager {
	return &Manager{pools: make(map[string]Pooler)}
}

// Add registers a pool under a unique name.
func (m *Manager) Add(name string, p Pooler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pools[name]; ok {
		return ErrDuplicate
	}
	m.pools[name] = p
	logging.Pool().Debug().Str("pool", name).Msg("pool registered")
	return nil
}

// Get looks a pool up by name.
func (m *Manager) Get(name string) (Pooler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[name]
	return p, ok
}

// Remove forgets a pool without closing it.
func (m *Manager) Remove(name string) {
	m.mu.Lock()
	delete(m.pools, name)
	m.mu.Unlock()
}

// Len reports how many pools are registered.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pools)
}

// ShrinkAll trims every pool and returns the total objects dropped.
func (m *Manager) ShrinkAll() int {
	total := 0
	for _, p := range m.snapshot() {
		total += p.Shrink()
	}
	return total
}

// ClearAll drops every idle object in every pool.
func (m *Manager) ClearAll() {
	for _, p := range m.snapshot() {
		p.Clear()
	}
}

// CloseAll closes every pool and forgets them.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	pools := m.pools
	m.pools = make(map[string]Pooler)
	m.mu.Unlock()
	for name, p := range pools {
		p.Close()
		logging.Pool().Debug().Str("pool", name).Msg("pool closed by manager")
	}
}

// Report renders every pool's report, in name order.
func (m *Manager) Report() string {
	m.mu.RLock()
	names := make([]string, 0, len(m.pools))
	for name := range m.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[" + name + "]\n")
		b.WriteString(m.pools[name].Report())
	}
	m.mu.RUnlock()
	return b.String()
}

// snapshot copies the pool set so bulk operations run without holding
// the manager lock.
func (m *Manager) snapshot() []Pooler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Pooler, 0, len(m.pools))
	for _, p := range m.pools {
		out = append(out, p)
	}
	return out
}
