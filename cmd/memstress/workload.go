package main

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tmcallister/memkit/gc"
	"github.com/tmcallister/memkit/handle"
	"github.com/tmcallister/memkit/logging"
	"github.com/tmcallister/memkit/obj"
	"github.com/tmcallister/memkit/pool"
)

// record is a graph vertex with some weight to it, so the allocator
// and the collector both feel the churn.
type record struct {
	obj.Base
	payload [256]byte
	links   []obj.Object
}

func (r *record) CollectReferences(out []obj.Object) []obj.Object {
	return append(out, r.links...)
}

// buffer is the pooled scratch object.
type buffer struct {
	obj.Base
	data []byte
	used int
}

func (b *buffer) Reset() { b.used = 0 }

// WorkloadResult aggregates the counters across workers.
type WorkloadResult struct {
	Elapsed       time.Duration
	GraphsBuilt   uint64
	GraphsDropped uint64
	ObjectsMade   uint64
	HandleOps     uint64
	PoolAcquires  uint64
	PoolExhausted uint64
}

// Report renders the run for humans.
func (r *WorkloadResult) Report() string {
	return fmt.Sprintf(
		"=== Workload Report ===\n"+
			"Elapsed:        %s\n"+
			"Graphs:         %d built, %d dropped as garbage\n"+
			"Objects:        %d created\n"+
			"Handle Ops:     %d\n"+
			"Pool Acquires:  %d (%d exhausted)",
		r.Elapsed.Round(time.Millisecond),
		r.GraphsBuilt, r.GraphsDropped, r.ObjectsMade,
		r.HandleOps, r.PoolAcquires, r.PoolExhausted)
}

// RunWorkload churns object graphs, shared handles and a pool from
// cfg.Workers goroutines until the configured duration elapses.
func RunWorkload(cfg WorkloadConfig) (*WorkloadResult, error) {
	scratch, err := pool.New[buffer](pool.Config{
		Strategy:      pool.Dynamic,
		InitialSize:   cfg.PoolSize,
		MaxSize:       cfg.PoolMaxSize,
		Prewarm:       true,
		AutoShrink:    true,
		ResetOnReturn: true,
	}, pool.Options[buffer]{
		Init: func(b *buffer) error {
			b.data = make([]byte, 4096)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create scratch pool: %w", err)
	}
	defer scratch.Close()

	pools := pool.NewManager()
	if err := pools.Add("scratch", scratch); err != nil {
		return nil, err
	}

	log := logging.ForCategory("workload")
	log.Info().
		Int("workers", cfg.Workers).
		Dur("duration", time.Duration(cfg.Duration)).
		Msg("workload starting")

	var res WorkloadResult
	deadline := time.Now().Add(time.Duration(cfg.Duration))
	start := time.Now()

	var wg sync.WaitGroup
	errCh := make(chan error, cfg.Workers)
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			if err := worker(cfg, scratch, deadline, seed, &res); err != nil {
				errCh <- err
			}
		}(int64(w) + 1)
	}
	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return nil, err
	}

	res.Elapsed = time.Since(start)
	log.Info().
		Uint64("graphs", res.GraphsBuilt).
		Uint64("objects", res.ObjectsMade).
		Msg("workload finished")
	fmt.Println(pools.Report())
	return &res, nil
}

func worker(cfg WorkloadConfig, scratch *pool.Pool[buffer], deadline time.Time, seed int64, res *WorkloadResult) error {
	rng := rand.New(rand.NewSource(seed))
	collector := gc.Default()

	for time.Now().Before(deadline) {
		root, err := buildGraph(cfg.GraphSize, rng)
		if err != nil {
			return err
		}
		collector.AddRoot(root)
		atomic.AddUint64(&res.GraphsBuilt, 1)
		atomic.AddUint64(&res.ObjectsMade, uint64(cfg.GraphSize))

		// Pin a random vertex through a shared handle, clone it around
		// and let the clones go again.
		if len(root.links) > 0 {
			v := root.links[rng.Intn(len(root.links))].(*record)
			h := handle.New(v)
			clone := h.Clone()
			weak := h.Weak()
			if s := weak.Lock(); s.Valid() {
				s.Release()
			}
			weak.Release()
			clone.Release()
			h.Release()
			atomic.AddUint64(&res.HandleOps, 5)
		}

		// Scratch buffer round trip.
		if buf, err := scratch.Acquire(); err == nil {
			b := buf.Get()
			n := rng.Intn(len(b.data))
			for i := 0; i < n; i += 512 {
				b.data[i] = byte(i)
			}
			b.used = n
			buf.Release()
			atomic.AddUint64(&res.PoolAcquires, 1)
		} else if errors.Is(err, pool.ErrExhausted) {
			atomic.AddUint64(&res.PoolExhausted, 1)
		} else {
			return err
		}

		// Churn: most graphs become garbage for the collector.
		if rng.Float64() < cfg.ChurnRatio {
			collector.RemoveRoot(root)
			atomic.AddUint64(&res.GraphsDropped, 1)
		}
	}
	return nil
}

// buildGraph creates a root owning n-1 vertices, with a few random
// cross links so the mark phase sees shared structure and cycles.
func buildGraph(n int, rng *rand.Rand) (*record, error) {
	root, err := obj.New[record]()
	if err != nil {
		return nil, err
	}
	nodes := make([]*record, 0, n-1)
	for i := 1; i < n; i++ {
		v, err := obj.New[record]()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, v)
		root.links = append(root.links, v)
	}
	for i := 0; i+1 < len(nodes); i += 4 {
		a := nodes[rng.Intn(len(nodes))]
		b := nodes[rng.Intn(len(nodes))]
		a.links = append(a.links, b)
	}
	return root, nil
}
