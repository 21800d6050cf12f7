package runtime_test

import (
	"testing"
	"time"

	"github.com/tmcallister/memkit/gc"
	"github.com/tmcallister/memkit/mem"
	"github.com/tmcallister/memkit/obj"
)

// vertex is the shared graph node for the end-to-end scenarios.
type vertex struct {
	obj.Base
	links    []obj.Object
	disposed int
}

func (v *vertex) Dispose() { v.disposed++ }

func (v *vertex) CollectReferences(out []obj.Object) []obj.Object {
	return append(out, v.links...)
}

// newRuntime wires a fresh facade and collector together the way a
// process would, installing the registry hook for the test's duration.
func newRuntime(t *testing.T) (*mem.Facade, *gc.Collector) {
	t.Helper()
	f := mem.New(mem.Options{ObjectBudget: 1 << 20})
	f.SetStatsEnabled(true)
	c := gc.New(gc.Config{
		AutoEnabled:       false,
		BackgroundEnabled: false,
		MinInterval:       time.Millisecond,
		MaxInterval:       time.Minute,
	}, f)
	prev := obj.SetRegistry(c)
	t.Cleanup(func() {
		obj.SetRegistry(prev)
		c.Stop()
		_ = f.Close()
	})
	return f, c
}

// buildChain creates a rooted chain of n vertices on the facade.
func buildChain(t *testing.T, f *mem.Facade, n int) *vertex {
	t.Helper()
	root, err := obj.NewOn[vertex](f, true)
	if err != nil {
		t.Fatal(err)
	}
	cur := root
	for i := 1; i < n; i++ {
		next, err := obj.NewOn[vertex](f, true)
		if err != nil {
			t.Fatal(err)
		}
		cur.links = append(cur.links, next)
		cur = next
	}
	return root
}
