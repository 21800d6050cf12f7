package handle

import "testing"

func Test_Unique_Nil_YieldsEmptyHandle(t *testing.T) {
	u := NewUnique[tracked](nil)
	if u.Valid() || u.Get() != nil {
		t.Fatal("nil wrap must be the empty handle")
	}
	u.Release() // must be safe
}

func Test_Unique_ReleaseDestroysOnce(t *testing.T) {
	obj, destroyed := newTracked(t)
	u := NewUniqueWithDeleter(obj, func(o *tracked) { o.destroyed.Add(1) })

	if !u.Valid() || u.Get() != obj {
		t.Fatal("handle must own the wrapped pointee")
	}
	u.Release()
	if destroyed.Load() != 1 {
		t.Fatalf("destroyed %d times, want 1", destroyed.Load())
	}
	u.Release() // idempotent on empty
	if destroyed.Load() != 1 {
		t.Fatal("release on an empty handle ran the deleter again")
	}
}

func Test_Unique_IntrusiveBridge(t *testing.T) {
	c := &counted{}
	u := NewUnique(c)
	if c.refs.Load() != 1 {
		t.Fatalf("refs = %d after wrap, want 1", c.refs.Load())
	}
	u.Release()
	if c.refs.Load() != 0 {
		t.Fatalf("refs = %d after release, want 0", c.refs.Load())
	}
}

func Test_Unique_TransferEmptiesSource(t *testing.T) {
	obj, destroyed := newTracked(t)
	a := NewUniqueWithDeleter(obj, func(o *tracked) { o.destroyed.Add(1) })

	b := a.Transfer()
	if a.Valid() {
		t.Fatal("source still owns after transfer")
	}
	if !b.Valid() || b.Get() != obj {
		t.Fatal("destination did not take ownership")
	}

	a.Release() // no-op on the emptied source
	if destroyed.Load() != 0 {
		t.Fatal("transfer must not destroy")
	}
	b.Release()
	if destroyed.Load() != 1 {
		t.Fatalf("destroyed %d times, want 1", destroyed.Load())
	}
}

func Test_Unique_DetachSkipsDeleter(t *testing.T) {
	obj, destroyed := newTracked(t)
	u := NewUniqueWithDeleter(obj, func(o *tracked) { o.destroyed.Add(1) })

	raw := u.Detach()
	if raw != obj || u.Valid() {
		t.Fatal("detach must return the pointee and empty the handle")
	}
	u.Release()
	if destroyed.Load() != 0 {
		t.Fatal("deleter ran on a detached pointee")
	}
}

func Test_Unique_Swap(t *testing.T) {
	x, xDestroyed := newTracked(t)
	y, yDestroyed := newTracked(t)
	a := NewUniqueWithDeleter(x, func(o *tracked) { o.destroyed.Add(1) })
	b := NewUniqueWithDeleter(y, func(o *tracked) { o.destroyed.Add(1) })

	a.Swap(&b)
	if a.Get() != y || b.Get() != x {
		t.Fatal("swap did not exchange pointees")
	}

	a.Release()
	if yDestroyed.Load() != 1 || xDestroyed.Load() != 0 {
		t.Fatal("deleter did not travel with its pointee")
	}
	b.Release()
	if xDestroyed.Load() != 1 {
		t.Fatal("second pointee not destroyed by its handle")
	}
}
