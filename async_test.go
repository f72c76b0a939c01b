package kvstore

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAsyncOrdering(t *testing.T) {
	m, dir := setup(t)
	db := open(t, m, dir, "")

	ctx := context.Background()

	// A put followed by a get on the same key always observes the put.
	puts := make([]*Promise[struct{}], 0, 10)
	for i := int64(0); i < 10; i++ {
		puts = append(puts, db.AsyncPut("k", Int(i)))
	}
	res := must(db.AsyncGet("k").Await(ctx))
	deepEqual(t, res.Found, true)
	deepEqual(t, res.Value, Int(9))

	for _, p := range puts {
		_, err := p.Await(ctx)
		noError(t, err)
	}
}

func TestAsyncGetOrCreate(t *testing.T) {
	m, dir := setup(t)
	ctx := context.Background()

	db, err := m.GetOrCreateAsync(dir, "things", Options{IsTesting: true}).Await(ctx)
	noError(t, err)
	t.Cleanup(db.Close)

	_, err = db.AsyncPut("k", Text("v")).Await(ctx)
	noError(t, err)
	deepEqual(t, must(db.GetString("k", "")), "v")
}

func TestAsyncErrorPropagation(t *testing.T) {
	m, dir := setup(t)
	_ = open(t, m, dir, "foo")
	def := open(t, m, dir, "")

	ctx := context.Background()
	_, err := def.AsyncPut("foo", Int(1)).Await(ctx)
	errorIs(t, err, ErrConflict)

	// The queue keeps draining after a failed operation.
	_, err = def.AsyncPut("ok", Int(2)).Await(ctx)
	noError(t, err)
}

func TestAsyncModesEquivalent(t *testing.T) {
	m, dir := setup(t)
	db := open(t, m, dir, "")
	ctx := context.Background()

	noError(t, db.Put("sync-key", Int(1)))
	_, err := db.AsyncPut("async-key", Int(2)).Await(ctx)
	noError(t, err)

	// Both modes store identical state, observable through either API.
	deepEqual(t, must(db.GetInt("async-key", 0)), int64(2))
	res := must(db.AsyncGet("sync-key").Await(ctx))
	deepEqual(t, res.Value, Int(1))

	e := must(db.AsyncEnumerate("", "").Await(ctx))
	deepEqual(t, e.Keys(), []string{"async-key", "sync-key"})
}

func TestAsyncHasDelete(t *testing.T) {
	m, dir := setup(t)
	db := open(t, m, dir, "")
	ctx := context.Background()

	_, err := db.AsyncPut("k", Null()).Await(ctx)
	noError(t, err)
	deepEqual(t, must(db.AsyncHas("k").Await(ctx)), true)
	_, err = db.AsyncDelete("k").Await(ctx)
	noError(t, err)
	deepEqual(t, must(db.AsyncHas("k").Await(ctx)), false)
}

func TestAwaitCancellation(t *testing.T) {
	p := newPromise[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Await(ctx)
	errorIs(t, err, context.Canceled)

	// The promise still completes independently of abandoned waiters.
	p.complete(42, nil)
	deepEqual(t, must(p.Await(context.Background())), 42)
}

func TestConcurrentGetOrCreate(t *testing.T) {
	m, dir := setup(t)

	const n = 16
	dbs := make([]*Database, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			dbs[i] = must(m.GetOrCreate(dir, "", Options{IsTesting: true}))
		}(i)
	}
	wg.Wait()

	env := dbs[0].Environment()
	for _, db := range dbs {
		if db.Environment() != env {
			t.Fatalf("** concurrent opens produced distinct environments")
		}
		t.Cleanup(db.Close)
	}
}

func TestPromiseDone(t *testing.T) {
	m, dir := setup(t)
	db := open(t, m, dir, "")

	p := db.AsyncPut("k", Int(1))
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("** promise never completed")
	}
}
