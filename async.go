package kvstore

import (
	"context"
	"sync"
)

// Promise delivers the result of a queued operation exactly once:
// success or failure, never both, never zero.
type Promise[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newPromise[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

func (p *Promise[T]) complete(val T, err error) {
	p.val, p.err = val, err
	close(p.done)
}

// Done is closed once the operation has completed.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the operation completes or ctx is canceled.
// Cancellation abandons the wait only; the operation itself still runs
// to completion on the worker.
func (p *Promise[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// opQueue serializes operations through a single worker goroutine in
// strict FIFO order. Submission never blocks: the backlog is unbounded.
// The queue exists to give non-blocking callers linear, one-at-a-time
// completion; the engine's transactions provide the real isolation.
type opQueue struct {
	mu      sync.Mutex
	backlog []func()
	wake    chan struct{}
	started sync.Once
}

func newOpQueue() *opQueue {
	return &opQueue{wake: make(chan struct{}, 1)}
}

func (q *opQueue) submit(f func()) {
	q.started.Do(func() { go q.run() })
	asyncSubmitCount.Inc()
	q.mu.Lock()
	q.backlog = append(q.backlog, f)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *opQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

func (q *opQueue) run() {
	for range q.wake {
		for {
			q.mu.Lock()
			if len(q.backlog) == 0 {
				q.mu.Unlock()
				break
			}
			f := q.backlog[0]
			q.backlog = q.backlog[1:]
			q.mu.Unlock()
			f()
		}
	}
}

// GetResult is the outcome of an asynchronous lookup.
type GetResult struct {
	Value Value
	Found bool
}

// GetOrCreateAsync is GetOrCreate through the operation queue; even
// environment creation runs on the worker.
func (m *Manager) GetOrCreateAsync(dir, name string, opt Options) *Promise[*Database] {
	p := newPromise[*Database]()
	m.queue.submit(func() {
		db, err := m.GetOrCreate(dir, name, opt)
		p.complete(db, err)
	})
	return p
}

// GetOrCreateAsync opens a database via the default manager's queue.
func GetOrCreateAsync(dir, name string) *Promise[*Database] {
	return defaultManager.GetOrCreateAsync(dir, name, Options{})
}

// The Async* methods mirror their synchronous counterparts, executed on
// the manager's single worker. Operations submitted by one caller
// complete in submission order: an AsyncPut followed by an AsyncGet on
// the same key always observes the put. Errors propagate through the
// promise untouched, and a failed operation leaves the handle usable.

func (db *Database) AsyncPut(key string, value Value) *Promise[struct{}] {
	p := newPromise[struct{}]()
	db.m.queue.submit(func() {
		p.complete(struct{}{}, db.Put(key, value))
	})
	return p
}

func (db *Database) AsyncGet(key string) *Promise[GetResult] {
	p := newPromise[GetResult]()
	db.m.queue.submit(func() {
		v, found, err := db.Get(key)
		p.complete(GetResult{v, found}, err)
	})
	return p
}

func (db *Database) AsyncHas(key string) *Promise[bool] {
	p := newPromise[bool]()
	db.m.queue.submit(func() {
		found, err := db.Has(key)
		p.complete(found, err)
	})
	return p
}

func (db *Database) AsyncDelete(key string) *Promise[struct{}] {
	p := newPromise[struct{}]()
	db.m.queue.submit(func() {
		p.complete(struct{}{}, db.Delete(key))
	})
	return p
}

func (db *Database) AsyncEnumerate(from, to string) *Promise[*Enumerator] {
	p := newPromise[*Enumerator]()
	db.m.queue.submit(func() {
		e, err := db.Enumerate(from, to)
		p.complete(e, err)
	})
	return p
}
