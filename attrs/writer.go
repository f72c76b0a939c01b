package attrs

import (
	"slices"
	"sync"

	"github.com/andreyvit/kvstore"
)

// Writer coalesces attribute writes so that UI callers never block on
// the engine. Pending changes collect in a map (last write per key
// wins) and a background goroutine applies them in sorted key order;
// a remove scheduled after a set cancels it, and vice versa.
type Writer struct {
	s    *Store
	wake chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup

	// flushMu serializes flushes so a failed batch is back in pending
	// before the next flush takes its snapshot.
	flushMu sync.Mutex

	mu      sync.Mutex
	pending map[string]pendingWrite
}

type pendingWrite struct {
	value  string
	remove bool
}

func NewWriter(s *Store) *Writer {
	w := &Writer{
		s:    s,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// SetValue schedules a write. The value is validated and truncated at
// scheduling time, exactly as Store.SetValue would.
func (w *Writer) SetValue(doc, id, attr, value string) error {
	if err := checkNames(id, attr); err != nil {
		return err
	}
	value = w.s.clamp(doc, id, attr, value)
	w.enqueue(makeKey(doc, id, attr), pendingWrite{value: value})
	return nil
}

// RemoveValue schedules a removal.
func (w *Writer) RemoveValue(doc, id, attr string) error {
	if err := checkNames(id, attr); err != nil {
		return err
	}
	w.enqueue(makeKey(doc, id, attr), pendingWrite{remove: true})
	return nil
}

func (w *Writer) enqueue(key string, pw pendingWrite) {
	w.mu.Lock()
	if w.pending == nil {
		w.pending = make(map[string]pendingWrite)
	}
	w.pending[key] = pw
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Flush applies every change pending at the time of the call, on the
// calling goroutine, in sorted key order, as one atomic batch: either
// the whole set of pending changes commits or none of it does.
func (w *Writer) Flush() error {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	pending := w.pending
	w.pending = nil
	w.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}

	keys := make([]string, 0, len(pending))
	for key := range pending {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var batch kvstore.Batch
	for _, key := range keys {
		if pw := pending[key]; pw.remove {
			batch.Delete(key)
		} else {
			batch.Put(key, kvstore.Text(pw.value))
		}
	}
	if err := w.s.db.Apply(&batch); err != nil {
		// Nothing was committed. Put the batch back for a later retry,
		// without clobbering writes scheduled since the snapshot.
		w.mu.Lock()
		if w.pending == nil {
			w.pending = pending
		} else {
			for key, pw := range pending {
				if _, ok := w.pending[key]; !ok {
					w.pending[key] = pw
				}
			}
		}
		w.mu.Unlock()
		return err
	}
	return nil
}

// Close flushes outstanding changes and stops the background goroutine.
func (w *Writer) Close() error {
	close(w.stop)
	w.wg.Wait()
	return w.Flush()
}

func (w *Writer) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.wake:
			if err := w.Flush(); err != nil {
				w.s.log.Error("attrs: background flush failed", "err", err)
			}
		case <-w.stop:
			return
		}
	}
}
