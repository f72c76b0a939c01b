package kvstore

import (
	"fmt"

	"go.etcd.io/bbolt"
)

// Batch collects puts and deletes for atomic application: Apply commits
// the whole batch in one transaction or none of it.
type Batch struct {
	ops []batchOp
}

type batchOp struct {
	key    string
	value  Value
	remove bool
}

func (b *Batch) Put(key string, value Value) {
	b.ops = append(b.ops, batchOp{key: key, value: value})
}

func (b *Batch) Delete(key string) {
	b.ops = append(b.ops, batchOp{key: key, remove: true})
}

func (b *Batch) Len() int {
	return len(b.ops)
}

// Apply runs the batch inside a single transaction, in the order the
// entries were added. The catalog reservation guard covers every entry;
// any failure rolls the entire batch back.
func (db *Database) Apply(batch *Batch) error {
	applyCount.Inc()
	if batch.Len() == 0 {
		return nil
	}
	err := db.update(func(btx *bbolt.Tx, b *bbolt.Bucket) error {
		for _, op := range batch.ops {
			if db.reserved(btx, []byte(op.key)) {
				if op.remove {
					return fmt.Errorf("kvstore: delete %q: %w", op.key, ErrConflict)
				}
				return fmt.Errorf("kvstore: put %q: %w", op.key, ErrConflict)
			}
			var err error
			if op.remove {
				err = b.Delete([]byte(op.key))
			} else {
				err = b.Put([]byte(op.key), op.value.Encode())
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	return wrapEngine("apply", err)
}
