package kvstore

import (
	"github.com/VictoriaMetrics/metrics"
	"go.etcd.io/bbolt"
)

var (
	putCount         = metrics.NewCounter(`kvstore_ops_total{op="put"}`)
	getCount         = metrics.NewCounter(`kvstore_ops_total{op="get"}`)
	hasCount         = metrics.NewCounter(`kvstore_ops_total{op="has"}`)
	deleteCount      = metrics.NewCounter(`kvstore_ops_total{op="delete"}`)
	enumCount        = metrics.NewCounter(`kvstore_ops_total{op="enumerate"}`)
	applyCount       = metrics.NewCounter(`kvstore_ops_total{op="apply"}`)
	asyncSubmitCount = metrics.NewCounter(`kvstore_async_submitted_total`)

	_ = metrics.NewGauge(`kvstore_async_backlog`, func() float64 {
		return float64(defaultManager.queue.depth())
	})
)

// Stats describes one database's storage footprint, taken from the
// engine's bucket statistics. For the default database the key count
// includes catalog records.
type Stats struct {
	Keys       int
	LeafInuse  int64
	TotalAlloc int64
}

func (db *Database) Stats() (Stats, error) {
	var st Stats
	err := db.view(func(btx *bbolt.Tx, b *bbolt.Bucket) error {
		bs := b.Stats()
		st = Stats{
			Keys:       bs.KeyN,
			LeafInuse:  int64(bs.LeafInuse),
			TotalAlloc: int64(bs.LeafAlloc) + int64(bs.BranchAlloc),
		}
		return nil
	})
	if err != nil {
		return Stats{}, wrapEngine("stats", err)
	}
	return st, nil
}
