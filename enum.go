package kvstore

import (
	"slices"

	"go.etcd.io/bbolt"
)

// KeyValue is one enumerated pair.
type KeyValue struct {
	Key   string
	Value Value
}

// Enumerator yields the pairs of a half-open key range in strictly
// ascending byte order. It reflects a single consistent snapshot taken
// when Enumerate ran: the pairs are captured under one read transaction
// and later mutations do not show. Values decode lazily on Next, so
// corrupt records surface only when reached. An enumerator is
// single-pass and never restarts.
type Enumerator struct {
	pairs []rawPair
	pos   int
}

type rawPair struct {
	key string
	raw []byte
}

// Enumerate returns all pairs with from <= key < to. The empty string
// means "no bound" on either side; it is not usable as a bound itself.
// Inverted bounds (from > to) yield an empty enumerator, not an error.
func (db *Database) Enumerate(from, to string) (*Enumerator, error) {
	enumCount.Inc()
	e := &Enumerator{}
	if from != "" && to != "" && from >= to {
		return e, nil
	}
	err := db.view(func(btx *bbolt.Tx, b *bbolt.Bucket) error {
		c := b.Cursor()
		var k, v []byte
		if from == "" {
			k, v = c.First()
		} else {
			k, v = c.Seek([]byte(from))
		}
		for ; k != nil; k, v = c.Next() {
			if to != "" && string(k) >= to {
				break
			}
			if db.reserved(btx, k) {
				continue
			}
			// The engine's buffers are only valid inside the transaction.
			e.pairs = append(e.pairs, rawPair{string(k), slices.Clone(v)})
		}
		return nil
	})
	if err != nil {
		return nil, wrapEngine("enumerate", err)
	}
	return e, nil
}

// HasMore reports whether another pair remains.
func (e *Enumerator) HasMore() bool {
	return e.pos < len(e.pairs)
}

// Next returns the next pair in ascending key order. Calling it past
// exhaustion is a caller error and fails with ErrNoMoreElements.
func (e *Enumerator) Next() (string, Value, error) {
	if e.pos >= len(e.pairs) {
		return "", Value{}, ErrNoMoreElements
	}
	p := e.pairs[e.pos]
	e.pos++
	v, err := DecodeValue(p.raw)
	if err != nil {
		return p.key, Value{}, err
	}
	return p.key, v, nil
}

// All drains the enumerator into a slice.
func (e *Enumerator) All() ([]KeyValue, error) {
	var out []KeyValue
	for e.HasMore() {
		k, v, err := e.Next()
		if err != nil {
			return out, err
		}
		out = append(out, KeyValue{k, v})
	}
	return out, nil
}

// Keys drains the enumerator, returning keys only. Values stay
// undecoded, so corrupt records do not interfere with key listing.
func (e *Enumerator) Keys() []string {
	out := make([]string, 0, len(e.pairs)-e.pos)
	for ; e.pos < len(e.pairs); e.pos++ {
		out = append(out, e.pairs[e.pos].key)
	}
	return out
}
