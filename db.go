package kvstore

import (
	"bytes"
	"fmt"
	"reflect"

	"go.etcd.io/bbolt"
)

// Database is a handle to one named (or default) keyspace within an
// environment. Every operation runs in its own short-lived engine
// transaction; handles are safe for concurrent use from multiple
// goroutines, serialized by the engine's single-writer discipline.
type Database struct {
	m      *Manager
	env    *Environment
	name   string
	bucket []byte
}

func (db *Database) Name() string {
	return db.name
}

func (db *Database) Environment() *Environment {
	return db.env
}

// Close releases this handle's reference on the environment.
func (db *Database) Close() {
	db.m.release(db.env)
}

func (db *Database) isDefault() bool {
	return db.name == ""
}

// reserved reports whether key is taken by a named-database catalog
// record. Only meaningful for the default database. The default bucket
// itself is not a catalog entry: "\x00" is an ordinary key.
func (db *Database) reserved(btx *bbolt.Tx, key []byte) bool {
	return db.isDefault() && len(key) > 0 && !bytes.Equal(key, defaultBucket) &&
		btx.Bucket(key) != nil
}

func (db *Database) view(f func(btx *bbolt.Tx, b *bbolt.Bucket) error) error {
	db.env.ReadCount.Add(1)
	return db.env.bdb.View(func(btx *bbolt.Tx) error {
		b := btx.Bucket(db.bucket)
		if b == nil {
			return fmt.Errorf("kvstore: database %q disappeared", db.name)
		}
		return f(btx, b)
	})
}

func (db *Database) update(f func(btx *bbolt.Tx, b *bbolt.Bucket) error) error {
	db.env.WriteCount.Add(1)
	return db.env.bdb.Update(func(btx *bbolt.Tx) error {
		b := btx.Bucket(db.bucket)
		if b == nil {
			return fmt.Errorf("kvstore: database %q disappeared", db.name)
		}
		return f(btx, b)
	})
}

// Put writes or overwrites key. Writing a key that names an existing
// named database into the default database fails with ErrConflict.
func (db *Database) Put(key string, value Value) error {
	putCount.Inc()
	err := db.update(func(btx *bbolt.Tx, b *bbolt.Bucket) error {
		if db.reserved(btx, []byte(key)) {
			return fmt.Errorf("kvstore: put %q: %w", key, ErrConflict)
		}
		return b.Put([]byte(key), value.Encode())
	})
	return wrapEngine("put", err)
}

// Get returns the value stored under key, with found=false when absent.
// Corrupt stored bytes surface as a DataError.
func (db *Database) Get(key string) (Value, bool, error) {
	getCount.Inc()
	var val Value
	var found bool
	err := db.view(func(btx *bbolt.Tx, b *bbolt.Bucket) error {
		if db.reserved(btx, []byte(key)) {
			return nil
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		v, err := DecodeValue(raw)
		if err != nil {
			return err
		}
		val, found = v, true
		return nil
	})
	if err != nil {
		return Value{}, false, wrapEngine("get", err)
	}
	return val, found, nil
}

// Require returns the value stored under key, failing with ErrNotFound
// when absent.
func (db *Database) Require(key string) (Value, error) {
	v, found, err := db.Get(key)
	if err != nil {
		return Value{}, err
	}
	if !found {
		return Value{}, fmt.Errorf("kvstore: get %q: %w", key, ErrNotFound)
	}
	return v, nil
}

// Scalar enumerates the Go types a typed getter can request.
type Scalar interface {
	~bool | ~int64 | ~float64 | ~string
}

// valueAs converts via reflection rather than a type switch so that
// defined types (type Width int64) satisfy the ~-term constraint too.
func valueAs[T Scalar](v Value) (T, bool) {
	var out T
	rv := reflect.ValueOf(&out).Elem()
	switch rv.Kind() {
	case reflect.Bool:
		b, ok := v.Bool()
		rv.SetBool(b)
		return out, ok
	case reflect.Int64:
		i, ok := v.Int()
		rv.SetInt(i)
		return out, ok
	case reflect.Float64:
		f, ok := v.Float()
		rv.SetFloat(f)
		return out, ok
	case reflect.String:
		s, ok := v.Text()
		rv.SetString(s)
		return out, ok
	default:
		return out, false
	}
}

// GetTyped returns the value under key as T, or def when the key is
// absent. A stored value of any other type fails with ErrTypeMismatch;
// values are never coerced.
func GetTyped[T Scalar](db *Database, key string, def T) (T, error) {
	v, found, err := db.Get(key)
	if err != nil {
		return def, err
	}
	if !found {
		return def, nil
	}
	out, ok := valueAs[T](v)
	if !ok {
		return def, fmt.Errorf("kvstore: get %q: %w: stored %v", key, ErrTypeMismatch, v.Kind())
	}
	return out, nil
}

// RequireTyped is GetTyped without a default: an absent key fails with
// ErrNotFound.
func RequireTyped[T Scalar](db *Database, key string) (T, error) {
	var zero T
	v, err := db.Require(key)
	if err != nil {
		return zero, err
	}
	out, ok := valueAs[T](v)
	if !ok {
		return zero, fmt.Errorf("kvstore: get %q: %w: stored %v", key, ErrTypeMismatch, v.Kind())
	}
	return out, nil
}

func (db *Database) GetBool(key string, def bool) (bool, error) {
	return GetTyped(db, key, def)
}

func (db *Database) GetInt(key string, def int64) (int64, error) {
	return GetTyped(db, key, def)
}

func (db *Database) GetFloat(key string, def float64) (float64, error) {
	return GetTyped(db, key, def)
}

func (db *Database) GetString(key string, def string) (string, error) {
	return GetTyped(db, key, def)
}

// Has reports whether key exists, without decoding the stored bytes.
func (db *Database) Has(key string) (bool, error) {
	hasCount.Inc()
	var found bool
	err := db.view(func(btx *bbolt.Tx, b *bbolt.Bucket) error {
		if db.reserved(btx, []byte(key)) {
			return nil
		}
		found = b.Get([]byte(key)) != nil
		return nil
	})
	if err != nil {
		return false, wrapEngine("has", err)
	}
	return found, nil
}

// Delete removes key. Deleting an absent key is not an error; deleting
// a catalog-reserved key in the default database fails with ErrConflict.
func (db *Database) Delete(key string) error {
	deleteCount.Inc()
	err := db.update(func(btx *bbolt.Tx, b *bbolt.Bucket) error {
		if db.reserved(btx, []byte(key)) {
			return fmt.Errorf("kvstore: delete %q: %w", key, ErrConflict)
		}
		return b.Delete([]byte(key))
	})
	return wrapEngine("delete", err)
}
