package kvstore

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
)

// EnvFileName is the engine's data file inside an environment directory.
const EnvFileName = "data.db"

// defaultBucket holds the default database. Engines in the LMDB family
// name databases with NUL-terminated strings, so no caller-supplied name
// can collide with this one.
var defaultBucket = []byte{0}

// Environment owns the engine handle for one directory. All databases
// opened against the same directory share one Environment; the registry
// in Manager guarantees at most one open handle per directory within
// a process.
type Environment struct {
	dir  string
	bdb  *bbolt.DB
	refs atomic.Int64

	ReadCount  atomic.Uint64
	WriteCount atomic.Uint64
}

// Options tune the engine on first open of a directory. Later opens of
// the same directory reuse the existing handle and ignore Options.
type Options struct {
	// IsTesting disables fsync and shrinks the initial mmap.
	IsTesting bool
	// MmapSize overrides the engine's initial mmap size when non-zero.
	MmapSize int
}

func openEnvironment(dir string, opt Options) (*Environment, error) {
	bopt := *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(filepath.Join(dir, EnvFileName), 0666, &bopt)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open environment %s: %w", dir, err)
	}

	err = bdb.Update(func(btx *bbolt.Tx) error {
		_, err := btx.CreateBucketIfNotExists(defaultBucket)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("kvstore: init environment %s: %w", dir, err)
	}

	return &Environment{dir: dir, bdb: bdb}, nil
}

// Dir returns the directory this environment was opened against
// (canonical absolute path).
func (env *Environment) Dir() string {
	return env.dir
}

// Bolt exposes the underlying engine handle.
func (env *Environment) Bolt() *bbolt.DB {
	return env.bdb
}

// databaseInfo is the catalog record written into the default bucket
// under each named database's name.
type databaseInfo struct {
	Name      string    `msgpack:"n"`
	CreatedAt time.Time `msgpack:"t"`
}

// openDatabase opens the named database, creating it on first use.
// The empty name selects the default database.
func (env *Environment) openDatabase(name string) (*Database, error) {
	if name == "" {
		return &Database{env: env, bucket: defaultBucket}, nil
	}
	if strings.ContainsRune(name, 0) {
		return nil, fmt.Errorf("kvstore: %w: %q", ErrInvalidDatabaseName, name)
	}

	bname := []byte(name)
	err := env.bdb.Update(func(btx *bbolt.Tx) error {
		if btx.Bucket(bname) != nil {
			return nil // already cataloged
		}
		def := btx.Bucket(defaultBucket)
		if def.Get(bname) != nil {
			// A plain record in the default database shadows the name.
			return fmt.Errorf("kvstore: create database %q: %w", name, ErrConflict)
		}
		if _, err := btx.CreateBucket(bname); err != nil {
			return err
		}
		rec, err := msgpack.Marshal(&databaseInfo{Name: name, CreatedAt: time.Now().UTC()})
		if err != nil {
			return err
		}
		return def.Put(bname, rec)
	})
	if err != nil {
		return nil, wrapEngine(fmt.Sprintf("open database %q", name), err)
	}
	return &Database{env: env, name: name, bucket: bname}, nil
}

// Databases lists the named databases cataloged in this environment,
// in ascending name order.
func (env *Environment) Databases() ([]string, error) {
	var names []string
	err := env.bdb.View(func(btx *bbolt.Tx) error {
		return btx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			if !bytes.Equal(name, defaultBucket) {
				names = append(names, string(name))
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrapEngine("list databases", err)
	}
	return names, nil
}

// Info returns the catalog record for a named database, or found=false
// if no such database exists.
func (env *Environment) Info(name string) (created time.Time, found bool, err error) {
	err = env.bdb.View(func(btx *bbolt.Tx) error {
		if btx.Bucket([]byte(name)) == nil {
			return nil
		}
		raw := btx.Bucket(defaultBucket).Get([]byte(name))
		if raw == nil {
			return nil
		}
		var info databaseInfo
		if err := msgpack.Unmarshal(raw, &info); err != nil {
			return dataErrf(raw, 0, err, "catalog record for %q", name)
		}
		created, found = info.CreatedAt, true
		return nil
	})
	if err != nil {
		return time.Time{}, false, wrapEngine("database info", err)
	}
	return created, found, nil
}
