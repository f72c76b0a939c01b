package kvstore

import (
	"fmt"
	"path/filepath"

	"github.com/puzpuzpuz/xsync/v3"
)

// Manager is the process-wide registry mapping a directory to its single
// open Environment. The underlying engine forbids two independent handles
// to the same files within one process, so all opens go through here.
//
// Most callers use the package-level GetOrCreate against the default
// manager; separate managers exist for tests.
type Manager struct {
	envs  *xsync.MapOf[string, *Environment]
	queue *opQueue
}

func NewManager() *Manager {
	return &Manager{
		envs:  xsync.NewMapOf[string, *Environment](),
		queue: newOpQueue(),
	}
}

var defaultManager = NewManager()

// DefaultManager returns the registry shared by the package-level API.
func DefaultManager() *Manager {
	return defaultManager
}

// GetOrCreate opens the named database inside the environment for dir,
// creating either on first use. Repeated calls for the same directory
// reuse the existing environment handle regardless of name, so two
// differently-named databases in one directory share one set of on-disk
// files. Creating the directory itself is the caller's responsibility.
func (m *Manager) GetOrCreate(dir, name string, opt Options) (*Database, error) {
	path, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("kvstore: resolve %s: %w", dir, err)
	}

	// Compute serializes racing opens of the same path: exactly one
	// create-or-open wins, the rest see the stored handle.
	var openErr error
	env, ok := m.envs.Compute(path, func(old *Environment, loaded bool) (*Environment, bool) {
		if loaded {
			old.refs.Add(1)
			return old, false
		}
		e, err := openEnvironment(path, opt)
		if err != nil {
			openErr = err
			return nil, true
		}
		e.refs.Store(1)
		return e, false
	})
	if !ok {
		return nil, openErr
	}

	db, err := env.openDatabase(name)
	if err != nil {
		m.release(env)
		return nil, err
	}
	db.m = m
	return db, nil
}

// release drops one reference; the environment closes when the last
// reference is gone. Recheck under the registry's per-key lock so a
// racing GetOrCreate either revives the handle before we look or opens
// a fresh one after we remove it.
func (m *Manager) release(env *Environment) {
	if env.refs.Add(-1) > 0 {
		return
	}
	m.envs.Compute(env.dir, func(old *Environment, loaded bool) (*Environment, bool) {
		if !loaded {
			return nil, true
		}
		if old != env || env.refs.Load() > 0 {
			return old, false
		}
		env.bdb.Close()
		return nil, true
	})
}

// GetOrCreate opens a database via the default manager.
func GetOrCreate(dir, name string) (*Database, error) {
	return defaultManager.GetOrCreate(dir, name, Options{})
}
