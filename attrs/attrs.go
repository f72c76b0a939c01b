// Package attrs persists UI attribute values (document, element id,
// attribute name -> value) in a kvstore database.
//
// Keys are composite: the three components joined by a tab byte. Tab
// cannot appear in URIs or attribute names, and its successor byte
// bounds a lexicographic range scan, so "everything for one document"
// is the half-open range [doc+"\t", doc+"\n").
package attrs

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andreyvit/kvstore"
)

// Separator joins document, id and attribute into one key; sepSucc is
// its successor, used as the exclusive upper bound of range scans.
const (
	Separator = "\x09"
	sepSucc   = "\x0a"
)

const (
	// MaxNameLen caps id and attribute name components. Longer names
	// are rejected.
	MaxNameLen = 512
	// MaxValueLen caps stored values. Longer values are truncated, not
	// rejected.
	MaxValueLen = 4096
)

// ErrNameTooLong is returned when an id or attribute name component
// exceeds MaxNameLen.
var ErrNameTooLong = errors.New("attrs: id or attribute name too long")

// Store reads and writes attribute values synchronously. Use a Writer
// for callers that must not block on the engine.
type Store struct {
	db  *kvstore.Database
	log *slog.Logger
}

func New(db *kvstore.Database, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, log: logger}
}

func makeKey(doc, id, attr string) string {
	return doc + Separator + id + Separator + attr
}

func checkNames(id, attr string) error {
	if len(id) > MaxNameLen || len(attr) > MaxNameLen {
		return ErrNameTooLong
	}
	return nil
}

func (s *Store) clamp(doc, id, attr, value string) string {
	if len(value) > MaxValueLen {
		s.log.Warn("attrs: truncating long attribute value",
			"doc", doc, "id", id, "attr", attr, "len", len(value))
		value = value[:MaxValueLen]
	}
	return value
}

// SetValue stores value under (doc, id, attr), truncating over-length
// values to MaxValueLen.
func (s *Store) SetValue(doc, id, attr, value string) error {
	if err := checkNames(id, attr); err != nil {
		return err
	}
	return s.db.Put(makeKey(doc, id, attr), kvstore.Text(s.clamp(doc, id, attr, value)))
}

// GetValue returns the stored value, or "" when absent.
func (s *Store) GetValue(doc, id, attr string) (string, error) {
	v, found, err := s.db.Get(makeKey(doc, id, attr))
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}
	str, ok := v.Text()
	if !ok {
		return "", fmt.Errorf("attrs: %s/%s/%s: %w", doc, id, attr, kvstore.ErrTypeMismatch)
	}
	return str, nil
}

func (s *Store) HasValue(doc, id, attr string) (bool, error) {
	return s.db.Has(makeKey(doc, id, attr))
}

// RemoveValue removes one attribute; removing an absent one is fine.
func (s *Store) RemoveValue(doc, id, attr string) error {
	return s.db.Delete(makeKey(doc, id, attr))
}

// RemoveDocument removes every attribute stored for doc.
func (s *Store) RemoveDocument(doc string) error {
	e, err := s.db.Enumerate(doc+Separator, doc+sepSucc)
	if err != nil {
		return err
	}
	for _, key := range e.Keys() {
		if err := s.db.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// IDs returns the distinct element ids stored for doc, ascending.
func (s *Store) IDs(doc string) ([]string, error) {
	e, err := s.db.Enumerate(doc+Separator, doc+sepSucc)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, key := range e.Keys() {
		rest := strings.TrimPrefix(key, doc+Separator)
		id, _, ok := strings.Cut(rest, Separator)
		if !ok {
			continue // not a composite key; foreign data in this database
		}
		if len(ids) == 0 || ids[len(ids)-1] != id {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Attrs returns the attribute names stored for (doc, id), ascending.
func (s *Store) Attrs(doc, id string) ([]string, error) {
	prefix := doc + Separator + id + Separator
	e, err := s.db.Enumerate(prefix, doc+Separator+id+sepSucc)
	if err != nil {
		return nil, err
	}
	var attrs []string
	for _, key := range e.Keys() {
		attrs = append(attrs, strings.TrimPrefix(key, prefix))
	}
	return attrs, nil
}
