package kvstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Require and the Require* typed getters
	// when the key is absent. Plain Get reports absence via its found
	// result instead.
	ErrNotFound = errors.New("key not found")

	// ErrTypeMismatch is returned by typed getters when the stored
	// value's tag does not match the requested type. Values are never
	// coerced.
	ErrTypeMismatch = errors.New("stored value has a different type")

	// ErrConflict is returned when a write into the default database
	// collides with a key reserved by the named-database catalog, or
	// when creating a named database whose name is shadowed by an
	// existing key.
	ErrConflict = errors.New("key is reserved by a named database")

	// ErrNoMoreElements is returned by Enumerator.Next past exhaustion.
	ErrNoMoreElements = errors.New("no more elements")

	// ErrUnknownTag is wrapped by a DataError when stored bytes carry
	// an unrecognized type tag.
	ErrUnknownTag = errors.New("unknown value tag")

	// ErrTruncated is wrapped by a DataError when a stored payload is
	// shorter than its tag requires.
	ErrTruncated = errors.New("truncated value payload")

	// ErrInvalidDatabaseName is returned by GetOrCreate for names the
	// engine cannot represent (names containing NUL).
	ErrInvalidDatabaseName = errors.New("invalid database name")
)

// DataError describes corrupt or foreign-format stored bytes.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}

// wrapEngine wraps engine and I/O failures once, leaving this package's
// own errors untouched so callers can match them with errors.Is.
func wrapEngine(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrTypeMismatch) ||
		errors.Is(err, ErrConflict) || errors.Is(err, ErrNoMoreElements) ||
		errors.Is(err, ErrInvalidDatabaseName) {
		return err
	}
	var de *DataError
	if errors.As(err, &de) {
		return err
	}
	return fmt.Errorf("kvstore: %s: %w", op, err)
}
