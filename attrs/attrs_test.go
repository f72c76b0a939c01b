package attrs

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andreyvit/kvstore"
)

const doc = "chrome://browser/content/browser.xhtml"

func setup(t *testing.T) *Store {
	t.Helper()
	db, err := kvstore.NewManager().GetOrCreate(t.TempDir(), "", kvstore.Options{IsTesting: true})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return New(db, nil)
}

func TestSetGetValue(t *testing.T) {
	s := setup(t)

	require.NoError(t, s.SetValue(doc, "main-window", "width", "1024"))

	v, err := s.GetValue(doc, "main-window", "width")
	require.NoError(t, err)
	require.Equal(t, "1024", v)

	// Absent values read back as the empty string.
	v, err = s.GetValue(doc, "main-window", "height")
	require.NoError(t, err)
	require.Equal(t, "", v)

	has, err := s.HasValue(doc, "main-window", "width")
	require.NoError(t, err)
	require.True(t, has)
	has, err = s.HasValue(doc, "main-window", "height")
	require.NoError(t, err)
	require.False(t, has)
}

func TestRemoveValue(t *testing.T) {
	s := setup(t)

	require.NoError(t, s.SetValue(doc, "sidebar", "collapsed", "true"))
	require.NoError(t, s.RemoveValue(doc, "sidebar", "collapsed"))

	has, err := s.HasValue(doc, "sidebar", "collapsed")
	require.NoError(t, err)
	require.False(t, has)

	// Removing an attribute that was never stored is not an error.
	require.NoError(t, s.RemoveValue(doc, "sidebar", "never-set"))
}

func TestNameTooLong(t *testing.T) {
	s := setup(t)
	long := strings.Repeat("x", MaxNameLen+1)

	require.ErrorIs(t, s.SetValue(doc, long, "attr", "v"), ErrNameTooLong)
	require.ErrorIs(t, s.SetValue(doc, "id", long, "v"), ErrNameTooLong)
	require.NoError(t, s.SetValue(doc, strings.Repeat("x", MaxNameLen), "attr", "v"))
}

func TestValueTruncation(t *testing.T) {
	s := setup(t)
	long := strings.Repeat("v", MaxValueLen+100)

	require.NoError(t, s.SetValue(doc, "editor", "state", long))

	v, err := s.GetValue(doc, "editor", "state")
	require.NoError(t, err)
	require.Len(t, v, MaxValueLen)
	require.Equal(t, long[:MaxValueLen], v)
}

func TestRemoveDocument(t *testing.T) {
	s := setup(t)
	other := "chrome://browser/content/places.xhtml"

	require.NoError(t, s.SetValue(doc, "a", "x", "1"))
	require.NoError(t, s.SetValue(doc, "b", "y", "2"))
	require.NoError(t, s.SetValue(other, "a", "x", "3"))

	require.NoError(t, s.RemoveDocument(doc))

	ids, err := s.IDs(doc)
	require.NoError(t, err)
	require.Empty(t, ids)

	// Other documents are untouched.
	v, err := s.GetValue(other, "a", "x")
	require.NoError(t, err)
	require.Equal(t, "3", v)
}

func TestIDsAndAttrs(t *testing.T) {
	s := setup(t)

	require.NoError(t, s.SetValue(doc, "toolbar", "mode", "icons"))
	require.NoError(t, s.SetValue(doc, "toolbar", "hidden", "false"))
	require.NoError(t, s.SetValue(doc, "main-window", "width", "1024"))
	require.NoError(t, s.SetValue(doc, "main-window", "height", "768"))

	ids, err := s.IDs(doc)
	require.NoError(t, err)
	require.Equal(t, []string{"main-window", "toolbar"}, ids)

	attrs, err := s.Attrs(doc, "main-window")
	require.NoError(t, err)
	require.Equal(t, []string{"height", "width"}, attrs)

	attrs, err = s.Attrs(doc, "toolbar")
	require.NoError(t, err)
	require.Equal(t, []string{"hidden", "mode"}, attrs)

	attrs, err = s.Attrs(doc, "missing")
	require.NoError(t, err)
	require.Empty(t, attrs)
}

func TestWriterCoalescing(t *testing.T) {
	s := setup(t)
	w := NewWriter(s)
	t.Cleanup(func() { require.NoError(t, w.Close()) })

	// Only the last scheduled write per key survives.
	require.NoError(t, w.SetValue(doc, "win", "width", "100"))
	require.NoError(t, w.SetValue(doc, "win", "width", "200"))
	require.NoError(t, w.SetValue(doc, "win", "height", "50"))
	require.NoError(t, w.RemoveValue(doc, "win", "height"))
	require.NoError(t, w.Flush())

	v, err := s.GetValue(doc, "win", "width")
	require.NoError(t, err)
	require.Equal(t, "200", v)

	has, err := s.HasValue(doc, "win", "height")
	require.NoError(t, err)
	require.False(t, has)
}

func TestWriterFlushAtomic(t *testing.T) {
	dir := t.TempDir()
	m := kvstore.NewManager()

	// A named database whose name equals a composite attribute key
	// reserves that key in the default database, making the middle of
	// the sorted batch fail.
	blocker, err := m.GetOrCreate(dir, "m"+Separator+"i"+Separator+"a", kvstore.Options{IsTesting: true})
	require.NoError(t, err)
	t.Cleanup(blocker.Close)

	db, err := m.GetOrCreate(dir, "", kvstore.Options{IsTesting: true})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	s := New(db, nil)
	w := NewWriter(s)
	t.Cleanup(func() { _ = w.Close() }) // the conflict never clears

	require.NoError(t, w.SetValue("a", "i", "a", "first"))
	require.NoError(t, w.SetValue("m", "i", "a", "middle"))
	require.NoError(t, w.SetValue("z", "i", "a", "last"))

	require.ErrorIs(t, w.Flush(), kvstore.ErrConflict)

	// Nothing from the failed batch committed, not even the entries
	// sorting before the conflicting key.
	v, err := s.GetValue("a", "i", "a")
	require.NoError(t, err)
	require.Equal(t, "", v)
	v, err = s.GetValue("z", "i", "a")
	require.NoError(t, err)
	require.Equal(t, "", v)

	// The batch stays pending rather than silently vanishing, so a
	// retry fails the same way.
	require.ErrorIs(t, w.Flush(), kvstore.ErrConflict)
}

func TestWriterBackgroundFlush(t *testing.T) {
	s := setup(t)
	w := NewWriter(s)
	t.Cleanup(func() { require.NoError(t, w.Close()) })

	require.NoError(t, w.SetValue(doc, "win", "screenX", "10"))

	require.Eventually(t, func() bool {
		v, err := s.GetValue(doc, "win", "screenX")
		return err == nil && v == "10"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWriterValidation(t *testing.T) {
	s := setup(t)
	w := NewWriter(s)
	t.Cleanup(func() { require.NoError(t, w.Close()) })

	long := strings.Repeat("x", MaxNameLen+1)
	require.ErrorIs(t, w.SetValue(doc, long, "attr", "v"), ErrNameTooLong)
	require.ErrorIs(t, w.RemoveValue(doc, "id", long), ErrNameTooLong)

	require.NoError(t, w.SetValue(doc, "id", "attr", strings.Repeat("v", MaxValueLen*2)))
	require.NoError(t, w.Flush())
	v, err := s.GetValue(doc, "id", "attr")
	require.NoError(t, err)
	require.Len(t, v, MaxValueLen)
}
