package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/todos/pkg/types"
)

// storages returns each SessionStorage implementation under test.
func storages(t *testing.T) map[string]types.SessionStorage {
	t.Helper()
	f, err := NewFile(t.TempDir(), "test-session")
	require.NoError(t, err)
	return map[string]types.SessionStorage{
		"memory": NewMemory(),
		"file":   f,
	}
}

func TestSessionStorage(t *testing.T) {
	for name, s := range storages(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.GetItem("todos")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.SetItem("todos", "[]"))
			require.NoError(t, s.SetItem("other", "x"))
			require.NoError(t, s.SetItem("todos", `[{"id":"a"}]`))

			v, ok, err := s.GetItem("todos")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `[{"id":"a"}]`, v)

			require.NoError(t, s.RemoveItem("todos"))
			require.NoError(t, s.RemoveItem("todos"), "removing a missing key is not an error")

			_, ok, err = s.GetItem("todos")
			require.NoError(t, err)
			assert.False(t, ok)

			v, ok, err = s.GetItem("other")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "x", v)
		})
	}
}

func TestFile_SharedAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFile(dir, "cli")
	require.NoError(t, err)
	b, err := NewFile(dir, "cli")
	require.NoError(t, err)

	require.NoError(t, a.SetItem("todos", "[]"))
	v, ok, err := b.GetItem("todos")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", v)

	require.NoError(t, b.Destroy())
	_, err = os.Stat(a.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestNewFile_RejectsPathLikeIDs(t *testing.T) {
	for _, id := range []string{"", "../escape", "a/b"} {
		_, err := NewFile(t.TempDir(), id)
		assert.Error(t, err, "id %q", id)
	}
}

func TestFile_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir, "s")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s.json"), []byte("{"), 0o644))

	_, _, err = f.GetItem("todos")
	assert.Error(t, err)
}

func TestFile_LockErrors(t *testing.T) {
	t.Run("held lock times out", func(t *testing.T) {
		dir := t.TempDir()
		f, err := NewFile(dir, "s")
		require.NoError(t, err)
		f.lockTimeout = 100 * time.Millisecond

		holder := flock.New(filepath.Join(dir, "s.lock"))
		locked, err := holder.TryLock()
		require.NoError(t, err)
		require.True(t, locked)
		defer holder.Unlock()

		assert.ErrorIs(t, f.SetItem("todos", "[]"), types.ErrSessionLocked)
		_, _, err = f.GetItem("todos")
		assert.ErrorIs(t, err, types.ErrSessionLocked)
	})

	t.Run("lock file cannot be opened", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "sessions")
		f, err := NewFile(dir, "s")
		require.NoError(t, err)
		require.NoError(t, os.RemoveAll(dir))

		err = f.SetItem("todos", "[]")
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.NotErrorIs(t, err, types.ErrSessionLocked, "I/O failures are not contention")
	})
}

func TestMirror(t *testing.T) {
	storage := NewMemory()
	m := NewMirror(storage, "")
	assert.Equal(t, types.DefaultCacheKey, m.Key())

	_, ok, err := m.Read()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Snapshot(nil))
	raw, _, _ := storage.GetItem("todos")
	assert.Equal(t, "[]", raw, "an empty snapshot is an empty array, never null")

	todos := []types.Todo{{ID: "a", Text: "X"}, {ID: "b", Text: "Y", Completed: true}}
	require.NoError(t, m.Snapshot(todos))

	raw, _, _ = storage.GetItem("todos")
	assert.JSONEq(t, `[{"id":"a","text":"X","completed":false},{"id":"b","text":"Y","completed":true}]`, raw)

	got, ok, err := m.Read()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, todos, got)

	require.NoError(t, m.Snapshot(todos[1:]))
	got, _, err = m.Read()
	require.NoError(t, err)
	assert.Equal(t, todos[1:], got, "snapshots replace, never merge")

	require.NoError(t, m.Clear())
	_, ok, err = m.Read()
	require.NoError(t, err)
	assert.False(t, ok)
}
