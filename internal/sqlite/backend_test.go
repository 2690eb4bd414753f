package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/todos/pkg/types"
)

// setupBackend creates an attached Backend over a fresh temp directory.
func setupBackend(t *testing.T) (*Backend, string) {
	t.Helper()
	dir := t.TempDir()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir}))
	t.Cleanup(func() { b.Detach() })
	return b, dir
}

func TestBackend_Attach(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	require.NoError(t, b.Attach(config))
	defer b.Detach()

	_, err := os.Stat(filepath.Join(dir, dbFileName))
	assert.NoError(t, err, "todos.db not created")

	_, err = os.Stat(filepath.Join(dir, "todos.jsonl"))
	assert.NoError(t, err, "todos.jsonl not created")

	assert.ErrorIs(t, b.Attach(config), types.ErrAlreadyAttached)
}

func TestBackend_AttachRejectsInvalidConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.Config{Backend: "firestore", DataDir: t.TempDir()})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestBackend_Detach(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "detach should be idempotent")

	_, err := b.Create(ctx, types.Document{Text: "x"})
	assert.ErrorIs(t, err, types.ErrDetached)
	_, err = b.List(ctx)
	assert.ErrorIs(t, err, types.ErrDetached)
	assert.ErrorIs(t, b.Update(ctx, "id", types.TextPatch("y")), types.ErrDetached)
	assert.ErrorIs(t, b.Delete(ctx, "id"), types.ErrDetached)
}

func TestBackend_CRUD(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	idA, err := b.Create(ctx, types.Document{Text: "Buy milk"})
	require.NoError(t, err)
	idB, err := b.Create(ctx, types.Document{Text: "Walk dog", Completed: true})
	require.NoError(t, err)
	assert.NotEqual(t, idA, idB)
	assert.Len(t, idA, 36, "expected a UUID")

	todos, err := b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Todo{
		{ID: idA, Text: "Buy milk"},
		{ID: idB, Text: "Walk dog", Completed: true},
	}, todos)

	require.NoError(t, b.Update(ctx, idA, types.TextPatch("Buy oat milk")))
	require.NoError(t, b.Update(ctx, idA, types.CompletedPatch(true)))
	require.NoError(t, b.Update(ctx, idB, types.CompletedPatch(false)))

	todos, err = b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Todo{
		{ID: idA, Text: "Buy oat milk", Completed: true},
		{ID: idB, Text: "Walk dog"},
	}, todos)

	require.NoError(t, b.Delete(ctx, idA))
	todos, err = b.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Todo{{ID: idB, Text: "Walk dog"}}, todos)
}

func TestBackend_Errors(t *testing.T) {
	b, _ := setupBackend(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{"update empty id", func() error { return b.Update(ctx, "", types.TextPatch("x")) }, types.ErrInvalidID},
		{"update empty patch", func() error { return b.Update(ctx, "abc", types.Patch{}) }, types.ErrInvalidData},
		{"update missing", func() error { return b.Update(ctx, "missing", types.TextPatch("x")) }, types.ErrNotFound},
		{"delete empty id", func() error { return b.Delete(ctx, "") }, types.ErrInvalidID},
		{"delete missing", func() error { return b.Delete(ctx, "missing") }, types.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.wantErr)
		})
	}
}

func TestBackend_ListEmptyIsNotNil(t *testing.T) {
	b, _ := setupBackend(t)
	todos, err := b.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, todos)
	assert.Empty(t, todos)
}

func TestBackend_ReattachRestoresFromJSONL(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend()
	require.NoError(t, b.Attach(config))
	idA, err := b.Create(ctx, types.Document{Text: "X"})
	require.NoError(t, err)
	idB, err := b.Create(ctx, types.Document{Text: "Y"})
	require.NoError(t, err)
	require.NoError(t, b.Update(ctx, idB, types.CompletedPatch(true)))
	require.NoError(t, b.Detach())

	b2 := NewBackend()
	require.NoError(t, b2.Attach(config))
	defer b2.Detach()

	todos, err := b2.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.Todo{
		{ID: idA, Text: "X"},
		{ID: idB, Text: "Y", Completed: true},
	}, todos)
}

func TestBackend_CustomCollection(t *testing.T) {
	dir := t.TempDir()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dir, Collection: "chores"}))
	defer b.Detach()

	_, err := b.Create(context.Background(), types.Document{Text: "Dishes"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "chores.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"text":"Dishes"`)
}

func TestBackend_FailedPersistRollsBack(t *testing.T) {
	b, dir := setupBackend(t)
	ctx := context.Background()

	id, err := b.Create(ctx, types.Document{Text: "Buy milk"})
	require.NoError(t, err)
	want := []types.Todo{{ID: id, Text: "Buy milk"}}

	// A non-empty directory in place of the JSONL file makes the rename fail.
	jsonlPath := filepath.Join(dir, "todos.jsonl")
	require.NoError(t, os.Remove(jsonlPath))
	require.NoError(t, os.MkdirAll(filepath.Join(jsonlPath, "blocker"), 0o755))

	tests := []struct {
		name string
		run  func() error
	}{
		{"create", func() error { _, err := b.Create(ctx, types.Document{Text: "ghost"}); return err }},
		{"update text", func() error { return b.Update(ctx, id, types.TextPatch("Buy oat milk")) }},
		{"update completed", func() error { return b.Update(ctx, id, types.CompletedPatch(true)) }},
		{"delete", func() error { return b.Delete(ctx, id) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.run())

			todos, err := b.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, todos, "failed write must leave the index unchanged")
		})
	}

	// Once the file is writable again the next mutation persists normally.
	require.NoError(t, os.RemoveAll(jsonlPath))
	require.NoError(t, b.Update(ctx, id, types.CompletedPatch(true)))
	data, err := os.ReadFile(jsonlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"completed":true`)
	assert.NotContains(t, string(data), "ghost")
}
