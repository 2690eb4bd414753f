package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/todos/pkg/types"
)

type cliEnv struct {
	t         *testing.T
	configDir string
	dataDir   string
}

type result struct {
	stdout string
	stderr string
	code   int
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	for _, key := range []string{
		"TODOS_CONFIG_DIR", "TODOS_DATA_DIR", "TODOS_BACKEND", "TODOS_COLLECTION",
		"TODOS_CACHE_KEY", "TODOS_SESSION_ID", "TODOS_LISTEN",
		"TODOS_LOG_LEVEL", "TODOS_LOG_FORMAT", "TODOS_LOG_FILE",
	} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	return &cliEnv{
		t:         t,
		configDir: filepath.Join(dir, "config"),
		dataDir:   filepath.Join(dir, "data"),
	}
}

func (e *cliEnv) run(args ...string) result {
	e.t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	code := run(root)
	return result{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

// list runs a command with --json and decodes the printed list.
func (e *cliEnv) list(args ...string) []types.Todo {
	e.t.Helper()
	r := e.run(append([]string{"--json"}, args...)...)
	require.Equal(e.t, exitSuccess, r.code, "stderr: %s", r.stderr)
	var todos []types.Todo
	require.NoError(e.t, json.Unmarshal([]byte(r.stdout), &todos), "stdout: %s", r.stdout)
	return todos
}

func TestVersion(t *testing.T) {
	e := newCLIEnv(t)
	r := e.run("version")
	assert.Equal(t, exitSuccess, r.code)
	assert.Contains(t, r.stdout, "todos v"+Version)
	assert.Contains(t, r.stdout, modulePath)
}

func TestInit(t *testing.T) {
	e := newCLIEnv(t)

	r := e.run("init")
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "todos initialized")
	assert.FileExists(t, filepath.Join(e.configDir, "config.yaml"))
	assert.FileExists(t, filepath.Join(e.dataDir, "todos.jsonl"))

	data, err := os.ReadFile(filepath.Join(e.configDir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: sqlite")
	assert.Contains(t, string(data), "data_dir: "+e.dataDir)

	r = e.run("init")
	assert.Equal(t, exitSuccess, r.code, "init is idempotent")
}

func TestFirstRunWritesDefaultConfig(t *testing.T) {
	e := newCLIEnv(t)
	assert.Empty(t, e.list("list"))
	assert.FileExists(t, filepath.Join(e.configDir, "config.yaml"))
}

func TestListLifecycle(t *testing.T) {
	e := newCLIEnv(t)

	todos := e.list("add", "Buy", "milk")
	require.Len(t, todos, 1)
	assert.Equal(t, "Buy milk", todos[0].Text)
	assert.False(t, todos[0].Completed)
	milk := todos[0].ID

	todos = e.list("add", "  Walk dog  ")
	require.Len(t, todos, 2)
	assert.Equal(t, "Walk dog", todos[1].Text)
	dog := todos[1].ID

	todos = e.list("toggle", dog)
	assert.True(t, todos[1].Completed)

	todos = e.list("edit", dog, "--text", "Walk cat")
	assert.Equal(t, types.Todo{ID: dog, Text: "Walk cat", Completed: true}, todos[1])

	todos = e.list("toggle", dog)
	assert.False(t, todos[1].Completed)

	todos = e.list("delete", milk)
	require.Len(t, todos, 1)
	assert.Equal(t, dog, todos[0].ID)

	assert.Equal(t, todos, e.list("list"), "changes survive across invocations")
}

func TestAdd_BlankAddsNothing(t *testing.T) {
	e := newCLIEnv(t)
	assert.Empty(t, e.list("add", "   "))
	assert.Empty(t, e.list("list"))
}

func TestEdit_BlankTextLeavesTask(t *testing.T) {
	e := newCLIEnv(t)
	id := e.list("add", "Walk dog")[0].ID

	todos := e.list("edit", id, "--text", "  ")
	assert.Equal(t, "Walk dog", todos[0].Text)
}

func TestList_Query(t *testing.T) {
	e := newCLIEnv(t)
	e.list("add", "Buy milk")
	e.list("add", "Walk dog")

	todos := e.list("list", "--query", "MILK")
	require.Len(t, todos, 1)
	assert.Equal(t, "Buy milk", todos[0].Text)

	r := e.run("list", "-q", "dog")
	require.Equal(t, exitSuccess, r.code)
	assert.Contains(t, r.stdout, "Walk dog")
	assert.NotContains(t, r.stdout, "Buy milk")
}

func TestList_TextOutput(t *testing.T) {
	e := newCLIEnv(t)

	r := e.run("list")
	require.Equal(t, exitSuccess, r.code)
	assert.Equal(t, "No todos.\n", r.stdout)

	id := e.list("add", "Buy milk")[0].ID
	e.list("toggle", id)
	r = e.run("list")
	assert.Contains(t, r.stdout, "[x] ")
	assert.Contains(t, r.stdout, "Buy milk")
	assert.Contains(t, r.stdout, id)
}

func TestCache_MirrorsLastList(t *testing.T) {
	e := newCLIEnv(t)

	r := e.run("cache")
	require.Equal(t, exitSuccess, r.code)
	assert.Contains(t, r.stdout, "No cached list")

	e.list("add", "Buy milk")
	todos := e.list("add", "Walk dog")

	r = e.run("cache")
	require.Equal(t, exitSuccess, r.code, r.stderr)
	var cached []types.Todo
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &cached))
	assert.Equal(t, todos, cached)
	assert.FileExists(t, filepath.Join(e.dataDir, "sessions", "cli.json"))

	r = e.run("cache", "--clear")
	require.Equal(t, exitSuccess, r.code, r.stderr)
	assert.NoFileExists(t, filepath.Join(e.dataDir, "sessions", "cli.json"))
	assert.Contains(t, e.run("cache").stdout, "No cached list")
}

func TestUnknownID_ExitsWithUserError(t *testing.T) {
	e := newCLIEnv(t)
	for _, args := range [][]string{{"toggle", "ghost"}, {"delete", "ghost"}, {"edit", "ghost", "--text", "x"}} {
		r := e.run(args...)
		assert.Equal(t, exitUserError, r.code, "%v", args)
		assert.Contains(t, r.stderr, "not found", "%v", args)
	}
}

func TestInvalidConfig_ExitsWithSysError(t *testing.T) {
	e := newCLIEnv(t)
	require.NoError(t, os.MkdirAll(e.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.configDir, "config.yaml"), []byte("backend: postgres\n"), 0o644))

	r := e.run("list")
	assert.Equal(t, exitSysError, r.code)
	assert.Contains(t, r.stderr, "unknown backend")
}

func TestEnvOverridesConfig(t *testing.T) {
	e := newCLIEnv(t)
	t.Setenv("TODOS_COLLECTION", "chores")

	e.list("add", "Mow lawn")
	assert.FileExists(t, filepath.Join(e.dataDir, "chores.jsonl"))
}

func TestLogLevelFlag(t *testing.T) {
	e := newCLIEnv(t)

	r := e.run("--log-level", "debug", "add", "Buy milk")
	require.Equal(t, exitSuccess, r.code)
	assert.Contains(t, r.stderr, "todo added")

	r = e.run("--log-level", "loud", "list")
	assert.Equal(t, exitSysError, r.code)
}
