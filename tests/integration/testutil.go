// Package integration runs the built todos binary end to end.
package integration

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

var (
	// todosBin is the path to the built todos binary.
	todosBin string
	// buildErr captures any build error.
	buildErr error
)

// BuildError wraps a build error with output.
type BuildError struct {
	Err    error
	Output string
}

func (e *BuildError) Error() string {
	return e.Err.Error() + ": " + e.Output
}

// FindProjectRoot walks up from the working directory to the go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// TestEnv is an isolated config and data directory for one test.
type TestEnv struct {
	t       *testing.T
	TempDir string
	Config  string
	DataDir string
}

// NewTestEnv creates a new isolated test environment.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	if buildErr != nil {
		t.Fatalf("failed to build todos: %v", buildErr)
	}
	if todosBin == "" {
		t.Fatal("todos binary not built")
	}

	tempDir := t.TempDir()
	env := &TestEnv{
		t:       t,
		TempDir: tempDir,
		Config:  filepath.Join(tempDir, "config"),
		DataDir: filepath.Join(tempDir, "data"),
	}
	if err := os.MkdirAll(env.Config, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	config := "backend: sqlite\ndata_dir: " + env.DataDir + "\nlog:\n  level: warn\n"
	if err := os.WriteFile(filepath.Join(env.Config, "config.yaml"), []byte(config), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return env
}

// CmdResult holds the result of a todos command execution.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Command returns an exec.Cmd for todos with the environment's directories.
func (e *TestEnv) Command(args ...string) *exec.Cmd {
	allArgs := append([]string{"--config-dir", e.Config}, args...)
	cmd := exec.Command(todosBin, allArgs...)
	cmd.Env = append(os.Environ(), "TODOS_DATA_DIR=", "TODOS_CONFIG_DIR=")
	return cmd
}

// RunTodos executes the todos CLI with the given arguments.
func (e *TestEnv) RunTodos(args ...string) CmdResult {
	e.t.Helper()

	cmd := e.Command(args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			e.t.Fatalf("failed to run todos: %v", err)
		}
		exitCode = exitErr.ExitCode()
	}
	return CmdResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}
}

// MustRunTodos executes todos and fails the test on a non-zero exit.
func (e *TestEnv) MustRunTodos(args ...string) CmdResult {
	e.t.Helper()
	result := e.RunTodos(args...)
	if result.ExitCode != 0 {
		e.t.Fatalf("todos %v failed with exit code %d:\nstdout: %s\nstderr: %s",
			args, result.ExitCode, result.Stdout, result.Stderr)
	}
	return result
}

// Todos runs a command with --json and returns the printed list.
func (e *TestEnv) Todos(args ...string) []Todo {
	e.t.Helper()
	result := e.MustRunTodos(append([]string{"--json"}, args...)...)
	return ParseJSON[[]Todo](e.t, result.Stdout)
}

// Todo is a task record as printed by --json.
type Todo struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Record is one line of the collection's JSONL file.
type Record struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ParseJSON parses JSON output into the target type.
func ParseJSON[T any](t *testing.T, jsonStr string) T {
	t.Helper()
	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		t.Fatalf("failed to parse JSON %q: %v", jsonStr, err)
	}
	return result
}

// ReadJSONLFile reads a JSONL file (one JSON object per line).
func ReadJSONLFile[T any](t *testing.T, path string) []T {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open JSONL file %s: %v", path, err)
	}
	defer f.Close()

	var results []T
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record T
		if err := json.Unmarshal(line, &record); err != nil {
			t.Fatalf("failed to parse JSONL line in %s: %v", path, err)
		}
		results = append(results, record)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("failed to scan JSONL file %s: %v", path, err)
	}
	return results
}
