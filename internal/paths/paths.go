// Package paths resolves where todos keeps its configuration, its store
// files, and its CLI session storage.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user configuration directory.
const AppName = "todos"

// Directory and file names.
const (
	DefaultDataDirName = ".todos-db"
	ConfigFileName     = "config.yaml"
	SessionsDirName    = "sessions"
)

// Environment variables that override the directories.
const (
	EnvConfigDir = "TODOS_CONFIG_DIR"
	EnvDataDir   = "TODOS_DATA_DIR"
)

// platform holds lookups that tests replace.
var platform = struct {
	goos          string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the per-user configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/todos (fallback ~/.config/todos)
// macOS:   ~/Library/Application Support/todos
// Windows: %APPDATA%/todos
func DefaultConfigDir() (string, error) {
	if platform.goos != "linux" {
		dir, err := platform.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platform.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName), nil
}

// ResolveConfigDir applies flag > TODOS_CONFIG_DIR > DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if dir := firstSet(flag, os.Getenv(EnvConfigDir)); dir != "" {
		return filepath.Abs(dir)
	}
	return DefaultConfigDir()
}

// ResolveDataDir applies flag > config.yaml data_dir > TODOS_DATA_DIR >
// $(CWD)/.todos-db. The store keeps its database and JSONL files here.
func ResolveDataDir(flag, configured string) (string, error) {
	if dir := firstSet(flag, configured, os.Getenv(EnvDataDir)); dir != "" {
		return filepath.Abs(dir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ConfigFile returns the config.yaml path inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

// SessionsDir returns the directory holding CLI session storage files.
func SessionsDir(dataDir string) string {
	return filepath.Join(dataDir, SessionsDirName)
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
