package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/todos/internal/paths"
	"github.com/mesh-intelligence/todos/pkg/sqlite"
	"github.com/mesh-intelligence/todos/pkg/types"
)

// configFile holds the structure written to config.yaml by init.
type configFile struct {
	Backend    string    `yaml:"backend"`
	DataDir    string    `yaml:"data_dir,omitempty"`
	Collection string    `yaml:"collection"`
	CacheKey   string    `yaml:"cache_key"`
	SessionID  string    `yaml:"session_id"`
	Listen     string    `yaml:"listen"`
	Log        logConfig `yaml:"log"`
}

type logConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize todos storage",
		Long:  "Create the configuration and data directories, then initialize the store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, a.flags)
		},
	}
}

func runInit(cmd *cobra.Command, f rootFlags) error {
	configDir, err := paths.ResolveConfigDir(f.configDir)
	if err != nil {
		return sysError("resolve config dir: %w", err)
	}
	dataDir, err := paths.ResolveDataDir(f.dataDir, loadDataDirFromConfig(configDir))
	if err != nil {
		return sysError("resolve data dir: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return sysError("create config directory: %w", err)
	}
	if err := writeConfigIfMissing(paths.ConfigFile(configDir), dataDir); err != nil {
		return sysError("write config: %w", err)
	}

	backend := sqlite.NewBackend()
	if err := backend.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dataDir}); err != nil {
		return sysError("initialize storage: %w", err)
	}
	if err := backend.Detach(); err != nil {
		return sysError("finalize storage: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "todos initialized in %s\n", dataDir)
	return nil
}

// writeConfigIfMissing creates config.yaml with default values. An existing
// file is left alone.
func writeConfigIfMissing(path, dataDir string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	cfg := configFile{
		Backend:    types.BackendSQLite,
		DataDir:    dataDir,
		Collection: types.DefaultCollection,
		CacheKey:   types.DefaultCacheKey,
		SessionID:  DefaultSessionID,
		Listen:     DefaultListen,
		Log:        logConfig{Level: "info", Format: "text"},
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// loadDataDirFromConfig reads data_dir from an existing config.yaml.
// Returns "" if the file is missing or unreadable.
func loadDataDirFromConfig(configDir string) string {
	data, err := os.ReadFile(paths.ConfigFile(configDir))
	if err != nil {
		return ""
	}
	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ""
	}
	return cfg.DataDir
}
