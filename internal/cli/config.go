package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/todos/internal/logging"
	"github.com/mesh-intelligence/todos/internal/paths"
	"github.com/mesh-intelligence/todos/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "TODOS"
)

// Config keys.
const (
	cfgKeyBackend    = "backend"
	cfgKeyDataDir    = "data_dir"
	cfgKeyCollection = "collection"
	cfgKeyCacheKey   = "cache_key"
	cfgKeySessionID  = "session_id"
	cfgKeyListen     = "listen"
	cfgKeyLogLevel   = "log.level"
	cfgKeyLogFormat  = "log.format"
	cfgKeyLogFile    = "log.file"
)

// envKeys are the keys overridable as TODOS_<KEY>. data_dir is absent:
// TODOS_DATA_DIR ranks below config.yaml and is read by paths.ResolveDataDir.
var envKeys = []string{
	cfgKeyBackend, cfgKeyCollection, cfgKeyCacheKey, cfgKeySessionID,
	cfgKeyListen, cfgKeyLogLevel, cfgKeyLogFormat, cfgKeyLogFile,
}

// DefaultListen is the address `todos serve` binds by default.
const DefaultListen = "127.0.0.1:8080"

// DefaultSessionID names the CLI's session storage file.
const DefaultSessionID = "cli"

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# todos configuration

# Store backend
backend: sqlite

# Data directory (optional; overridable by --data-dir or TODOS_DATA_DIR)
# data_dir:

# Document collection holding task records
collection: todos

# Session storage key for the list snapshot, and the CLI's session id
cache_key: todos
session_id: cli

# Address for "todos serve"
listen: 127.0.0.1:8080

log:
  level: info   # debug, info, warn, error
  format: text  # text, json, logfmt
  file: ""      # rotate logs into this file instead of stderr
`

// settings is the resolved configuration for one command invocation.
type settings struct {
	configDir string
	dataDir   string
	store     types.Config
	cacheKey  string
	sessionID string
	listen    string
	log       logging.Options
}

// loadConfig reads config.yaml from configDir with TODOS_* environment
// overrides. It creates the directory and a default config.yaml on first
// run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyCollection, types.DefaultCollection)
	v.SetDefault(cfgKeyCacheKey, types.DefaultCacheKey)
	v.SetDefault(cfgKeySessionID, DefaultSessionID)
	v.SetDefault(cfgKeyListen, DefaultListen)
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetDefault(cfgKeyLogFormat, "text")
	v.SetDefault(cfgKeyLogFile, "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile writes defaultConfigYAML unless config.yaml exists.
func ensureDefaultConfigFile(configDir string) error {
	path := paths.ConfigFile(configDir)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// resolveSettings applies flags over v.
func resolveSettings(v *viper.Viper, configDir string, f rootFlags) (settings, error) {
	dataDir, err := paths.ResolveDataDir(f.dataDir, configuredDataDir(v))
	if err != nil {
		return settings{}, fmt.Errorf("resolve data dir: %w", err)
	}

	s := settings{
		configDir: configDir,
		dataDir:   dataDir,
		store: types.Config{
			Backend:    v.GetString(cfgKeyBackend),
			DataDir:    dataDir,
			Collection: v.GetString(cfgKeyCollection),
		},
		cacheKey:  v.GetString(cfgKeyCacheKey),
		sessionID: v.GetString(cfgKeySessionID),
		listen:    v.GetString(cfgKeyListen),
		log:       logging.DefaultOptions(),
	}
	s.log.Level = v.GetString(cfgKeyLogLevel)
	s.log.Format = v.GetString(cfgKeyLogFormat)
	s.log.File = v.GetString(cfgKeyLogFile)
	if f.logLevel != "" {
		s.log.Level = f.logLevel
	}

	if err := s.store.Validate(); err != nil {
		return settings{}, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := logging.ParseLevel(s.log.Level); err != nil {
		return settings{}, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}

// configuredDataDir returns data_dir from config.yaml, if set.
func configuredDataDir(v *viper.Viper) string {
	return v.GetString(cfgKeyDataDir)
}
