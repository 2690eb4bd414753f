package types

import "errors"

// Config holds backend selection and parameters for Backend.Attach.
type Config struct {
	Backend    string `json:"backend" yaml:"backend"`
	DataDir    string `json:"data_dir" yaml:"data_dir"`
	Collection string `json:"collection" yaml:"collection"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// DefaultCollection is the document collection holding task records.
const DefaultCollection = "todos"

// Config validation errors.
var (
	ErrBackendEmpty      = errors.New("backend must not be empty")
	ErrBackendUnknown    = errors.New("unknown backend")
	ErrCollectionInvalid = errors.New("collection name must be a plain identifier")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// GetCollection returns the collection name, defaulting to DefaultCollection.
func (c Config) GetCollection() string {
	if c.Collection == "" {
		return DefaultCollection
	}
	return c.Collection
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	for _, r := range c.GetCollection() {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ErrCollectionInvalid
		}
	}
	return nil
}
