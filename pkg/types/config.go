package types

import "errors"

// Config holds backend selection and parameters for Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// CharacterLimit caps how many characters one owner may create.
	// Zero selects DefaultCharacterLimit.
	CharacterLimit int `json:"character_limit,omitempty" yaml:"character_limit,omitempty"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// DefaultCharacterLimit is the per-owner character cap.
const DefaultCharacterLimit = 3

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrInvalidLimit   = errors.New("character limit must not be negative")
)

var knownBackends = map[string]bool{
	BackendSQLite: true,
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
	if c.CharacterLimit < 0 {
		return ErrInvalidLimit
	}
	return nil
}

// Limit returns the effective per-owner character cap.
func (c Config) Limit() int {
	if c.CharacterLimit == 0 {
		return DefaultCharacterLimit
	}
	return c.CharacterLimit
}
