// Config loading for the charsheet CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/charsheet/internal/autosave"
	"github.com/mesh-intelligence/charsheet/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyUser           = "user"
	cfgKeyMode           = "mode"
	cfgKeyCharacterLimit = "character_limit"
	cfgKeyLogLevel       = "log_level"
	cfgKeyLogFormat      = "log_format"
	cfgKeyDebounce       = "sync.debounce"
	cfgKeyStatusDelay    = "sync.status_delay"
	cfgKeyDeltaThreshold = "sync.delta_threshold"

	defaultUser      = "local"
	defaultLogLevel  = "warn"
	defaultLogFormat = "text"
)

// configFile is the structure written to config.yaml on first run.
type configFile struct {
	Backend        string          `yaml:"backend"`
	DataDir        string          `yaml:"data_dir,omitempty"`
	User           string          `yaml:"user"`
	Mode           string          `yaml:"mode"`
	CharacterLimit int             `yaml:"character_limit"`
	LogLevel       string          `yaml:"log_level"`
	LogFormat      string          `yaml:"log_format"`
	Sync           autosave.Config `yaml:"sync"`
}

func defaultConfigFile() configFile {
	return configFile{
		Backend:        types.BackendSQLite,
		User:           defaultUser,
		Mode:           types.ModeOwner,
		CharacterLimit: types.DefaultCharacterLimit,
		LogLevel:       defaultLogLevel,
		LogFormat:      defaultLogFormat,
		Sync:           autosave.DefaultConfig(),
	}
}

// settings is the resolved configuration for one command invocation.
type settings struct {
	Backend        string
	DataDir        string
	User           string
	Mode           string
	CharacterLimit int
	LogLevel       string
	LogFormat      string
	Sync           autosave.Config
}

// loadConfig reads config.yaml from configDir using Viper. It creates the
// directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), ""); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	def := defaultConfigFile()
	v := viper.New()
	v.SetDefault(cfgKeyBackend, def.Backend)
	v.SetDefault(cfgKeyUser, def.User)
	v.SetDefault(cfgKeyMode, def.Mode)
	v.SetDefault(cfgKeyCharacterLimit, def.CharacterLimit)
	v.SetDefault(cfgKeyLogLevel, def.LogLevel)
	v.SetDefault(cfgKeyLogFormat, def.LogFormat)
	v.SetDefault(cfgKeyDebounce, def.Sync.Debounce)
	v.SetDefault(cfgKeyStatusDelay, def.Sync.StatusDelay)
	v.SetDefault(cfgKeyDeltaThreshold, def.Sync.DeltaThreshold)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// resolveSettings turns the loaded config into settings. Sync tuning from
// config.yaml is overlaid with CHARSHEET_SYNC_* environment variables.
func resolveSettings(v *viper.Viper) (settings, error) {
	syncCfg, err := autosave.ConfigFromEnv(autosave.Config{
		Debounce:       v.GetDuration(cfgKeyDebounce),
		StatusDelay:    v.GetDuration(cfgKeyStatusDelay),
		DeltaThreshold: v.GetInt(cfgKeyDeltaThreshold),
	})
	if err != nil {
		return settings{}, err
	}
	return settings{
		Backend:        v.GetString(cfgKeyBackend),
		DataDir:        v.GetString(cfgKeyDataDir),
		User:           v.GetString(cfgKeyUser),
		Mode:           v.GetString(cfgKeyMode),
		CharacterLimit: v.GetInt(cfgKeyCharacterLimit),
		LogLevel:       v.GetString(cfgKeyLogLevel),
		LogFormat:      v.GetString(cfgKeyLogFormat),
		Sync:           syncCfg,
	}, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. An existing file is left alone.
func writeConfigIfMissing(path, dataDir string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	cfg := defaultConfigFile()
	cfg.DataDir = dataDir
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte("# charsheet configuration\n"), data...), 0o644)
}

// pinDataDir records dataDir in an existing config.yaml, keeping its other
// values.
func pinDataDir(path, dataDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg := defaultConfigFile()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	cfg.DataDir = dataDir
	out, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, append([]byte("# charsheet configuration\n"), out...), 0o644)
}
