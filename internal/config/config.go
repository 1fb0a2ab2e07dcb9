package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrNoHomeDir is returned when the user's home directory cannot be determined.
var ErrNoHomeDir = errors.New("cannot determine home directory")

// Corrupt-record policies for listing saves.
const (
	OnCorruptAbort = "abort"
	OnCorruptSkip  = "skip"
)

// EnvConfigPath overrides the config file location when set.
const EnvConfigPath = "SAVEBAK_CONFIG"

type Config struct {
	LiveDir    string `yaml:"live_dir"`    // The game's own save directory
	ArchiveDir string `yaml:"archive_dir"` // Where numbered saves are kept
	OnCorrupt  string `yaml:"on_corrupt"`  // abort or skip
	LogFile    string `yaml:"log_file"`
}

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", ErrNoHomeDir
	}
	return home, nil
}

func DefaultConfig() (*Config, error) {
	home, err := homeDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		LiveDir:    filepath.Join(home, ".local", "share", "NEOScavenger"),
		ArchiveDir: filepath.Join(home, "savebak"),
		OnCorrupt:  OnCorruptAbort,
		LogFile:    filepath.Join(home, ".savebak", "savebak.log"),
	}, nil
}

// ConfigPath returns $SAVEBAK_CONFIG or ~/.savebak/config.yaml.
func ConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".savebak", "config.yaml"), nil
}

// Load reads the config from ConfigPath, falling back to defaults when
// the file does not exist.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path over the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks that the config can drive an archive.
func (c *Config) Validate() error {
	if c.LiveDir == "" {
		return errors.New("live_dir must be set")
	}
	if c.ArchiveDir == "" {
		return errors.New("archive_dir must be set")
	}
	switch c.OnCorrupt {
	case "", OnCorruptAbort, OnCorruptSkip:
	default:
		return fmt.Errorf("on_corrupt must be %q or %q, got %q", OnCorruptAbort, OnCorruptSkip, c.OnCorrupt)
	}
	return nil
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
