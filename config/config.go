package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/KCErb/Gospel-Language-Study/talks"
)

type Config struct {
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`
	Port    int    `yaml:"port"`

	// TickMs bounds how often playback subscribers are notified.
	TickMs int `yaml:"tick_ms"`

	// DefaultLanguage overrides the first-available default when this
	// language is present on the talk.
	DefaultLanguage string `yaml:"default_language"`

	// SeekPolicy is "preserve" or "reset": what happens to the
	// position when the audio language changes.
	SeekPolicy string `yaml:"seek_policy"`
}

func Default() *Config {
	return &Config{
		DataDir:    "./data",
		DBPath:     "./data/gls.db",
		Port:       8121,
		TickMs:     50,
		SeekPolicy: "preserve",
	}
}

// Load reads path over the defaults. A missing file is not an error:
// the defaults stand.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.TickMs <= 0 {
		return fmt.Errorf("tick_ms must be positive, got %d", c.TickMs)
	}
	switch c.SeekPolicy {
	case "preserve", "reset":
	default:
		return fmt.Errorf("seek_policy must be preserve or reset, got %q", c.SeekPolicy)
	}
	if c.DefaultLanguage != "" {
		if _, err := talks.ParseLanguage(c.DefaultLanguage); err != nil {
			return fmt.Errorf("default_language: %w", err)
		}
	}
	return nil
}

// TalksDir is where talk directories live under the data dir.
func (c *Config) TalksDir() string {
	return filepath.Join(c.DataDir, "talks")
}
