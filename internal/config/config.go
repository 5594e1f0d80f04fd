package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minicodemonkey/dxrender/internal/chart"
	"github.com/minicodemonkey/dxrender/internal/mix"
	"github.com/minicodemonkey/dxrender/internal/paths"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid value")

// Config holds user-level settings for dxrender.
type Config struct {
	Render  RenderConfig  `yaml:"render"`
	Scratch ScratchConfig `yaml:"scratch"`
	Notify  NotifyConfig  `yaml:"notify"`
	UI      UIConfig      `yaml:"ui"`
}

// RenderConfig holds mixing settings.
type RenderConfig struct {
	Volume       float64 `yaml:"volume"`
	FanIn        int     `yaml:"fanIn"`
	Workers      int     `yaml:"workers"`
	ResampleTaps int     `yaml:"resampleTaps"`
	Layout       string  `yaml:"layout"`
}

// ScratchConfig controls where extracted clips are staged.
type ScratchConfig struct {
	Dir  string `yaml:"dir"`
	Keep bool   `yaml:"keep"`
}

// NotifyConfig holds completion notification settings.
type NotifyConfig struct {
	Sound bool `yaml:"sound"`
}

// UIConfig holds terminal output settings.
type UIConfig struct {
	Progress bool `yaml:"progress"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Render: RenderConfig{
			Volume:       1.0,
			FanIn:        mix.DefaultFanIn,
			ResampleTaps: mix.DefaultTaps,
			Layout:       chart.LayoutAuto.String(),
		},
		UI: UIConfig{Progress: true},
	}
}

// Exists checks if the user config file exists.
func Exists() bool {
	_, err := os.Stat(paths.ConfigPath())
	return err == nil
}

// Load reads the config from ~/.dxrender/config.yaml.
// Returns Default() when the file doesn't exist (no error).
func Load() (*Config, error) {
	return LoadFile(paths.ConfigPath())
}

// LoadFile reads the config from path. Keys missing from the file keep their
// default values. A missing file yields Default().
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the config to ~/.dxrender/config.yaml.
func Save(cfg *Config) error {
	return SaveFile(paths.ConfigPath(), cfg)
}

// SaveFile writes the config to path, creating parent directories.
func SaveFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate rejects values the renderer cannot use.
func (c *Config) Validate() error {
	if c.Render.Volume <= 0 {
		return fmt.Errorf("%w: render.volume must be positive, got %g", ErrInvalid, c.Render.Volume)
	}
	if c.Render.FanIn < 1 {
		return fmt.Errorf("%w: render.fanIn must be at least 1, got %d", ErrInvalid, c.Render.FanIn)
	}
	if c.Render.Workers < 0 {
		return fmt.Errorf("%w: render.workers must not be negative, got %d", ErrInvalid, c.Render.Workers)
	}
	if c.Render.ResampleTaps < 0 {
		return fmt.Errorf("%w: render.resampleTaps must not be negative, got %d", ErrInvalid, c.Render.ResampleTaps)
	}
	if _, err := chart.ParseLayout(c.Render.Layout); err != nil {
		return fmt.Errorf("%w: render.layout: %v", ErrInvalid, err)
	}
	return nil
}

// ChartLayout returns the configured layout. It assumes Validate passed.
func (c *Config) ChartLayout() chart.Layout {
	l, _ := chart.ParseLayout(c.Render.Layout)
	return l
}
