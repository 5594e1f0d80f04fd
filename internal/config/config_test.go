package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/minicodemonkey/dxrender/embed"
	"github.com/minicodemonkey/dxrender/internal/chart"
	"github.com/minicodemonkey/dxrender/internal/paths"
	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Render.Volume != 1.0 {
		t.Errorf("expected volume 1.0, got %g", cfg.Render.Volume)
	}
	if cfg.Render.FanIn != 128 {
		t.Errorf("expected fanIn 128, got %d", cfg.Render.FanIn)
	}
	if cfg.Render.Workers != 0 {
		t.Errorf("expected workers 0, got %d", cfg.Render.Workers)
	}
	if cfg.Render.ResampleTaps != 32 {
		t.Errorf("expected resampleTaps 32, got %d", cfg.Render.ResampleTaps)
	}
	if cfg.ChartLayout() != chart.LayoutAuto {
		t.Errorf("expected auto layout, got %s", cfg.ChartLayout())
	}
	if cfg.Scratch.Keep {
		t.Error("expected Keep to be false")
	}
	if cfg.Notify.Sound {
		t.Error("expected Sound to be false")
	}
	if !cfg.UI.Progress {
		t.Error("expected Progress to be true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadNonExistent(t *testing.T) {
	restore := paths.SetHomeDir(t.TempDir())
	defer restore()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Render.FanIn != 128 {
		t.Errorf("expected default fanIn, got %d", cfg.Render.FanIn)
	}
}

func TestSaveAndLoad(t *testing.T) {
	restore := paths.SetHomeDir(t.TempDir())
	defer restore()

	cfg := Default()
	cfg.Render.Volume = 0.5
	cfg.Render.FanIn = 16
	cfg.Render.Layout = "old"
	cfg.Scratch.Dir = "/var/tmp"
	cfg.Scratch.Keep = true
	cfg.Notify.Sound = true

	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Render.Volume != 0.5 {
		t.Errorf("expected volume 0.5, got %g", loaded.Render.Volume)
	}
	if loaded.Render.FanIn != 16 {
		t.Errorf("expected fanIn 16, got %d", loaded.Render.FanIn)
	}
	if loaded.ChartLayout() != chart.LayoutOld {
		t.Errorf("expected old layout, got %s", loaded.ChartLayout())
	}
	if loaded.Scratch.Dir != "/var/tmp" || !loaded.Scratch.Keep {
		t.Errorf("expected scratch settings to round trip, got %+v", loaded.Scratch)
	}
	if !loaded.Notify.Sound {
		t.Error("expected Sound to be true")
	}
}

func TestLoadFilePartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("render:\n  volume: 0.8\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Render.Volume != 0.8 {
		t.Errorf("expected volume 0.8, got %g", cfg.Render.Volume)
	}
	if cfg.Render.FanIn != 128 {
		t.Errorf("keys missing from the file should keep defaults, got fanIn %d", cfg.Render.FanIn)
	}
	if !cfg.UI.Progress {
		t.Error("expected Progress to keep its default")
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero volume", "render:\n  volume: 0\n"},
		{"negative volume", "render:\n  volume: -1\n"},
		{"zero fan-in", "render:\n  fanIn: 0\n"},
		{"negative workers", "render:\n  workers: -2\n"},
		{"negative taps", "render:\n  resampleTaps: -1\n"},
		{"bad layout", "render:\n  layout: sideways\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFile(path); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("render: [not, a, map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}

func TestExists(t *testing.T) {
	restore := paths.SetHomeDir(t.TempDir())
	defer restore()

	if Exists() {
		t.Error("expected Exists to return false for missing config")
	}

	if err := Save(Default()); err != nil {
		t.Fatal(err)
	}

	if !Exists() {
		t.Error("expected Exists to return true for existing config")
	}
}

func TestEmbeddedTemplateMatchesDefault(t *testing.T) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(embed.GetDefaultConfig()), &cfg); err != nil {
		t.Fatalf("embedded template does not parse: %v", err)
	}
	if !reflect.DeepEqual(&cfg, Default()) {
		t.Errorf("embedded template %+v differs from Default() %+v", cfg, *Default())
	}
}
