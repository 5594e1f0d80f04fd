package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/minicodemonkey/dxrender/embed"
	"github.com/minicodemonkey/dxrender/internal/config"
	"github.com/minicodemonkey/dxrender/internal/paths"
	"github.com/minicodemonkey/dxrender/internal/tui"
)

// ConfigOptions contains configuration for the config command.
type ConfigOptions struct {
	Action string    // init or show
	Force  bool      // init: overwrite an existing file
	Plain  bool      // show: never highlight
	Stdout io.Writer // default: os.Stdout
}

// RunConfig writes the default config file or prints the effective config.
func RunConfig(opts ConfigOptions) error {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	switch opts.Action {
	case "init":
		return runConfigInit(opts)
	case "show", "":
		return runConfigShow(opts)
	default:
		return fmt.Errorf("unknown config action %q (want init or show)", opts.Action)
	}
}

func runConfigInit(opts ConfigOptions) error {
	path := paths.ConfigPath()
	if config.Exists() && !opts.Force {
		return fmt.Errorf("config already exists at %s. Use -force to overwrite it", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(embed.GetDefaultConfig()), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(opts.Stdout, "%s Wrote %s\n", tui.SuccessStyle.Render(tui.IconDone), path)
	return nil
}

func runConfigShow(opts ConfigOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	source := paths.ConfigPath()
	if !config.Exists() {
		source += " (not found, showing defaults)"
	}
	out := fmt.Sprintf("# %s\n%s", source, data)

	if !opts.Plain && isTerminal(opts.Stdout) {
		if err := tui.HighlightYAML(opts.Stdout, out); err == nil {
			return nil
		}
	}
	_, err = io.WriteString(opts.Stdout, out)
	return err
}
