// Package cmd provides the CLI command implementations for dxrender:
// render, info, extract, watch and config.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/charmbracelet/x/term"

	"github.com/minicodemonkey/dxrender/internal/chart"
	"github.com/minicodemonkey/dxrender/internal/config"
	"github.com/minicodemonkey/dxrender/internal/mix"
	"github.com/minicodemonkey/dxrender/internal/notify"
	"github.com/minicodemonkey/dxrender/internal/paths"
	"github.com/minicodemonkey/dxrender/internal/render"
	"github.com/minicodemonkey/dxrender/internal/tui"
)

// RenderOptions contains configuration for the render command. Zero values
// fall back to the user config.
type RenderOptions struct {
	ChartPath   string
	ArchivePath string
	OutputPath  string // default: chart path with a .wav extension

	Volume     float64
	Layout     string // auto, old or new
	FanIn      int
	Workers    int
	KeepTemp   bool
	Verbose    bool
	NoProgress bool
	Sound      bool

	Config *config.Config // default: config.Load()
	Stdout io.Writer      // default: os.Stdout
	Stderr io.Writer      // default: os.Stderr
}

func (o *RenderOptions) setDefaults() error {
	if o.ChartPath == "" {
		return errors.New("no chart given (use -b)")
	}
	if o.ArchivePath == "" {
		return errors.New("no archive given (use -x)")
	}
	if o.OutputPath == "" {
		o.OutputPath = paths.DefaultOutput(o.ChartPath)
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Config == nil {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		o.Config = cfg
	}
	return nil
}

// renderOptions merges flags over the config.
func (o *RenderOptions) renderOptions() (render.Options, error) {
	cfg := o.Config
	ro := render.Options{
		Volume:      cfg.Render.Volume,
		FanIn:       cfg.Render.FanIn,
		Workers:     cfg.Render.Workers,
		Taps:        cfg.Render.ResampleTaps,
		Layout:      cfg.ChartLayout(),
		ScratchDir:  cfg.Scratch.Dir,
		KeepScratch: cfg.Scratch.Keep || o.KeepTemp,
		Logger:      log.New(o.Stderr, "", 0),
		Verbose:     o.Verbose,
	}

	if o.Volume < 0 {
		return ro, fmt.Errorf("volume must be positive, got %g", o.Volume)
	}
	if o.Volume > 0 {
		ro.Volume = o.Volume
	}
	if o.Layout != "" {
		layout, err := chart.ParseLayout(o.Layout)
		if err != nil {
			return ro, err
		}
		ro.Layout = layout
	}
	if o.FanIn < 0 {
		return ro, fmt.Errorf("fan-in must be at least 1, got %d", o.FanIn)
	}
	if o.FanIn > 0 {
		ro.FanIn = o.FanIn
	}
	if o.Workers > 0 {
		ro.Workers = o.Workers
	}
	return ro, nil
}

// RunRender renders a chart and its archive to a WAV file.
func RunRender(ctx context.Context, opts RenderOptions) error {
	if err := opts.setDefaults(); err != nil {
		return err
	}
	ro, err := opts.renderOptions()
	if err != nil {
		return err
	}

	var summary *render.Summary
	if opts.Config.UI.Progress && !opts.NoProgress && isTerminal(opts.Stderr) {
		summary, err = tui.RunProgress(ctx, opts.Stderr, filepath.Base(opts.ChartPath),
			func(ctx context.Context, progress func(mix.Progress)) (*render.Summary, error) {
				ro.Progress = progress
				return render.RenderFile(ctx, opts.ChartPath, opts.ArchivePath, opts.OutputPath, ro)
			})
	} else {
		summary, err = render.RenderFile(ctx, opts.ChartPath, opts.ArchivePath, opts.OutputPath, ro)
	}
	if err != nil {
		return err
	}

	printSummary(opts.Stdout, opts.OutputPath, summary)

	if opts.Config.Notify.Sound || opts.Sound {
		playChime(ro.Logger)
	}
	return nil
}

func printSummary(w io.Writer, outPath string, s *render.Summary) {
	fmt.Fprintf(w, "%s Wrote %s\n", tui.SuccessStyle.Render(tui.IconDone), outPath)
	fmt.Fprintln(w, tui.SubtitleStyle.Render(fmt.Sprintf("  %s layout, %d clips (background %d), %d of %d events played, %d frames (%.2fs)",
		s.Layout, s.Clips, s.Background, s.Playable, s.Events, s.Frames, s.Duration.Seconds())))
}

func playChime(logger *log.Logger) {
	n, err := notify.GetNotifier()
	if err != nil {
		logger.Printf("Warning: failed to initialize audio: %v", err)
		return
	}
	n.PlayAndWait()
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

// terminalWidth returns the width of w, or fallback if it is not a terminal.
func terminalWidth(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok {
		return fallback
	}
	width, _, err := term.GetSize(f.Fd())
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
