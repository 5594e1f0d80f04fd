package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/minicodemonkey/dxrender/internal/archive"
	"github.com/minicodemonkey/dxrender/internal/paths"
	"github.com/minicodemonkey/dxrender/internal/tui"
)

// ExtractOptions contains configuration for the extract command.
type ExtractOptions struct {
	ArchivePath string
	Dir         string    // default: current directory
	Workers     int       // default: runtime.NumCPU()
	Stdout      io.Writer // default: os.Stdout
}

// RunExtract writes every clip of an archive as its own WAV file, named
// after its 1-based slot index (0001.wav, 0002.wav, ...).
func RunExtract(ctx context.Context, opts ExtractOptions) error {
	if opts.ArchivePath == "" {
		return errors.New("no archive given (use -x)")
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	data, err := os.ReadFile(opts.ArchivePath)
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	arc, err := archive.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse archive: %w", err)
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, c := range arc.Clips {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := paths.ClipFile(opts.Dir, c.Slot.Index)
			if err := os.WriteFile(path, c.Data, 0o644); err != nil {
				return fmt.Errorf("failed to write clip %d: %w", c.Slot.Index, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(opts.Stdout, "%s Extracted %d clips to %s\n", tui.SuccessStyle.Render(tui.IconDone), arc.Len(), opts.Dir)
	fmt.Fprintln(opts.Stdout, tui.SubtitleStyle.Render(fmt.Sprintf("  background: %s", paths.ClipFile(opts.Dir, arc.Background))))
	return nil
}
