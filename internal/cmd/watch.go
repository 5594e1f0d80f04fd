package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/minicodemonkey/dxrender/internal/tui"
	"github.com/minicodemonkey/dxrender/internal/watch"
)

// WatchOptions contains configuration for the watch command.
type WatchOptions struct {
	RenderOptions

	// OnRender, if set, is called after every render attempt.
	OnRender func(err error)
}

// RunWatch renders once, then renders again every time the chart or the
// archive changes, until ctx is canceled. Render failures are reported and
// watching continues.
func RunWatch(ctx context.Context, opts WatchOptions) error {
	if err := opts.setDefaults(); err != nil {
		return err
	}
	// Progress views would fight over the terminal between renders.
	opts.NoProgress = true

	w, err := watch.NewWatcher(opts.ChartPath, opts.ArchivePath)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Stop()
	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	rerender := func() {
		err := RunRender(ctx, opts.RenderOptions)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "%s %v\n", tui.ErrorStyle.Render(tui.IconFailed), err)
		}
		if opts.OnRender != nil {
			opts.OnRender(err)
		}
	}

	rerender()
	fmt.Fprintln(opts.Stdout, tui.SubtitleStyle.Render(fmt.Sprintf("Watching %s and %s (ctrl+c to stop)",
		filepath.Base(opts.ChartPath), filepath.Base(opts.ArchivePath))))

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			if ev.Error != nil {
				fmt.Fprintf(opts.Stderr, "Warning: %v\n", ev.Error)
				continue
			}
			for _, p := range ev.Paths {
				fmt.Fprintln(opts.Stdout, tui.SubtitleStyle.Render(fmt.Sprintf("%s changed", filepath.Base(p))))
			}
			rerender()
		}
	}
}
