// Package render runs the full pipeline: it reads the sample archive and the
// chart, stages the clips in scratch storage, mixes them and encodes the
// result as a 16-bit stereo WAV file.
package render

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/minicodemonkey/dxrender/internal/archive"
	"github.com/minicodemonkey/dxrender/internal/chart"
	"github.com/minicodemonkey/dxrender/internal/mix"
	"github.com/minicodemonkey/dxrender/internal/scratch"
	"github.com/minicodemonkey/dxrender/internal/wavio"
)

// Options controls a render.
type Options struct {
	Volume  float64
	FanIn   int
	Workers int
	Taps    int
	Layout  chart.Layout

	ScratchDir  string // parent of the scratch directory, os.TempDir() if empty
	KeepScratch bool   // leave extracted clips on disk for inspection

	Logger   *log.Logger // log.Default() if nil
	Verbose  bool        // log per-stage timings
	Progress func(mix.Progress)
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Default()
}

// Summary describes a finished render.
type Summary struct {
	Layout     chart.Layout
	Clips      int
	Background int
	Events     int
	Playable   int
	Frames     int
	Duration   time.Duration
	Bytes      int
}

// Render converts chart and archive bytes into WAV file bytes.
func Render(ctx context.Context, chartData, archiveData []byte, opts Options) ([]byte, *Summary, error) {
	logger := opts.logger()
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	start := time.Now()

	var (
		arc *archive.Archive
		ch  *chart.Chart
	)

	// The chart does not depend on decoded audio, only on the background
	// index, which is patched in once both parses are done.
	var g errgroup.Group
	g.Go(func() error {
		var err error
		arc, err = archive.Parse(archiveData)
		return err
	})
	g.Go(func() error {
		var err error
		ch, err = chart.Parse(chartData, chart.Options{Layout: opts.Layout})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	ch.ResolveBackground(int32(arc.Background))

	if len(arc.BackgroundSlots) > 1 {
		logger.Printf("Warning: archive flags %d background slots %v, using %d", len(arc.BackgroundSlots), arc.BackgroundSlots, arc.Background)
	}
	if opts.Verbose {
		logger.Printf("parsed %d clips and %d events (%s layout) in %s", arc.Len(), len(ch.Events), ch.Layout, time.Since(start).Round(time.Millisecond))
		if ch.Skipped > 0 {
			logger.Printf("skipped %d records with unknown opcodes", ch.Skipped)
		}
	}

	store, err := scratch.New(opts.ScratchDir, logger)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if opts.KeepScratch {
			logger.Printf("keeping extracted clips in %s", store.Dir())
			return
		}
		// Release logs each failure itself; cleanup never fails the render.
		_ = store.Release()
	}()

	payloads := make([][]byte, arc.Len())
	for i, c := range arc.Clips {
		payloads[i] = c.Data
	}
	if err := store.PutAll(ctx, payloads, opts.Workers); err != nil {
		return nil, nil, err
	}

	mixStart := time.Now()
	res, err := mix.Mix(ctx, ch.Events, store, mix.Options{
		Volume:   opts.Volume,
		FanIn:    opts.FanIn,
		Workers:  opts.Workers,
		Taps:     opts.Taps,
		Progress: opts.Progress,
	})
	if err != nil {
		return nil, nil, err
	}
	if opts.Verbose {
		logger.Printf("mixed %d tracks into %d frames in %s", res.Tracks, res.Frames, time.Since(mixStart).Round(time.Millisecond))
	}

	out, err := wavio.EncodePCM16(res.PCM16(), mix.TargetRate, mix.TargetChannels)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding output: %w", err)
	}

	return out, &Summary{
		Layout:     ch.Layout,
		Clips:      arc.Len(),
		Background: arc.Background,
		Events:     len(ch.Events),
		Playable:   res.Tracks,
		Frames:     res.Frames,
		Duration:   time.Duration(res.Duration() * float64(time.Second)),
		Bytes:      len(out),
	}, nil
}

// RenderFile reads the chart and archive from disk and writes the mixdown to
// outPath. The output is written to a temporary file first and renamed into
// place, so a failed render never leaves a partial file behind.
func RenderFile(ctx context.Context, chartPath, archivePath, outPath string, opts Options) (*Summary, error) {
	chartData, err := os.ReadFile(chartPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart: %w", err)
	}
	archiveData, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	out, summary, err := Render(ctx, chartData, archiveData, opts)
	if err != nil {
		return nil, err
	}

	if err := writeAtomic(outPath, out); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	return summary, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
