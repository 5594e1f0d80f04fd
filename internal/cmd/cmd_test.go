package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/minicodemonkey/dxrender/internal/archive"
	"github.com/minicodemonkey/dxrender/internal/chart"
	"github.com/minicodemonkey/dxrender/internal/config"
	"github.com/minicodemonkey/dxrender/internal/paths"
	"github.com/minicodemonkey/dxrender/internal/wavio"
)

// song writes a two-clip archive and a chart that plays clip 2 at 0ms, the
// background at 500ms and ends at 1000ms. It returns the chart and archive
// paths and the clip payloads.
func song(t *testing.T, dir string) (string, string, [][]byte) {
	t.Helper()

	var clips [][]byte
	for _, v := range []int{4000, 8000} {
		samples := make([]int, 441)
		for i := range samples {
			samples[i] = v
		}
		wav, err := wavio.EncodePCM16(samples, 44100, 1)
		if err != nil {
			t.Fatal(err)
		}
		clips = append(clips, wav)
	}

	chartPath := filepath.Join(dir, "song.bin")
	archivePath := filepath.Join(dir, "song.2dx")
	if err := os.WriteFile(archivePath, archive.Encode(clips, 1), 0o644); err != nil {
		t.Fatalf("Failed to write archive: %v", err)
	}
	if err := os.WriteFile(chartPath, songChart(2), 0o644); err != nil {
		t.Fatalf("Failed to write chart: %v", err)
	}
	return chartPath, archivePath, clips
}

func songChart(sample uint8) []byte {
	return chart.Encode(chart.LayoutNew, []chart.Instruction{
		{Offset: 0, Command: chart.CmdLoadSample, Value: chart.Value(0, sample)},
		{Offset: 0, Command: chart.CmdKey, Value: chart.Value(0, 0)},
		{Offset: 500, Command: chart.CmdPlayBgSample},
		{Offset: 1000, Command: chart.CmdEnd},
	})
}

func TestRunRenderWritesOutput(t *testing.T) {
	restore := paths.SetHomeDir(t.TempDir())
	defer restore()

	dir := t.TempDir()
	chartPath, archivePath, _ := song(t, dir)
	outPath := filepath.Join(dir, "out.wav")

	var stdout, stderr bytes.Buffer
	err := RunRender(context.Background(), RenderOptions{
		ChartPath:   chartPath,
		ArchivePath: archivePath,
		OutputPath:  outPath,
		Stdout:      &stdout,
		Stderr:      &stderr,
	})
	if err != nil {
		t.Fatalf("RunRender() returned error: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("Expected output file: %v", err)
	}
	info, err := wavio.Probe(data)
	if err != nil {
		t.Fatalf("Expected a valid WAV file: %v", err)
	}
	if info.Channels != 2 || info.SampleRate != 44100 {
		t.Errorf("Expected 44.1 kHz stereo, got %d Hz %d ch", info.SampleRate, info.Channels)
	}
	if !strings.Contains(stdout.String(), "Wrote "+outPath) {
		t.Errorf("Expected summary on stdout, got %q", stdout.String())
	}
	if !strings.Contains(stdout.String(), "2 of 3 events played") {
		t.Errorf("Expected event counts in summary, got %q", stdout.String())
	}
}

func TestRunRenderDefaultOutput(t *testing.T) {
	dir := t.TempDir()
	chartPath, archivePath, _ := song(t, dir)

	var stdout, stderr bytes.Buffer
	err := RunRender(context.Background(), RenderOptions{
		ChartPath:   chartPath,
		ArchivePath: archivePath,
		Config:      config.Default(),
		Stdout:      &stdout,
		Stderr:      &stderr,
	})
	if err != nil {
		t.Fatalf("RunRender() returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "song.wav")); err != nil {
		t.Errorf("Expected song.wav next to the chart: %v", err)
	}
}

func TestRunRenderMissingArguments(t *testing.T) {
	tests := []struct {
		name string
		opts RenderOptions
		want string
	}{
		{"no chart", RenderOptions{ArchivePath: "a.2dx"}, "no chart"},
		{"no archive", RenderOptions{ChartPath: "a.bin"}, "no archive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RunRender(context.Background(), tt.opts)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRunRenderMissingSample(t *testing.T) {
	dir := t.TempDir()
	chartPath, archivePath, _ := song(t, dir)
	if err := os.WriteFile(chartPath, songChart(7), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := RunRender(context.Background(), RenderOptions{
		ChartPath:   chartPath,
		ArchivePath: archivePath,
		Config:      config.Default(),
		Stdout:      &stdout,
		Stderr:      &stderr,
	})
	if err == nil || !strings.Contains(err.Error(), "missing sample") {
		t.Errorf("Expected a missing sample error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "song.wav")); !os.IsNotExist(err) {
		t.Errorf("Expected no output after a failed render, got %v", err)
	}
}

func TestRenderOptionsFlagsOverrideConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Render.Volume = 0.8
	cfg.Render.FanIn = 64
	cfg.Render.Workers = 2
	cfg.Render.Layout = "old"
	cfg.Scratch.Dir = "/scratch"

	opts := RenderOptions{Config: cfg}
	ro, err := opts.renderOptions()
	if err != nil {
		t.Fatal(err)
	}
	if ro.Volume != 0.8 || ro.FanIn != 64 || ro.Workers != 2 || ro.Layout != chart.LayoutOld {
		t.Errorf("Expected config values, got %+v", ro)
	}
	if ro.ScratchDir != "/scratch" || ro.KeepScratch {
		t.Errorf("Expected scratch settings from config, got %q keep=%v", ro.ScratchDir, ro.KeepScratch)
	}

	opts = RenderOptions{Config: cfg, Volume: 0.5, FanIn: 4, Workers: 8, Layout: "new", KeepTemp: true}
	ro, err = opts.renderOptions()
	if err != nil {
		t.Fatal(err)
	}
	if ro.Volume != 0.5 || ro.FanIn != 4 || ro.Workers != 8 || ro.Layout != chart.LayoutNew || !ro.KeepScratch {
		t.Errorf("Expected flag values to win, got %+v", ro)
	}
}

func TestRenderOptionsRejectsBadFlags(t *testing.T) {
	tests := []RenderOptions{
		{Volume: -1},
		{FanIn: -3},
		{Layout: "diagonal"},
	}
	for _, opts := range tests {
		opts.Config = config.Default()
		if _, err := opts.renderOptions(); err == nil {
			t.Errorf("Expected error for %+v", opts)
		}
	}
}

func TestRunInfo(t *testing.T) {
	dir := t.TempDir()
	chartPath, archivePath, _ := song(t, dir)

	var stdout bytes.Buffer
	if err := RunInfo(InfoOptions{ChartPath: chartPath, ArchivePath: archivePath, Stdout: &stdout}); err != nil {
		t.Fatalf("RunInfo() returned error: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{
		"# song.bin",
		"**Layout:** new (12-byte records)",
		"**Records:** 4",
		"**Events:** 3, 2 playable",
		"**End marker:** 0:01.000",
		"**Samples referenced:** 2",
		"2 clips, background slot 1.",
		"| 1 | 0x50 |",
		"**background**",
		"pcm 16-bit | 1 | 44100 | 441 |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in report, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Missing from archive") {
		t.Errorf("Did not expect missing samples, got:\n%s", out)
	}
}

func TestRunInfoReportsMissingSamples(t *testing.T) {
	dir := t.TempDir()
	chartPath, archivePath, _ := song(t, dir)
	if err := os.WriteFile(chartPath, songChart(9), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout bytes.Buffer
	if err := RunInfo(InfoOptions{ChartPath: chartPath, ArchivePath: archivePath, Stdout: &stdout}); err != nil {
		t.Fatalf("RunInfo() returned error: %v", err)
	}
	if !strings.Contains(stdout.String(), "**Missing from archive:** 9") {
		t.Errorf("Expected missing sample 9 to be reported, got:\n%s", stdout.String())
	}
}

func TestRunInfoArchiveOnly(t *testing.T) {
	dir := t.TempDir()
	_, archivePath, _ := song(t, dir)

	var stdout bytes.Buffer
	if err := RunInfo(InfoOptions{ArchivePath: archivePath, Stdout: &stdout}); err != nil {
		t.Fatalf("RunInfo() returned error: %v", err)
	}
	if !strings.Contains(stdout.String(), "# song.2dx") || !strings.Contains(stdout.String(), "No chart given") {
		t.Errorf("Expected an archive-only report, got:\n%s", stdout.String())
	}
}

func TestRunInfoRequiresInput(t *testing.T) {
	if err := RunInfo(InfoOptions{}); err == nil {
		t.Error("Expected error when neither chart nor archive is given")
	}
}

func TestRunExtract(t *testing.T) {
	dir := t.TempDir()
	_, archivePath, clips := song(t, dir)
	outDir := filepath.Join(dir, "clips")

	var stdout bytes.Buffer
	if err := RunExtract(context.Background(), ExtractOptions{ArchivePath: archivePath, Dir: outDir, Stdout: &stdout}); err != nil {
		t.Fatalf("RunExtract() returned error: %v", err)
	}

	for i, want := range clips {
		got, err := os.ReadFile(paths.ClipFile(outDir, i+1))
		if err != nil {
			t.Fatalf("Expected clip %d on disk: %v", i+1, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Clip %d differs from the archived payload", i+1)
		}
	}
	if !strings.Contains(stdout.String(), "Extracted 2 clips") {
		t.Errorf("Expected extract summary, got %q", stdout.String())
	}
	if !strings.Contains(stdout.String(), "0001.wav") {
		t.Errorf("Expected the background clip to be named, got %q", stdout.String())
	}
}

func TestRunExtractBadArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.2dx")
	if err := os.WriteFile(path, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := RunExtract(context.Background(), ExtractOptions{ArchivePath: path, Dir: dir}); err == nil {
		t.Error("Expected error for a truncated archive")
	}
}

func TestRunConfigInitAndShow(t *testing.T) {
	restore := paths.SetHomeDir(t.TempDir())
	defer restore()

	var stdout bytes.Buffer
	if err := RunConfig(ConfigOptions{Action: "show", Stdout: &stdout}); err != nil {
		t.Fatalf("show returned error: %v", err)
	}
	if !strings.Contains(stdout.String(), "not found, showing defaults") {
		t.Errorf("Expected defaults notice, got %q", stdout.String())
	}

	stdout.Reset()
	if err := RunConfig(ConfigOptions{Action: "init", Stdout: &stdout}); err != nil {
		t.Fatalf("init returned error: %v", err)
	}
	if !config.Exists() {
		t.Fatal("Expected init to create the config file")
	}

	if err := RunConfig(ConfigOptions{Action: "init", Stdout: &stdout}); err == nil {
		t.Error("Expected init to refuse to overwrite an existing config")
	}
	if err := RunConfig(ConfigOptions{Action: "init", Force: true, Stdout: &stdout}); err != nil {
		t.Errorf("Expected init -force to overwrite, got %v", err)
	}

	stdout.Reset()
	if err := RunConfig(ConfigOptions{Action: "show", Stdout: &stdout}); err != nil {
		t.Fatalf("show returned error: %v", err)
	}
	out := stdout.String()
	if strings.Contains(out, "not found") {
		t.Errorf("Expected the written config to be found, got %q", out)
	}
	for _, want := range []string{"volume: 1", "fanIn: 128", "layout: auto"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in config output, got %q", want, out)
		}
	}
}

func TestRunConfigUnknownAction(t *testing.T) {
	if err := RunConfig(ConfigOptions{Action: "delete"}); err == nil {
		t.Error("Expected error for an unknown action")
	}
}

func TestRunWatchRerendersOnChange(t *testing.T) {
	dir := t.TempDir()
	chartPath, archivePath, _ := song(t, dir)

	renders := make(chan error, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout, stderr bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- RunWatch(ctx, WatchOptions{
			RenderOptions: RenderOptions{
				ChartPath:   chartPath,
				ArchivePath: archivePath,
				Config:      config.Default(),
				Stdout:      &stdout,
				Stderr:      &stderr,
			},
			OnRender: func(err error) { renders <- err },
		})
	}()

	waitRender := func() error {
		select {
		case err := <-renders:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("Timeout waiting for render")
		}
		return nil
	}

	if err := waitRender(); err != nil {
		t.Fatalf("Initial render failed: %v", err)
	}

	// A chart that plays a missing sample fails, and watching continues.
	if err := os.WriteFile(chartPath, songChart(5), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := waitRender(); err == nil {
		t.Error("Expected the broken chart to fail")
	}

	if err := os.WriteFile(chartPath, songChart(2), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := waitRender(); err != nil {
		t.Errorf("Expected the fixed chart to render, got %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("RunWatch() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunWatch did not stop after cancel")
	}
}
