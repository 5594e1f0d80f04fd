package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/minicodemonkey/dxrender/internal/cmd"
	"github.com/minicodemonkey/dxrender/internal/tui"
)

const usage = `dxrender renders a chart and its sample archive to a WAV file.

Usage:
  dxrender [render] -b chart.bin -x audio.2dx [-o out.wav] [flags]
  dxrender info -b chart.bin -x audio.2dx
  dxrender extract -x audio.2dx -d dir
  dxrender watch -b chart.bin -x audio.2dx [-o out.wav] [flags]
  dxrender config init|show

Run "dxrender <command> -h" for the flags of a command.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()

	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "%s %v\n", tui.ErrorStyle.Render("Error:"), err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	command := "render"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	switch command {
	case "render":
		opts, err := parseRenderFlags("render", args)
		if err != nil {
			return err
		}
		return cmd.RunRender(ctx, opts)

	case "watch":
		opts, err := parseRenderFlags("watch", args)
		if err != nil {
			return err
		}
		return cmd.RunWatch(ctx, cmd.WatchOptions{RenderOptions: opts})

	case "info":
		fs := flag.NewFlagSet("info", flag.ContinueOnError)
		var opts cmd.InfoOptions
		fs.StringVar(&opts.ChartPath, "b", "", "chart file (.bin)")
		fs.StringVar(&opts.ArchivePath, "x", "", "sample archive (.2dx)")
		fs.StringVar(&opts.Layout, "layout", "auto", "chart record layout: auto, old or new")
		fs.BoolVar(&opts.Plain, "plain", false, "print markdown without terminal styling")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return cmd.RunInfo(opts)

	case "extract":
		fs := flag.NewFlagSet("extract", flag.ContinueOnError)
		var opts cmd.ExtractOptions
		fs.StringVar(&opts.ArchivePath, "x", "", "sample archive (.2dx)")
		fs.StringVar(&opts.Dir, "d", ".", "output directory")
		fs.IntVar(&opts.Workers, "workers", 0, "concurrent writers (0: one per CPU)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return cmd.RunExtract(ctx, opts)

	case "config":
		fs := flag.NewFlagSet("config", flag.ContinueOnError)
		var opts cmd.ConfigOptions
		fs.BoolVar(&opts.Force, "force", false, "init: overwrite an existing config file")
		fs.BoolVar(&opts.Plain, "plain", false, "show: print without highlighting")
		if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
			opts.Action, args = args[0], args[1:]
		}
		if err := fs.Parse(args); err != nil {
			return err
		}
		return cmd.RunConfig(opts)

	case "help":
		fmt.Print(usage)
		return nil

	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func parseRenderFlags(name string, args []string) (cmd.RenderOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var opts cmd.RenderOptions
	fs.StringVar(&opts.ChartPath, "b", "", "chart file (.bin)")
	fs.StringVar(&opts.ArchivePath, "x", "", "sample archive (.2dx)")
	fs.StringVar(&opts.OutputPath, "o", "", "output WAV file (default: chart name with .wav)")
	fs.Float64Var(&opts.Volume, "v", 0, "linear volume, 1.0 is unity (default: from config)")
	fs.StringVar(&opts.Layout, "layout", "", "chart record layout: auto, old or new (default: from config)")
	fs.IntVar(&opts.FanIn, "fanin", 0, "tracks summed per mixing step (default: from config)")
	fs.IntVar(&opts.Workers, "workers", 0, "concurrent decoders and summers (default: from config)")
	fs.BoolVar(&opts.KeepTemp, "keep-temp", false, "keep extracted clips after rendering")
	fs.BoolVar(&opts.Verbose, "verbose", false, "log timings for each stage")
	fs.BoolVar(&opts.NoProgress, "no-progress", false, "disable the progress view")
	fs.BoolVar(&opts.Sound, "sound", false, "play a chime when done")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return opts, nil
}
