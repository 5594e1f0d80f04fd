package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/minicodemonkey/dxrender/embed"
	"github.com/minicodemonkey/dxrender/internal/archive"
	"github.com/minicodemonkey/dxrender/internal/chart"
	"github.com/minicodemonkey/dxrender/internal/tui"
	"github.com/minicodemonkey/dxrender/internal/wavio"
)

// InfoOptions contains configuration for the info command.
type InfoOptions struct {
	ChartPath   string
	ArchivePath string
	Layout      string    // auto, old or new
	Plain       bool      // print markdown even on a terminal
	Stdout      io.Writer // default: os.Stdout
}

// RunInfo prints what a chart and an archive contain. Either may be omitted.
func RunInfo(opts InfoOptions) error {
	if opts.ChartPath == "" && opts.ArchivePath == "" {
		return errors.New("nothing to inspect (use -b and/or -x)")
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	layout, err := chart.ParseLayout(opts.Layout)
	if err != nil {
		return err
	}

	var arc *archive.Archive
	var archiveSection string
	if opts.ArchivePath != "" {
		data, err := os.ReadFile(opts.ArchivePath)
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}
		if arc, err = archive.Parse(data); err != nil {
			return fmt.Errorf("failed to parse archive: %w", err)
		}
		archiveSection = describeArchive(arc)
	}

	var chartSection string
	if opts.ChartPath != "" {
		data, err := os.ReadFile(opts.ChartPath)
		if err != nil {
			return fmt.Errorf("failed to read chart: %w", err)
		}
		c, err := chart.Parse(data, chart.Options{Layout: layout})
		if err != nil {
			return fmt.Errorf("failed to parse chart: %w", err)
		}
		if arc != nil {
			c.ResolveBackground(int32(arc.Background))
		}
		chartSection = describeChart(c, arc)
	}

	title := filepath.Base(opts.ChartPath)
	if opts.ChartPath == "" {
		title = filepath.Base(opts.ArchivePath)
	}
	report := embed.GetInfoReport(title, chartSection, archiveSection)

	if !opts.Plain && isTerminal(opts.Stdout) {
		if rendered := tui.RenderMarkdown(report, terminalWidth(opts.Stdout, 100)); rendered != "" {
			report = rendered + "\n"
		}
	}
	_, err = io.WriteString(opts.Stdout, report)
	return err
}

func describeChart(c *chart.Chart, arc *archive.Archive) string {
	var b strings.Builder

	fmt.Fprintf(&b, "- **Layout:** %s (%d-byte records)\n", c.Layout, c.Layout.RecordSize())
	fmt.Fprintf(&b, "- **Records:** %d\n", c.Records)
	fmt.Fprintf(&b, "- **Events:** %d, %d playable\n", len(c.Events), len(c.Playable()))
	if c.Skipped > 0 {
		fmt.Fprintf(&b, "- **Unknown opcodes:** %d records skipped\n", c.Skipped)
	}
	if end, ok := c.EndOffset(); ok {
		fmt.Fprintf(&b, "- **End marker:** %s\n", formatOffset(end))
	} else {
		b.WriteString("- **End marker:** none\n")
	}

	referenced := c.Referenced()
	fmt.Fprintf(&b, "- **Samples referenced:** %d\n", len(referenced))

	if arc != nil {
		var missing []string
		for _, s := range referenced {
			if int(s) > arc.Len() {
				missing = append(missing, fmt.Sprint(s))
			}
		}
		if len(missing) > 0 {
			fmt.Fprintf(&b, "- **Missing from archive:** %s\n", strings.Join(missing, ", "))
		}
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func describeArchive(arc *archive.Archive) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%d clips, background slot %d", arc.Len(), arc.Background)
	if len(arc.BackgroundSlots) == 0 {
		b.WriteString(" (none flagged, using the first)")
	} else if len(arc.BackgroundSlots) > 1 {
		fmt.Fprintf(&b, " (flagged: %s, the last one wins)", joinInts(arc.BackgroundSlots))
	}
	b.WriteString(".\n\n")

	b.WriteString("| Slot | Offset | Size | Kind | Format | Channels | Rate | Frames |\n")
	b.WriteString("|---:|---:|---:|---|---|---:|---:|---:|\n")
	for _, c := range arc.Clips {
		kind := "sample"
		if c.Slot.Index == arc.Background {
			kind = "**background**"
		} else if c.Slot.IsBackground() {
			kind = "background (ignored)"
		}

		info, err := wavio.Probe(c.Data)
		if err != nil {
			fmt.Fprintf(&b, "| %d | 0x%x | %d | %s | invalid | | | |\n", c.Slot.Index, c.Slot.Offset, c.Slot.DataSize, kind)
			continue
		}
		fmt.Fprintf(&b, "| %d | 0x%x | %d | %s | %s %d-bit | %d | %d | %d |\n",
			c.Slot.Index, c.Slot.Offset, c.Slot.DataSize, kind,
			info.TagName(), info.BitsPerSample, info.Channels, info.SampleRate, info.Frames)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func formatOffset(ms uint32) string {
	return fmt.Sprintf("%d:%02d.%03d", ms/60000, ms/1000%60, ms%1000)
}

func joinInts(v []int) string {
	s := make([]string, len(v))
	for i, n := range v {
		s[i] = fmt.Sprint(n)
	}
	return strings.Join(s, ", ")
}
