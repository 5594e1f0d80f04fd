package tui

import (
	"io"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
)

// reportStyle drops glamour's document margin so the slot table of an info
// report lines up with the summary lines printed around it.
var reportStyle ansi.StyleConfig

func init() {
	reportStyle = styles.DarkStyleConfig
	zero := uint(0)
	reportStyle.Document.Margin = &zero
	reportStyle.Document.StylePrimitive.BlockPrefix = ""
	reportStyle.Document.StylePrimitive.BlockSuffix = ""
}

// RenderMarkdown styles an info report for the terminal, wrapping at width.
// The plain markdown is returned if glamour fails.
func RenderMarkdown(markdown string, width int) string {
	if width <= 0 || strings.TrimSpace(markdown) == "" {
		return ""
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(reportStyle),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return markdown
	}

	rendered, err := r.Render(markdown)
	if err != nil {
		return markdown
	}

	return strings.TrimSpace(rendered)
}

// HighlightYAML writes a config file to w with YAML syntax colors.
func HighlightYAML(w io.Writer, src string) error {
	return quick.Highlight(w, src, "yaml", "terminal256", "monokai")
}

var sgrSequence = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes color codes, leaving the text a report or config dump
// would show on a plain terminal.
func StripANSI(s string) string {
	return sgrSequence.ReplaceAllString(s, "")
}
