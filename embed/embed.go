// Package embed provides templates compiled into the dxrender binary.
// All templates are embedded at compile time using Go's embed directive.
package embed

import (
	_ "embed"
	"strings"
)

//go:embed default_config.yaml
var defaultConfig string

//go:embed info_report.md
var infoReportTemplate string

// GetDefaultConfig returns the commented configuration file written by
// `dxrender config init`.
func GetDefaultConfig() string {
	return defaultConfig
}

// GetInfoReport returns the markdown report shown by `dxrender info` with the
// title and both sections substituted. Empty sections are replaced with a
// placeholder line.
func GetInfoReport(title, chartSection, archiveSection string) string {
	if chartSection == "" {
		chartSection = "_No chart given._"
	}
	if archiveSection == "" {
		archiveSection = "_No archive given._"
	}
	result := strings.ReplaceAll(infoReportTemplate, "{{TITLE}}", title)
	result = strings.ReplaceAll(result, "{{CHART_SECTION}}", chartSection)
	return strings.ReplaceAll(result, "{{ARCHIVE_SECTION}}", archiveSection)
}
