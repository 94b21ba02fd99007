package cmd

import (
	"strings"

	"github.com/fatih/color"

	"github.com/khanhnv2901/domaincheck/internal/healthcheck"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
	colorFatal   = color.New(color.FgRed, color.Bold).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "pass", "valid", "completed":
		return colorSuccess(status)
	case "error", "fail", "failed", "invalid":
		return colorError(status)
	default:
		return status
	}
}

// formatSeverity renders a finding severity as a fixed-width, coloured tag.
func formatSeverity(severity string) string {
	tag := "[" + strings.ToUpper(severity) + "]"
	switch severity {
	case healthcheck.SeverityCritical:
		return colorFatal(tag)
	case healthcheck.SeverityHigh:
		return colorError(tag)
	case healthcheck.SeverityMedium:
		return colorWarn(tag)
	case healthcheck.SeverityLow:
		return colorInfo(tag)
	default:
		return tag
	}
}

func formatBool(ok bool, yes, no string) string {
	if ok {
		return colorSuccess(yes)
	}
	return colorError(no)
}
