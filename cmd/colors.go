package cmd

import (
	"github.com/fatih/color"

	"github.com/nvduc/joomprobe-cli/internal/signature"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

func formatSeverityWithColor(severity string) string {
	switch severity {
	case signature.SeverityCritical, signature.SeverityHigh:
		return colorError(severity)
	case signature.SeverityMedium:
		return colorWarn(severity)
	case signature.SeverityLow, signature.SeverityInfo:
		return colorInfo(severity)
	default:
		return severity
	}
}
