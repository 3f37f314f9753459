package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/nvduc/joomprobe-cli/internal/scanner"
)

// writeReport serializes the finalized report as indented JSON. The scan core
// guarantees the report is fully populated before it reaches this layer.
func writeReport(path string, report *scanner.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, report *scanner.Report) {
	fmt.Fprintln(w)
	if report.Incomplete {
		fmt.Fprintf(w, "%s scan interrupted, partial results below (%d targets abandoned)\n",
			colorWarn("Warning:"), report.Stats.Abandoned)
	}
	fmt.Fprintf(w, "%s %s in %.2fs (%d/%d probes answered)\n",
		colorSuccess("Scanned"), report.TargetURL, report.Duration().Seconds(),
		report.Stats.TargetsProbed, report.Stats.TargetsTotal)

	if len(report.ComponentsFound) > 0 {
		fmt.Fprintf(w, "\n%s\n", colorInfo("Components found:"))
		for _, id := range report.ComponentsFound {
			fmt.Fprintf(w, "  - %s\n", id)
		}
	} else {
		fmt.Fprintf(w, "\n%s\n", colorWarn("No components found."))
	}

	if len(report.Findings) > 0 {
		fmt.Fprintf(w, "\n%s\n", colorInfo("Findings:"))
		for _, f := range report.Findings {
			name := f.Component
			if name == "" {
				name = "site"
			}
			fmt.Fprintf(w, "  [%s] %s %s: %s\n",
				formatSeverityWithColor(f.Severity), name, f.Category, f.Evidence)
		}
	}

	if len(report.Errors) > 0 {
		fmt.Fprintf(w, "\n%s %d probe(s) failed:\n", colorError("Errors:"), len(report.Errors))
		for _, e := range report.Errors {
			fmt.Fprintf(w, "  - %s (%s)\n", e.URL, e.Kind)
		}
	}
}
