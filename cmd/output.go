package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/khanhnv2901/domaincheck/internal/checker"
	"github.com/khanhnv2901/domaincheck/internal/healthcheck"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// printResult writes one domain's status line followed by its findings.
func printResult(w io.Writer, result checker.CheckResult, unicode bool) {
	target := result.Target
	report := result.Report
	if unicode && report != nil {
		report = healthcheck.ToUnicode(report)
		target = report.Domain
	}

	elapsed := time.Duration(result.ResponseTime * float64(time.Millisecond)).Round(time.Millisecond)
	fmt.Fprintf(w, "%s  %s  (%s)\n", colorInfo(target), formatStatusWithColor(result.Status), elapsed)
	if result.Error != "" {
		fmt.Fprintf(w, "  %s\n", colorError(result.Error))
	}
	printFindings(w, healthcheck.Summary(report))
}

func printFindings(w io.Writer, findings []healthcheck.Finding) {
	if len(findings) == 0 {
		return
	}
	for _, f := range findings {
		fmt.Fprintf(w, "  %-10s %-13s %s\n", formatSeverity(f.Severity), f.Check, f.Message)
	}
}

// resultsForOutput converts reports to Unicode when requested. The input
// slice is not modified.
func resultsForOutput(results []checker.CheckResult, unicode bool) []checker.CheckResult {
	if !unicode {
		return results
	}
	out := make([]checker.CheckResult, len(results))
	for i, r := range results {
		if r.Report != nil {
			r.Report = healthcheck.ToUnicode(r.Report)
			r.Target = r.Report.Domain
		}
		out[i] = r
	}
	return out
}
