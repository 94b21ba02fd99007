package cmd

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/khanhnv2901/domaincheck/internal/checker"
	"github.com/khanhnv2901/domaincheck/internal/domain/run"
	"github.com/khanhnv2901/domaincheck/internal/healthcheck"
)

func saveTestRun(t *testing.T, appCtx *AppContext, domains ...string) string {
	t.Helper()
	results := make([]checker.CheckResult, len(domains))
	for i, d := range domains {
		results[i] = checker.CheckResult{
			Target: d,
			Status: checker.StatusOK,
			Report: &healthcheck.DomainHealthCheck{Domain: d, Checks: []healthcheck.CheckType{healthcheck.CheckWHOIS}},
		}
	}
	id, err := saveRun(context.Background(), appCtx, domains, []healthcheck.CheckType{healthcheck.CheckWHOIS}, results)
	if err != nil {
		t.Fatalf("saveRun: %v", err)
	}
	return id
}

func TestResultsListAndShow(t *testing.T) {
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = original })

	appCtx := setupTestAppContext(t, nil)
	id := saveTestRun(t, appCtx, "xn--mnchen-3ya.de", "example.org")

	listFlags := func(c *cobra.Command) {
		c.Flags().Bool("json", false, "")
		c.Flags().Int("limit", 20, "")
	}
	out, err := runCommand(t, resultsListCmd.RunE, listFlags)
	if err != nil {
		t.Fatalf("results list: %v", err)
	}
	if !strings.Contains(out, id) || !strings.Contains(out, "test-operator") {
		t.Errorf("list output missing run: %q", out)
	}

	out, err = runCommand(t, resultsListCmd.RunE, listFlags, "--json")
	if err != nil {
		t.Fatal(err)
	}
	var snaps []run.Snapshot
	if err := json.Unmarshal([]byte(out), &snaps); err != nil || len(snaps) != 1 {
		t.Fatalf("list --json = %q (%v)", out, err)
	}

	showFlags := func(c *cobra.Command) {
		c.Flags().Bool("json", false, "")
		c.Flags().Bool("unicode", false, "")
	}
	out, err = runCommand(t, resultsShowCmd.RunE, showFlags, "--unicode", id)
	if err != nil {
		t.Fatalf("results show: %v", err)
	}
	if !strings.Contains(out, "münchen.de") || !strings.Contains(out, "completed") {
		t.Errorf("show output = %q", out)
	}

	_, err = runCommand(t, resultsShowCmd.RunE, showFlags, "no-such-run")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}
