package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/khanhnv2901/domaincheck/internal/checker"
	"github.com/khanhnv2901/domaincheck/internal/domain/run"
	"github.com/khanhnv2901/domaincheck/internal/healthcheck"
	sharedErrors "github.com/khanhnv2901/domaincheck/internal/shared/errors"
)

var checkCmd = &cobra.Command{
	Use:   "check [domains...]",
	Short: "Run domain health checks (DNSSEC, WHOIS, records, mail TLS, ...)",
	Long: `Run a selection of health checks against one or more domains.

Domains come from the arguments and from --file (one per line, # comments
allowed). Each domain runs every selected check in parallel; domains are
processed by a bounded worker pool with a global rate limit.

Available checks: dnssec, whois, records, mailtls, ports, takeover,
wildcard, typosquat, propagation, zonetransfer (or "all").`,
	Example: `  domaincheck check example.com
  domaincheck check --checks dnssec,whois --json example.com example.org
  domaincheck check --file domains.txt --save --concurrency 8`,
	RunE: runCheck,
}

func init() {
	addCheckFlags(checkCmd.Flags())
}

func addCheckFlags(f *pflag.FlagSet) {
	f.StringSlice("checks", []string{"all"}, "checks to run (comma separated)")
	f.Bool("json", false, "print results as JSON")
	f.Bool("unicode", false, "show internationalized names in Unicode")
	f.Bool("save", false, "save the run to the results directory")
	f.String("file", "", "read domains from a file, one per line")
	f.Int("concurrency", defaultConcurrency, "domains checked in parallel")
	f.Int("rate-limit", defaultRateLimit, "domains started per second (0 = unlimited)")
	f.Int("timeout", defaultCheckTimeoutSeconds, "per-domain timeout in seconds")
	f.Bool("progress", true, "show a progress line for batches")
}

func runCheck(cmd *cobra.Command, args []string) error {
	appCtx := getAppContext(cmd)
	flags := cmd.Flags()
	checkNames, _ := flags.GetStringSlice("checks")
	jsonOut, _ := flags.GetBool("json")
	unicode, _ := flags.GetBool("unicode")
	save, _ := flags.GetBool("save")
	file, _ := flags.GetString("file")
	concurrency, _ := flags.GetInt("concurrency")
	rateLimit, _ := flags.GetInt("rate-limit")
	timeoutSecs, _ := flags.GetInt("timeout")
	showProgress, _ := flags.GetBool("progress")

	targets, err := collectTargets(args, file)
	if err != nil {
		return err
	}
	types, err := parseChecks(checkNames)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &checker.Runner{
		Concurrency: concurrency,
		RateLimit:   rateLimit,
		Timeout:     time.Duration(timeoutSecs) * time.Second,
	}
	hc := &checker.HealthChecker{Service: appCtx.Services.Health, Types: types}

	var progress *progressPrinter
	if showProgress && len(targets) > 1 {
		progress = newProgressPrinter(cmd.ErrOrStderr(), len(targets), "check")
		progress.Start()
	}

	results := runner.RunChecks(ctx, targets, hc, func(target string, result checker.CheckResult, duration float64) error {
		if progress != nil {
			progress.Increment(result.Status == checker.StatusOK, duration)
		}
		appCtx.Logger.Debugw("check_finished", "domain", target, "status", result.Status, "duration_s", duration)
		return nil
	})
	if progress != nil {
		progress.Stop()
	}

	if save {
		runID, err := saveRun(ctx, appCtx, targets, types, results)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s saved run %s\n", colorSuccess("✓"), runID)
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		if len(results) == 1 && results[0].Report != nil {
			return healthcheck.Encode(out, results[0].Report, healthcheck.EncodeOptions{Indent: true, Unicode: unicode})
		}
		return writeJSON(out, resultsForOutput(results, unicode))
	}

	failed := 0
	for _, r := range results {
		printResult(out, r, unicode)
		if r.Status != checker.StatusOK {
			failed++
		}
	}
	if len(results) > 1 {
		fmt.Fprintf(out, "\nSummary: %d OK, %d Errors (out of %d domains)\n", len(results)-failed, failed, len(results))
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("check interrupted: %w", err)
	}
	return nil
}

// collectTargets merges args and the lines of file, normalizing each name
// and dropping duplicates while keeping first-seen order.
func collectTargets(args []string, file string) ([]string, error) {
	raw := append([]string(nil), args...)
	if file != "" {
		lines, err := readTargetsFile(file)
		if err != nil {
			return nil, err
		}
		raw = append(raw, lines...)
	}
	if len(raw) == 0 {
		return nil, errors.New("no domains given (pass them as arguments or use --file)")
	}

	seen := make(map[string]bool, len(raw))
	targets := make([]string, 0, len(raw))
	for _, t := range raw {
		name, err := checker.NormalizeDomain(t)
		if err != nil {
			return nil, &DomainValidationError{Target: strings.TrimSpace(t), Err: err}
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		targets = append(targets, name)
	}
	return targets, nil
}

func readTargetsFile(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- path is supplied by the operator.
	if err != nil {
		return nil, fmt.Errorf("failed to open domains file: %w", err)
	}
	defer f.Close()
	return readTargets(f)
}

func readTargets(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line != "" {
			out = append(out, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read domains: %w", err)
	}
	return out, nil
}

// parseChecks resolves --checks entries, naming the first unknown one.
func parseChecks(names []string) ([]healthcheck.CheckType, error) {
	types, err := healthcheck.ParseCheckTypes(names)
	if err == nil {
		if len(types) == 0 {
			return healthcheck.AllCheckTypes(), nil
		}
		return types, nil
	}
	for _, entry := range names {
		for _, name := range strings.Split(entry, ",") {
			name = strings.TrimSpace(name)
			if name == "" || strings.EqualFold(name, "all") {
				continue
			}
			if _, perr := healthcheck.ParseCheckType(name); perr != nil {
				return nil, &UnknownCheckError{Name: name, Err: sharedErrors.ErrUnknownCheckType}
			}
		}
	}
	return nil, err
}

func checkNamesOf(types []healthcheck.CheckType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

// saveRun stores results as a completed run, or a failed one when ctx was
// cancelled mid-batch.
func saveRun(ctx context.Context, appCtx *AppContext, targets []string, types []healthcheck.CheckType, results []checker.CheckResult) (string, error) {
	rn, err := run.New(appCtx.Operator, targets, checkNamesOf(types))
	if err != nil {
		return "", err
	}
	if err := rn.Start(); err != nil {
		return "", err
	}
	for _, r := range results {
		if err := rn.AddResult(r); err != nil {
			return "", err
		}
	}
	if cerr := ctx.Err(); cerr != nil {
		err = rn.Fail(cerr.Error())
	} else {
		err = rn.Complete()
	}
	if err != nil {
		return "", err
	}

	if err := appCtx.Services.Runs.Save(context.WithoutCancel(ctx), rn); err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}
	return rn.ID(), nil
}
