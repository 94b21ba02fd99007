package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zaptest"

	"github.com/khanhnv2901/domaincheck/internal/application"
	"github.com/khanhnv2901/domaincheck/internal/healthcheck"
	consts "github.com/khanhnv2901/domaincheck/internal/shared/constants"
)

// setupTestAppContext installs an AppContext backed by a temporary data
// directory. The health service runs fn for the whois check only, so no
// network is touched.
func setupTestAppContext(t *testing.T, fn func(ctx context.Context, domain string, report *healthcheck.DomainHealthCheck) error) *AppContext {
	t.Helper()

	original := globalAppContext
	t.Cleanup(func() {
		globalAppContext = original
	})

	dataDir := t.TempDir()
	t.Setenv(dataDirEnvVar, dataDir)

	resultsDir := filepath.Join(dataDir, "results")
	if err := os.MkdirAll(resultsDir, consts.DefaultDirPerm); err != nil {
		t.Fatalf("failed to create results directory: %v", err)
	}

	logger := zaptest.NewLogger(t)
	services, err := application.NewContainer(application.Config{ResultsDir: resultsDir}, logger)
	if err != nil {
		t.Fatalf("failed to initialize services: %v", err)
	}
	if fn == nil {
		fn = func(context.Context, string, *healthcheck.DomainHealthCheck) error { return nil }
	}
	registry := healthcheck.NewRegistry(healthcheck.HandlerFunc{CheckType: healthcheck.CheckWHOIS, Fn: fn})
	services.Health = healthcheck.NewService(registry, logger)

	appCtx := &AppContext{
		Logger:     logger.Sugar(),
		Operator:   "test-operator",
		ResultsDir: resultsDir,
		Config:     newCLIConfig(),
		Services:   services,
	}
	globalAppContext = appCtx
	return appCtx
}

// runCommand executes a fresh copy of a RunE with the given flags and
// returns stdout.
func runCommand(t *testing.T, run func(*cobra.Command, []string) error, setup func(*cobra.Command), args ...string) (string, error) {
	t.Helper()

	cmd := &cobra.Command{Use: "test", RunE: run}
	setup(cmd)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	err := cmd.Execute()
	return out.String(), err
}
