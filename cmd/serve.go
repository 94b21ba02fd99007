package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/khanhnv2901/domaincheck/internal/api"
	"github.com/khanhnv2901/domaincheck/internal/checker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run domaincheck as a REST API service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		addr, _ := cmd.Flags().GetString("addr")
		authToken, _ := cmd.Flags().GetString("auth-token")
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
		corsOrigins, _ := cmd.Flags().GetStringSlice("cors-origins")
		rateLimit, _ := cmd.Flags().GetInt("rate-limit")
		rateBurst, _ := cmd.Flags().GetInt("rate-burst")

		logger := appCtx.Logger.Desugar()
		services := appCtx.Services

		// jobs outlive the request that started them but stop on shutdown
		jobCtx, cancelJobs := context.WithCancel(context.Background())
		defer cancelJobs()

		jobManager := api.NewJobManager()
		defer jobManager.Close()

		runner := &checker.Runner{
			Concurrency: appCtx.Config.Runner.Concurrency,
			RateLimit:   appCtx.Config.Runner.RateLimit,
			Timeout:     time.Duration(appCtx.Config.Defaults.TimeoutSecs) * time.Second,
		}

		server := api.NewServer(api.Config{
			Checks:      services.Health,
			Runs:        services.Runs,
			Health:      &healthAPIService{appCtx: appCtx},
			Jobs:        api.NewCheckJobService(jobCtx, jobManager, services.Health, services.Runs, runner, logger.Named("jobs")),
			AuthToken:   authToken,
			Logger:      logger.Named("api"),
			CORSOrigins: corsOrigins,
			RateLimit:   rateLimit,
			RateBurst:   rateBurst,
		})

		httpServer := &http.Server{
			Addr:              addr,
			Handler:           server,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			// synchronous checks can take up to the per-domain timeout
			WriteTimeout: runner.Timeout + 30*time.Second,
			IdleTimeout:  120 * time.Second,
		}
		// closing the manager ends open event streams so Shutdown can drain
		stop := func() {
			cancelJobs()
			jobManager.Close()
		}
		return serveUntilSignal(cmd.Context(), cmd.OutOrStdout(), httpServer, shutdownTimeout, stop)
	},
}

// serveUntilSignal runs srv until it fails or ctx is cancelled by SIGINT or
// SIGTERM, then stops background jobs and drains connections.
func serveUntilSignal(ctx context.Context, out io.Writer, srv *http.Server, shutdownTimeout time.Duration, stopJobs func()) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(out, "%s API server listening on %s\n", colorInfo("→"), srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			fmt.Fprintf(out, "\n%s shutting down\n", colorInfo("→"))
		}
		stopJobs()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func init() {
	f := serveCmd.Flags()
	f.String("addr", "127.0.0.1:8080", "listen address")
	f.String("auth-token", "", "shared secret required in X-Auth-Token (empty = no auth)")
	f.Duration("shutdown-timeout", 30*time.Second, "time allowed to drain connections on shutdown")
	f.StringSlice("cors-origins", nil, "allowed CORS origins (empty = any)")
	f.Int("rate-limit", 10, "requests per second per client IP (0 = unlimited)")
	f.Int("rate-burst", 20, "burst size for the per-client limit")
	rootCmd.AddCommand(serveCmd)
}

type healthAPIService struct {
	appCtx *AppContext
}

func (s *healthAPIService) Check(ctx context.Context) error {
	if s.appCtx.ResultsDir == "" {
		return fmt.Errorf("results directory not configured")
	}
	return nil
}

// Ready reports whether runs can be saved.
func (s *healthAPIService) Ready(ctx context.Context) error {
	if err := s.Check(ctx); err != nil {
		return err
	}
	f, err := os.CreateTemp(s.appCtx.ResultsDir, ".ready-*")
	if err != nil {
		return fmt.Errorf("results directory not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
