package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/khanhnv2901/domaincheck/internal/application"
)

// AppContext carries what every command needs after PersistentPreRunE.
type AppContext struct {
	Logger     *zap.SugaredLogger
	Operator   string
	ResultsDir string
	Config     *CLIConfig
	Services   *application.Container
}

var (
	cfgFile    string
	operator   string
	resultsDir string
	verbose    bool

	globalAppContext *AppContext
)

var rootCmd = &cobra.Command{
	Use:   "domaincheck",
	Short: "Domain health checks: DNSSEC chain validation, WHOIS and DNS hygiene",
	Long: `domaincheck inspects a domain's DNSSEC chain of trust, its registration
data and the surrounding DNS and mail configuration.

All checks are read-only lookups against public infrastructure.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initConfig()
		applyConfigDefaults(cmd, cliConfig)

		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger := l.Sugar()

		dir, err := getResultsDir(resultsDir)
		if err != nil {
			return err
		}

		containerCfg, err := containerConfig(cliConfig, dir)
		if err != nil {
			return err
		}
		services, err := application.NewContainer(containerCfg, l)
		if err != nil {
			return err
		}

		logger.Debugw("startup", "operator", operator, "results_dir", dir)

		storeAppContext(cmd, &AppContext{
			Logger:     logger,
			Operator:   operator,
			ResultsDir: dir,
			Config:     cliConfig,
			Services:   services,
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appCtx := getAppContext(cmd); appCtx != nil && appCtx.Logger != nil {
			_ = appCtx.Logger.Sync()
		}
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError(err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.domaincheck.yaml)")
	rootCmd.PersistentFlags().StringVarP(&operator, "operator", "o", detectOperatorFromEnv(), "operator name recorded on saved runs")
	rootCmd.PersistentFlags().StringVar(&resultsDir, "results-dir", "", "directory for saved runs (default is the user data directory)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "development logging at debug level")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".domaincheck")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("DOMAINCHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// a missing config file is fine
	_ = viper.ReadInConfig()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// containerConfig maps CLI configuration onto the application container.
func containerConfig(cfg *CLIConfig, resultsDir string) (application.Config, error) {
	anchorCache := cfg.DNSSEC.AnchorCache
	if anchorCache == "" {
		if path, err := defaultAnchorCachePath(); err == nil {
			anchorCache = path
		}
	}
	resolvers, err := application.ParseNameservers(cfg.DNS.Resolvers)
	if err != nil {
		return application.Config{}, fmt.Errorf("invalid dns.resolvers: %w", err)
	}

	return application.Config{
		ResultsDir:       resultsDir,
		DoHEndpoint:      cfg.DNS.DoHEndpoint,
		DNSCacheSize:     cfg.DNS.CacheSize,
		DNSTimeout:       time.Duration(cfg.DNS.TimeoutSecs) * time.Second,
		Resolvers:        resolvers,
		AnchorURL:        cfg.DNSSEC.AnchorURL,
		AnchorCache:      anchorCache,
		AnchorTTL:        cfg.DNSSEC.AnchorTTL,
		WhoisTimeout:     time.Duration(cfg.Whois.TimeoutSecs) * time.Second,
		WhoisWarningDays: cfg.Whois.ExpiryWarningDays,
		WhoisServers:     cfg.Whois.Servers,
		HTTPTimeout:      defaultHTTPTimeoutSeconds * time.Second,
		Ports:            cfg.Network.Ports,
		PortTimeout:      time.Duration(cfg.Network.PortTimeoutSecs) * time.Second,
		PortWorkers:      cfg.Network.MaxPortWorkers,
	}, nil
}

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
}

func getAppContext(cmd *cobra.Command) *AppContext {
	return globalAppContext
}
