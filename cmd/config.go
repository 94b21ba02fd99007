package cmd

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	consts "github.com/khanhnv2901/domaincheck/internal/shared/constants"
)

const (
	defaultCheckTimeoutSeconds = 60
	defaultHTTPTimeoutSeconds  = 10
	defaultDNSTimeoutSeconds   = 5
	defaultWhoisTimeoutSeconds = 10
	defaultDNSCacheSize        = 1024
	defaultPortScanTimeoutSecs = 2
	defaultPortScanWorkers     = 10
	defaultConcurrency         = 4
	defaultRateLimit           = 5
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Defaults DefaultValues
	DNS      DNSConfig
	DNSSEC   DNSSECConfig
	Whois    WhoisConfig
	Runner   RunnerConfig
	Network  NetworkConfig
}

// DefaultValues represent operator-level defaults, typically derived from env/config.
type DefaultValues struct {
	TimeoutSecs     int
	ResultsDir      string
	Operator        string
	ProgressEnabled bool
}

// DNSConfig groups resolver options.
type DNSConfig struct {
	DoHEndpoint string
	// Resolvers are the propagation resolvers, as "name=host:port" or "host:port".
	Resolvers   []string
	CacheSize   int
	TimeoutSecs int
}

// DNSSECConfig controls where root trust anchors come from.
type DNSSECConfig struct {
	AnchorURL   string
	AnchorCache string
	AnchorTTL   time.Duration
}

// WhoisConfig groups WHOIS client options.
type WhoisConfig struct {
	TimeoutSecs       int
	ExpiryWarningDays int
	// Servers add or override TLD to server entries.
	Servers map[string]string
}

// RunnerConfig consolidates flag-driven settings for batch checks.
type RunnerConfig struct {
	Concurrency int
	RateLimit   int
}

// NetworkConfig captures port scanner options.
type NetworkConfig struct {
	Ports           []int
	PortTimeoutSecs int
	MaxPortWorkers  int
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Defaults: DefaultValues{
			TimeoutSecs:     defaultCheckTimeoutSeconds,
			Operator:        detectOperatorFromEnv(),
			ProgressEnabled: true,
		},
		DNS: DNSConfig{
			DoHEndpoint: consts.DefaultDoHEndpoint,
			CacheSize:   defaultDNSCacheSize,
			TimeoutSecs: defaultDNSTimeoutSeconds,
		},
		DNSSEC: DNSSECConfig{
			AnchorURL: consts.RootAnchorsURL,
			AnchorTTL: consts.AnchorCacheTTL,
		},
		Whois: WhoisConfig{
			TimeoutSecs:       defaultWhoisTimeoutSeconds,
			ExpiryWarningDays: consts.WhoisExpiryWarningDays,
		},
		Runner: RunnerConfig{
			Concurrency: defaultConcurrency,
			RateLimit:   defaultRateLimit,
		},
		Network: NetworkConfig{
			PortTimeoutSecs: defaultPortScanTimeoutSecs,
			MaxPortWorkers:  defaultPortScanWorkers,
		},
	}
}

func detectOperatorFromEnv() string {
	if env := os.Getenv("USER"); env != "" {
		return env
	}
	if env := os.Getenv("LOGNAME"); env != "" {
		return env
	}
	return ""
}

// loadConfigFile copies every key present in viper onto cfg. Keys that are
// not set keep their built-in defaults.
func loadConfigFile(cfg *CLIConfig) {
	if viper.IsSet("defaults.timeout_secs") {
		cfg.Defaults.TimeoutSecs = viper.GetInt("defaults.timeout_secs")
	}
	if viper.IsSet("defaults.results_dir") {
		cfg.Defaults.ResultsDir = viper.GetString("defaults.results_dir")
	}
	if viper.IsSet("defaults.operator") {
		cfg.Defaults.Operator = viper.GetString("defaults.operator")
	}
	if viper.IsSet("defaults.progress") {
		cfg.Defaults.ProgressEnabled = viper.GetBool("defaults.progress")
	}

	if viper.IsSet("dns.doh_endpoint") {
		cfg.DNS.DoHEndpoint = viper.GetString("dns.doh_endpoint")
	}
	if viper.IsSet("dns.resolvers") {
		cfg.DNS.Resolvers = viper.GetStringSlice("dns.resolvers")
	}
	if viper.IsSet("dns.cache_size") {
		cfg.DNS.CacheSize = viper.GetInt("dns.cache_size")
	}
	if viper.IsSet("dns.timeout_secs") {
		cfg.DNS.TimeoutSecs = viper.GetInt("dns.timeout_secs")
	}

	if viper.IsSet("dnssec.anchor_url") {
		cfg.DNSSEC.AnchorURL = viper.GetString("dnssec.anchor_url")
	}
	if viper.IsSet("dnssec.anchor_cache") {
		cfg.DNSSEC.AnchorCache = viper.GetString("dnssec.anchor_cache")
	}
	if viper.IsSet("dnssec.anchor_ttl") {
		cfg.DNSSEC.AnchorTTL = viper.GetDuration("dnssec.anchor_ttl")
	}

	if viper.IsSet("whois.timeout_secs") {
		cfg.Whois.TimeoutSecs = viper.GetInt("whois.timeout_secs")
	}
	if viper.IsSet("whois.expiry_warning_days") {
		cfg.Whois.ExpiryWarningDays = viper.GetInt("whois.expiry_warning_days")
	}
	if viper.IsSet("whois.servers") {
		cfg.Whois.Servers = viper.GetStringMapString("whois.servers")
	}

	if viper.IsSet("runner.concurrency") {
		cfg.Runner.Concurrency = viper.GetInt("runner.concurrency")
	}
	if viper.IsSet("runner.rate_limit") {
		cfg.Runner.RateLimit = viper.GetInt("runner.rate_limit")
	}

	if viper.IsSet("network.ports") {
		cfg.Network.Ports = viper.GetIntSlice("network.ports")
	}
	if viper.IsSet("network.port_timeout_secs") {
		cfg.Network.PortTimeoutSecs = viper.GetInt("network.port_timeout_secs")
	}
	if viper.IsSet("network.max_port_workers") {
		cfg.Network.MaxPortWorkers = viper.GetInt("network.max_port_workers")
	}
}

// applyConfigDefaults merges config file defaults into the command's flags
// when the user did not explicitly set the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command, cfg *CLIConfig) {
	loadConfigFile(cfg)

	flags := cmd.Flags()
	setStringFlagIfUnset(flags, "operator", cfg.Defaults.Operator)
	setStringFlagIfUnset(flags, "results-dir", cfg.Defaults.ResultsDir)

	if viper.IsSet("defaults.timeout_secs") {
		applyIntDefault(flags, "timeout", cfg.Defaults.TimeoutSecs, func(v int) {
			_ = flags.Set("timeout", strconv.Itoa(v))
		})
	}
	if viper.IsSet("runner.concurrency") {
		applyIntDefault(flags, "concurrency", cfg.Runner.Concurrency, func(v int) {
			_ = flags.Set("concurrency", strconv.Itoa(v))
		})
	}
	if viper.IsSet("runner.rate_limit") {
		applyIntDefault(flags, "rate-limit", cfg.Runner.RateLimit, func(v int) {
			_ = flags.Set("rate-limit", strconv.Itoa(v))
		})
	}
	if viper.IsSet("defaults.progress") {
		applyBoolDefault(flags, "progress", cfg.Defaults.ProgressEnabled, func(v bool) {
			_ = flags.Set("progress", strconv.FormatBool(v))
		})
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	setter(value)
}

func setStringFlagIfUnset(flags *pflag.FlagSet, name, value string) {
	if flags == nil || value == "" {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	_ = flag.Value.Set(value)
}
