package cmd

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	consts "github.com/khanhnv2901/domaincheck/internal/shared/constants"
)

func TestApplyIntDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("timeout", 0, "")

	var applied int
	applyIntDefault(flags, "timeout", 15, func(v int) {
		applied = v
	})
	if applied != 15 {
		t.Fatalf("expected setter to receive 15, got %d", applied)
	}

	// When flag already set, setter should not run.
	if err := flags.Set("timeout", "7"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	applied = 0
	applyIntDefault(flags, "timeout", 20, func(v int) {
		applied = v
	})
	if applied != 0 {
		t.Fatalf("setter should not run when flag overridden, got %d", applied)
	}
}

func TestApplyBoolDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("progress", false, "")

	applied := false
	applyBoolDefault(flags, "progress", true, func(v bool) {
		applied = v
	})
	if !applied {
		t.Fatal("expected setter to run with true")
	}

	if err := flags.Set("progress", "false"); err != nil {
		t.Fatalf("failed to set bool flag: %v", err)
	}
	applied = true
	applyBoolDefault(flags, "progress", true, func(v bool) {
		applied = v
	})
	if !applied {
		t.Fatalf("setter should not change value when flag already set")
	}
}

func TestSetStringFlagIfUnset(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("operator", "", "")

	setStringFlagIfUnset(flags, "operator", "default-operator")
	if got := flags.Lookup("operator").Value.String(); got != "default-operator" {
		t.Fatalf("expected operator to be default, got %s", got)
	}

	if err := flags.Set("operator", "user-provided"); err != nil {
		t.Fatalf("failed to set operator: %v", err)
	}
	setStringFlagIfUnset(flags, "operator", "new-default")
	if got := flags.Lookup("operator").Value.String(); got != "user-provided" {
		t.Fatalf("expected operator to remain user-provided, got %s", got)
	}
}

func TestDetectOperatorFromEnv(t *testing.T) {
	t.Setenv("USER", "env-user")
	if got := detectOperatorFromEnv(); got != "env-user" {
		t.Fatalf("expected env-user, got %s", got)
	}

	t.Setenv("USER", "")
	t.Setenv("LOGNAME", "log-user")
	if got := detectOperatorFromEnv(); got != "log-user" {
		t.Fatalf("expected log-user, got %s", got)
	}
}

func TestNewCLIConfigDefaults(t *testing.T) {
	cfg := newCLIConfig()
	if cfg.Defaults.TimeoutSecs != defaultCheckTimeoutSeconds {
		t.Fatalf("unexpected timeout default: %d", cfg.Defaults.TimeoutSecs)
	}
	if !cfg.Defaults.ProgressEnabled {
		t.Fatal("expected progress to be enabled by default")
	}
	if cfg.DNS.DoHEndpoint != consts.DefaultDoHEndpoint {
		t.Fatalf("unexpected DoH endpoint: %s", cfg.DNS.DoHEndpoint)
	}
	if cfg.DNS.CacheSize != defaultDNSCacheSize || cfg.DNS.TimeoutSecs != defaultDNSTimeoutSeconds {
		t.Fatalf("unexpected DNS defaults: %+v", cfg.DNS)
	}
	if cfg.DNSSEC.AnchorURL != consts.RootAnchorsURL || cfg.DNSSEC.AnchorTTL != consts.AnchorCacheTTL {
		t.Fatalf("unexpected DNSSEC defaults: %+v", cfg.DNSSEC)
	}
	if cfg.DNSSEC.AnchorCache != "" {
		t.Fatalf("anchor cache should default to the data directory, got %q", cfg.DNSSEC.AnchorCache)
	}
	if cfg.Whois.ExpiryWarningDays != consts.WhoisExpiryWarningDays {
		t.Fatalf("unexpected expiry warning: %d", cfg.Whois.ExpiryWarningDays)
	}
	if cfg.Runner.Concurrency != defaultConcurrency || cfg.Runner.RateLimit != defaultRateLimit {
		t.Fatalf("unexpected runner defaults: %+v", cfg.Runner)
	}
	if cfg.Network.PortTimeoutSecs != defaultPortScanTimeoutSecs || cfg.Network.MaxPortWorkers != defaultPortScanWorkers {
		t.Fatalf("unexpected network defaults: %+v", cfg.Network)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("defaults.timeout_secs", 30)
	viper.Set("defaults.operator", "config-operator")
	viper.Set("defaults.progress", false)
	viper.Set("dns.doh_endpoint", "https://dns.example/dns-query")
	viper.Set("dns.resolvers", []string{"quad9=9.9.9.9"})
	viper.Set("dnssec.anchor_ttl", "12h")
	viper.Set("whois.expiry_warning_days", 14)
	viper.Set("whois.servers", map[string]string{"dev": "whois.nic.dev"})
	viper.Set("runner.concurrency", 9)
	viper.Set("network.ports", []int{22, 443})

	cfg := newCLIConfig()
	loadConfigFile(cfg)

	if cfg.Defaults.TimeoutSecs != 30 || cfg.Defaults.Operator != "config-operator" || cfg.Defaults.ProgressEnabled {
		t.Fatalf("defaults not loaded: %+v", cfg.Defaults)
	}
	if cfg.DNS.DoHEndpoint != "https://dns.example/dns-query" {
		t.Fatalf("unexpected DoH endpoint: %s", cfg.DNS.DoHEndpoint)
	}
	if len(cfg.DNS.Resolvers) != 1 || cfg.DNS.Resolvers[0] != "quad9=9.9.9.9" {
		t.Fatalf("unexpected resolvers: %v", cfg.DNS.Resolvers)
	}
	if cfg.DNSSEC.AnchorTTL != 12*time.Hour {
		t.Fatalf("unexpected anchor TTL: %s", cfg.DNSSEC.AnchorTTL)
	}
	if cfg.Whois.ExpiryWarningDays != 14 || cfg.Whois.Servers["dev"] != "whois.nic.dev" {
		t.Fatalf("whois config not loaded: %+v", cfg.Whois)
	}
	if cfg.Runner.Concurrency != 9 || cfg.Runner.RateLimit != defaultRateLimit {
		t.Fatalf("unexpected runner config: %+v", cfg.Runner)
	}
	if len(cfg.Network.Ports) != 2 || cfg.Network.Ports[1] != 443 {
		t.Fatalf("unexpected ports: %v", cfg.Network.Ports)
	}
	// untouched keys keep their defaults
	if cfg.DNS.CacheSize != defaultDNSCacheSize {
		t.Fatalf("cache size changed to %d", cfg.DNS.CacheSize)
	}
}

func TestApplyConfigDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("defaults.timeout_secs", 20)
	viper.Set("defaults.operator", "cfg-operator")
	viper.Set("runner.concurrency", 8)
	viper.Set("defaults.progress", false)

	testCmd := &cobra.Command{Use: "root"}
	testCmd.Flags().String("operator", "", "")
	addCheckFlags(testCmd.Flags())
	if err := testCmd.Flags().Set("concurrency", "2"); err != nil {
		t.Fatal(err)
	}

	cfg := newCLIConfig()
	applyConfigDefaults(testCmd, cfg)

	flags := testCmd.Flags()
	if got := flags.Lookup("operator").Value.String(); got != "cfg-operator" {
		t.Fatalf("expected operator flag to be set by defaults, got %s", got)
	}
	if got, _ := flags.GetInt("timeout"); got != 20 {
		t.Fatalf("expected timeout 20, got %d", got)
	}
	if got, _ := flags.GetInt("concurrency"); got != 2 {
		t.Fatalf("explicit --concurrency overridden, got %d", got)
	}
	if got, _ := flags.GetBool("progress"); got {
		t.Fatal("expected progress to be disabled by config")
	}
	if got, _ := flags.GetInt("rate-limit"); got != defaultRateLimit {
		t.Fatalf("rate-limit should keep its default, got %d", got)
	}
}
