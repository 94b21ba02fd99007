// Package application wires the analyzers, the health check service and the
// run store into one container shared by the CLI commands and the API.
package application

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/domaincheck/internal/dnsclient"
	"github.com/khanhnv2901/domaincheck/internal/dnsrecords"
	"github.com/khanhnv2901/domaincheck/internal/dnssec"
	"github.com/khanhnv2901/domaincheck/internal/healthcheck"
	"github.com/khanhnv2901/domaincheck/internal/infrastructure/persistence/json"
	"github.com/khanhnv2901/domaincheck/internal/mailtls"
	"github.com/khanhnv2901/domaincheck/internal/network"
	"github.com/khanhnv2901/domaincheck/internal/whois"
)

// Config holds everything NewContainer needs. Zero values fall back to the
// analyzers' own defaults.
type Config struct {
	ResultsDir string

	DoHEndpoint  string
	DNSCacheSize int
	DNSTimeout   time.Duration
	// Resolvers are the propagation resolvers; empty means
	// dnsclient.DefaultResolvers.
	Resolvers []dnsclient.Nameserver

	AnchorURL   string
	AnchorCache string
	AnchorTTL   time.Duration

	WhoisTimeout     time.Duration
	WhoisWarningDays int
	WhoisServers     map[string]string

	HTTPTimeout time.Duration
	Ports       []int
	PortTimeout time.Duration
	PortWorkers int

	PropagationType uint16
	TyposquatLimit  int
}

// Container holds all analyzers, services and repositories.
// This is a simple dependency injection container
type Container struct {
	// Repositories
	Runs *json.RunRepository

	// Analyzers
	Resolver     *dnsclient.DoHClient
	Anchors      *dnssec.AnchorStore
	Validator    *dnssec.Validator
	Whois        *whois.Client
	Prober       *mailtls.Prober
	Scanner      *network.Scanner
	Takeover     *network.TakeoverDetector
	Collector    *dnsrecords.Collector
	Propagation  *dnsrecords.Propagation
	ZoneTransfer *dnsrecords.ZoneTransfer

	// Services
	Health *healthcheck.Service
}

// NewContainer creates the analyzers and the services built on them. No
// network traffic happens here.
func NewContainer(cfg Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	runs, err := json.NewRunRepository(cfg.ResultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create run repository: %w", err)
	}

	dohOpts := []dnsclient.Option{
		dnsclient.WithEndpoint(cfg.DoHEndpoint),
		dnsclient.WithTimeout(cfg.DNSTimeout),
		dnsclient.WithLogger(logger.Named("doh")),
	}
	if cfg.DNSCacheSize != 0 {
		dohOpts = append(dohOpts, dnsclient.WithCacheSize(cfg.DNSCacheSize))
	}
	resolver, err := dnsclient.NewDoHClient(dohOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create DoH resolver: %w", err)
	}

	anchors := dnssec.NewAnchorStore(cfg.AnchorCache,
		dnssec.WithAnchorURL(cfg.AnchorURL),
		dnssec.WithAnchorTTL(cfg.AnchorTTL),
		dnssec.WithAnchorLogger(logger.Named("anchors")),
	)

	for tld, server := range cfg.WhoisServers {
		if _, err := whois.ParseServer(server); err != nil {
			return nil, fmt.Errorf("invalid whois server for %q: %w", tld, err)
		}
	}
	whoisClient := whois.NewClient(
		whois.WithRegistry(whois.NewRegistry(cfg.WhoisServers)),
		whois.WithTimeout(cfg.WhoisTimeout),
		whois.WithExpiryWarningDays(cfg.WhoisWarningDays),
		whois.WithLogger(logger.Named("whois")),
	)

	c := &Container{
		Runs:         runs,
		Resolver:     resolver,
		Anchors:      anchors,
		Validator:    dnssec.NewValidator(resolver, anchors, logger.Named("dnssec")),
		Whois:        whoisClient,
		Prober:       mailtls.NewProber(mailtls.WithTimeout(cfg.HTTPTimeout), mailtls.WithLogger(logger.Named("mailtls"))),
		Scanner:      network.NewScanner(cfg.Ports, cfg.PortTimeout, cfg.PortWorkers, logger.Named("ports")),
		Takeover:     network.NewTakeoverDetector(resolver, cfg.HTTPTimeout, logger.Named("takeover")),
		Collector:    dnsrecords.NewCollector(resolver, logger.Named("records")),
		Propagation:  dnsrecords.NewPropagation(cfg.Resolvers, cfg.DNSTimeout, logger.Named("propagation")),
		ZoneTransfer: dnsrecords.NewZoneTransfer(resolver, cfg.DNSTimeout, logger.Named("axfr")),
	}

	registry := healthcheck.NewRegistry(healthcheck.DefaultHandlers(healthcheck.Deps{
		Resolver:        resolver,
		Validator:       c.Validator,
		Whois:           c.Whois,
		Prober:          c.Prober,
		Scanner:         c.Scanner,
		Takeover:        c.Takeover,
		Collector:       c.Collector,
		Propagation:     c.Propagation,
		ZoneTransfer:    c.ZoneTransfer,
		PropagationType: cfg.PropagationType,
		TyposquatLimit:  cfg.TyposquatLimit,
	})...)
	c.Health = healthcheck.NewService(registry, logger.Named("healthcheck"))

	return c, nil
}

// ParseNameservers turns "name=host:port" or "host[:port]" entries into
// nameservers. A missing port defaults to 53.
func ParseNameservers(entries []string) ([]dnsclient.Nameserver, error) {
	out := make([]dnsclient.Nameserver, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, addr, found := strings.Cut(entry, "=")
		if !found {
			addr = name
		}
		name, addr = strings.TrimSpace(name), strings.TrimSpace(addr)
		if addr == "" {
			return nil, fmt.Errorf("resolver %q has no address", entry)
		}
		addr = dnsclient.NormalizeServer(addr)
		if !found {
			name = addr
		}
		out = append(out, dnsclient.Nameserver{Name: name, Addr: addr})
	}
	return out, nil
}
