package healthcheck

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/miekg/dns"

	"github.com/khanhnv2901/domaincheck/internal/dnsclient"
	"github.com/khanhnv2901/domaincheck/internal/dnsrecords"
	"github.com/khanhnv2901/domaincheck/internal/dnssec"
	"github.com/khanhnv2901/domaincheck/internal/heuristics"
	"github.com/khanhnv2901/domaincheck/internal/mailtls"
	"github.com/khanhnv2901/domaincheck/internal/network"
	"github.com/khanhnv2901/domaincheck/internal/whois"
)

// Deps are the shared analyzers the default handlers delegate to. A nil
// analyzer leaves its check unregistered.
type Deps struct {
	Resolver     dnsclient.Resolver
	Validator    *dnssec.Validator
	Whois        *whois.Client
	Prober       *mailtls.Prober
	Scanner      *network.Scanner
	Takeover     *network.TakeoverDetector
	Collector    *dnsrecords.Collector
	Propagation  *dnsrecords.Propagation
	ZoneTransfer *dnsrecords.ZoneTransfer

	// PropagationType is the record type compared across resolvers; zero
	// means A.
	PropagationType uint16
	TyposquatLimit  int
}

// DefaultHandlers builds one handler per check type that deps can serve.
func DefaultHandlers(deps Deps) []Handler {
	var hs []Handler
	add := func(t CheckType, fn func(ctx context.Context, domain string, report *DomainHealthCheck) error) {
		hs = append(hs, HandlerFunc{CheckType: t, Fn: fn})
	}

	if deps.Validator != nil {
		add(CheckDNSSEC, func(ctx context.Context, domain string, report *DomainHealthCheck) error {
			a := deps.Validator.Analyze(ctx, domain)
			report.update(func(r *DomainHealthCheck) { r.DNSSEC = a })
			return ctx.Err()
		})
	}
	if deps.Whois != nil {
		add(CheckWHOIS, func(ctx context.Context, domain string, report *DomainHealthCheck) error {
			a, err := deps.Whois.Query(ctx, domain)
			if err != nil {
				return err
			}
			report.update(func(r *DomainHealthCheck) { r.WHOIS = a })
			return nil
		})
	}
	if deps.Collector != nil {
		add(CheckRecords, func(ctx context.Context, domain string, report *DomainHealthCheck) error {
			inv := deps.Collector.Collect(ctx, domain)
			report.update(func(r *DomainHealthCheck) { r.Records = inv })
			return ctx.Err()
		})
	}
	if deps.Prober != nil && deps.Resolver != nil {
		add(CheckMailTLS, func(ctx context.Context, domain string, report *DomainHealthCheck) error {
			hosts, err := mxHosts(ctx, deps.Resolver, domain)
			if err != nil {
				return err
			}
			results := deps.Prober.ProbeDomain(ctx, hosts)
			report.update(func(r *DomainHealthCheck) { r.MailTLS = results })
			return nil
		})
	}
	if deps.Scanner != nil {
		add(CheckPorts, func(ctx context.Context, domain string, report *DomainHealthCheck) error {
			open := deps.Scanner.Scan(ctx, domain)
			report.update(func(r *DomainHealthCheck) { r.Ports = open })
			return ctx.Err()
		})
	}
	if deps.Takeover != nil {
		add(CheckTakeover, func(ctx context.Context, domain string, report *DomainHealthCheck) error {
			c := deps.Takeover.Check(ctx, domain)
			report.update(func(r *DomainHealthCheck) { r.Takeover = c })
			return nil
		})
	}
	if deps.Resolver != nil {
		add(CheckWildcard, func(ctx context.Context, domain string, report *DomainHealthCheck) error {
			w := heuristics.DetectWildcard(ctx, deps.Resolver, domain)
			report.update(func(r *DomainHealthCheck) { r.Wildcard = w })
			return nil
		})
		add(CheckTyposquat, func(ctx context.Context, domain string, report *DomainHealthCheck) error {
			t := heuristics.CheckTyposquats(ctx, deps.Resolver, domain, deps.TyposquatLimit)
			report.update(func(r *DomainHealthCheck) { r.Typosquat = t })
			return ctx.Err()
		})
	}
	if deps.Propagation != nil {
		qtype := deps.PropagationType
		if qtype == 0 {
			qtype = dns.TypeA
		}
		add(CheckPropagation, func(ctx context.Context, domain string, report *DomainHealthCheck) error {
			p := deps.Propagation.Check(ctx, domain, qtype)
			report.update(func(r *DomainHealthCheck) { r.Propagation = p })
			return ctx.Err()
		})
	}
	if deps.ZoneTransfer != nil {
		add(CheckZoneTransfer, func(ctx context.Context, domain string, report *DomainHealthCheck) error {
			z := deps.ZoneTransfer.Check(ctx, domain, nil)
			report.update(func(r *DomainHealthCheck) { r.ZoneTransfer = z })
			return nil
		})
	}
	return hs
}

var errNoMX = errors.New("no MX records")

// mxHosts returns the domain's mail exchangers in preference order.
func mxHosts(ctx context.Context, resolver dnsclient.Resolver, domain string) ([]string, error) {
	resp, err := resolver.Query(ctx, domain, dns.TypeMX)
	if err != nil {
		return nil, err
	}
	type mx struct {
		pref int
		host string
	}
	var records []mx
	for _, data := range resp.Data(dns.TypeMX) {
		fields := strings.Fields(data)
		if len(fields) != 2 {
			continue
		}
		pref, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		host := strings.TrimSuffix(fields[1], ".")
		// null MX (RFC 7505) means the domain accepts no mail
		if host == "" {
			continue
		}
		records = append(records, mx{pref, host})
	}
	if len(records) == 0 {
		return nil, errNoMX
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].pref < records[j].pref })
	hosts := make([]string, len(records))
	for i, r := range records {
		hosts[i] = r.host
	}
	return hosts, nil
}
