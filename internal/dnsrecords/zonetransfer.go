package dnsrecords

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khanhnv2901/domaincheck/internal/dnsclient"
)

// ZoneTransferServer is the AXFR outcome for one nameserver.
type ZoneTransferServer struct {
	Nameserver  string `json:"nameserver"`
	Address     string `json:"address"`
	Allowed     bool   `json:"allowed"`
	RecordCount int    `json:"record_count,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ZoneTransferResult lists which authoritative servers hand out the zone.
type ZoneTransferResult struct {
	Domain     string               `json:"domain"`
	Vulnerable bool                 `json:"vulnerable"`
	Servers    []ZoneTransferServer `json:"servers"`
}

// Clone returns a deep copy of r.
func (r *ZoneTransferResult) Clone() *ZoneTransferResult {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Servers = append([]ZoneTransferServer(nil), r.Servers...)
	return &cp
}

// ZoneTransfer attempts AXFR against a zone's nameservers.
type ZoneTransfer struct {
	resolver dnsclient.Resolver
	timeout  time.Duration
	logger   *zap.Logger
}

// NewZoneTransfer returns a checker that discovers nameservers through
// resolver when none are given.
func NewZoneTransfer(resolver dnsclient.Resolver, timeout time.Duration, logger *zap.Logger) *ZoneTransfer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZoneTransfer{resolver: resolver, timeout: timeout, logger: logger}
}

// Check tries a zone transfer of domain from every nameserver. Entries in
// nameservers may carry a port; without one, 53 is used. An empty list is
// filled from the domain's NS records.
func (z *ZoneTransfer) Check(ctx context.Context, domain string, nameservers []string) *ZoneTransferResult {
	result := &ZoneTransferResult{Domain: domain, Servers: []ZoneTransferServer{}}

	if len(nameservers) == 0 && z.resolver != nil {
		resp, err := z.resolver.Query(ctx, domain, dns.TypeNS)
		if err != nil {
			z.logger.Warn("zone_transfer_ns_lookup_failed", zap.String("domain", domain), zap.Error(err))
		}
		for _, ns := range resp.Data(dns.TypeNS) {
			nameservers = append(nameservers, strings.TrimSuffix(ns, "."))
		}
	}
	sort.Strings(nameservers)

	servers := make([]ZoneTransferServer, len(nameservers))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for i, ns := range nameservers {
		g.Go(func() error {
			s := z.transfer(ctx, domain, ns)
			mu.Lock()
			servers[i] = s
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result.Servers = servers
	for _, s := range servers {
		if s.Allowed {
			result.Vulnerable = true
			z.logger.Warn("zone_transfer_allowed",
				zap.String("domain", domain),
				zap.String("server", s.Address),
				zap.Int("records", s.RecordCount))
		}
	}
	return result
}

func (z *ZoneTransfer) transfer(ctx context.Context, domain, nameserver string) ZoneTransferServer {
	addr := dnsclient.NormalizeServer(nameserver)
	out := ZoneTransferServer{Nameserver: nameserver, Address: addr}

	msg := new(dns.Msg)
	msg.SetAxfr(dns.Fqdn(domain))
	tr := &dns.Transfer{DialTimeout: z.timeout, ReadTimeout: z.timeout, WriteTimeout: z.timeout}

	envelopes, err := tr.In(msg, addr)
	if err != nil {
		out.Error = err.Error()
		return out
	}
	for {
		select {
		case <-ctx.Done():
			out.Error = ctx.Err().Error()
			out.RecordCount = 0
			// drain so the transfer goroutine can exit
			go func() {
				for range envelopes {
				}
			}()
			return out
		case env, ok := <-envelopes:
			if !ok {
				out.Allowed = out.Error == "" && out.RecordCount > 0
				return out
			}
			if env.Error != nil {
				out.Error = env.Error.Error()
				continue
			}
			out.RecordCount += len(env.RR)
		}
	}
}
