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

// ResolverAnswer is what one resolver returned.
type ResolverAnswer struct {
	Resolver string   `json:"resolver"`
	Address  string   `json:"address"`
	Status   string   `json:"status,omitempty"`
	Answers  []string `json:"answers"`
	Latency  float64  `json:"latency_ms"`
	Error    string   `json:"error,omitempty"`
}

// PropagationResult compares one record set across public resolvers.
type PropagationResult struct {
	Domain     string           `json:"domain"`
	Type       string           `json:"type"`
	Resolvers  []ResolverAnswer `json:"resolvers"`
	Consensus  []string         `json:"consensus,omitempty"`
	Consistent bool             `json:"consistent"`
}

// Clone returns a deep copy of r.
func (r *PropagationResult) Clone() *PropagationResult {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Consensus = append([]string(nil), r.Consensus...)
	cp.Resolvers = make([]ResolverAnswer, len(r.Resolvers))
	for i, ra := range r.Resolvers {
		ra.Answers = append([]string(nil), ra.Answers...)
		cp.Resolvers[i] = ra
	}
	return &cp
}

// Propagation queries the same name at several recursive resolvers.
type Propagation struct {
	resolvers []dnsclient.Nameserver
	timeout   time.Duration
	logger    *zap.Logger
	newClient func(addr string) dnsclient.Resolver
}

// NewPropagation returns a checker over resolvers, or
// dnsclient.DefaultResolvers when the list is empty.
func NewPropagation(resolvers []dnsclient.Nameserver, timeout time.Duration, logger *zap.Logger) *Propagation {
	if len(resolvers) == 0 {
		resolvers = dnsclient.DefaultResolvers
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Propagation{
		resolvers: append([]dnsclient.Nameserver(nil), resolvers...),
		timeout:   timeout,
		logger:    logger,
	}
	p.newClient = func(addr string) dnsclient.Resolver {
		return dnsclient.NewClassicClient(addr, p.timeout, p.logger)
	}
	return p
}

// Check asks every resolver for domain/qtype in parallel. The consensus is
// the answer set returned by most resolvers; the result is consistent
// when every resolver that answered agrees with it.
func (p *Propagation) Check(ctx context.Context, domain string, qtype uint16) *PropagationResult {
	result := &PropagationResult{
		Domain:    domain,
		Type:      dnsclient.TypeName(qtype),
		Resolvers: make([]ResolverAnswer, len(p.resolvers)),
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for i, ns := range p.resolvers {
		g.Go(func() error {
			ra := p.ask(ctx, ns, domain, qtype)
			mu.Lock()
			result.Resolvers[i] = ra
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	counts := make(map[string]int)
	sets := make(map[string][]string)
	answered := 0
	for _, ra := range result.Resolvers {
		if ra.Error != "" {
			continue
		}
		answered++
		key := strings.Join(ra.Answers, "|")
		counts[key]++
		sets[key] = ra.Answers
	}

	best, bestCount := "", -1
	for key, n := range counts {
		if n > bestCount || (n == bestCount && key < best) {
			best, bestCount = key, n
		}
	}
	if bestCount > 0 {
		result.Consensus = append([]string(nil), sets[best]...)
	}
	result.Consistent = answered > 0 && len(counts) == 1

	p.logger.Info("propagation_checked",
		zap.String("domain", domain),
		zap.String("type", result.Type),
		zap.Int("resolvers", len(p.resolvers)),
		zap.Int("answer_sets", len(counts)),
		zap.Bool("consistent", result.Consistent))
	return result
}

func (p *Propagation) ask(ctx context.Context, ns dnsclient.Nameserver, domain string, qtype uint16) ResolverAnswer {
	ra := ResolverAnswer{Resolver: ns.Name, Address: ns.Addr, Answers: []string{}}
	start := time.Now()
	resp, err := p.newClient(ns.Addr).Query(ctx, domain, qtype)
	ra.Latency = float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		ra.Error = err.Error()
		return ra
	}
	ra.Status = dns.RcodeToString[resp.Status]
	for _, d := range resp.Data(qtype) {
		ra.Answers = append(ra.Answers, strings.TrimSuffix(d, "."))
	}
	sort.Strings(ra.Answers)
	return ra
}
