// Package heuristics holds DNS checks that infer risk from patterns rather
// than from a single record: wildcard zones and look-alike registrations.
package heuristics

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/miekg/dns"

	"github.com/khanhnv2901/domaincheck/internal/dnsclient"
)

// WildcardResult records whether random names under a domain resolve.
type WildcardResult struct {
	Domain   string   `json:"domain"`
	Wildcard bool     `json:"wildcard"`
	Probes   []string `json:"probes"`
	Answers  []string `json:"answers,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Clone returns a deep copy of r.
func (r *WildcardResult) Clone() *WildcardResult {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Probes = append([]string(nil), r.Probes...)
	cp.Answers = append([]string(nil), r.Answers...)
	return &cp
}

// DetectWildcard resolves A records for two random labels under domain.
// Any answer means the zone carries a wildcard.
func DetectWildcard(ctx context.Context, resolver dnsclient.Resolver, domain string) *WildcardResult {
	result := &WildcardResult{Domain: domain}
	seen := make(map[string]bool)

	for i := 0; i < 2; i++ {
		label, err := randomLabel()
		if err != nil {
			result.Error = err.Error()
			return result
		}
		name := label + "." + domain
		result.Probes = append(result.Probes, name)

		resp, err := resolver.Query(ctx, name, dns.TypeA)
		if err != nil {
			result.Error = fmt.Sprintf("query %s: %v", name, err)
			continue
		}
		for _, ip := range resp.Data(dns.TypeA) {
			if !seen[ip] {
				seen[ip] = true
				result.Answers = append(result.Answers, ip)
			}
		}
	}
	sort.Strings(result.Answers)
	result.Wildcard = len(result.Answers) > 0
	return result
}

func randomLabel() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random label: %w", err)
	}
	return "wc-" + hex.EncodeToString(buf), nil
}
