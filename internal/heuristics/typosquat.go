package heuristics

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"

	"github.com/khanhnv2901/domaincheck/internal/dnsclient"
	"github.com/khanhnv2901/domaincheck/internal/domainname"
)

// DefaultTyposquatLimit caps generated variants when no limit is given.
const DefaultTyposquatLimit = 25

const typosquatConcurrency = 5

var swapTLDs = []string{"com", "net", "org", "co", "io", "info"}

// homoglyphs maps a character to look-alike replacements.
var homoglyphs = map[rune][]string{
	'a': {"4", "q"},
	'b': {"d", "6"},
	'c': {"e"},
	'd': {"b", "cl"},
	'e': {"3", "c"},
	'g': {"q", "9"},
	'i': {"1", "l"},
	'l': {"1", "i"},
	'm': {"rn", "nn"},
	'n': {"m"},
	'o': {"0"},
	'q': {"g"},
	's': {"5"},
	't': {"7"},
	'u': {"v"},
	'v': {"u"},
	'w': {"vv"},
	'z': {"2"},
}

// TyposquatCandidate is a variant that resolves.
type TyposquatCandidate struct {
	Domain    string   `json:"domain"`
	Addresses []string `json:"addresses"`
}

// TyposquatResult lists which generated variants are registered.
type TyposquatResult struct {
	Domain     string               `json:"domain"`
	Checked    int                  `json:"checked"`
	Variants   []string             `json:"variants"`
	Registered []TyposquatCandidate `json:"registered"`
}

// Clone returns a deep copy of r.
func (r *TyposquatResult) Clone() *TyposquatResult {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Variants = append([]string(nil), r.Variants...)
	cp.Registered = make([]TyposquatCandidate, len(r.Registered))
	for i, c := range r.Registered {
		c.Addresses = append([]string(nil), c.Addresses...)
		cp.Registered[i] = c
	}
	return &cp
}

// GenerateTyposquats builds look-alike registrable names for domain from
// character omission, repetition, transposition, homoglyph substitution
// and TLD swaps. The domain's own registrable name is never returned.
func GenerateTyposquats(domain string, limit int) []string {
	if limit <= 0 {
		limit = DefaultTyposquatLimit
	}
	domain = strings.TrimSuffix(strings.ToLower(domain), ".")
	base := domainname.Registrable(domain)
	suffix := domainname.PublicSuffix(base)
	label := strings.TrimSuffix(base, "."+suffix)
	if label == "" || label == base {
		return []string{}
	}

	seen := map[string]bool{base: true}
	out := make([]string, 0, limit)
	add := func(candidate string) bool {
		if len(out) >= limit {
			return false
		}
		if seen[candidate] {
			return true
		}
		seen[candidate] = true
		out = append(out, candidate)
		return true
	}
	addLabel := func(l string) bool {
		if !validLabel(l) {
			return true
		}
		return add(l + "." + suffix)
	}

	runes := []rune(label)
	for i := range runes {
		if !addLabel(string(runes[:i]) + string(runes[i+1:])) {
			return out
		}
	}
	for i := range runes {
		if !addLabel(string(runes[:i+1]) + string(runes[i:])) {
			return out
		}
	}
	for i := 0; i+1 < len(runes); i++ {
		if runes[i] == runes[i+1] {
			continue
		}
		swapped := append([]rune(nil), runes...)
		swapped[i], swapped[i+1] = swapped[i+1], swapped[i]
		if !addLabel(string(swapped)) {
			return out
		}
	}
	for i, r := range runes {
		for _, repl := range homoglyphs[r] {
			if !addLabel(string(runes[:i]) + repl + string(runes[i+1:])) {
				return out
			}
		}
	}
	for _, tld := range swapTLDs {
		if tld == suffix {
			continue
		}
		if !add(label + "." + tld) {
			return out
		}
	}
	return out
}

func validLabel(l string) bool {
	if l == "" || len(l) > 63 || strings.HasPrefix(l, "-") || strings.HasSuffix(l, "-") {
		return false
	}
	return true
}

// CheckTyposquats resolves the generated variants of domain and reports
// the ones that exist.
func CheckTyposquats(ctx context.Context, resolver dnsclient.Resolver, domain string, limit int) *TyposquatResult {
	variants := GenerateTyposquats(domain, limit)
	result := &TyposquatResult{
		Domain:     domain,
		Checked:    len(variants),
		Variants:   variants,
		Registered: []TyposquatCandidate{},
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(typosquatConcurrency)
	for _, v := range variants {
		g.Go(func() error {
			addrs := lookupAddresses(ctx, resolver, v)
			if len(addrs) == 0 {
				return nil
			}
			mu.Lock()
			result.Registered = append(result.Registered, TyposquatCandidate{Domain: v, Addresses: addrs})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(result.Registered, func(i, j int) bool {
		return result.Registered[i].Domain < result.Registered[j].Domain
	})
	return result
}

func lookupAddresses(ctx context.Context, resolver dnsclient.Resolver, name string) []string {
	var addrs []string
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		resp, err := resolver.Query(ctx, name, qtype)
		if err != nil {
			continue
		}
		addrs = append(addrs, resp.Data(qtype)...)
	}
	sort.Strings(addrs)
	return addrs
}
