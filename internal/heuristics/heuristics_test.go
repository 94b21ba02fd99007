package heuristics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/miekg/dns"

	"github.com/khanhnv2901/domaincheck/internal/dnsclient"
)

// fakeResolver answers A queries from exact names, plus every name under
// a wildcard suffix.
type fakeResolver struct {
	mu       sync.Mutex
	exact    map[string][]string
	wildcard map[string]string
	fail     bool
	queried  []string
}

func (f *fakeResolver) Query(_ context.Context, name string, qtype uint16) (*dnsclient.Response, error) {
	f.mu.Lock()
	f.queried = append(f.queried, name)
	f.mu.Unlock()
	if f.fail {
		return nil, errors.New("servfail")
	}
	resp := &dnsclient.Response{}
	if qtype != dns.TypeA {
		return resp, nil
	}
	ips := f.exact[name]
	for suffix, ip := range f.wildcard {
		if strings.HasSuffix(name, "."+suffix) {
			ips = append(ips, ip)
		}
	}
	for _, ip := range ips {
		resp.Answers = append(resp.Answers, dnsclient.Answer{Name: name, Type: dns.TypeA, Data: ip})
	}
	return resp, nil
}

func TestDetectWildcard(t *testing.T) {
	tests := []struct {
		name         string
		resolver     *fakeResolver
		wantWildcard bool
		wantAnswers  []string
		wantError    bool
	}{
		{"wildcard zone", &fakeResolver{wildcard: map[string]string{"example.com": "192.0.2.50"}}, true, []string{"192.0.2.50"}, false},
		{"plain zone", &fakeResolver{exact: map[string][]string{"www.example.com": {"192.0.2.1"}}}, false, nil, false},
		{"resolver failure", &fakeResolver{fail: true}, false, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectWildcard(context.Background(), tt.resolver, "example.com")
			if got.Wildcard != tt.wantWildcard || (got.Error != "") != tt.wantError {
				t.Fatalf("result = %+v", got)
			}
			if len(got.Answers) != len(tt.wantAnswers) || (len(tt.wantAnswers) > 0 && got.Answers[0] != tt.wantAnswers[0]) {
				t.Errorf("Answers = %v", got.Answers)
			}
			if len(got.Probes) != 2 || got.Probes[0] == got.Probes[1] {
				t.Errorf("Probes = %v", got.Probes)
			}
			for _, p := range got.Probes {
				if !strings.HasPrefix(p, "wc-") || !strings.HasSuffix(p, ".example.com") {
					t.Errorf("probe name %q", p)
				}
			}
		})
	}
}

func TestGenerateTyposquatsDefaultLimit(t *testing.T) {
	got := GenerateTyposquats("www.Example.com.", 0)
	if len(got) != DefaultTyposquatLimit {
		t.Fatalf("got %d variants, want %d", len(got), DefaultTyposquatLimit)
	}
	if got[0] != "xample.com" {
		t.Errorf("first variant = %q", got[0])
	}
	seen := map[string]bool{}
	for _, v := range got {
		if v == "example.com" {
			t.Error("original domain returned as a variant")
		}
		if seen[v] {
			t.Errorf("duplicate variant %q", v)
		}
		seen[v] = true
	}
}

func TestGenerateTyposquatsTechniques(t *testing.T) {
	got := GenerateTyposquats("example.com", 500)
	set := map[string]bool{}
	for _, v := range got {
		set[v] = true
	}
	for _, want := range []string{
		"exampe.com",   // omission
		"exammple.com", // repetition
		"exmaple.com",  // transposition
		"examp1e.com",  // homoglyph
		"exarnple.com", // multi-character homoglyph
		"example.net",  // tld swap
		"example.io",
	} {
		if !set[want] {
			t.Errorf("missing variant %q", want)
		}
	}
	if set["example.com"] {
		t.Error("original domain returned as a variant")
	}
}

func TestGenerateTyposquatsMultiLabelSuffix(t *testing.T) {
	got := GenerateTyposquats("news.bbc.co.uk", 500)
	set := map[string]bool{}
	for _, v := range got {
		if set[v] {
			t.Errorf("duplicate %q", v)
		}
		set[v] = true
	}
	for _, want := range []string{"bc.co.uk", "bbbc.co.uk", "bcb.co.uk", "bbc.com"} {
		if !set[want] {
			t.Errorf("missing variant %q", want)
		}
	}
	if set["bbc.co.uk"] {
		t.Error("original domain returned as a variant")
	}
}

func TestGenerateTyposquatsBareSuffix(t *testing.T) {
	if got := GenerateTyposquats("com", 10); len(got) != 0 {
		t.Errorf("variants for a bare suffix: %v", got)
	}
}

func TestCheckTyposquats(t *testing.T) {
	r := &fakeResolver{exact: map[string][]string{
		"exmaple.com": {"203.0.113.9"},
		"example.net": {"203.0.113.20", "203.0.113.10"},
	}}
	got := CheckTyposquats(context.Background(), r, "example.com", 200)

	if got.Checked != len(got.Variants) || got.Checked == 0 {
		t.Errorf("Checked = %d, variants = %d", got.Checked, len(got.Variants))
	}
	if len(got.Registered) != 2 {
		t.Fatalf("Registered = %+v", got.Registered)
	}
	if got.Registered[0].Domain != "example.net" || got.Registered[1].Domain != "exmaple.com" {
		t.Errorf("Registered order = %+v", got.Registered)
	}
	if got.Registered[0].Addresses[0] != "203.0.113.10" {
		t.Errorf("addresses not sorted: %v", got.Registered[0].Addresses)
	}

	cp := got.Clone()
	cp.Registered[0].Addresses[0] = "changed"
	if got.Registered[0].Addresses[0] != "203.0.113.10" {
		t.Error("Clone shares addresses")
	}
}
