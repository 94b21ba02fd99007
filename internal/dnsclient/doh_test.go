package dnsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap/zaptest"
)

const dnskeyJSON = `{
  "Status": 0, "TC": false, "RD": true, "RA": true, "AD": true, "CD": false,
  "Question": [{"name": "example.com.", "type": 48}],
  "Answer": [
    {"name": "example.com.", "type": 48, "TTL": 3600, "data": "257 3 13 mdsswUyr3DPW132mOi8V9xESWE8jTo0dxCjjnopKl+GqJxpVXckHAeF+KkxLbxILfDLUT0rAK9iUzy1L53eKGQ=="},
    {"name": "example.com.", "type": 46, "TTL": 1200, "data": "dnskey 13 2 3600 1730419200 1728604800 12345 example.com. c2lnbmF0dXJl"}
  ]
}`

func newTestServer(t *testing.T, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if got := r.Header.Get("Accept"); got != "application/dns-json" {
			t.Errorf("expected dns-json accept header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/dns-json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDoHClientQuery(t *testing.T) {
	var hits int32
	var gotName, gotType, gotDO string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		gotName = r.URL.Query().Get("name")
		gotType = r.URL.Query().Get("type")
		gotDO = r.URL.Query().Get("do")
		_, _ = w.Write([]byte(dnskeyJSON))
	}))
	defer srv.Close()

	client, err := NewDoHClient(WithEndpoint(srv.URL), WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("NewDoHClient: %v", err)
	}

	resp, err := client.Query(context.Background(), "Example.COM.", dns.TypeDNSKEY)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if gotName != "example.com" || gotType != "DNSKEY" || gotDO != "1" {
		t.Fatalf("unexpected query params name=%q type=%q do=%q", gotName, gotType, gotDO)
	}
	if !resp.AuthenticData {
		t.Error("expected AD flag to be parsed")
	}
	if !resp.NoError() {
		t.Errorf("expected NOERROR, got status %d", resp.Status)
	}
	if got := len(resp.Of(dns.TypeDNSKEY)); got != 1 {
		t.Errorf("expected 1 DNSKEY answer, got %d", got)
	}
	if got := len(resp.Of(dns.TypeRRSIG)); got != 1 {
		t.Errorf("expected 1 RRSIG answer, got %d", got)
	}
	if resp.Answers[0].Name != "example.com" {
		t.Errorf("expected trailing dot to be trimmed, got %q", resp.Answers[0].Name)
	}
}

func TestDoHClientCachesByTTL(t *testing.T) {
	var hits int32
	srv := newTestServer(t, dnskeyJSON, &hits)

	client, err := NewDoHClient(WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("NewDoHClient: %v", err)
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := client.Query(ctx, "example.com", dns.TypeDNSKEY); err != nil {
			t.Fatalf("Query: %v", err)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected cached answers to avoid refetching, got %d requests", got)
	}

	// The minimum TTL in the answer set is 1200s.
	now = now.Add(1201 * time.Second)
	if _, err := client.Query(ctx, "example.com", dns.TypeDNSKEY); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("expected refetch after TTL expiry, got %d requests", got)
	}
}

func TestDoHClientCacheReturnsCopies(t *testing.T) {
	var hits int32
	srv := newTestServer(t, dnskeyJSON, &hits)

	client, err := NewDoHClient(WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("NewDoHClient: %v", err)
	}

	first, err := client.Query(context.Background(), "example.com", dns.TypeDNSKEY)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	first.Answers[0].Data = "mutated"

	second, err := client.Query(context.Background(), "example.com", dns.TypeDNSKEY)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if second.Answers[0].Data == "mutated" {
		t.Fatal("cached response was mutated through a returned value")
	}
}

func TestDoHClientNXDomainIsNotAnError(t *testing.T) {
	var hits int32
	srv := newTestServer(t, `{"Status": 3, "AD": true}`, &hits)

	client, err := NewDoHClient(WithEndpoint(srv.URL), WithCacheSize(0))
	if err != nil {
		t.Fatalf("NewDoHClient: %v", err)
	}

	resp, err := client.Query(context.Background(), "missing.example", dns.TypeDS)
	if err != nil {
		t.Fatalf("expected no error for NXDOMAIN, got %v", err)
	}
	if resp.Status != dns.RcodeNameError {
		t.Errorf("expected status 3, got %d", resp.Status)
	}
	if resp.NoError() {
		t.Error("NoError should be false for NXDOMAIN")
	}
}

func TestDoHClientHTTPErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client, err := NewDoHClient(WithEndpoint(srv.URL))
			if err != nil {
				t.Fatalf("NewDoHClient: %v", err)
			}
			if _, err := client.Query(context.Background(), "example.com", dns.TypeA); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRootNameIsQueriedAsDot(t *testing.T) {
	var gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotName = r.URL.Query().Get("name")
		_, _ = w.Write([]byte(`{"Status": 0}`))
	}))
	defer srv.Close()

	client, err := NewDoHClient(WithEndpoint(srv.URL))
	if err != nil {
		t.Fatalf("NewDoHClient: %v", err)
	}
	if _, err := client.Query(context.Background(), ".", dns.TypeDNSKEY); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if gotName != "." {
		t.Fatalf("expected root to be queried as '.', got %q", gotName)
	}
}

func TestTypeHelpers(t *testing.T) {
	if got := TypeName(dns.TypeDNSKEY); got != "DNSKEY" {
		t.Errorf("TypeName(48) = %q", got)
	}
	if got := TypeName(65000); got != "TYPE65000" {
		t.Errorf("TypeName(65000) = %q", got)
	}
	if qt, ok := ParseType(" caa "); !ok || qt != dns.TypeCAA {
		t.Errorf("ParseType(caa) = %d, %v", qt, ok)
	}
	if _, ok := ParseType("bogus"); ok {
		t.Error("ParseType(bogus) should fail")
	}
}

func TestTrimTXT(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"v=spf1 -all"`, "v=spf1 -all"},
		{`"v=spf1 include:a.example " "include:b.example -all"`, "v=spf1 include:a.example include:b.example -all"},
		{`v=DMARC1; p=none`, "v=DMARC1; p=none"},
	}
	for _, tt := range tests {
		if got := TrimTXT(tt.in); got != tt.want {
			t.Errorf("TrimTXT(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
