package whois

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	sharedErrors "github.com/khanhnv2901/domaincheck/internal/shared/errors"
)

type whoisServer struct {
	addr    string
	mu      sync.Mutex
	queries []string
}

// startWhoisServer runs a one-response-per-connection WHOIS server on a
// loopback port. respond maps the received query line to the reply.
func startWhoisServer(t *testing.T, respond func(query string) []byte) *whoisServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &whoisServer{addr: ln.Addr().String()}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
				line, err := bufio.NewReader(conn).ReadString('\n')
				if err != nil {
					return
				}
				query := strings.TrimRight(line, "\r\n")
				s.mu.Lock()
				s.queries = append(s.queries, query)
				s.mu.Unlock()
				_, _ = conn.Write(respond(query))
			}(conn)
		}
	}()
	return s
}

func (s *whoisServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

func newTestClient(t *testing.T, overrides map[string]string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithRegistry(NewRegistry(overrides)),
		WithTimeout(2 * time.Second),
		WithLogger(zaptest.NewLogger(t)),
	}, opts...)
	return NewClient(opts...)
}

func TestClientQueryParsesResponse(t *testing.T) {
	fixture := loadFixture(t, "com.txt")
	srv := startWhoisServer(t, func(string) []byte { return []byte(fixture) })
	c := newTestClient(t, map[string]string{"com": srv.addr})

	a, err := c.Query(context.Background(), "WWW.Example.com")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got := srv.received(); len(got) != 1 || got[0] != "example.com" {
		t.Fatalf("server received %v, want the registrable domain", got)
	}
	if a.Tld != "com" || a.WhoisServer != srv.addr {
		t.Errorf("Tld=%q WhoisServer=%q", a.Tld, a.WhoisServer)
	}
	if a.Registrar != "RESERVED-Internet Assigned Numbers Authority" {
		t.Errorf("Registrar = %q", a.Registrar)
	}
	if a.ExpiryWarningDays != 30 {
		t.Errorf("ExpiryWarningDays = %d", a.ExpiryWarningDays)
	}
}

func TestClientDecodesLatin1(t *testing.T) {
	// "Müller" in ISO-8859-1 is not valid UTF-8
	raw := []byte("Domain Name: example.test\nRegistrant Name: M\xfcller\n")
	srv := startWhoisServer(t, func(string) []byte { return raw })
	c := newTestClient(t, map[string]string{"test": srv.addr})

	a, err := c.Query(context.Background(), "example.test")
	if err != nil {
		t.Fatal(err)
	}
	if a.Registrant != "Müller" {
		t.Errorf("Registrant = %q, want Müller", a.Registrant)
	}
}

func TestDecodeResponse(t *testing.T) {
	if got := decodeResponse([]byte("Straße")); got != "Straße" {
		t.Errorf("utf-8 input changed: %q", got)
	}
	if got := decodeResponse([]byte("Stra\xdfe")); got != "Straße" {
		t.Errorf("latin-1 input = %q", got)
	}
}

func TestClientDENICQueryForm(t *testing.T) {
	fixture := loadFixture(t, "de.txt")
	srv := startWhoisServer(t, func(string) []byte { return []byte(fixture) })
	c := newTestClient(t, nil)

	// route whois.denic.de to the local listener while keeping its host name
	// visible to the query-line selection
	server, err := ParseServer(srv.addr)
	if err != nil {
		t.Fatal(err)
	}
	if got := queryLine(Server{Host: denicServer, Port: 43}, "example.de"); got != "-T dn,ace example.de" {
		t.Errorf("DENIC query = %q", got)
	}
	if got := queryLine(server, "example.de"); got != "example.de" {
		t.Errorf("plain query = %q", got)
	}

	raw, err := c.fetch(context.Background(), server, queryLine(Server{Host: denicServer}, "example.de"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "Domain: example.de") {
		t.Errorf("unexpected response %q", raw)
	}
	if got := srv.received(); len(got) != 1 || got[0] != "-T dn,ace example.de" {
		t.Errorf("server received %v", got)
	}
}

func TestClientUnsupportedTLD(t *testing.T) {
	c := newTestClient(t, nil)
	_, err := c.Query(context.Background(), "example.invalidtld")
	if !errors.Is(err, ErrUnsupportedTLD) {
		t.Fatalf("error = %v, want ErrUnsupportedTLD", err)
	}
}

func TestClientInvalidDomain(t *testing.T) {
	c := newTestClient(t, nil)
	_, err := c.Query(context.Background(), "")
	if !errors.Is(err, sharedErrors.ErrEmptyTarget) {
		t.Fatalf("error = %v", err)
	}
}

func TestClientNetworkFailureLeavesFieldsEmpty(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	c := newTestClient(t, map[string]string{"test": addr})
	a, err := c.Query(context.Background(), "example.test")
	if err != nil {
		t.Fatalf("network failure should not be returned, got %v", err)
	}
	if a.DomainName != "example.test" || a.Tld != "test" || a.WhoisServer != addr {
		t.Errorf("identity fields = %+v", a)
	}
	if a.Registrar != "" || a.ExpiryDate != nil || a.RawText != "" {
		t.Errorf("unexpected parsed fields: %+v", a)
	}
}

func TestClientResponseCap(t *testing.T) {
	big := strings.Repeat("x", 4096)
	srv := startWhoisServer(t, func(string) []byte { return []byte(big) })
	c := newTestClient(t, map[string]string{"test": srv.addr}, WithMaxResponseBytes(100))

	a, err := c.Query(context.Background(), "example.test")
	if err != nil {
		t.Fatal(err)
	}
	if len(a.RawText) != 100 {
		t.Errorf("RawText length = %d, want 100", len(a.RawText))
	}
}

func TestClientHonoursContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		// never answer
		defer conn.Close()
		time.Sleep(3 * time.Second)
	}()

	c := newTestClient(t, map[string]string{"test": ln.Addr().String()}, WithTimeout(10*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := c.fetch(ctx, Server{Host: "127.0.0.1", Port: ln.Addr().(*net.TCPAddr).Port}, "example.test"); err == nil {
		t.Fatal("expected an error from a silent server")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("fetch ignored cancellation, took %v", elapsed)
	}
}
