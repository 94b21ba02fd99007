package dnsclient

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// Nameserver is a named recursive resolver.
type Nameserver struct {
	Name string `json:"name"`
	Addr string `json:"addr"`
}

// DefaultResolvers are the public resolvers used for propagation checks.
var DefaultResolvers = []Nameserver{
	{Name: "Google", Addr: "8.8.8.8:53"},
	{Name: "Cloudflare", Addr: "1.1.1.1:53"},
	{Name: "Quad9", Addr: "9.9.9.9:53"},
	{Name: "OpenDNS", Addr: "208.67.222.222:53"},
	{Name: "Level3", Addr: "4.2.2.2:53"},
}

// ClassicClient sends plain DNS queries to a single nameserver over UDP and
// retries over TCP when the answer is truncated.
type ClassicClient struct {
	Server  string
	Timeout time.Duration
	logger  *zap.Logger
}

// NewClassicClient returns a client for server. A missing port defaults to 53.
func NewClassicClient(server string, timeout time.Duration, logger *zap.Logger) *ClassicClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultDoHTimeout
	}
	return &ClassicClient{
		Server:  NormalizeServer(server),
		Timeout: timeout,
		logger:  logger,
	}
}

// NormalizeServer appends the default DNS port when server has none.
func NormalizeServer(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), "53")
}

// Query sends one question with the DO bit set.
func (c *ClassicClient) Query(ctx context.Context, name string, qtype uint16) (*Response, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true
	msg.SetEdns0(4096, true)

	client := &dns.Client{Net: "udp", Timeout: c.Timeout}
	in, _, err := client.ExchangeContext(ctx, msg, c.Server)
	if err == nil && in.Truncated {
		c.logger.Debug("dns_truncated_retry_tcp", zap.String("server", c.Server), zap.String("name", name))
		client.Net = "tcp"
		in, _, err = client.ExchangeContext(ctx, msg, c.Server)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s %s via %s: %w", name, TypeName(qtype), c.Server, err)
	}
	return FromMsg(in), nil
}

// FromMsg converts a miekg/dns message into a Response.
func FromMsg(in *dns.Msg) *Response {
	resp := &Response{
		Status:        in.Rcode,
		AuthenticData: in.AuthenticatedData,
		Answers:       make([]Answer, 0, len(in.Answer)),
	}
	for _, rr := range in.Answer {
		hdr := rr.Header()
		resp.Answers = append(resp.Answers, Answer{
			Name: strings.TrimSuffix(hdr.Name, "."),
			Type: hdr.Rrtype,
			TTL:  hdr.Ttl,
			Data: RRData(rr),
		})
	}
	return resp
}

// RRData returns the presentation-format RDATA of rr.
func RRData(rr dns.RR) string {
	return strings.TrimSpace(strings.TrimPrefix(rr.String(), rr.Header().String()))
}
