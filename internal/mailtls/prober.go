// Package mailtls probes the TLS posture of a domain's mail servers over
// STARTTLS (SMTP, IMAP, POP3) and implicit TLS.
package mailtls

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khanhnv2901/domaincheck/internal/shared/constants"
)

// Protocols understood by the prober.
const (
	ProtocolSMTP  = "smtp"
	ProtocolIMAP  = "imap"
	ProtocolPOP3  = "pop3"
	ProtocolSMTPS = "smtps"
	ProtocolIMAPS = "imaps"
	ProtocolPOP3S = "pop3s"
)

var portProtocols = map[int]string{
	25:  ProtocolSMTP,
	587: ProtocolSMTP,
	143: ProtocolIMAP,
	110: ProtocolPOP3,
	465: ProtocolSMTPS,
	993: ProtocolIMAPS,
	995: ProtocolPOP3S,
}

var errNoStartTLS = errors.New("STARTTLS not offered")

// ProtocolForPort returns the protocol conventionally served on port.
func ProtocolForPort(port int) (string, bool) {
	p, ok := portProtocols[port]
	return p, ok
}

// Probe addresses one mail service.
type Probe struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
}

// Result is the outcome of one probe.
type Result struct {
	Host        string           `json:"host"`
	Port        int              `json:"port"`
	Protocol    string           `json:"protocol"`
	Banner      string           `json:"banner,omitempty"`
	StartTLS    bool             `json:"starttls"`
	TLSVersion  string           `json:"tls_version,omitempty"`
	CipherSuite string           `json:"cipher_suite,omitempty"`
	Certificate *CertificateInfo `json:"certificate,omitempty"`
	Issues      []string         `json:"issues,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	cp := r
	cp.Issues = append([]string(nil), r.Issues...)
	if r.Certificate != nil {
		cert := *r.Certificate
		cert.DNSNames = append([]string(nil), r.Certificate.DNSNames...)
		cp.Certificate = &cert
	}
	return cp
}

// Prober connects to mail servers and upgrades the session to TLS.
type Prober struct {
	timeout     time.Duration
	ehloName    string
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures a Prober.
type Option func(*Prober)

// WithTimeout bounds each probe, connection through handshake.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithEHLOName sets the name announced in EHLO.
func WithEHLOName(name string) Option {
	return func(p *Prober) {
		if name != "" {
			p.ehloName = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Prober) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProber returns a prober with a 10s timeout.
func NewProber(opts ...Option) *Prober {
	p := &Prober{
		timeout:     10 * time.Second,
		ehloName:    "domaincheck.localhost",
		concurrency: 4,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProbeDomain probes SMTP on port 25 of every MX host. Results keep the
// order of mxHosts.
func (p *Prober) ProbeDomain(ctx context.Context, mxHosts []string) []Result {
	results := make([]Result, len(mxHosts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	var mu sync.Mutex
	for i, host := range mxHosts {
		g.Go(func() error {
			r := p.Probe(ctx, Probe{Host: strings.TrimSuffix(host, "."), Port: 25, Protocol: ProtocolSMTP})
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Probe connects to the service, negotiates TLS and inspects the session.
// Failures are reported in Result.Error.
func (p *Prober) Probe(ctx context.Context, probe Probe) Result {
	if probe.Protocol == "" {
		probe.Protocol, _ = ProtocolForPort(probe.Port)
	}
	res := Result{Host: probe.Host, Port: probe.Port, Protocol: probe.Protocol}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(probe.Host, strconv.Itoa(probe.Port)))
	if err != nil {
		res.Error = err.Error()
		p.logger.Debug("mailtls_dial_failed", zap.String("host", probe.Host), zap.Int("port", probe.Port), zap.Error(err))
		return res
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := p.negotiate(conn, probe.Protocol, &res); err != nil {
		res.Error = err.Error()
		if errors.Is(err, errNoStartTLS) {
			res.Issues = append(res.Issues, "Server does not offer STARTTLS; mail is delivered in cleartext")
		}
		return res
	}

	tlsConn := tls.Client(conn, &tls.Config{
		ServerName: probe.Host,
		// the certificate is verified by hand so a broken chain is still reported
		InsecureSkipVerify: true, //nolint:gosec
		MinVersion:         tls.VersionTLS10,
	})
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		res.Error = fmt.Sprintf("tls handshake: %v", err)
		return res
	}
	state := tlsConn.ConnectionState()
	analysis := analyzeAt(&state, probe.Host, p.now())
	res.TLSVersion = analysis.TLSVersion
	res.CipherSuite = analysis.CipherSuite
	res.Certificate = analysis.Certificate
	res.Issues = append(res.Issues, analysis.Issues...)

	p.logger.Debug("mailtls_probed",
		zap.String("host", probe.Host),
		zap.Int("port", probe.Port),
		zap.String("tls_version", res.TLSVersion))
	return res
}

// negotiate runs the plaintext part of the protocol up to the point where
// the TLS handshake starts.
func (p *Prober) negotiate(conn net.Conn, protocol string, res *Result) error {
	switch protocol {
	case ProtocolSMTPS, ProtocolIMAPS, ProtocolPOP3S:
		return nil
	}
	r := bufio.NewReader(conn)

	switch protocol {
	case ProtocolSMTP:
		code, lines, err := readSMTPReply(r)
		if err != nil {
			return fmt.Errorf("read greeting: %w", err)
		}
		res.Banner = capBanner(strings.Join(lines, "\n"))
		if code != 220 {
			return fmt.Errorf("unexpected greeting %d", code)
		}
		if err := writeLine(conn, "EHLO "+p.ehloName); err != nil {
			return err
		}
		code, lines, err = readSMTPReply(r)
		if err != nil || code != 250 {
			return fmt.Errorf("EHLO rejected (%d): %v", code, err)
		}
		if !hasExtension(lines, "STARTTLS") {
			return errNoStartTLS
		}
		if err := writeLine(conn, "STARTTLS"); err != nil {
			return err
		}
		if code, _, err = readSMTPReply(r); err != nil || code != 220 {
			return fmt.Errorf("STARTTLS refused (%d): %v", code, err)
		}

	case ProtocolIMAP:
		greeting, err := readLine(r)
		if err != nil {
			return fmt.Errorf("read greeting: %w", err)
		}
		res.Banner = capBanner(greeting)
		if !strings.HasPrefix(greeting, "* OK") {
			return fmt.Errorf("unexpected greeting %q", greeting)
		}
		if err := writeLine(conn, "a1 STARTTLS"); err != nil {
			return err
		}
		for {
			line, err := readLine(r)
			if err != nil {
				return fmt.Errorf("read STARTTLS reply: %w", err)
			}
			if !strings.HasPrefix(line, "a1 ") {
				continue
			}
			if !strings.HasPrefix(line, "a1 OK") {
				return errNoStartTLS
			}
			break
		}

	case ProtocolPOP3:
		greeting, err := readLine(r)
		if err != nil {
			return fmt.Errorf("read greeting: %w", err)
		}
		res.Banner = capBanner(greeting)
		if !strings.HasPrefix(greeting, "+OK") {
			return fmt.Errorf("unexpected greeting %q", greeting)
		}
		if err := writeLine(conn, "STLS"); err != nil {
			return err
		}
		line, err := readLine(r)
		if err != nil {
			return fmt.Errorf("read STLS reply: %w", err)
		}
		if !strings.HasPrefix(line, "+OK") {
			return errNoStartTLS
		}

	default:
		return fmt.Errorf("unsupported protocol %q", protocol)
	}

	res.StartTLS = true
	return nil
}

// readSMTPReply reads a possibly multi-line reply ("250-..." lines ending
// with "250 ...").
func readSMTPReply(r *bufio.Reader) (int, []string, error) {
	var lines []string
	for {
		line, err := readLine(r)
		if err != nil {
			return 0, lines, err
		}
		if len(line) < 3 {
			return 0, lines, fmt.Errorf("short reply %q", line)
		}
		code, err := strconv.Atoi(line[:3])
		if err != nil {
			return 0, lines, fmt.Errorf("malformed reply %q", line)
		}
		lines = append(lines, line)
		if len(line) == 3 || line[3] != '-' {
			return code, lines, nil
		}
	}
}

func hasExtension(lines []string, ext string) bool {
	for _, l := range lines {
		if len(l) <= 4 {
			continue
		}
		if fields := strings.Fields(l[4:]); len(fields) > 0 && strings.EqualFold(fields[0], ext) {
			return true
		}
	}
	return false
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func writeLine(conn net.Conn, line string) error {
	_, err := conn.Write([]byte(line + "\r\n"))
	return err
}

func capBanner(s string) string {
	if len(s) > constants.BannerLimitBytes {
		s = s[:constants.BannerLimitBytes]
	}
	return strings.TrimSpace(s)
}
