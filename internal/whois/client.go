package whois

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/khanhnv2901/domaincheck/internal/domainname"
	"github.com/khanhnv2901/domaincheck/internal/shared/constants"
)

const denicServer = "whois.denic.de"

// Client queries WHOIS servers over TCP.
type Client struct {
	registry    *Registry
	timeout     time.Duration
	maxBytes    int64
	warningDays int
	ianaServer  Server
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithRegistry sets the server registry.
func WithRegistry(r *Registry) Option {
	return func(c *Client) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithTimeout bounds each query, dial through last byte read.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithExpiryWarningDays sets the ExpiresSoon threshold.
func WithExpiryWarningDays(days int) Option {
	return func(c *Client) {
		if days > 0 {
			c.warningDays = days
		}
	}
}

// WithMaxResponseBytes caps how much of a response is read.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// WithIANAServer overrides the server used to find IP registries.
func WithIANAServer(s Server) Option {
	return func(c *Client) {
		if s.Host != "" {
			c.ianaServer = s
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a client using the built-in server table unless
// WithRegistry is given.
func NewClient(opts ...Option) *Client {
	c := &Client{
		registry:    NewRegistry(nil),
		timeout:     10 * time.Second,
		maxBytes:    constants.WhoisMaxResponseBytes,
		warningDays: constants.WhoisExpiryWarningDays,
		ianaServer:  Server{Host: "whois.iana.org", Port: constants.WhoisPort},
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the client's server registry.
func (c *Client) Registry() *Registry {
	return c.registry
}

// Query looks up domain at its registry. Only an invalid domain or an
// unsupported TLD is an error; network failures are logged and yield an
// Analysis with just the domain, TLD and server filled in.
func (c *Client) Query(ctx context.Context, domain string) (*Analysis, error) {
	name, err := domainname.Normalize(domain)
	if err != nil {
		return nil, err
	}
	registrable := domainname.Registrable(name)

	server, tld, err := c.registry.Lookup(registrable)
	if err != nil {
		c.logger.Debug("whois_unsupported_tld", zap.String("domain", registrable), zap.Error(err))
		return nil, err
	}

	a := &Analysis{
		DomainName:        registrable,
		Tld:               tld,
		WhoisServer:       server.String(),
		ExpiryWarningDays: c.warningDays,
	}

	raw, err := c.fetch(ctx, server, queryLine(server, registrable))
	if err != nil {
		c.logger.Warn("whois_query_failed",
			zap.String("domain", registrable),
			zap.String("server", server.String()),
			zap.Error(err),
		)
		return a, nil
	}

	parseInto(a, registrable, decodeResponse(raw), c.now())
	c.logger.Debug("whois_parsed",
		zap.String("domain", registrable),
		zap.String("tld", tld),
		zap.String("registrar", a.Registrar),
		zap.Bool("expires_soon", a.ExpiresSoon),
	)
	return a, nil
}

func queryLine(server Server, domain string) string {
	if server.Host == denicServer {
		return "-T dn,ace " + domain
	}
	return domain
}

// fetch sends query and reads the response until the server closes the
// connection or maxBytes is reached.
func (c *Client) fetch(ctx context.Context, server Server, query string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", server.String())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", server, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := io.WriteString(conn, query+"\r\n"); err != nil {
		return nil, fmt.Errorf("write query to %s: %w", server, err)
	}

	data, err := io.ReadAll(io.LimitReader(conn, c.maxBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("read from %s: %w", server, ctxErr)
		}
		return nil, fmt.Errorf("read from %s: %w", server, err)
	}
	return data, nil
}

// decodeResponse returns raw as UTF-8 text. Responses that are not valid
// UTF-8, or that already carry replacement characters, are decoded as
// ISO-8859-1 instead.
func decodeResponse(raw []byte) string {
	if utf8.Valid(raw) && !bytes.ContainsRune(raw, utf8.RuneError) {
		return string(raw)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "�")
	}
	return string(decoded)
}
