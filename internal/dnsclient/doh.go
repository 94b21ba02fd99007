package dnsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/khanhnv2901/domaincheck/internal/shared/constants"
)

const (
	defaultDoHTimeout   = 5 * time.Second
	defaultCacheSize    = 1024
	defaultNegativeTTL  = 60 * time.Second
	maxDoHResponseBytes = 1 << 20
)

// DoHClient queries a JSON DNS-over-HTTPS endpoint (Google's /resolve dialect,
// also served by Cloudflare) and caches answers for their TTL.
type DoHClient struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	cacheSize  int
	cache      *lru.Cache
	group      singleflight.Group
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a DoHClient.
type Option func(*DoHClient)

// WithEndpoint overrides the DoH JSON endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *DoHClient) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets the HTTP client used for queries.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *DoHClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-query timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *DoHClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCacheSize sets how many name/type pairs are cached. Zero disables caching.
func WithCacheSize(n int) Option {
	return func(c *DoHClient) {
		c.cacheSize = n
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *DoHClient) {
		if l != nil {
			c.logger = l
		}
	}
}

type cacheEntry struct {
	resp    *Response
	expires time.Time
}

// dohResponse mirrors the application/dns-json schema.
type dohResponse struct {
	Status int  `json:"Status"`
	TC     bool `json:"TC"`
	AD     bool `json:"AD"`
	CD     bool `json:"CD"`
	Answer []struct {
		Name string `json:"name"`
		Type uint16 `json:"type"`
		TTL  uint32 `json:"TTL"`
		Data string `json:"data"`
	} `json:"Answer"`
}

// NewDoHClient builds a client with the given options.
func NewDoHClient(opts ...Option) (*DoHClient, error) {
	c := &DoHClient{
		endpoint:  constants.DefaultDoHEndpoint,
		timeout:   defaultDoHTimeout,
		cacheSize: defaultCacheSize,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	if c.cacheSize > 0 {
		cache, err := lru.New(c.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create DoH cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Endpoint returns the configured endpoint URL.
func (c *DoHClient) Endpoint() string {
	return c.endpoint
}

// Query resolves name/qtype. DNS-level failures such as NXDOMAIN come back as
// a Response with a non-zero Status; only transport failures return an error.
func (c *DoHClient) Query(ctx context.Context, name string, qtype uint16) (*Response, error) {
	name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
	if name == "" {
		name = "."
	}
	key := name + "/" + TypeName(qtype)

	if resp, ok := c.cached(key); ok {
		return resp, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		resp, err := c.fetch(ctx, name, qtype)
		if err != nil {
			return nil, err
		}
		c.store(key, resp)
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Response).clone(), nil
}

func (c *DoHClient) fetch(ctx context.Context, name string, qtype uint16) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("name", name)
	params.Set("type", TypeName(qtype))
	params.Set("do", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build DoH request: %w", err)
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("DoH query %s %s: %w", name, TypeName(qtype), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DoH query %s %s: unexpected HTTP status %d", name, TypeName(qtype), resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDoHResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read DoH response: %w", err)
	}

	parsed, err := parseDoHResponse(body)
	if err != nil {
		return nil, fmt.Errorf("DoH query %s %s: %w", name, TypeName(qtype), err)
	}

	c.logger.Debug("doh_query",
		zap.String("name", name),
		zap.String("type", TypeName(qtype)),
		zap.Int("status", parsed.Status),
		zap.Bool("ad", parsed.AuthenticData),
		zap.Int("answers", len(parsed.Answers)),
	)
	return parsed, nil
}

func parseDoHResponse(body []byte) (*Response, error) {
	var raw dohResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode DoH JSON: %w", err)
	}
	resp := &Response{
		Status:        raw.Status,
		AuthenticData: raw.AD,
		Answers:       make([]Answer, 0, len(raw.Answer)),
	}
	for _, a := range raw.Answer {
		resp.Answers = append(resp.Answers, Answer{
			Name: strings.TrimSuffix(a.Name, "."),
			Type: a.Type,
			TTL:  a.TTL,
			Data: strings.TrimSpace(a.Data),
		})
	}
	return resp, nil
}

func (c *DoHClient) cached(key string) (*Response, bool) {
	if c.cache == nil {
		return nil, false
	}
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	entry := v.(cacheEntry)
	if c.now().After(entry.expires) {
		c.cache.Remove(key)
		return nil, false
	}
	return entry.resp.clone(), true
}

func (c *DoHClient) store(key string, resp *Response) {
	if c.cache == nil {
		return
	}
	ttl := defaultNegativeTTL
	if len(resp.Answers) > 0 {
		minTTL := resp.Answers[0].TTL
		for _, a := range resp.Answers[1:] {
			if a.TTL < minTTL {
				minTTL = a.TTL
			}
		}
		ttl = time.Duration(minTTL) * time.Second
	}
	if ttl <= 0 {
		return
	}
	c.cache.Add(key, cacheEntry{resp: resp.clone(), expires: c.now().Add(ttl)})
}
