package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/khanhnv2901/domaincheck/internal/dnsclient"
)

// TakeoverCheck is the dangling-CNAME verdict for one host.
type TakeoverCheck struct {
	Host           string   `json:"host"`
	Vulnerable     bool     `json:"vulnerable"`
	CNAME          string   `json:"cname,omitempty"`
	Provider       string   `json:"provider,omitempty"`
	Fingerprint    string   `json:"fingerprint,omitempty"`
	Confidence     string   `json:"confidence"`
	ResolvedIPs    []string `json:"resolved_ips,omitempty"`
	HTTPStatusCode int      `json:"http_status_code,omitempty"`
	ErrorMessage   string   `json:"error_message,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
}

// Clone returns a deep copy of c.
func (c *TakeoverCheck) Clone() *TakeoverCheck {
	if c == nil {
		return nil
	}
	cp := *c
	cp.ResolvedIPs = append([]string(nil), c.ResolvedIPs...)
	return &cp
}

const unknownProvider = "Unknown"

// maxFingerprintBody is how much of the landing page is matched.
const maxFingerprintBody = 8 << 10

var takeoverFingerprints = map[string][]string{
	"GitHub Pages":  {"There isn't a GitHub Pages site here"},
	"AWS S3":        {"NoSuchBucket", "The specified bucket does not exist"},
	"Heroku":        {"No such app", "herokucdn.com/error-pages/no-such-app.html"},
	"Azure":         {"404 Web Site not found", "Error 404 - Web app not found"},
	"Shopify":       {"Sorry, this shop is currently unavailable"},
	"Tumblr":        {"Whatever you were looking for doesn't currently exist at this address"},
	"Ghost":         {"The thing you were looking for is no longer here"},
	"Bitbucket":     {"Repository not found"},
	"Fastly":        {"Fastly error: unknown domain"},
	"Pantheon":      {"404 error unknown site!"},
	"Zendesk":       {"Help Center Closed"},
	"UserVoice":     {"This UserVoice subdomain is currently available"},
	"Surge.sh":      {"project not found"},
	"Intercom":      {"Uh oh. That page doesn't exist"},
	"Readme.io":     {"Project doesnt exist... yet!"},
	"Netlify":       {"Not Found - Request ID"},
	"WordPress.com": {"Do you want to register"},
}

var providerPatterns = map[string][]string{
	"GitHub Pages":          {"github.io", "githubusercontent.com"},
	"AWS S3":                {".s3.amazonaws.com", ".s3-website"},
	"AWS CloudFront":        {"cloudfront.net"},
	"AWS Elastic Beanstalk": {"elasticbeanstalk.com"},
	"Heroku":                {"herokuapp.com", "herokussl.com"},
	"Azure":                 {"azurewebsites.net", "cloudapp.azure.com", "trafficmanager.net"},
	"Shopify":               {"myshopify.com"},
	"Tumblr":                {"tumblr.com"},
	"WordPress.com":         {"wordpress.com"},
	"Ghost":                 {"ghost.io"},
	"Bitbucket":             {"bitbucket.io"},
	"Fastly":                {"fastly.net"},
	"Pantheon":              {"pantheonsite.io"},
	"Zendesk":               {"zendesk.com"},
	"UserVoice":             {"uservoice.com"},
	"Surge.sh":              {"surge.sh"},
	"Intercom":              {"intercom.io", "intercomcdn.com"},
	"Readme.io":             {"readme.io"},
	"Netlify":               {"netlify.app", "netlify.com"},
	"Vercel":                {"vercel.app", "vercel-dns.com"},
	"DigitalOcean Spaces":   {"digitaloceanspaces.com"},
}

// TakeoverDetector looks for CNAMEs pointing at unclaimed resources.
type TakeoverDetector struct {
	resolver dnsclient.Resolver
	client   *http.Client
	schemes  []string
	logger   *zap.Logger
}

// NewTakeoverDetector builds a detector that resolves through resolver and
// fetches landing pages with timeout.
func NewTakeoverDetector(resolver dnsclient.Resolver, timeout time.Duration, logger *zap.Logger) *TakeoverDetector {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TakeoverDetector{
		resolver: resolver,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		schemes: []string{"https", "http"},
		logger:  logger,
	}
}

// Check inspects host's CNAME. A target that no longer resolves, or a
// landing page carrying a provider's "unclaimed" fingerprint, marks the
// host vulnerable.
func (d *TakeoverDetector) Check(ctx context.Context, host string) *TakeoverCheck {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	check := &TakeoverCheck{Host: host, Confidence: "low"}

	resp, err := d.resolver.Query(ctx, host, dns.TypeCNAME)
	if err != nil {
		check.ErrorMessage = fmt.Sprintf("CNAME lookup failed: %v", err)
		d.logger.Debug("takeover_cname_failed", zap.String("host", host), zap.Error(err))
		return check
	}
	targets := resp.Data(dns.TypeCNAME)
	if len(targets) == 0 {
		return check
	}
	cname := strings.TrimSuffix(strings.ToLower(targets[0]), ".")
	if cname == "" || cname == host {
		return check
	}
	check.CNAME = cname
	check.Provider = DetectProvider(cname)

	ips, resolved := d.resolve(ctx, cname)
	if !resolved {
		check.Vulnerable = true
		check.Confidence = "medium"
		if check.Provider != unknownProvider {
			check.Confidence = "high"
		}
		check.Fingerprint = "CNAME exists but target does not resolve"
		check.ErrorMessage = fmt.Sprintf("CNAME target %s does not resolve", cname)
		check.Recommendation = fmt.Sprintf(
			"%s has a CNAME to %s which does not resolve. Verify that the %s resource exists or remove the record.",
			host, cname, check.Provider)
		d.logger.Warn("dangling_cname", zap.String("host", host), zap.String("cname", cname))
		return check
	}
	check.ResolvedIPs = ips

	d.matchFingerprint(ctx, check)
	return check
}

func (d *TakeoverDetector) resolve(ctx context.Context, name string) ([]string, bool) {
	var ips []string
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		resp, err := d.resolver.Query(ctx, name, qtype)
		if err != nil {
			continue
		}
		ips = append(ips, resp.Data(qtype)...)
	}
	return ips, len(ips) > 0
}

func (d *TakeoverDetector) matchFingerprint(ctx context.Context, check *TakeoverCheck) {
	for _, scheme := range d.schemes {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, scheme+"://"+check.Host, nil)
		if err != nil {
			continue
		}
		resp, err := d.client.Do(req)
		if err != nil {
			continue
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxFingerprintBody))
		_ = resp.Body.Close()

		check.HTTPStatusCode = resp.StatusCode
		if provider, pattern, ok := findFingerprint(string(body), resp.Header.Get("Server")); ok {
			check.Vulnerable = true
			check.Confidence = "high"
			check.Provider = provider
			check.Fingerprint = pattern
			check.Recommendation = fmt.Sprintf(
				"%s shows signs of being claimable on %s (%q). Verify ownership of the resource or remove the DNS record.",
				check.Host, provider, pattern)
		}
		// one answered scheme is enough
		return
	}
}

func findFingerprint(body, server string) (provider, pattern string, ok bool) {
	for p, patterns := range takeoverFingerprints {
		for _, pat := range patterns {
			if strings.Contains(body, pat) || strings.Contains(server, pat) {
				return p, pat, true
			}
		}
	}
	return "", "", false
}

// DetectProvider names the hosting provider a CNAME target belongs to, or
// "Unknown".
func DetectProvider(cname string) string {
	cname = strings.ToLower(cname)
	for provider, patterns := range providerPatterns {
		for _, pattern := range patterns {
			if strings.Contains(cname, pattern) {
				return provider
			}
		}
	}
	return unknownProvider
}
