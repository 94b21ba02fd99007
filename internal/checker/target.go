package checker

import (
	"net/url"
	"strings"

	"github.com/khanhnv2901/domaincheck/internal/domainname"
)

// TargetInfo contains parsed target information
type TargetInfo struct {
	Original string // Original target string
	Scheme   string // Scheme if one was given
	Host     string // Hostname (without protocol, path, port)
	Port     string // Port if specified
	Path     string // Path if specified
}

// ParseTarget parses a target string into structured components.
// This handles various input formats:
//   - example.com
//   - https://example.com:443/path
//   - example.com:8080
func ParseTarget(target string) *TargetInfo {
	target = strings.TrimSpace(target)
	info := &TargetInfo{Original: target}

	parsed, err := url.Parse(target)
	// "example.com:8080" parses with scheme "example.com"
	if err != nil || parsed.Scheme == "" || strings.Contains(parsed.Scheme, ".") || parsed.Host == "" {
		parsed, err = url.Parse("//" + target)
	} else {
		info.Scheme = parsed.Scheme
	}

	if err == nil && parsed != nil {
		info.Host = parsed.Hostname()
		info.Port = parsed.Port()
		info.Path = parsed.Path
	}

	// Fallback for input url.Parse rejects
	if info.Host == "" {
		host := target
		if i := strings.Index(host, "://"); i >= 0 {
			host = host[i+3:]
		}
		if i := strings.IndexAny(host, "/?#"); i >= 0 {
			info.Path = host[i:]
			host = host[:i]
		}
		if h, p, ok := strings.Cut(host, ":"); ok {
			host = h
			info.Port = p
		}
		info.Host = host
	}

	return info
}

// ExtractHost extracts just the hostname from a target.
func ExtractHost(target string) string {
	return ParseTarget(target).Host
}

// NormalizeDomain reduces a target (bare name, URL or host:port) to the
// lower-case ASCII domain the checks run against.
func NormalizeDomain(target string) (string, error) {
	return domainname.Normalize(ExtractHost(target))
}
