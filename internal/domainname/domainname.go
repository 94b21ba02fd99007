// Package domainname normalizes user-supplied domain names: IDN conversion,
// registrable-domain extraction and label walking.
package domainname

import (
	"fmt"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	sharedErrors "github.com/khanhnv2901/domaincheck/internal/shared/errors"
)

const maxNameLength = 253

// Normalize returns the lower-case ASCII (punycode) form of domain with the
// trailing dot removed. Scheme, path and port are stripped if present.
func Normalize(domain string) (string, error) {
	name := strings.TrimSpace(domain)
	if i := strings.Index(name, "://"); i >= 0 {
		name = name[i+3:]
	}
	if i := strings.IndexAny(name, "/?#"); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, ":"); i >= 0 && !strings.Contains(name[:i], ":") {
		name = name[:i]
	}
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return "", sharedErrors.ErrEmptyTarget
	}

	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", sharedErrors.ErrInvalidDomain, domain, err)
	}
	ascii = strings.ToLower(ascii)
	if len(ascii) > maxNameLength {
		return "", fmt.Errorf("%w: %q exceeds %d characters", sharedErrors.ErrInvalidDomain, domain, maxNameLength)
	}
	for _, label := range strings.Split(ascii, ".") {
		if label == "" || len(label) > 63 {
			return "", fmt.Errorf("%w: %q has an empty or oversized label", sharedErrors.ErrInvalidDomain, domain)
		}
	}
	return ascii, nil
}

// ToUnicode converts an ASCII domain to its Unicode display form. Names that
// cannot be converted are returned unchanged.
func ToUnicode(domain string) string {
	if domain == "" {
		return domain
	}
	trailingDot := strings.HasSuffix(domain, ".")
	u, err := idna.Display.ToUnicode(strings.TrimSuffix(domain, "."))
	if err != nil {
		return domain
	}
	if trailingDot {
		u += "."
	}
	return u
}

// PublicSuffix returns the public suffix of domain, e.g. "co.uk".
func PublicSuffix(domain string) string {
	suffix, _ := publicsuffix.PublicSuffix(domain)
	return suffix
}

// Registrable returns the eTLD+1 of domain. A name that is itself a public
// suffix is returned unchanged.
func Registrable(domain string) string {
	reg, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return domain
	}
	return reg
}

// Parent strips the leftmost label. The parent of a single-label name is "".
func Parent(domain string) string {
	if i := strings.IndexByte(domain, '.'); i >= 0 {
		return domain[i+1:]
	}
	return ""
}

// LastLabel returns the rightmost label (the TLD).
func LastLabel(domain string) string {
	domain = strings.TrimSuffix(domain, ".")
	if i := strings.LastIndexByte(domain, '.'); i >= 0 {
		return domain[i+1:]
	}
	return domain
}
