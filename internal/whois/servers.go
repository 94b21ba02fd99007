package whois

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/khanhnv2901/domaincheck/internal/domainname"
	"github.com/khanhnv2901/domaincheck/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/domaincheck/internal/shared/errors"
)

// ErrUnsupportedTLD is returned when no WHOIS server is known for a TLD.
var ErrUnsupportedTLD = sharedErrors.ErrUnsupportedTLD

// defaultServers maps a public suffix or TLD to its WHOIS server. Entries may
// carry a port as "host:port". The map is never written after init.
var defaultServers = map[string]string{
	"com":    "whois.verisign-grs.com",
	"net":    "whois.verisign-grs.com",
	"org":    "whois.pir.org",
	"info":   "whois.nic.info",
	"biz":    "whois.nic.biz",
	"name":   "whois.nic.name",
	"mobi":   "whois.nic.mobi",
	"pro":    "whois.nic.pro",
	"io":     "whois.nic.io",
	"co":     "whois.nic.co",
	"me":     "whois.nic.me",
	"tv":     "whois.nic.tv",
	"cc":     "ccwhois.verisign-grs.com",
	"dev":    "whois.nic.google",
	"app":    "whois.nic.google",
	"xyz":    "whois.nic.xyz",
	"tech":   "whois.nic.tech",
	"site":   "whois.nic.site",
	"store":  "whois.nic.store",
	"online": "whois.nic.online",
	"cloud":  "whois.nic.cloud",
	"live":   "whois.nic.live",
	"space":  "whois.nic.space",
	"top":    "whois.nic.top",
	"us":     "whois.nic.us",
	"ca":     "whois.cira.ca",
	"uk":     "whois.nic.uk",
	"co.uk":  "whois.nic.uk",
	"org.uk": "whois.nic.uk",
	"de":     "whois.denic.de",
	"fr":     "whois.nic.fr",
	"nl":     "whois.domain-registry.nl",
	"be":     "whois.dns.be",
	"eu":     "whois.eu",
	"it":     "whois.nic.it",
	"ch":     "whois.nic.ch",
	"at":     "whois.nic.at",
	"se":     "whois.iis.se",
	"nu":     "whois.iis.nu",
	"dk":     "whois.punktum.dk",
	"fi":     "whois.fi",
	"no":     "whois.norid.no",
	"pl":     "whois.dns.pl",
	"cz":     "whois.nic.cz",
	"sk":     "whois.sk-nic.sk",
	"ru":     "whois.tcinet.ru",
	"au":     "whois.auda.org.au",
	"com.au": "whois.auda.org.au",
	"nz":     "whois.irs.net.nz",
	"jp":     "whois.jprs.jp",
	"in":     "whois.registry.in",
	"br":     "whois.registro.br",
}

// Server is a WHOIS endpoint.
type Server struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (s Server) String() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ParseServer parses "host" or "host:port". The default port is 43.
func ParseServer(value string) (Server, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Server{}, errors.New("empty WHOIS server")
	}
	host, portStr, err := net.SplitHostPort(value)
	if err != nil {
		// no port component
		return Server{Host: strings.ToLower(value), Port: constants.WhoisPort}, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Server{}, fmt.Errorf("invalid WHOIS server port in %q", value)
	}
	return Server{Host: strings.ToLower(host), Port: port}, nil
}

// Registry resolves WHOIS servers. Lookups read the built-in table plus any
// overrides registered at runtime.
type Registry struct {
	mu        sync.RWMutex
	overrides map[string]string
}

// NewRegistry returns a registry with the given overrides (TLD to server).
func NewRegistry(overrides map[string]string) *Registry {
	r := &Registry{overrides: make(map[string]string, len(overrides))}
	for tld, server := range overrides {
		r.overrides[normalizeTLD(tld)] = server
	}
	return r
}

// Register adds or replaces the server for tld.
func (r *Registry) Register(tld, server string) error {
	if _, err := ParseServer(server); err != nil {
		return err
	}
	r.mu.Lock()
	r.overrides[normalizeTLD(tld)] = server
	r.mu.Unlock()
	return nil
}

// Lookup returns the server for domain and the table key that matched it.
// The public suffix is tried first ("co.uk"), then the last label ("uk").
func (r *Registry) Lookup(domain string) (Server, string, error) {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	candidates := []string{domainname.PublicSuffix(domain), domainname.LastLabel(domain)}

	for _, key := range candidates {
		if key == "" {
			continue
		}
		if value, ok := r.server(key); ok {
			srv, err := ParseServer(value)
			if err != nil {
				return Server{}, "", err
			}
			return srv, key, nil
		}
	}
	return Server{}, "", fmt.Errorf("%w: %s", ErrUnsupportedTLD, domainname.LastLabel(domain))
}

// TLDs lists every TLD the registry can resolve, sorted.
func (r *Registry) TLDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(defaultServers)+len(r.overrides))
	for tld := range defaultServers {
		seen[tld] = true
	}
	for tld := range r.overrides {
		seen[tld] = true
	}
	out := make([]string, 0, len(seen))
	for tld := range seen {
		out = append(out, tld)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) server(key string) (string, bool) {
	r.mu.RLock()
	value, ok := r.overrides[key]
	r.mu.RUnlock()
	if ok {
		return value, true
	}
	value, ok = defaultServers[key]
	return value, ok
}

func normalizeTLD(tld string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(tld), "."))
}
