// Package dnsrecords collects a domain's DNS record inventory, checks
// resolver propagation and probes nameservers for open zone transfers.
package dnsrecords

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/khanhnv2901/domaincheck/internal/dnsclient"
)

// MXRecord is one mail exchanger.
type MXRecord struct {
	Preference uint16 `json:"preference"`
	Host       string `json:"host"`
}

// SOARecord holds the zone's start-of-authority timers.
type SOARecord struct {
	PrimaryNS string `json:"primary_ns"`
	Mailbox   string `json:"mailbox"`
	Serial    uint32 `json:"serial"`
	Refresh   uint32 `json:"refresh"`
	Retry     uint32 `json:"retry"`
	Expire    uint32 `json:"expire"`
	MinTTL    uint32 `json:"min_ttl"`
}

// CAARecord restricts which CAs may issue for the domain.
type CAARecord struct {
	Flag  uint8  `json:"flag"`
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

// TLSARecord is a DANE association published for an MX host.
type TLSARecord struct {
	Host         string `json:"host"`
	Usage        uint8  `json:"usage"`
	Selector     uint8  `json:"selector"`
	MatchingType uint8  `json:"matching_type"`
	Certificate  string `json:"certificate"`
}

// Inventory is every record the collector found for a domain.
type Inventory struct {
	Domain string       `json:"domain"`
	A      []string     `json:"a,omitempty"`
	AAAA   []string     `json:"aaaa,omitempty"`
	CNAME  string       `json:"cname,omitempty"`
	MX     []MXRecord   `json:"mx,omitempty"`
	NS     []string     `json:"ns,omitempty"`
	SOA    *SOARecord   `json:"soa,omitempty"`
	TXT    []string     `json:"txt,omitempty"`
	CAA    []CAARecord  `json:"caa,omitempty"`
	TLSA   []TLSARecord `json:"tlsa,omitempty"`
	PTR    []string     `json:"ptr,omitempty"`
	SPF    string       `json:"spf,omitempty"`
	DMARC  string       `json:"dmarc,omitempty"`
	Issues []string     `json:"issues,omitempty"`
	// Errors maps a record type to the lookup failure for it.
	Errors map[string]string `json:"errors,omitempty"`
}

// MXHosts returns the exchanger host names in preference order.
func (inv *Inventory) MXHosts() []string {
	if inv == nil {
		return nil
	}
	out := make([]string, 0, len(inv.MX))
	for _, mx := range inv.MX {
		out = append(out, mx.Host)
	}
	return out
}

// Clone returns a deep copy of inv.
func (inv *Inventory) Clone() *Inventory {
	if inv == nil {
		return nil
	}
	cp := *inv
	cp.A = append([]string(nil), inv.A...)
	cp.AAAA = append([]string(nil), inv.AAAA...)
	cp.MX = append([]MXRecord(nil), inv.MX...)
	cp.NS = append([]string(nil), inv.NS...)
	cp.TXT = append([]string(nil), inv.TXT...)
	cp.CAA = append([]CAARecord(nil), inv.CAA...)
	cp.TLSA = append([]TLSARecord(nil), inv.TLSA...)
	cp.PTR = append([]string(nil), inv.PTR...)
	cp.Issues = append([]string(nil), inv.Issues...)
	if inv.SOA != nil {
		soa := *inv.SOA
		cp.SOA = &soa
	}
	if inv.Errors != nil {
		cp.Errors = make(map[string]string, len(inv.Errors))
		for k, v := range inv.Errors {
			cp.Errors[k] = v
		}
	}
	return &cp
}

// Collector gathers the record inventory through a resolver.
type Collector struct {
	resolver dnsclient.Resolver
	logger   *zap.Logger
}

// NewCollector returns a collector querying through resolver.
func NewCollector(resolver dnsclient.Resolver, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{resolver: resolver, logger: logger}
}

// Collect queries every supported record type for domain. Lookup failures
// are recorded in Inventory.Errors and never abort the collection.
func (c *Collector) Collect(ctx context.Context, domain string) *Inventory {
	inv := &Inventory{Domain: domain}

	query := func(name string, qtype uint16) *dnsclient.Response {
		resp, err := c.resolver.Query(ctx, name, qtype)
		if err != nil {
			if inv.Errors == nil {
				inv.Errors = make(map[string]string)
			}
			inv.Errors[dnsclient.TypeName(qtype)] = err.Error()
			c.logger.Debug("record_lookup_failed",
				zap.String("domain", name),
				zap.String("type", dnsclient.TypeName(qtype)),
				zap.Error(err))
			return nil
		}
		return resp
	}

	inv.A = query(domain, dns.TypeA).Data(dns.TypeA)
	inv.AAAA = query(domain, dns.TypeAAAA).Data(dns.TypeAAAA)
	if cn := query(domain, dns.TypeCNAME).Data(dns.TypeCNAME); len(cn) > 0 {
		inv.CNAME = strings.TrimSuffix(cn[0], ".")
	}
	for _, ns := range query(domain, dns.TypeNS).Data(dns.TypeNS) {
		inv.NS = append(inv.NS, strings.TrimSuffix(ns, "."))
	}
	sort.Strings(inv.NS)

	for _, a := range query(domain, dns.TypeMX).Of(dns.TypeMX) {
		if rr, ok := parseRR(a).(*dns.MX); ok {
			inv.MX = append(inv.MX, MXRecord{Preference: rr.Preference, Host: strings.TrimSuffix(rr.Mx, ".")})
		}
	}
	sort.SliceStable(inv.MX, func(i, j int) bool { return inv.MX[i].Preference < inv.MX[j].Preference })

	for _, a := range query(domain, dns.TypeSOA).Of(dns.TypeSOA) {
		if rr, ok := parseRR(a).(*dns.SOA); ok {
			inv.SOA = &SOARecord{
				PrimaryNS: strings.TrimSuffix(rr.Ns, "."),
				Mailbox:   strings.TrimSuffix(rr.Mbox, "."),
				Serial:    rr.Serial,
				Refresh:   rr.Refresh,
				Retry:     rr.Retry,
				Expire:    rr.Expire,
				MinTTL:    rr.Minttl,
			}
			break
		}
	}

	for _, txt := range query(domain, dns.TypeTXT).Data(dns.TypeTXT) {
		inv.TXT = append(inv.TXT, dnsclient.TrimTXT(txt))
	}

	for _, a := range query(domain, dns.TypeCAA).Of(dns.TypeCAA) {
		if rr, ok := parseRR(a).(*dns.CAA); ok {
			inv.CAA = append(inv.CAA, CAARecord{Flag: rr.Flag, Tag: rr.Tag, Value: rr.Value})
		}
	}

	for _, mx := range inv.MX {
		name := "_25._tcp." + mx.Host
		for _, a := range query(name, dns.TypeTLSA).Of(dns.TypeTLSA) {
			if rr, ok := parseRR(a).(*dns.TLSA); ok {
				inv.TLSA = append(inv.TLSA, TLSARecord{
					Host:         mx.Host,
					Usage:        rr.Usage,
					Selector:     rr.Selector,
					MatchingType: rr.MatchingType,
					Certificate:  rr.Certificate,
				})
			}
		}
	}

	if len(inv.A) > 0 {
		if rev, err := dns.ReverseAddr(inv.A[0]); err == nil {
			for _, ptr := range query(strings.TrimSuffix(rev, "."), dns.TypePTR).Data(dns.TypePTR) {
				inv.PTR = append(inv.PTR, strings.TrimSuffix(ptr, "."))
			}
		}
	}

	var dmarc []string
	for _, txt := range query("_dmarc."+domain, dns.TypeTXT).Data(dns.TypeTXT) {
		dmarc = append(dmarc, dnsclient.TrimTXT(txt))
	}
	inv.SPF, inv.DMARC = assessPolicies(inv, dmarc)

	c.logger.Info("records_collected",
		zap.String("domain", domain),
		zap.Int("mx", len(inv.MX)),
		zap.Int("ns", len(inv.NS)),
		zap.Int("errors", len(inv.Errors)))
	return inv
}

// assessPolicies picks the SPF and DMARC records and records weak or
// missing mail and issuance policies in inv.Issues.
func assessPolicies(inv *Inventory, dmarcTXT []string) (spf, dmarc string) {
	var spfs, dmarcs []string
	for _, txt := range inv.TXT {
		if hasTag(txt, "v=spf1") {
			spfs = append(spfs, txt)
		}
	}
	for _, txt := range dmarcTXT {
		if hasTag(txt, "v=DMARC1") {
			dmarcs = append(dmarcs, txt)
		}
	}

	switch len(spfs) {
	case 0:
		inv.Issues = append(inv.Issues, "No SPF record")
	case 1:
		spf = spfs[0]
		if strings.HasSuffix(spf, "+all") {
			inv.Issues = append(inv.Issues, "SPF record allows any sender (+all)")
		}
	default:
		spf = spfs[0]
		inv.Issues = append(inv.Issues, fmt.Sprintf("Multiple SPF records (%d); receivers treat this as a permanent error", len(spfs)))
	}

	switch len(dmarcs) {
	case 0:
		inv.Issues = append(inv.Issues, "No DMARC record")
	default:
		dmarc = dmarcs[0]
		if len(dmarcs) > 1 {
			inv.Issues = append(inv.Issues, "Multiple DMARC records")
		}
		if strings.Contains(strings.ReplaceAll(dmarc, " ", ""), "p=none") {
			inv.Issues = append(inv.Issues, "DMARC policy is p=none (monitoring only)")
		}
	}
	if len(inv.MX) > 0 && len(inv.TLSA) == 0 {
		inv.Issues = append(inv.Issues, "No DANE TLSA records for MX hosts")
	}
	if len(inv.CAA) == 0 {
		inv.Issues = append(inv.Issues, "No CAA records; any CA may issue certificates")
	}
	return spf, dmarc
}

func hasTag(txt, tag string) bool {
	txt = strings.TrimSpace(txt)
	return len(txt) >= len(tag) && strings.EqualFold(txt[:len(tag)], tag) &&
		(len(txt) == len(tag) || txt[len(tag)] == ' ' || txt[len(tag)] == ';')
}

// parseRR rebuilds a structured record from an answer's presentation data.
func parseRR(a dnsclient.Answer) dns.RR {
	name := a.Name
	if name == "" {
		name = "."
	}
	rr, err := dns.NewRR(fmt.Sprintf("%s %d IN %s %s", dns.Fqdn(name), a.TTL, dnsclient.TypeName(a.Type), a.Data))
	if err != nil {
		return nil
	}
	return rr
}
