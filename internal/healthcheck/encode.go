package healthcheck

import (
	"encoding/json"
	"io"

	"github.com/khanhnv2901/domaincheck/internal/domainname"
)

// EncodeOptions controls report serialization.
type EncodeOptions struct {
	Indent bool
	// Unicode renders IDN names in their Unicode form.
	Unicode bool
}

// Encode writes report as JSON. With Unicode set the conversion happens on
// a copy, so report itself is left in ASCII form.
func Encode(w io.Writer, report *DomainHealthCheck, opts EncodeOptions) error {
	if opts.Unicode {
		report = ToUnicode(report)
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if opts.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(report)
}

// ToUnicode returns a copy of report with domain names converted for
// display.
func ToUnicode(report *DomainHealthCheck) *DomainHealthCheck {
	cp := report.Clone()
	if cp == nil {
		return nil
	}
	cp.Domain = domainname.ToUnicode(cp.Domain)
	if cp.DNSSEC != nil {
		cp.DNSSEC.Domain = domainname.ToUnicode(cp.DNSSEC.Domain)
	}
	if cp.WHOIS != nil {
		cp.WHOIS.DomainName = domainname.ToUnicode(cp.WHOIS.DomainName)
		for i, ns := range cp.WHOIS.NameServers {
			cp.WHOIS.NameServers[i] = domainname.ToUnicode(ns)
		}
	}
	if cp.Records != nil {
		cp.Records.Domain = domainname.ToUnicode(cp.Records.Domain)
		for i := range cp.Records.MX {
			cp.Records.MX[i].Host = domainname.ToUnicode(cp.Records.MX[i].Host)
		}
		for i, ns := range cp.Records.NS {
			cp.Records.NS[i] = domainname.ToUnicode(ns)
		}
	}
	for i := range cp.MailTLS {
		cp.MailTLS[i].Host = domainname.ToUnicode(cp.MailTLS[i].Host)
	}
	if cp.Typosquat != nil {
		cp.Typosquat.Domain = domainname.ToUnicode(cp.Typosquat.Domain)
		for i, v := range cp.Typosquat.Variants {
			cp.Typosquat.Variants[i] = domainname.ToUnicode(v)
		}
		for i := range cp.Typosquat.Registered {
			cp.Typosquat.Registered[i].Domain = domainname.ToUnicode(cp.Typosquat.Registered[i].Domain)
		}
	}
	return cp
}
