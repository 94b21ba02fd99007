package healthcheck

import (
	"fmt"
	"sort"
	"time"

	"github.com/khanhnv2901/domaincheck/internal/network"
)

// Finding severities, most severe first.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityInfo     = "info"
)

var severityRank = map[string]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
	SeverityInfo:     4,
}

// Finding is one line of the human-readable summary.
type Finding struct {
	Severity string    `json:"severity"`
	Check    CheckType `json:"check"`
	Message  string    `json:"message"`
}

// Summary flattens report into findings ordered by severity, then by
// check order.
func Summary(report *DomainHealthCheck) []Finding {
	if report == nil {
		return nil
	}
	var out []Finding
	add := func(sev string, check CheckType, format string, args ...any) {
		out = append(out, Finding{Severity: sev, Check: check, Message: fmt.Sprintf(format, args...)})
	}
	now := report.CheckedAt
	if now.IsZero() {
		now = time.Now()
	}

	if d := report.DNSSEC; d != nil {
		switch {
		case d.ChainValid:
			add(SeverityInfo, CheckDNSSEC, "DNSSEC chain of trust is valid (root key tag %d)", d.RootKeyTag)
		case len(d.DsRecords) == 0 && len(d.DnsKeys) == 0:
			add(SeverityMedium, CheckDNSSEC, "Domain is not signed with DNSSEC")
		default:
			for _, m := range d.MismatchSummary {
				add(SeverityHigh, CheckDNSSEC, "%s", m)
			}
		}
		if sig, ok := d.EarliestSignatureExpiry(); ok {
			if days := sig.DaysRemainingAt(now); days >= 0 && days < 3 {
				add(SeverityHigh, CheckDNSSEC, "RRSIG for %s expires in %d days", sig.TypeCovered, days)
			}
		}
	}

	if w := report.WHOIS; w != nil {
		switch {
		case w.IsExpired:
			add(SeverityCritical, CheckWHOIS, "Registration expired on %s", w.ExpiryDate.Format("2006-01-02"))
		case w.ExpiresSoon:
			days, _ := w.DaysUntilExpiry(now)
			add(SeverityHigh, CheckWHOIS, "Registration expires in %d days", days)
		}
		if !w.RegistrarLocked && w.RawText != "" {
			add(SeverityMedium, CheckWHOIS, "Domain is not locked against transfer or update")
		}
		if w.PrivacyProtected {
			add(SeverityInfo, CheckWHOIS, "Registrant details are privacy protected")
		}
	}

	if r := report.Records; r != nil {
		for _, issue := range r.Issues {
			add(SeverityLow, CheckRecords, "%s", issue)
		}
	}

	for _, m := range report.MailTLS {
		if m.Error != "" && len(m.Issues) == 0 {
			add(SeverityMedium, CheckMailTLS, "%s:%d: %s", m.Host, m.Port, m.Error)
		}
		for _, issue := range m.Issues {
			add(SeverityMedium, CheckMailTLS, "%s:%d: %s", m.Host, m.Port, issue)
		}
	}

	for _, p := range report.Ports {
		switch p.Risk {
		case network.RiskCritical, network.RiskHigh, network.RiskMedium:
			add(p.Risk, CheckPorts, "%s", p.Description)
		}
	}

	if t := report.Takeover; t != nil && t.Vulnerable {
		add(SeverityCritical, CheckTakeover, "Possible subdomain takeover via %s (%s, %s confidence)", t.CNAME, t.Provider, t.Confidence)
	}
	if w := report.Wildcard; w != nil && w.Wildcard {
		add(SeverityLow, CheckWildcard, "Wildcard DNS answers random names with %v", w.Answers)
	}
	if t := report.Typosquat; t != nil {
		for _, c := range t.Registered {
			add(SeverityMedium, CheckTyposquat, "Look-alike domain %s resolves to %v", c.Domain, c.Addresses)
		}
	}
	if p := report.Propagation; p != nil && !p.Consistent {
		add(SeverityMedium, CheckPropagation, "%s records differ between resolvers", p.Type)
	}
	if z := report.ZoneTransfer; z != nil {
		for _, s := range z.Servers {
			if s.Allowed {
				add(SeverityHigh, CheckZoneTransfer, "%s allows zone transfer (%d records)", s.Nameserver, s.RecordCount)
			}
		}
	}

	for _, t := range sortedErrorTypes(report.Errors) {
		add(SeverityMedium, t, "check failed: %s", report.Errors[t])
	}

	order := make(map[CheckType]int, len(allCheckTypes))
	for i, t := range allCheckTypes {
		order[t] = i
	}
	sort.SliceStable(out, func(i, j int) bool {
		if severityRank[out[i].Severity] != severityRank[out[j].Severity] {
			return severityRank[out[i].Severity] < severityRank[out[j].Severity]
		}
		return order[out[i].Check] < order[out[j].Check]
	})
	return out
}

func sortedErrorTypes(errs map[CheckType]string) []CheckType {
	out := make([]CheckType, 0, len(errs))
	for t := range errs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
