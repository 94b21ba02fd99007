package healthcheck

import (
	"strings"
	"testing"
	"time"

	"github.com/khanhnv2901/domaincheck/internal/dnsrecords"
	"github.com/khanhnv2901/domaincheck/internal/dnssec"
	"github.com/khanhnv2901/domaincheck/internal/network"
	"github.com/khanhnv2901/domaincheck/internal/whois"
)

func TestSummary(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	expiry := now.AddDate(0, 0, 10)
	report := &DomainHealthCheck{
		Domain:    "example.com",
		CheckedAt: now,
		DNSSEC: &dnssec.Analysis{
			DsRecords:       []string{"1 8 2 AA"},
			MismatchSummary: []string{"DS does not match DNSKEY for example.com"},
		},
		WHOIS: &whois.Analysis{
			ExpiryDate:      &expiry,
			ExpiresSoon:     true,
			RegistrarLocked: true,
			RawText:         "raw",
		},
		Records: &dnsrecords.Inventory{Issues: []string{"No DMARC record"}},
		Ports: []network.PortInfo{
			{Port: 443, Risk: network.RiskLow, Description: "LOW"},
			{Port: 3389, Risk: network.RiskCritical, Description: "CRITICAL: Port 3389 (rdp)"},
		},
		Takeover: &network.TakeoverCheck{Vulnerable: true, CNAME: "gone.herokuapp.com", Provider: "Heroku", Confidence: "high"},
		ZoneTransfer: &dnsrecords.ZoneTransferResult{Servers: []dnsrecords.ZoneTransferServer{
			{Nameserver: "ns1.example.com", Allowed: true, RecordCount: 12},
			{Nameserver: "ns2.example.com"},
		}},
		Errors: map[CheckType]string{CheckMailTLS: "no MX records"},
	}

	got := Summary(report)
	want := []Finding{
		{SeverityCritical, CheckPorts, "CRITICAL: Port 3389 (rdp)"},
		{SeverityCritical, CheckTakeover, "Possible subdomain takeover via gone.herokuapp.com (Heroku, high confidence)"},
		{SeverityHigh, CheckDNSSEC, "DS does not match DNSKEY for example.com"},
		{SeverityHigh, CheckWHOIS, "Registration expires in 10 days"},
		{SeverityHigh, CheckZoneTransfer, "ns1.example.com allows zone transfer (12 records)"},
		{SeverityMedium, CheckMailTLS, "check failed: no MX records"},
		{SeverityLow, CheckRecords, "No DMARC record"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d findings, want %d:\n%v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("finding %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSummaryUnsignedAndValid(t *testing.T) {
	unsigned := Summary(&DomainHealthCheck{DNSSEC: &dnssec.Analysis{MismatchSummary: []string{"No DS record for example.com"}}})
	if len(unsigned) != 1 || unsigned[0].Severity != SeverityMedium || !strings.Contains(unsigned[0].Message, "not signed") {
		t.Errorf("unsigned = %+v", unsigned)
	}
	valid := Summary(&DomainHealthCheck{DNSSEC: &dnssec.Analysis{ChainValid: true, RootKeyTag: 20326}})
	if len(valid) != 1 || valid[0].Severity != SeverityInfo || !strings.Contains(valid[0].Message, "20326") {
		t.Errorf("valid = %+v", valid)
	}
	if Summary(nil) != nil {
		t.Error("nil report should have no findings")
	}
}
