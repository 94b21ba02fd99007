package dnssec

import "time"

// Level is the outcome of validating one zone of the chain.
type Level struct {
	Zone                string   `json:"zone"`
	DnsKeys             []string `json:"dnskeys,omitempty"`
	DsRecords           []string `json:"ds_records,omitempty"`
	KeyTags             []uint16 `json:"key_tags,omitempty"`
	DnsKeyAuthenticated bool     `json:"dnskey_authenticated"`
	DsAuthenticated     bool     `json:"ds_authenticated"`
	DigestMatch         bool     `json:"digest_match"`
	Valid               bool     `json:"valid"`
}

// Analysis holds the DNSSEC results for one domain. Analyze builds a fresh
// value on every call.
type Analysis struct {
	Domain          string      `json:"domain"`
	CheckedAt       time.Time   `json:"checked_at"`
	ChainValid      bool        `json:"chain_valid"`
	DsMatch         bool        `json:"ds_match"`
	AuthenticData   bool        `json:"authentic_data"`
	RootKeyTag      int         `json:"root_key_tag,omitempty"`
	DsRecords       []string    `json:"ds_records,omitempty"`
	DnsKeys         []string    `json:"dnskeys,omitempty"`
	Signatures      []string    `json:"signatures,omitempty"`
	Rrsigs          []RrsigInfo `json:"rrsigs,omitempty"`
	DsTtls          []uint32    `json:"ds_ttls,omitempty"`
	Levels          []Level     `json:"levels,omitempty"`
	MismatchSummary []string    `json:"mismatch_summary,omitempty"`
}

// Clone returns a deep copy of the analysis.
func (a *Analysis) Clone() *Analysis {
	if a == nil {
		return nil
	}
	cp := *a
	cp.DsRecords = cloneStrings(a.DsRecords)
	cp.DnsKeys = cloneStrings(a.DnsKeys)
	cp.Signatures = cloneStrings(a.Signatures)
	cp.MismatchSummary = cloneStrings(a.MismatchSummary)
	cp.Rrsigs = append([]RrsigInfo(nil), a.Rrsigs...)
	cp.DsTtls = append([]uint32(nil), a.DsTtls...)
	if a.Levels != nil {
		cp.Levels = make([]Level, len(a.Levels))
		for i, l := range a.Levels {
			l.DnsKeys = cloneStrings(l.DnsKeys)
			l.DsRecords = cloneStrings(l.DsRecords)
			l.KeyTags = append([]uint16(nil), l.KeyTags...)
			cp.Levels[i] = l
		}
	}
	return &cp
}

// EarliestSignatureExpiry returns the RRSIG closest to expiry, if any.
func (a *Analysis) EarliestSignatureExpiry() (RrsigInfo, bool) {
	if a == nil || len(a.Rrsigs) == 0 {
		return RrsigInfo{}, false
	}
	earliest := a.Rrsigs[0]
	for _, r := range a.Rrsigs[1:] {
		if r.Expiration.Before(earliest.Expiration) {
			earliest = r
		}
	}
	return earliest, true
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
