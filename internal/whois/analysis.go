// Package whois queries registry WHOIS servers over TCP and parses their
// responses with per-registry parsers.
package whois

import "time"

// Analysis holds the registration data for one domain.
type Analysis struct {
	DomainName  string `json:"domain_name"`
	Tld         string `json:"tld"`
	WhoisServer string `json:"whois_server"`

	Registrar           string `json:"registrar,omitempty"`
	RegistrarURL        string `json:"registrar_url,omitempty"`
	RegistrarIanaID     string `json:"registrar_iana_id,omitempty"`
	RegistrarAbuseEmail string `json:"registrar_abuse_email,omitempty"`
	RegistrarAbusePhone string `json:"registrar_abuse_phone,omitempty"`
	RegistrarAddress    string `json:"registrar_address,omitempty"`
	RegistrarPhone      string `json:"registrar_phone,omitempty"`
	RegistrarEmail      string `json:"registrar_email,omitempty"`
	RegistrarLicense    string `json:"registrar_license,omitempty"`
	Reseller            string `json:"reseller,omitempty"`

	Registrant             string `json:"registrant,omitempty"`
	RegistrantOrganization string `json:"registrant_organization,omitempty"`
	RegistrantAddress      string `json:"registrant_address,omitempty"`
	RegistrantCountry      string `json:"registrant_country,omitempty"`
	RegistrantEmail        string `json:"registrant_email,omitempty"`

	CreationDate    *time.Time `json:"creation_date,omitempty"`
	CreationDateRaw string     `json:"creation_date_raw,omitempty"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	ExpiryDateRaw   string     `json:"expiry_date_raw,omitempty"`
	LastUpdated     *time.Time `json:"last_updated,omitempty"`
	LastUpdatedRaw  string     `json:"last_updated_raw,omitempty"`

	Statuses    []string `json:"statuses,omitempty"`
	NameServers []string `json:"name_servers,omitempty"`
	DnsSec      string   `json:"dnssec,omitempty"`

	ExpiresSoon       bool `json:"expires_soon"`
	IsExpired         bool `json:"is_expired"`
	RegistrarLocked   bool `json:"registrar_locked"`
	PrivacyProtected  bool `json:"privacy_protected"`
	ExpiryWarningDays int  `json:"expiry_warning_days"`

	RawText string `json:"raw_text,omitempty"`
}

// DaysUntilExpiry returns whole days until ExpiryDate, or false when the
// expiry date is unknown.
func (a *Analysis) DaysUntilExpiry(now time.Time) (int, bool) {
	if a == nil || a.ExpiryDate == nil {
		return 0, false
	}
	return int(a.ExpiryDate.Sub(now).Hours() / 24), true
}

// Clone returns a deep copy.
func (a *Analysis) Clone() *Analysis {
	if a == nil {
		return nil
	}
	cp := *a
	cp.CreationDate = cloneTime(a.CreationDate)
	cp.ExpiryDate = cloneTime(a.ExpiryDate)
	cp.LastUpdated = cloneTime(a.LastUpdated)
	if a.Statuses != nil {
		cp.Statuses = append([]string(nil), a.Statuses...)
	}
	if a.NameServers != nil {
		cp.NameServers = append([]string(nil), a.NameServers...)
	}
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (a *Analysis) setCreated(raw string) {
	if a.CreationDate != nil || raw == "" {
		return
	}
	a.CreationDateRaw = raw
	a.CreationDate = parseDate(raw)
}

func (a *Analysis) setExpiry(raw string) {
	if a.ExpiryDate != nil || raw == "" {
		return
	}
	a.ExpiryDateRaw = raw
	a.ExpiryDate = parseDate(raw)
}

func (a *Analysis) setUpdated(raw string) {
	if a.LastUpdated != nil || raw == "" {
		return
	}
	a.LastUpdatedRaw = raw
	a.LastUpdated = parseDate(raw)
}

func (a *Analysis) addNameServer(value string) {
	fields := splitFields(value)
	if len(fields) == 0 {
		return
	}
	ns := normalizeHost(fields[0])
	if ns == "" {
		return
	}
	for _, existing := range a.NameServers {
		if existing == ns {
			return
		}
	}
	a.NameServers = append(a.NameServers, ns)
}

func (a *Analysis) addStatus(value string) {
	fields := splitFields(value)
	if len(fields) == 0 {
		return
	}
	status := fields[0]
	// free-text statuses (.cz, .be, .co.uk) are kept whole
	if len(fields) > 1 && !looksLikeURL(fields[1]) {
		status = joinFields(fields)
	}
	for _, existing := range a.Statuses {
		if existing == status {
			return
		}
	}
	a.Statuses = append(a.Statuses, status)
}
