package whois

import "strings"

// icannField applies one key/value pair of the ICANN-style format shared
// by gTLD registries and many ccTLDs. It reports whether the key was known.
func icannField(a *Analysis, key, value string) bool {
	if value == "" {
		return false
	}
	switch strings.ToLower(key) {
	case "domain name", "domain", "domain_name", "domainname":
		if a.DomainName == "" {
			a.DomainName = strings.Fields(value)[0]
		}
	case "registrar", "registrar name", "sponsoring registrar", "registrar_name":
		if a.Registrar == "" {
			a.Registrar = value
		}
	case "registrar url", "registrar website", "referral url", "registrar_url":
		if a.RegistrarURL == "" {
			a.RegistrarURL = value
		}
	case "registrar iana id", "sponsoring registrar iana id":
		a.RegistrarIanaID = value
	case "registrar abuse contact email":
		a.RegistrarAbuseEmail = value
	case "registrar abuse contact phone":
		a.RegistrarAbusePhone = value
	case "registrar phone":
		a.RegistrarPhone = value
	case "registrar email":
		a.RegistrarEmail = value
	case "registrar address", "registrar street", "registrar city", "registrar country":
		a.RegistrarAddress = appendLine(a.RegistrarAddress, value)
	case "registrar license", "license":
		a.RegistrarLicense = appendLine(a.RegistrarLicense, value)
	case "reseller":
		a.Reseller = value
	case "registry expiry date", "registrar registration expiration date", "expiration date",
		"expiry date", "paid-till", "expire", "expires", "expires on", "expiration time",
		"renewal date", "domain expiration date":
		a.setExpiry(value)
	case "creation date", "created", "created on", "registered", "registration time",
		"registration date", "domain registration date", "registered on":
		a.setCreated(value)
	case "updated date", "changed", "last updated", "last-update", "last modified",
		"modified", "last update", "updated":
		a.setUpdated(value)
	case "name server", "nserver", "nameserver", "name servers", "nameservers":
		a.addNameServer(value)
	case "domain status", "status", "state":
		a.addStatus(value)
	case "registrant name", "registrant":
		if a.Registrant == "" {
			a.Registrant = value
		}
	case "registrant organization", "registrant organisation", "org", "registrant org":
		if a.RegistrantOrganization == "" {
			a.RegistrantOrganization = value
		}
	case "registrant street", "registrant city", "registrant state/province", "registrant postal code",
		"registrant address":
		a.RegistrantAddress = appendLine(a.RegistrantAddress, value)
	case "registrant country", "registrant country code":
		a.RegistrantCountry = value
	case "registrant email":
		a.RegistrantEmail = value
	case "dnssec":
		a.DnsSec = value
	default:
		return false
	}
	return true
}

// parseDefault handles registries that use ICANN-style "Key: value" lines.
func parseDefault(text string, a *Analysis) {
	for _, line := range lines(text) {
		if isComment(line) {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), ">>>") {
			break
		}
		key, value, ok := splitKV(line)
		if !ok {
			continue
		}
		icannField(a, key, value)
	}
}

// parseComNet handles the Verisign thin registry. Only the block before the
// ">>> Last update" marker describes the domain; the rest is legal notice.
func parseComNet(text string, a *Analysis) {
	for _, line := range lines(text) {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ">>>") {
			break
		}
		key, value, ok := splitKV(trimmed)
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "registrar whois server", "whois server":
			// the registrar's own server, not ours
			continue
		}
		icannField(a, key, value)
	}
}

// parseXYZ handles CentralNic output: ICANN keys plus Reseller, with
// fractional-second timestamps.
func parseXYZ(text string, a *Analysis) {
	for _, line := range lines(text) {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ">>>") {
			break
		}
		key, value, ok := splitKV(trimmed)
		if !ok {
			continue
		}
		if strings.EqualFold(key, "Reseller") {
			a.Reseller = value
			continue
		}
		icannField(a, key, value)
	}
}
