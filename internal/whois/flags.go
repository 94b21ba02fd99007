package whois

import (
	"strings"
	"time"
)

var lockIndicators = []string{
	"transferprohibited",
	"updateprohibited",
	"deleteprohibited",
	"registrar-lock",
	"registrarlock",
	"registrar change forbidden",
}

var privacyIndicators = []string{
	"redacted for privacy",
	"whoisguard",
	"domains by proxy",
	"contact privacy",
	"withheld for privacy",
	"privacy protect",
	"data protected",
	"perfect privacy",
	"identity protection",
	"not disclosed",
	"gdpr",
	"privacyguardian",
}

// computeFlags derives the boolean flags from parsed fields only.
func computeFlags(a *Analysis, now time.Time) {
	a.IsExpired = false
	a.ExpiresSoon = false
	if a.ExpiryDate != nil {
		a.IsExpired = a.ExpiryDate.Before(now)
		window := time.Duration(a.ExpiryWarningDays) * 24 * time.Hour
		a.ExpiresSoon = !a.IsExpired && a.ExpiryDate.Sub(now) <= window
	}

	a.RegistrarLocked = false
	for _, status := range a.Statuses {
		if containsAny(status, lockIndicators) {
			a.RegistrarLocked = true
			break
		}
	}

	a.PrivacyProtected = false
	for _, field := range []string{a.Registrant, a.RegistrantOrganization, a.RegistrantEmail, a.RegistrantAddress} {
		if containsAny(field, privacyIndicators) {
			a.PrivacyProtected = true
			break
		}
	}
}

func containsAny(value string, needles []string) bool {
	if value == "" {
		return false
	}
	value = strings.ToLower(value)
	for _, n := range needles {
		if strings.Contains(value, n) {
			return true
		}
	}
	return false
}
