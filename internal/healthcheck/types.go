// Package healthcheck ties the individual analyzers together: a registry
// of handlers keyed by check type, the aggregate report and the service
// that runs a selection of checks against one domain.
package healthcheck

import (
	"fmt"
	"strings"

	sharedErrors "github.com/khanhnv2901/domaincheck/internal/shared/errors"
)

// ErrUnknownCheckType is returned for check names outside AllCheckTypes.
var ErrUnknownCheckType = sharedErrors.ErrUnknownCheckType

// CheckType names one health check.
type CheckType string

const (
	CheckDNSSEC       CheckType = "dnssec"
	CheckWHOIS        CheckType = "whois"
	CheckRecords      CheckType = "records"
	CheckMailTLS      CheckType = "mailtls"
	CheckPorts        CheckType = "ports"
	CheckTakeover     CheckType = "takeover"
	CheckWildcard     CheckType = "wildcard"
	CheckTyposquat    CheckType = "typosquat"
	CheckPropagation  CheckType = "propagation"
	CheckZoneTransfer CheckType = "zonetransfer"
)

var allCheckTypes = []CheckType{
	CheckDNSSEC,
	CheckWHOIS,
	CheckRecords,
	CheckMailTLS,
	CheckPorts,
	CheckTakeover,
	CheckWildcard,
	CheckTyposquat,
	CheckPropagation,
	CheckZoneTransfer,
}

// AllCheckTypes lists every check type in report order.
func AllCheckTypes() []CheckType {
	return append([]CheckType(nil), allCheckTypes...)
}

// ParseCheckType validates a check name.
func ParseCheckType(s string) (CheckType, error) {
	t := CheckType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range allCheckTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCheckType, s)
}

// ParseCheckTypes parses a list of names, which may be comma separated.
// "all" expands to every check type; duplicates are dropped.
func ParseCheckTypes(names []string) ([]CheckType, error) {
	var out []CheckType
	seen := make(map[CheckType]bool)
	for _, entry := range names {
		for _, name := range strings.Split(entry, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if strings.EqualFold(name, "all") {
				return AllCheckTypes(), nil
			}
			t, err := ParseCheckType(name)
			if err != nil {
				return nil, err
			}
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out, nil
}
