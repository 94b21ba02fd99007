package dnssec

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	sharedErrors "github.com/khanhnv2901/domaincheck/internal/shared/errors"
)

// RrsigInfo is a parsed RRSIG record.
type RrsigInfo struct {
	TypeCovered   string    `json:"type_covered"`
	Algorithm     uint8     `json:"algorithm"`
	AlgorithmName string    `json:"algorithm_name"`
	Labels        uint8     `json:"labels"`
	OriginalTTL   uint32    `json:"original_ttl"`
	Expiration    time.Time `json:"expiration"`
	Inception     time.Time `json:"inception"`
	KeyTag        uint16    `json:"key_tag"`
	SignerName    string    `json:"signer_name"`
}

// DaysRemaining returns whole days until the signature expires. It is
// negative once the signature has expired.
func (r RrsigInfo) DaysRemaining() int {
	return r.DaysRemainingAt(time.Now())
}

// DaysRemainingAt is DaysRemaining relative to now.
func (r RrsigInfo) DaysRemainingAt(now time.Time) int {
	return int(math.Floor(r.Expiration.Sub(now).Hours() / 24))
}

// MarshalJSON adds the derived days_remaining field.
func (r RrsigInfo) MarshalJSON() ([]byte, error) {
	type plain RrsigInfo
	return json.Marshal(struct {
		plain
		DaysRemaining int `json:"days_remaining"`
	}{plain(r), r.DaysRemaining()})
}

// ParseRRSIG parses RRSIG presentation data:
// "type alg labels origttl expiration inception keytag signer signature".
// Timestamps may be YYYYMMDDHHmmSS or seconds since the epoch.
func ParseRRSIG(text string) (RrsigInfo, error) {
	fields := strings.Fields(text)
	if len(fields) < 8 {
		return RrsigInfo{}, fmt.Errorf("%w: RRSIG needs at least 8 fields, got %d", sharedErrors.ErrMalformedRecord, len(fields))
	}

	alg, err := strconv.ParseUint(fields[1], 10, 8)
	if err != nil {
		return RrsigInfo{}, fmt.Errorf("%w: RRSIG algorithm %q", sharedErrors.ErrMalformedRecord, fields[1])
	}
	labels, err := strconv.ParseUint(fields[2], 10, 8)
	if err != nil {
		return RrsigInfo{}, fmt.Errorf("%w: RRSIG labels %q", sharedErrors.ErrMalformedRecord, fields[2])
	}
	ttl, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return RrsigInfo{}, fmt.Errorf("%w: RRSIG original TTL %q", sharedErrors.ErrMalformedRecord, fields[3])
	}
	expiration, err := parseSigTime(fields[4])
	if err != nil {
		return RrsigInfo{}, err
	}
	inception, err := parseSigTime(fields[5])
	if err != nil {
		return RrsigInfo{}, err
	}
	tag, err := strconv.ParseUint(fields[6], 10, 16)
	if err != nil {
		return RrsigInfo{}, fmt.Errorf("%w: RRSIG key tag %q", sharedErrors.ErrMalformedRecord, fields[6])
	}

	return RrsigInfo{
		TypeCovered:   strings.ToUpper(fields[0]),
		Algorithm:     uint8(alg),
		AlgorithmName: AlgorithmName(uint8(alg)),
		Labels:        uint8(labels),
		OriginalTTL:   uint32(ttl),
		Expiration:    expiration,
		Inception:     inception,
		KeyTag:        uint16(tag),
		SignerName:    fields[7],
	}, nil
}

func parseSigTime(s string) (time.Time, error) {
	if len(s) == 14 {
		if t, err := time.Parse("20060102150405", s); err == nil {
			return t.UTC(), nil
		}
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: RRSIG timestamp %q", sharedErrors.ErrMalformedRecord, s)
	}
	return time.Unix(secs, 0).UTC(), nil
}
