package dnssec

import (
	"bytes"
	"crypto/sha1" // #nosec G505 -- DS digest type 1 is SHA-1 by definition.
	"crypto/sha256"
	"crypto/sha512"
	"fmt"

	"github.com/miekg/dns"

	sharedErrors "github.com/khanhnv2901/domaincheck/internal/shared/errors"
)

// DS digest types (IANA "Delegation Signer Digest Algorithms").
const (
	DigestSHA1   uint8 = 1
	DigestSHA256 uint8 = 2
	DigestSHA384 uint8 = 4
)

// ErrUnsupportedDigest is returned for digest types other than 1, 2 and 4.
var ErrUnsupportedDigest = sharedErrors.ErrUnsupportedDigest

// ComputeDigest returns the DS digest of key under owner:
// digest(canonical owner name in wire format | DNSKEY RDATA).
func ComputeDigest(owner string, key DNSKEY, digestType uint8) ([]byte, error) {
	wire, err := ownerWire(owner)
	if err != nil {
		return nil, err
	}
	input := append(wire, key.RDATA()...)

	switch digestType {
	case DigestSHA1:
		sum := sha1.Sum(input) // #nosec G401
		return sum[:], nil
	case DigestSHA256:
		sum := sha256.Sum256(input)
		return sum[:], nil
	case DigestSHA384:
		sum := sha512.Sum384(input)
		return sum[:], nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDigest, digestType)
	}
}

func ownerWire(owner string) ([]byte, error) {
	name := dns.CanonicalName(owner)
	buf := make([]byte, 256)
	off, err := dns.PackDomainName(name, buf, 0, nil, false)
	if err != nil {
		return nil, fmt.Errorf("%w: owner name %q: %v", sharedErrors.ErrMalformedRecord, owner, err)
	}
	return buf[:off], nil
}

// MatchDS reports whether dsText is the delegation signer of dnskeyText under
// owner. Malformed input or an unknown digest type yields false.
func MatchDS(owner, dsText, dnskeyText string) bool {
	ds, err := ParseDS(dsText)
	if err != nil {
		return false
	}
	key, err := ParseDNSKEY(dnskeyText)
	if err != nil {
		return false
	}
	return matches(owner, ds, key)
}

func matches(owner string, ds DS, key DNSKEY) bool {
	if ds.KeyTag != key.KeyTag() || ds.Algorithm != key.Algorithm {
		return false
	}
	digest, err := ComputeDigest(owner, key, ds.DigestType)
	if err != nil {
		return false
	}
	return bytes.Equal(digest, ds.Digest)
}
