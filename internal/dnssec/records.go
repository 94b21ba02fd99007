package dnssec

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	sharedErrors "github.com/khanhnv2901/domaincheck/internal/shared/errors"
)

// DNSKEY is the parsed RDATA of a DNSKEY record.
type DNSKEY struct {
	Flags     uint16
	Protocol  uint8
	Algorithm uint8
	PublicKey []byte
}

// DS is the parsed RDATA of a DS record.
type DS struct {
	KeyTag     uint16
	Algorithm  uint8
	DigestType uint8
	Digest     []byte
}

// ParseDNSKEY parses presentation data: "flags protocol algorithm base64key".
// The key may be split over several whitespace-separated chunks.
func ParseDNSKEY(text string) (DNSKEY, error) {
	fields := strings.Fields(text)
	if len(fields) < 4 {
		return DNSKEY{}, fmt.Errorf("%w: DNSKEY needs 4 fields, got %d", sharedErrors.ErrMalformedRecord, len(fields))
	}
	flags, err := strconv.ParseUint(fields[0], 10, 16)
	if err != nil {
		return DNSKEY{}, fmt.Errorf("%w: DNSKEY flags %q", sharedErrors.ErrMalformedRecord, fields[0])
	}
	protocol, err := strconv.ParseUint(fields[1], 10, 8)
	if err != nil {
		return DNSKEY{}, fmt.Errorf("%w: DNSKEY protocol %q", sharedErrors.ErrMalformedRecord, fields[1])
	}
	algorithm, err := strconv.ParseUint(fields[2], 10, 8)
	if err != nil {
		return DNSKEY{}, fmt.Errorf("%w: DNSKEY algorithm %q", sharedErrors.ErrMalformedRecord, fields[2])
	}
	key, err := base64.StdEncoding.DecodeString(strings.Join(fields[3:], ""))
	if err != nil {
		return DNSKEY{}, fmt.Errorf("%w: DNSKEY public key: %v", sharedErrors.ErrMalformedRecord, err)
	}
	return DNSKEY{
		Flags:     uint16(flags),
		Protocol:  uint8(protocol),
		Algorithm: uint8(algorithm),
		PublicKey: key,
	}, nil
}

// RDATA returns the wire-format RDATA: flags | protocol | algorithm | key.
func (k DNSKEY) RDATA() []byte {
	buf := make([]byte, 4, 4+len(k.PublicKey))
	binary.BigEndian.PutUint16(buf[0:2], k.Flags)
	buf[2] = k.Protocol
	buf[3] = k.Algorithm
	return append(buf, k.PublicKey...)
}

// KeyTag computes the RFC 4034 Appendix B key tag of the key.
func (k DNSKEY) KeyTag() uint16 {
	if k.Algorithm == AlgRSAMD5 {
		return legacyKeyTag(k.RDATA())
	}
	return KeyTag(k.RDATA())
}

// IsKSK reports whether the Secure Entry Point flag is set.
func (k DNSKEY) IsKSK() bool {
	return k.Flags&0x0001 != 0
}

// String renders the key in presentation format.
func (k DNSKEY) String() string {
	return fmt.Sprintf("%d %d %d %s", k.Flags, k.Protocol, k.Algorithm, base64.StdEncoding.EncodeToString(k.PublicKey))
}

// ParseDS parses presentation data: "keytag algorithm digesttype hexdigest".
func ParseDS(text string) (DS, error) {
	fields := strings.Fields(text)
	if len(fields) < 4 {
		return DS{}, fmt.Errorf("%w: DS needs 4 fields, got %d", sharedErrors.ErrMalformedRecord, len(fields))
	}
	tag, err := strconv.ParseUint(fields[0], 10, 16)
	if err != nil {
		return DS{}, fmt.Errorf("%w: DS key tag %q", sharedErrors.ErrMalformedRecord, fields[0])
	}
	algorithm, err := strconv.ParseUint(fields[1], 10, 8)
	if err != nil {
		return DS{}, fmt.Errorf("%w: DS algorithm %q", sharedErrors.ErrMalformedRecord, fields[1])
	}
	digestType, err := strconv.ParseUint(fields[2], 10, 8)
	if err != nil {
		return DS{}, fmt.Errorf("%w: DS digest type %q", sharedErrors.ErrMalformedRecord, fields[2])
	}
	digest, err := hex.DecodeString(strings.Join(fields[3:], ""))
	if err != nil {
		return DS{}, fmt.Errorf("%w: DS digest: %v", sharedErrors.ErrMalformedRecord, err)
	}
	return DS{
		KeyTag:     uint16(tag),
		Algorithm:  uint8(algorithm),
		DigestType: uint8(digestType),
		Digest:     digest,
	}, nil
}

// String renders the DS in presentation format with an upper-case digest.
func (d DS) String() string {
	return fmt.Sprintf("%d %d %d %s", d.KeyTag, d.Algorithm, d.DigestType, strings.ToUpper(hex.EncodeToString(d.Digest)))
}
