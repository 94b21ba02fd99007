package dnssec

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/miekg/dns"
)

func TestComputeDigestRootKSK(t *testing.T) {
	tests := []struct {
		name string
		key  string
		ds   string
	}{
		{"KSK-2017", rootKSK2017, rootDS2017},
		{"KSK-2024", rootKSK2024, rootDS2024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParseDNSKEY(tt.key)
			if err != nil {
				t.Fatal(err)
			}
			digest, err := ComputeDigest(".", key, DigestSHA256)
			if err != nil {
				t.Fatalf("ComputeDigest: %v", err)
			}
			want := strings.Fields(tt.ds)[3]
			if got := strings.ToUpper(hex.EncodeToString(digest)); got != want {
				t.Errorf("digest = %s, want %s", got, want)
			}
			if !MatchDS(".", tt.ds, tt.key) {
				t.Error("MatchDS rejected the published root DS")
			}
		})
	}
}

func TestComputeDigestMatchesMiekg(t *testing.T) {
	rr := generateKey(t, "Example.TEST.", dns.ECDSAP256SHA256, 256, 257)
	key, err := ParseDNSKEY(rdataOf(rr))
	if err != nil {
		t.Fatal(err)
	}

	for _, digestType := range []uint8{DigestSHA1, DigestSHA256, DigestSHA384} {
		t.Run(DigestName(digestType), func(t *testing.T) {
			ds := rr.ToDS(digestType)
			if ds == nil {
				t.Fatalf("miekg could not derive DS for digest %d", digestType)
			}
			got, err := ComputeDigest("example.test", key, digestType)
			if err != nil {
				t.Fatalf("ComputeDigest: %v", err)
			}
			if !strings.EqualFold(hex.EncodeToString(got), ds.Digest) {
				t.Errorf("digest = %x, miekg = %s", got, ds.Digest)
			}
			if !MatchDS("EXAMPLE.test.", rdataOf(ds), rdataOf(rr)) {
				t.Error("MatchDS should ignore owner case and trailing dot")
			}
		})
	}
}

func TestMatchDSRejectsAlteredKey(t *testing.T) {
	rr := generateKey(t, "example.test.", dns.ECDSAP256SHA256, 256, 257)
	ds := rdataOf(rr.ToDS(dns.SHA256))

	key, err := ParseDNSKEY(rdataOf(rr))
	if err != nil {
		t.Fatal(err)
	}
	key.PublicKey[len(key.PublicKey)-1] ^= 0x01

	if MatchDS("example.test", ds, key.String()) {
		t.Fatal("MatchDS accepted a key with one flipped byte")
	}
	if !MatchDS("example.test", ds, rdataOf(rr)) {
		t.Fatal("MatchDS rejected the original key")
	}
}

func TestMatchDSFalseOnBadInput(t *testing.T) {
	tests := []struct {
		name   string
		owner  string
		ds     string
		dnskey string
	}{
		{"short DS", ".", "20326 8 2", rootKSK2017},
		{"short DNSKEY", ".", rootDS2017, "257 3"},
		{"non-hex digest", ".", "20326 8 2 ZZZZ", rootKSK2017},
		{"wrong owner", "com", rootDS2017, rootKSK2017},
		{"unknown digest type", ".", "20326 8 3 E06D44B80B8F1D39A95C0B0D7C65D08458E880409BBC683457104237C7F8EC8D", rootKSK2017},
		{"tag mismatch", ".", "20327 8 2 E06D44B80B8F1D39A95C0B0D7C65D08458E880409BBC683457104237C7F8EC8D", rootKSK2017},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if MatchDS(tt.owner, tt.ds, tt.dnskey) {
				t.Error("MatchDS = true, want false")
			}
		})
	}
}

func TestComputeDigestUnsupportedType(t *testing.T) {
	key, _ := ParseDNSKEY(rootKSK2017)
	_, err := ComputeDigest(".", key, 3)
	if !errors.Is(err, ErrUnsupportedDigest) {
		t.Fatalf("error = %v, want ErrUnsupportedDigest", err)
	}
}

func TestDSString(t *testing.T) {
	ds, err := ParseDS(strings.ToLower(rootDS2017))
	if err != nil {
		t.Fatal(err)
	}
	if ds.String() != rootDS2017 {
		t.Errorf("String() = %q, want %q", ds.String(), rootDS2017)
	}
}
