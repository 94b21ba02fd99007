package dnssec

import (
	"strings"
	"testing"

	"github.com/miekg/dns"
)

const (
	rootKSK2017 = "257 3 8 " +
		"AwEAAaz/tAm8yTn4Mfeh5eyI96WSVexTBAvkMgJzkKTOiW1vkIbzxeF3+/4RgWOq7HrxRixHlFlExOLAJr5emLvN7SWXgnLh4+B5xQlNVz8Og8k" +
		"vArMtNROxVQuCaSnIDdD5LKyWbRd2n9WGe2R8PzgCmr3EgVLrjyBxWezF0jLHwVN8efS3rCj/EWgvIWgb9tarpVUDK/b58Da+sqqls3eNbuv7pr" +
		"+eoZG+SrDK6nWeL3c6H5Apxz7LjVc1uTIdsIXxuOLYA4/ilBmSVIzuDWfdRUfhHdY6+cn8HFRm+2hM8AnXGXws9555KrUB5qihylGa8subX2Nn6" +
		"UwNR1AkUTV74bU="
	rootKSK2024 = "257 3 8 " +
		"AwEAAa96jeuknZlaeSrvyAJj6ZHv28hhOKkx3rLGXVaC6rXTsDc449/cidltpkyGwCJNnOAlFNKF2jBosZBU5eeHspaQWOmOElZsjICMQMC3aeH" +
		"bGiShvZsx4wMYSjH8e7Vrhbu6irwCzVBApESjbUdpWWmEnhathWu1jo+siFUiRAAxm9qyJNg/wOZqqzL/dL/q8PkcRU5oUKEpUge71M3ej2/7CP" +
		"qpdVwuMoTvoB+ZOT4YeGyxMvHmbrxlFzGOHOijtzN+u1TQNatX2XBuzZNQ1K+s2CXkPIZo7s6JgZyvaBevYtxPvYLw4z9mR7K2vaF18UYH9Z9GN" +
		"UUeayffKC73PYc="

	rootDS2017 = "20326 8 2 E06D44B80B8F1D39A95C0B0D7C65D08458E880409BBC683457104237C7F8EC8D"
	rootDS2024 = "38696 8 2 683D2D0ACB8C9B712A1948B27F741219298D0A450D612C483AF444A4C0FB2B16"
)

func TestKeyTagRootKeys(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want uint16
	}{
		{"KSK-2017", rootKSK2017, 20326},
		{"KSK-2024", rootKSK2024, 38696},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParseDNSKEY(tt.key)
			if err != nil {
				t.Fatalf("ParseDNSKEY: %v", err)
			}
			if got := key.KeyTag(); got != tt.want {
				t.Errorf("KeyTag = %d, want %d", got, tt.want)
			}
			if !key.IsKSK() {
				t.Error("root key should carry the SEP flag")
			}
		})
	}
}

func TestKeyTagMatchesMiekg(t *testing.T) {
	algorithms := []struct {
		alg  uint8
		bits int
	}{
		{dns.RSASHA256, 1024},
		{dns.ECDSAP256SHA256, 256},
		{dns.ECDSAP384SHA384, 384},
		{dns.ED25519, 256},
	}
	for _, a := range algorithms {
		t.Run(dns.AlgorithmToString[a.alg], func(t *testing.T) {
			rr := generateKey(t, "example.test.", a.alg, a.bits, 256)
			key, err := ParseDNSKEY(rdataOf(rr))
			if err != nil {
				t.Fatalf("ParseDNSKEY: %v", err)
			}
			if got, want := key.KeyTag(), rr.KeyTag(); got != want {
				t.Errorf("KeyTag = %d, miekg = %d", got, want)
			}
		})
	}
}

func TestKeyTagFolding(t *testing.T) {
	// 0xFF00 * 2 + 0xFF * 2 overflows 16 bits and exercises the carry fold.
	rdata := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	var ac uint32 = 0xFF00 + 0xFF + 0xFF00 + 0xFF
	ac += ac >> 16 & 0xFFFF
	if got := KeyTag(rdata); got != uint16(ac&0xFFFF) {
		t.Errorf("KeyTag = %#x, want %#x", got, ac&0xFFFF)
	}
	if got := KeyTag(nil); got != 0 {
		t.Errorf("KeyTag(nil) = %d", got)
	}
}

func TestLegacyKeyTag(t *testing.T) {
	key := DNSKEY{Flags: 256, Protocol: 3, Algorithm: AlgRSAMD5, PublicKey: []byte{1, 2, 3, 4, 0xAB, 0xCD, 0xEF}}
	if got := key.KeyTag(); got != 0xABCD {
		t.Errorf("legacy KeyTag = %#x, want 0xabcd", got)
	}
}

func TestParseDNSKEYRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "257 3 8", "x 3 8 AAAA", "257 3 8 !!notbase64"} {
		if _, err := ParseDNSKEY(in); err == nil {
			t.Errorf("ParseDNSKEY(%q) succeeded", in)
		}
	}
}

func TestDNSKEYStringRoundTrip(t *testing.T) {
	key, err := ParseDNSKEY(rootKSK2017)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.ReplaceAll(key.String(), " ", ""); got != strings.ReplaceAll(rootKSK2017, " ", "") {
		t.Errorf("String() = %q", key.String())
	}
}

func generateKey(t *testing.T, owner string, alg uint8, bits int, flags uint16) *dns.DNSKEY {
	t.Helper()
	rr := &dns.DNSKEY{
		Hdr:       dns.RR_Header{Name: owner, Rrtype: dns.TypeDNSKEY, Class: dns.ClassINET, Ttl: 3600},
		Flags:     flags,
		Protocol:  3,
		Algorithm: alg,
	}
	if _, err := rr.Generate(bits); err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return rr
}

func rdataOf(rr dns.RR) string {
	return strings.TrimPrefix(rr.String(), rr.Header().String())
}
