package mailtls

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"strings"
	"time"

	"github.com/khanhnv2901/domaincheck/internal/shared/constants"
)

// versionSSL30 is kept local so SSL 3.0 can be named without the
// deprecated tls.VersionSSL30 symbol.
const versionSSL30 uint16 = 0x0300

var weakCipherSuites = map[uint16]bool{
	tls.TLS_RSA_WITH_RC4_128_SHA:            true,
	tls.TLS_RSA_WITH_3DES_EDE_CBC_SHA:       true,
	tls.TLS_ECDHE_ECDSA_WITH_RC4_128_SHA:    true,
	tls.TLS_ECDHE_RSA_WITH_RC4_128_SHA:      true,
	tls.TLS_ECDHE_RSA_WITH_3DES_EDE_CBC_SHA: true,
}

// CertificateInfo is the inspected leaf certificate of a mail server.
type CertificateInfo struct {
	Subject         string    `json:"subject"`
	Issuer          string    `json:"issuer"`
	NotBefore       time.Time `json:"not_before"`
	NotAfter        time.Time `json:"not_after"`
	DNSNames        []string  `json:"dns_names,omitempty"`
	SelfSigned      bool      `json:"self_signed"`
	DaysUntilExpiry int       `json:"days_until_expiry"`
	ExpiresSoon     bool      `json:"expires_soon"`
	SignatureAlg    string    `json:"signature_algorithm"`
	PublicKeyAlg    string    `json:"public_key_algorithm"`
	KeySize         int       `json:"key_size,omitempty"`
	HostnameMatch   bool      `json:"hostname_match"`
}

// ConnectionAnalysis is the outcome of inspecting one TLS session.
type ConnectionAnalysis struct {
	TLSVersion  string
	CipherSuite string
	Certificate *CertificateInfo
	Issues      []string
}

// AnalyzeConnection inspects a completed handshake with host as the name
// the certificate must cover.
func AnalyzeConnection(state *tls.ConnectionState, host string) *ConnectionAnalysis {
	return analyzeAt(state, host, time.Now())
}

func analyzeAt(state *tls.ConnectionState, host string, now time.Time) *ConnectionAnalysis {
	if state == nil {
		return nil
	}
	out := &ConnectionAnalysis{
		TLSVersion:  VersionName(state.Version),
		CipherSuite: CipherSuiteName(state.CipherSuite),
	}

	if state.Version < tls.VersionTLS12 {
		out.Issues = append(out.Issues, fmt.Sprintf("Insecure TLS version: %s", out.TLSVersion))
	}
	if weakCipherSuites[state.CipherSuite] {
		out.Issues = append(out.Issues, fmt.Sprintf("Weak cipher suite: %s", out.CipherSuite))
	}
	if state.Version < tls.VersionTLS13 && !strings.Contains(out.CipherSuite, "ECDHE") {
		out.Issues = append(out.Issues, "Cipher suite does not provide forward secrecy")
	}

	if len(state.PeerCertificates) > 0 {
		out.Certificate = inspectCertificate(state.PeerCertificates[0], host, now)
		out.Issues = append(out.Issues, certificateIssues(out.Certificate, host)...)
	}
	return out
}

func inspectCertificate(cert *x509.Certificate, host string, now time.Time) *CertificateInfo {
	info := &CertificateInfo{
		Subject:         cert.Subject.String(),
		Issuer:          cert.Issuer.String(),
		NotBefore:       cert.NotBefore.UTC(),
		NotAfter:        cert.NotAfter.UTC(),
		DNSNames:        append([]string(nil), cert.DNSNames...),
		DaysUntilExpiry: int(cert.NotAfter.Sub(now).Hours() / 24),
		SignatureAlg:    cert.SignatureAlgorithm.String(),
		PublicKeyAlg:    cert.PublicKeyAlgorithm.String(),
		HostnameMatch:   host != "" && cert.VerifyHostname(host) == nil,
	}
	info.ExpiresSoon = !now.After(cert.NotAfter) && cert.NotAfter.Sub(now) <= constants.CertSoonExpiryWindow
	info.SelfSigned = cert.Subject.String() == cert.Issuer.String() && cert.CheckSignatureFrom(cert) == nil

	switch key := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		info.KeySize = key.N.BitLen()
	case *ecdsa.PublicKey:
		info.KeySize = key.Curve.Params().BitSize
	case ed25519.PublicKey:
		info.KeySize = 256
	}
	return info
}

func certificateIssues(cert *CertificateInfo, host string) []string {
	var issues []string
	switch {
	case cert.DaysUntilExpiry < 0:
		issues = append(issues, "Certificate has expired")
	case cert.ExpiresSoon:
		issues = append(issues, fmt.Sprintf("Certificate expires in %d days", cert.DaysUntilExpiry))
	}
	if cert.SelfSigned {
		issues = append(issues, "Self-signed certificate")
	}
	if alg := strings.ToLower(cert.SignatureAlg); strings.Contains(alg, "md5") || strings.Contains(alg, "sha1") {
		issues = append(issues, fmt.Sprintf("Weak signature algorithm: %s", cert.SignatureAlg))
	}
	switch {
	case cert.PublicKeyAlg == "RSA" && cert.KeySize > 0 && cert.KeySize < 2048:
		issues = append(issues, fmt.Sprintf("RSA key size too small: %d bits (minimum 2048)", cert.KeySize))
	case cert.PublicKeyAlg == "ECDSA" && cert.KeySize > 0 && cert.KeySize < 224:
		issues = append(issues, fmt.Sprintf("ECDSA key size too small: %d bits (minimum 224)", cert.KeySize))
	}
	if host != "" && !cert.HostnameMatch {
		issues = append(issues, fmt.Sprintf("Certificate does not cover %s", host))
	}
	return issues
}

// VersionName returns the protocol name for a TLS version constant.
func VersionName(version uint16) string {
	switch version {
	case versionSSL30:
		return "SSL 3.0"
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("Unknown (0x%04x)", version)
	}
}

// CipherSuiteName returns the IANA name of a cipher suite.
func CipherSuiteName(suite uint16) string {
	if name := tls.CipherSuiteName(suite); !strings.HasPrefix(name, "0x") {
		return name
	}
	return fmt.Sprintf("Unknown (0x%04x)", suite)
}
