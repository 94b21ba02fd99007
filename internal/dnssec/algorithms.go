package dnssec

import "strconv"

// DNSSEC algorithm numbers.
const (
	AlgRSAMD5           uint8 = 1
	AlgDSA              uint8 = 3
	AlgRSASHA1          uint8 = 5
	AlgDSANSEC3SHA1     uint8 = 6
	AlgRSASHA1NSEC3SHA1 uint8 = 7
	AlgRSASHA256        uint8 = 8
	AlgRSASHA512        uint8 = 10
	AlgECCGOST          uint8 = 12
	AlgECDSAP256SHA256  uint8 = 13
	AlgECDSAP384SHA384  uint8 = 14
	AlgED25519          uint8 = 15
	AlgED448            uint8 = 16
)

var algorithmNames = map[uint8]string{
	AlgRSAMD5:           "RSA/MD5",
	AlgDSA:              "DSA/SHA-1",
	AlgRSASHA1:          "RSA/SHA-1",
	AlgDSANSEC3SHA1:     "DSA-NSEC3-SHA1",
	AlgRSASHA1NSEC3SHA1: "RSASHA1-NSEC3-SHA1",
	AlgRSASHA256:        "RSA/SHA-256",
	AlgRSASHA512:        "RSA/SHA-512",
	AlgECCGOST:          "GOST R 34.10-2001",
	AlgECDSAP256SHA256:  "ECDSA P-256/SHA-256",
	AlgECDSAP384SHA384:  "ECDSA P-384/SHA-384",
	AlgED25519:          "Ed25519",
	AlgED448:            "Ed448",
}

var supportedAlgorithms = map[uint8]bool{
	AlgRSASHA1:          true,
	AlgRSASHA1NSEC3SHA1: true,
	AlgRSASHA256:        true,
	AlgRSASHA512:        true,
	AlgECDSAP256SHA256:  true,
	AlgECDSAP384SHA384:  true,
	AlgED25519:          true,
	AlgED448:            true,
}

var digestNames = map[uint8]string{
	DigestSHA1:   "SHA-1",
	DigestSHA256: "SHA-256",
	DigestSHA384: "SHA-384",
}

// AlgorithmName returns a human-readable algorithm name.
func AlgorithmName(alg uint8) string {
	if name, ok := algorithmNames[alg]; ok {
		return name
	}
	return "Unknown (" + strconv.Itoa(int(alg)) + ")"
}

// SupportedAlgorithm reports whether alg is one the validator accepts.
func SupportedAlgorithm(alg uint8) bool {
	return supportedAlgorithms[alg]
}

// DigestName returns a human-readable DS digest name.
func DigestName(digestType uint8) string {
	if name, ok := digestNames[digestType]; ok {
		return name
	}
	return "Unknown (" + strconv.Itoa(int(digestType)) + ")"
}
