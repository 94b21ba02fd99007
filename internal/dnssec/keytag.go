package dnssec

// KeyTag computes the RFC 4034 Appendix B checksum over DNSKEY RDATA.
// Bytes at even offsets contribute their value shifted left by 8, bytes at
// odd offsets their plain value; the carry is folded back into 16 bits.
func KeyTag(rdata []byte) uint16 {
	var ac uint32
	for i, b := range rdata {
		if i&1 == 0 {
			ac += uint32(b) << 8
		} else {
			ac += uint32(b)
		}
	}
	ac += ac >> 16 & 0xFFFF
	return uint16(ac & 0xFFFF)
}

// legacyKeyTag is the Appendix B.1 rule for algorithm 1: the most
// significant 16 of the least significant 24 bits of the modulus.
func legacyKeyTag(rdata []byte) uint16 {
	if len(rdata) < 7 {
		return 0
	}
	n := len(rdata)
	return uint16(rdata[n-3])<<8 | uint16(rdata[n-2])
}
