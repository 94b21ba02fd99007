// Package constants centralizes defaults shared across the CLI and the analyzers.
//
// File permissions, WHOIS limits, DNSSEC endpoints and certificate warning
// windows live here so cmd/ and internal/ reference one value.
package constants
