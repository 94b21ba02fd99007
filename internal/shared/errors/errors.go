package errors

import "errors"

// Domain errors
var (
	// Input errors
	ErrEmptyTarget      = errors.New("target cannot be empty")
	ErrInvalidDomain    = errors.New("invalid domain name")
	ErrInvalidIP        = errors.New("invalid IP address")
	ErrUnknownCheckType = errors.New("unknown health check type")

	// Lookup errors
	ErrUnsupportedTLD    = errors.New("unsupported TLD: no WHOIS server known")
	ErrUnsupportedDigest = errors.New("unsupported DS digest type")
	ErrMalformedRecord   = errors.New("malformed DNS record")

	// Run errors
	ErrRunNotFound         = errors.New("check run not found")
	ErrRunAlreadyStarted   = errors.New("check run already started")
	ErrRunNotStarted       = errors.New("check run not started")
	ErrRunAlreadyCompleted = errors.New("check run already completed")

	// Repository errors
	ErrInvalidData           = errors.New("invalid data")
	ErrSerializationFailed   = errors.New("serialization failed")
	ErrDeserializationFailed = errors.New("deserialization failed")
)
