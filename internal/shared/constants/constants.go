package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// WhoisPort is the registered TCP port for WHOIS.
	WhoisPort = 43
	// WhoisMaxResponseBytes caps how much of a WHOIS reply is read.
	WhoisMaxResponseBytes = 1 << 20
	// WhoisExpiryWarningDays is the default window for ExpiresSoon.
	WhoisExpiryWarningDays = 30
)

const (
	// DefaultDoHEndpoint is the JSON DNS-over-HTTPS endpoint used for DNSSEC walking.
	DefaultDoHEndpoint = "https://dns.google/resolve"
	// RootAnchorsURL is where IANA publishes the root zone trust anchors.
	RootAnchorsURL = "https://data.iana.org/root-anchors/root-anchors.xml"
	// AnchorCacheTTL is how long a downloaded anchor file is trusted before refresh.
	AnchorCacheTTL = 7 * 24 * time.Hour
)

const (
	// CertSoonExpiryWindow warns operators when a certificate expires inside this window.
	CertSoonExpiryWindow = 14 * 24 * time.Hour
	// BannerLimitBytes caps how many bytes of a service banner are kept.
	BannerLimitBytes = 512
)
