package dnssec

import (
	"context"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/khanhnv2901/domaincheck/internal/security"
	"github.com/khanhnv2901/domaincheck/internal/shared/constants"
)

const maxAnchorBytes = 1 << 20

// TrustAnchor is one KeyDigest entry of the IANA root anchor file.
type TrustAnchor struct {
	ID         string    `json:"id"`
	KeyTag     uint16    `json:"key_tag"`
	Algorithm  uint8     `json:"algorithm"`
	DigestType uint8     `json:"digest_type"`
	Digest     string    `json:"digest"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until,omitempty"`
}

// IsValid reports whether the anchor is inside its validity window at now.
func (a TrustAnchor) IsValid(now time.Time) bool {
	if !a.ValidFrom.IsZero() && now.Before(a.ValidFrom) {
		return false
	}
	if !a.ValidUntil.IsZero() && !now.Before(a.ValidUntil) {
		return false
	}
	return true
}

// DS converts the anchor into the DS record it stands for.
func (a TrustAnchor) DS() (DS, error) {
	digest, err := hex.DecodeString(a.Digest)
	if err != nil {
		return DS{}, fmt.Errorf("anchor %d digest: %w", a.KeyTag, err)
	}
	return DS{KeyTag: a.KeyTag, Algorithm: a.Algorithm, DigestType: a.DigestType, Digest: digest}, nil
}

type anchorFile struct {
	XMLName    xml.Name `xml:"TrustAnchor"`
	Zone       string   `xml:"Zone"`
	KeyDigests []struct {
		ID         string `xml:"id,attr"`
		ValidFrom  string `xml:"validFrom,attr"`
		ValidUntil string `xml:"validUntil,attr"`
		KeyTag     uint16 `xml:"KeyTag"`
		Algorithm  uint8  `xml:"Algorithm"`
		DigestType uint8  `xml:"DigestType"`
		Digest     string `xml:"Digest"`
	} `xml:"KeyDigest"`
}

// ParseAnchors parses root-anchors.xml.
func ParseAnchors(data []byte) ([]TrustAnchor, error) {
	var doc anchorFile
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse trust anchors: %w", err)
	}
	if strings.TrimSpace(doc.Zone) != "." {
		return nil, fmt.Errorf("parse trust anchors: unexpected zone %q", doc.Zone)
	}
	if len(doc.KeyDigests) == 0 {
		return nil, errors.New("parse trust anchors: no KeyDigest entries")
	}

	anchors := make([]TrustAnchor, 0, len(doc.KeyDigests))
	for _, kd := range doc.KeyDigests {
		a := TrustAnchor{
			ID:         kd.ID,
			KeyTag:     kd.KeyTag,
			Algorithm:  kd.Algorithm,
			DigestType: kd.DigestType,
			Digest:     strings.ToUpper(strings.TrimSpace(kd.Digest)),
		}
		if kd.ValidFrom != "" {
			t, err := time.Parse(time.RFC3339, kd.ValidFrom)
			if err != nil {
				return nil, fmt.Errorf("parse trust anchors: validFrom %q: %w", kd.ValidFrom, err)
			}
			a.ValidFrom = t
		}
		if kd.ValidUntil != "" {
			t, err := time.Parse(time.RFC3339, kd.ValidUntil)
			if err != nil {
				return nil, fmt.Errorf("parse trust anchors: validUntil %q: %w", kd.ValidUntil, err)
			}
			a.ValidUntil = t
		}
		anchors = append(anchors, a)
	}
	return anchors, nil
}

// AnchorStore loads root trust anchors from IANA and keeps a file cache.
type AnchorStore struct {
	url        string
	cachePath  string
	ttl        time.Duration
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
	group      singleflight.Group
}

// AnchorOption configures an AnchorStore.
type AnchorOption func(*AnchorStore)

// WithAnchorURL overrides the download URL.
func WithAnchorURL(url string) AnchorOption {
	return func(s *AnchorStore) {
		if url != "" {
			s.url = url
		}
	}
}

// WithAnchorTTL sets how long the cache file is considered fresh.
func WithAnchorTTL(ttl time.Duration) AnchorOption {
	return func(s *AnchorStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithAnchorHTTPClient sets the HTTP client used to download anchors.
func WithAnchorHTTPClient(hc *http.Client) AnchorOption {
	return func(s *AnchorStore) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// WithAnchorLogger attaches a logger.
func WithAnchorLogger(l *zap.Logger) AnchorOption {
	return func(s *AnchorStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewAnchorStore returns a store caching to cachePath. An empty path disables
// the file cache.
func NewAnchorStore(cachePath string, opts ...AnchorOption) *AnchorStore {
	s := &AnchorStore{
		url:        constants.RootAnchorsURL,
		cachePath:  cachePath,
		ttl:        constants.AnchorCacheTTL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CachePath returns the cache file location.
func (s *AnchorStore) CachePath() string {
	return s.cachePath
}

// Load returns the trust anchors. A fresh cache is used as is; otherwise the
// file is downloaded and cached. When the download fails the existing cache
// is returned unchanged, however old. Without a cache the result is empty.
func (s *AnchorStore) Load(ctx context.Context) []TrustAnchor {
	v, _, _ := s.group.Do("load", func() (interface{}, error) {
		return s.load(ctx), nil
	})
	anchors := v.([]TrustAnchor)
	out := make([]TrustAnchor, len(anchors))
	copy(out, anchors)
	return out
}

func (s *AnchorStore) load(ctx context.Context) []TrustAnchor {
	cached, age, cacheErr := s.readCache()
	if cacheErr == nil && age < s.ttl {
		return cached
	}
	if cacheErr != nil && !errors.Is(cacheErr, os.ErrNotExist) {
		s.logger.Warn("trust_anchor_cache_unreadable", zap.String("path", s.cachePath), zap.Error(cacheErr))
	}

	fresh, err := s.Refresh(ctx)
	if err == nil {
		return fresh
	}
	s.logger.Warn("trust_anchor_download_failed", zap.String("url", s.url), zap.Error(err))

	if cacheErr == nil {
		s.logger.Info("trust_anchor_using_stale_cache",
			zap.String("path", s.cachePath),
			zap.Duration("age", age),
		)
		return cached
	}
	return []TrustAnchor{}
}

// Refresh downloads the anchor file unconditionally and rewrites the cache.
// The cache is left untouched when the download or parse fails.
func (s *AnchorStore) Refresh(ctx context.Context) ([]TrustAnchor, error) {
	raw, err := s.download(ctx)
	if err != nil {
		return nil, err
	}
	anchors, err := ParseAnchors(raw)
	if err != nil {
		return nil, err
	}
	if err := s.writeCache(raw); err != nil {
		s.logger.Warn("trust_anchor_cache_write_failed", zap.String("path", s.cachePath), zap.Error(err))
	}
	return anchors, nil
}

func (s *AnchorStore) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build anchor request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download trust anchors: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download trust anchors: unexpected HTTP status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAnchorBytes))
	if err != nil {
		return nil, fmt.Errorf("read trust anchors: %w", err)
	}
	return data, nil
}

func (s *AnchorStore) readCache() ([]TrustAnchor, time.Duration, error) {
	if s.cachePath == "" {
		return nil, 0, os.ErrNotExist
	}
	info, err := os.Stat(s.cachePath)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(s.cachePath)
	if err != nil {
		return nil, 0, err
	}
	anchors, err := ParseAnchors(data)
	if err != nil {
		return nil, 0, err
	}
	return anchors, s.now().Sub(info.ModTime()), nil
}

func (s *AnchorStore) writeCache(data []byte) error {
	if s.cachePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.cachePath), constants.DefaultDirPerm); err != nil {
		return fmt.Errorf("create anchor cache directory: %w", err)
	}
	return security.WriteFileAtomic(s.cachePath, data, constants.DefaultFilePerm)
}
