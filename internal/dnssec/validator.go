package dnssec

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/khanhnv2901/domaincheck/internal/dnsclient"
	"github.com/khanhnv2901/domaincheck/internal/domainname"
)

// AnchorLoader supplies root trust anchors.
type AnchorLoader interface {
	Load(ctx context.Context) []TrustAnchor
}

// Validator walks the DNSSEC chain of trust from a domain up to the root.
type Validator struct {
	resolver dnsclient.Resolver
	anchors  AnchorLoader
	logger   *zap.Logger
	now      func() time.Time
}

// NewValidator returns a validator querying through resolver. The resolver
// must report the AD flag, which rules out non-validating transports.
func NewValidator(resolver dnsclient.Resolver, anchors AnchorLoader, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		resolver: resolver,
		anchors:  anchors,
		logger:   logger,
		now:      time.Now,
	}
}

type levelResult struct {
	level  Level
	keys   *dnsclient.Response
	ds     *dnsclient.Response
	issues []string
}

// Analyze validates the chain for domain. It never fails: query errors and
// malformed records mark the affected level invalid and are described in
// MismatchSummary.
func (v *Validator) Analyze(ctx context.Context, domain string) *Analysis {
	analysis := &Analysis{Domain: domain, CheckedAt: v.now().UTC()}

	zone, err := domainname.Normalize(domain)
	if err != nil {
		analysis.MismatchSummary = append(analysis.MismatchSummary, fmt.Sprintf("Invalid domain %q", domain))
		return analysis
	}
	analysis.Domain = zone

	chainValid := true
	evaluated := 0
	for cur := zone; cur != ""; cur = domainname.Parent(cur) {
		if ctx.Err() != nil {
			analysis.MismatchSummary = append(analysis.MismatchSummary, fmt.Sprintf("Validation cancelled at %s", cur))
			chainValid = false
			break
		}

		res := v.checkLevel(ctx, cur)
		evaluated++
		analysis.Levels = append(analysis.Levels, res.level)
		analysis.MismatchSummary = append(analysis.MismatchSummary, res.issues...)
		chainValid = chainValid && res.level.Valid

		if cur == zone {
			v.fillLeaf(analysis, res)
		}
	}

	var anchors []TrustAnchor
	if v.anchors != nil {
		anchors = v.anchors.Load(ctx)
	}

	if ctx.Err() == nil {
		root, issues := v.checkRoot(ctx, anchors, analysis)
		evaluated++
		analysis.Levels = append(analysis.Levels, root)
		analysis.MismatchSummary = append(analysis.MismatchSummary, issues...)
		chainValid = chainValid && root.Valid
	}

	if analysis.RootKeyTag == 0 {
		now := v.now()
		for _, a := range anchors {
			if a.IsValid(now) {
				analysis.RootKeyTag = int(a.KeyTag)
				break
			}
		}
	}

	analysis.ChainValid = chainValid && evaluated > 0
	v.logger.Debug("dnssec_analyzed",
		zap.String("domain", zone),
		zap.Bool("chain_valid", analysis.ChainValid),
		zap.Int("levels", len(analysis.Levels)),
		zap.Int("mismatches", len(analysis.MismatchSummary)),
	)
	return analysis
}

func (v *Validator) checkLevel(ctx context.Context, zone string) levelResult {
	res := levelResult{level: Level{Zone: zone}}
	lvl := &res.level

	keys, keyErr := v.resolver.Query(ctx, zone, dns.TypeDNSKEY)
	if keyErr != nil {
		v.logger.Warn("dnskey_query_failed", zap.String("zone", zone), zap.Error(keyErr))
		res.issues = append(res.issues, fmt.Sprintf("DNS query failed for %s: %v", zone, keyErr))
	}
	ds, dsErr := v.resolver.Query(ctx, zone, dns.TypeDS)
	if dsErr != nil {
		v.logger.Warn("ds_query_failed", zap.String("zone", zone), zap.Error(dsErr))
		res.issues = append(res.issues, fmt.Sprintf("DNS query failed for %s: %v", zone, dsErr))
	}
	res.keys, res.ds = keys, ds

	lvl.DnsKeys = keys.Data(dns.TypeDNSKEY)
	lvl.DsRecords = ds.Data(dns.TypeDS)
	lvl.DnsKeyAuthenticated = keys != nil && keys.AuthenticData
	lvl.DsAuthenticated = ds != nil && ds.AuthenticData

	if ds != nil && len(lvl.DsRecords) == 0 {
		res.issues = append(res.issues, fmt.Sprintf("No DS record for %s", zone))
	}
	if keys != nil && len(lvl.DnsKeys) == 0 {
		res.issues = append(res.issues, fmt.Sprintf("No DNSKEY record for %s", zone))
	}
	if len(lvl.DnsKeys) > 0 && !lvl.DnsKeyAuthenticated {
		res.issues = append(res.issues, fmt.Sprintf("DNSKEY not authenticated for %s", zone))
	}
	if len(lvl.DsRecords) > 0 && !lvl.DsAuthenticated {
		res.issues = append(res.issues, fmt.Sprintf("DS not authenticated for %s", zone))
	}

	parsedKeys := v.parseKeys(zone, lvl.DnsKeys)
	for _, k := range parsedKeys {
		lvl.KeyTags = append(lvl.KeyTags, k.KeyTag())
	}

	if len(lvl.DnsKeys) > 0 && len(lvl.DsRecords) > 0 {
		parsedDS := v.parseDS(zone, lvl.DsRecords)
		if unsupported := unsupportedAlgorithms(parsedKeys, parsedDS); len(unsupported) > 0 {
			for _, alg := range unsupported {
				res.issues = append(res.issues, fmt.Sprintf("Unsupported algorithm %d for %s", alg, zone))
			}
		} else {
			lvl.DigestMatch = anyMatch(zone, parsedDS, parsedKeys)
			if !lvl.DigestMatch {
				res.issues = append(res.issues, fmt.Sprintf("DS does not match DNSKEY for %s", zone))
			}
		}
	}

	lvl.Valid = keyErr == nil && dsErr == nil &&
		lvl.DnsKeyAuthenticated && lvl.DsAuthenticated && lvl.DigestMatch
	return res
}

func (v *Validator) checkRoot(ctx context.Context, anchors []TrustAnchor, analysis *Analysis) (Level, []string) {
	lvl := Level{Zone: ".", DsAuthenticated: true}
	var issues []string

	now := v.now()
	var anchorDS []DS
	for _, a := range anchors {
		if !a.IsValid(now) {
			continue
		}
		ds, err := a.DS()
		if err != nil {
			v.logger.Warn("trust_anchor_invalid", zap.Uint16("key_tag", a.KeyTag), zap.Error(err))
			continue
		}
		anchorDS = append(anchorDS, ds)
		lvl.DsRecords = append(lvl.DsRecords, ds.String())
	}
	if len(anchorDS) == 0 {
		issues = append(issues, "No trust anchors available")
	}

	resp, err := v.resolver.Query(ctx, ".", dns.TypeDNSKEY)
	if err != nil {
		v.logger.Warn("dnskey_query_failed", zap.String("zone", "."), zap.Error(err))
		return lvl, append(issues, fmt.Sprintf("DNS query failed for .: %v", err))
	}
	lvl.DnsKeys = resp.Data(dns.TypeDNSKEY)
	lvl.DnsKeyAuthenticated = resp.AuthenticData
	keys := v.parseKeys(".", lvl.DnsKeys)
	for _, k := range keys {
		lvl.KeyTags = append(lvl.KeyTags, k.KeyTag())
	}

	if len(lvl.DnsKeys) == 0 {
		issues = append(issues, "No DNSKEY record for .")
	} else if !lvl.DnsKeyAuthenticated {
		issues = append(issues, "DNSKEY not authenticated for .")
	}

	for _, ds := range anchorDS {
		for _, k := range keys {
			if matches(".", ds, k) {
				lvl.DigestMatch = true
				analysis.RootKeyTag = int(ds.KeyTag)
				break
			}
		}
		if lvl.DigestMatch {
			break
		}
	}
	if len(lvl.DnsKeys) > 0 && len(anchorDS) > 0 && !lvl.DigestMatch {
		issues = append(issues, "Root DNSKEY does not match trust anchor")
	}

	lvl.Valid = lvl.DnsKeyAuthenticated && lvl.DigestMatch
	return lvl, issues
}

func (v *Validator) fillLeaf(analysis *Analysis, res levelResult) {
	analysis.DnsKeys = res.level.DnsKeys
	analysis.DsRecords = res.level.DsRecords
	analysis.DsMatch = res.level.DigestMatch
	analysis.AuthenticData = res.keys != nil && res.keys.AuthenticData

	for _, a := range res.ds.Of(dns.TypeDS) {
		analysis.DsTtls = append(analysis.DsTtls, a.TTL)
	}
	for _, resp := range []*dnsclient.Response{res.keys, res.ds} {
		for _, sig := range resp.Data(dns.TypeRRSIG) {
			analysis.Signatures = append(analysis.Signatures, sig)
			info, err := ParseRRSIG(sig)
			if err != nil {
				v.logger.Debug("rrsig_unparsable", zap.String("zone", res.level.Zone), zap.Error(err))
				continue
			}
			analysis.Rrsigs = append(analysis.Rrsigs, info)
		}
	}
}

func (v *Validator) parseKeys(zone string, texts []string) []DNSKEY {
	keys := make([]DNSKEY, 0, len(texts))
	for _, text := range texts {
		k, err := ParseDNSKEY(text)
		if err != nil {
			v.logger.Debug("dnskey_unparsable", zap.String("zone", zone), zap.Error(err))
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

func (v *Validator) parseDS(zone string, texts []string) []DS {
	out := make([]DS, 0, len(texts))
	for _, text := range texts {
		d, err := ParseDS(text)
		if err != nil {
			v.logger.Debug("ds_unparsable", zap.String("zone", zone), zap.Error(err))
			continue
		}
		out = append(out, d)
	}
	return out
}

func unsupportedAlgorithms(keys []DNSKEY, ds []DS) []uint8 {
	seen := map[uint8]bool{}
	for _, k := range keys {
		if !SupportedAlgorithm(k.Algorithm) {
			seen[k.Algorithm] = true
		}
	}
	for _, d := range ds {
		if !SupportedAlgorithm(d.Algorithm) {
			seen[d.Algorithm] = true
		}
	}
	out := make([]uint8, 0, len(seen))
	for alg := range seen {
		out = append(out, alg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func anyMatch(owner string, dsSet []DS, keys []DNSKEY) bool {
	for _, ds := range dsSet {
		for _, k := range keys {
			if matches(owner, ds, k) {
				return true
			}
		}
	}
	return false
}
