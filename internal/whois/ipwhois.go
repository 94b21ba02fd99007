package whois

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"go.uber.org/zap"

	sharedErrors "github.com/khanhnv2901/domaincheck/internal/shared/errors"
)

// QueryIP finds the regional registry for ip through IANA and returns the
// allocation block and origin ASN it reports. Either may be empty.
func (c *Client) QueryIP(ctx context.Context, ip string) (allocation, asn string, err error) {
	addr, perr := netip.ParseAddr(strings.TrimSpace(ip))
	if perr != nil {
		return "", "", fmt.Errorf("%w: %q", sharedErrors.ErrInvalidIP, ip)
	}
	query := addr.String()

	raw, err := c.fetch(ctx, c.ianaServer, query)
	if err != nil {
		return "", "", fmt.Errorf("query IANA for %s: %w", query, err)
	}
	text := decodeResponse(raw)

	if refer := findRefer(text); refer != "" {
		server, err := ParseServer(refer)
		if err != nil {
			return "", "", fmt.Errorf("IANA referral %q: %w", refer, err)
		}
		c.logger.Debug("ip_whois_referral", zap.String("ip", query), zap.String("server", server.String()))

		raw, err = c.fetch(ctx, server, ipQueryLine(server, query))
		if err != nil {
			return "", "", fmt.Errorf("query %s for %s: %w", server, query, err)
		}
		text = decodeResponse(raw)
	}

	allocation, asn = parseIPWhois(text)
	return allocation, asn, nil
}

func ipQueryLine(server Server, ip string) string {
	if server.Host == "whois.arin.net" {
		return "n + " + ip
	}
	return ip
}

func findRefer(text string) string {
	for _, line := range lines(text) {
		key, value, ok := splitKV(strings.TrimSpace(line))
		if !ok {
			continue
		}
		switch strings.ToLower(key) {
		case "refer", "whois", "referralserver":
			value = strings.TrimPrefix(value, "whois://")
			if value != "" {
				return value
			}
		}
	}
	return ""
}

func parseIPWhois(text string) (allocation, asn string) {
	var cidr string
	for _, line := range lines(text) {
		if isComment(line) {
			continue
		}
		key, value, ok := splitKV(strings.TrimSpace(line))
		if !ok || value == "" {
			continue
		}
		switch strings.ToLower(key) {
		case "inetnum", "inet6num", "netrange":
			if allocation == "" {
				allocation = value
			}
		case "cidr", "route", "route6":
			if cidr == "" {
				cidr = value
			}
		case "origin", "originas":
			if asn == "" {
				asn = normalizeASN(value)
			}
		}
	}
	if allocation == "" {
		allocation = cidr
	}
	return allocation, asn
}

func normalizeASN(value string) string {
	fields := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return ""
	}
	v := strings.ToUpper(fields[0])
	if !strings.HasPrefix(v, "AS") {
		v = "AS" + v
	}
	return v
}
