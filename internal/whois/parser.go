package whois

import (
	"strings"
	"time"
)

// Parser fills an Analysis from a registry's response text.
type Parser interface {
	Parse(text string, a *Analysis)
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(text string, a *Analysis)

// Parse calls f.
func (f ParserFunc) Parse(text string, a *Analysis) { f(text, a) }

// parsers is keyed by the server-table key Lookup matched.
var parsers = map[string]Parser{
	"com":    ParserFunc(parseComNet),
	"net":    ParserFunc(parseComNet),
	"pl":     ParserFunc(parsePL),
	"de":     ParserFunc(parseDE),
	"cz":     ParserFunc(parseCZ),
	"be":     ParserFunc(parseBE),
	"uk":     ParserFunc(parseCoUK),
	"co.uk":  ParserFunc(parseCoUK),
	"org.uk": ParserFunc(parseCoUK),
	"xyz":    ParserFunc(parseXYZ),
}

var defaultParser Parser = ParserFunc(parseDefault)

// ParserFor returns the parser registered for tld, or the ICANN-style
// default.
func ParserFor(tld string) Parser {
	if p, ok := parsers[strings.ToLower(tld)]; ok {
		return p
	}
	return defaultParser
}

// Parse runs the parser for tld over text and computes derived flags.
// queried is used when the response does not name the domain.
func Parse(tld, queried, text string, warningDays int, now time.Time) *Analysis {
	a := &Analysis{Tld: tld, ExpiryWarningDays: warningDays}
	parseInto(a, queried, text, now)
	return a
}

func parseInto(a *Analysis, queried, text string, now time.Time) {
	a.RawText = text
	ParserFor(a.Tld).Parse(text, a)
	if a.DomainName == "" {
		a.DomainName = queried
	}
	a.DomainName = strings.TrimSuffix(a.DomainName, ".")
	computeFlags(a, now)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006.01.02 15:04:05",
	"2006.01.02",
	"02.01.2006 15:04:05",
	"02.01.2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-2006 15:04:05",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"Mon Jan 2 2006",
	"Mon Jan _2 2006",
	"Mon Jan 2 15:04:05 MST 2006",
	"January 2 2006",
	"2 January 2006",
}

// parseDate tries the known registry layouts against the whole value and
// then against its first field, so annotated values such as
// "2030-01-01 (YYYY-MM-DD)" still parse.
func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	candidates := []string{raw}
	if fields := strings.Fields(raw); len(fields) > 1 {
		candidates = append(candidates, fields[0])
	}
	for _, c := range candidates {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, c); err == nil {
				t = t.UTC()
				return &t
			}
		}
	}
	return nil
}

// splitKV splits "Key: value" at the first colon. Lines without a key are
// reported as not ok.
func splitKV(line string) (key, value string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i <= 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:i])
	if key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(line[i+1:]), true
}

func lines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

func isIndented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}

func isComment(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "%") || strings.HasPrefix(t, "#")
}

func splitFields(value string) []string {
	return strings.Fields(value)
}

func joinFields(fields []string) string {
	return strings.Join(fields, " ")
}

func looksLikeURL(s string) bool {
	s = strings.ToLower(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "(http")
}

func normalizeHost(host string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
}

func appendLine(existing, line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return existing
	}
	if existing == "" {
		return line
	}
	return existing + ", " + line
}
