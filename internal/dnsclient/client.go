// Package dnsclient provides the DNS query transports used by the analyzers:
// a DNS-over-HTTPS JSON client for validated lookups and a classic UDP/TCP
// client for probing individual resolvers.
package dnsclient

import (
	"context"
	"strconv"
	"strings"

	"github.com/miekg/dns"
)

// Answer is a single resource record from a response, with Data in
// presentation format (e.g. "257 3 8 AwEAAa...").
type Answer struct {
	Name string `json:"name"`
	Type uint16 `json:"type"`
	TTL  uint32 `json:"ttl"`
	Data string `json:"data"`
}

// Response is the transport-independent view of a DNS answer.
type Response struct {
	Status        int      `json:"status"`
	AuthenticData bool     `json:"authentic_data"`
	Answers       []Answer `json:"answers,omitempty"`
}

// Resolver is implemented by every DNS transport.
type Resolver interface {
	Query(ctx context.Context, name string, qtype uint16) (*Response, error)
}

// Of returns the answers of the given type, dropping CNAMEs and signatures
// that arrived alongside them.
func (r *Response) Of(qtype uint16) []Answer {
	if r == nil {
		return nil
	}
	out := make([]Answer, 0, len(r.Answers))
	for _, a := range r.Answers {
		if a.Type == qtype {
			out = append(out, a)
		}
	}
	return out
}

// Data returns the presentation data of every answer of the given type.
func (r *Response) Data(qtype uint16) []string {
	answers := r.Of(qtype)
	out := make([]string, 0, len(answers))
	for _, a := range answers {
		out = append(out, a.Data)
	}
	return out
}

// NoError reports whether the response carried RCODE NOERROR.
func (r *Response) NoError() bool {
	return r != nil && r.Status == dns.RcodeSuccess
}

func (r *Response) clone() *Response {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Answers = append([]Answer(nil), r.Answers...)
	return &cp
}

// TypeName returns the mnemonic for a record type ("DNSKEY" for 48).
func TypeName(qtype uint16) string {
	if name, ok := dns.TypeToString[qtype]; ok {
		return name
	}
	return "TYPE" + strconv.Itoa(int(qtype))
}

// ParseType maps a mnemonic to its record type. The boolean is false for
// unknown names.
func ParseType(name string) (uint16, bool) {
	t, ok := dns.StringToType[strings.ToUpper(strings.TrimSpace(name))]
	return t, ok
}

// TrimTXT strips the surrounding quotes some providers keep on TXT data and
// joins split character-strings.
func TrimTXT(data string) string {
	data = strings.TrimSpace(data)
	if !strings.HasPrefix(data, `"`) {
		return data
	}
	parts := strings.Split(data, `" "`)
	for i, p := range parts {
		parts[i] = strings.Trim(p, `"`)
	}
	return strings.Join(parts, "")
}
