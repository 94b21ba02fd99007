package healthcheck

import (
	"sync"
	"time"

	"github.com/khanhnv2901/domaincheck/internal/dnsrecords"
	"github.com/khanhnv2901/domaincheck/internal/dnssec"
	"github.com/khanhnv2901/domaincheck/internal/heuristics"
	"github.com/khanhnv2901/domaincheck/internal/mailtls"
	"github.com/khanhnv2901/domaincheck/internal/network"
	"github.com/khanhnv2901/domaincheck/internal/whois"
)

// DomainHealthCheck is the aggregate report for one domain. Each check
// fills its own field; checks that were not requested stay nil.
type DomainHealthCheck struct {
	Domain    string        `json:"domain"`
	CheckedAt time.Time     `json:"checked_at"`
	Duration  time.Duration `json:"duration_ns"`
	Checks    []CheckType   `json:"checks"`

	DNSSEC       *dnssec.Analysis               `json:"dnssec,omitempty"`
	WHOIS        *whois.Analysis                `json:"whois,omitempty"`
	Records      *dnsrecords.Inventory          `json:"records,omitempty"`
	MailTLS      []mailtls.Result               `json:"mail_tls,omitempty"`
	Ports        []network.PortInfo             `json:"ports,omitempty"`
	Takeover     *network.TakeoverCheck         `json:"takeover,omitempty"`
	Wildcard     *heuristics.WildcardResult     `json:"wildcard,omitempty"`
	Typosquat    *heuristics.TyposquatResult    `json:"typosquat,omitempty"`
	Propagation  *dnsrecords.PropagationResult  `json:"propagation,omitempty"`
	ZoneTransfer *dnsrecords.ZoneTransferResult `json:"zone_transfer,omitempty"`

	Errors map[CheckType]string `json:"errors,omitempty"`

	mu sync.Mutex
}

// update applies fn while holding the report lock. Handlers running in
// parallel store their results through it.
func (r *DomainHealthCheck) update(fn func(*DomainHealthCheck)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r)
}

func (r *DomainHealthCheck) recordError(t CheckType, err error) {
	r.update(func(r *DomainHealthCheck) {
		if r.Errors == nil {
			r.Errors = make(map[CheckType]string)
		}
		r.Errors[t] = err.Error()
	})
}

// Clone returns a deep copy of r.
func (r *DomainHealthCheck) Clone() *DomainHealthCheck {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := &DomainHealthCheck{
		Domain:       r.Domain,
		CheckedAt:    r.CheckedAt,
		Duration:     r.Duration,
		Checks:       append([]CheckType(nil), r.Checks...),
		DNSSEC:       r.DNSSEC.Clone(),
		WHOIS:        r.WHOIS.Clone(),
		Records:      r.Records.Clone(),
		Ports:        append([]network.PortInfo(nil), r.Ports...),
		Takeover:     r.Takeover.Clone(),
		Wildcard:     r.Wildcard.Clone(),
		Typosquat:    r.Typosquat.Clone(),
		Propagation:  r.Propagation.Clone(),
		ZoneTransfer: r.ZoneTransfer.Clone(),
	}
	if r.MailTLS != nil {
		cp.MailTLS = make([]mailtls.Result, len(r.MailTLS))
		for i, m := range r.MailTLS {
			cp.MailTLS[i] = m.Clone()
		}
	}
	if r.Errors != nil {
		cp.Errors = make(map[CheckType]string, len(r.Errors))
		for k, v := range r.Errors {
			cp.Errors[k] = v
		}
	}
	return cp
}
