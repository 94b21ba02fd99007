package healthcheck

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/khanhnv2901/domaincheck/internal/dnsclient"
	"github.com/khanhnv2901/domaincheck/internal/dnsrecords"
)

type mapResolver map[string][]string

func (m mapResolver) Query(_ context.Context, name string, qtype uint16) (*dnsclient.Response, error) {
	key := name + "/" + dnsclient.TypeName(qtype)
	if key == "broken.example/MX" {
		return nil, errors.New("servfail")
	}
	resp := &dnsclient.Response{}
	for _, d := range m[key] {
		resp.Answers = append(resp.Answers, dnsclient.Answer{Name: name, Type: qtype, Data: d})
	}
	return resp, nil
}

func TestDefaultHandlersFollowDeps(t *testing.T) {
	if hs := DefaultHandlers(Deps{}); len(hs) != 0 {
		t.Errorf("empty deps produced %d handlers", len(hs))
	}

	r := mapResolver{}
	reg := NewRegistry(DefaultHandlers(Deps{
		Resolver:  r,
		Collector: dnsrecords.NewCollector(r, nil),
	})...)
	want := []CheckType{CheckRecords, CheckWildcard, CheckTyposquat}
	if got := reg.Types(); !reflect.DeepEqual(got, want) {
		t.Errorf("Types = %v, want %v", got, want)
	}
}

func TestDefaultHandlersRunThroughService(t *testing.T) {
	r := mapResolver{
		"example.com/A":         {"192.0.2.1"},
		"examp1e.com/A":         {"203.0.113.5"},
		"_dmarc.example.com/TXT": {`"v=DMARC1; p=reject"`},
	}
	svc := NewService(NewRegistry(DefaultHandlers(Deps{
		Resolver:       r,
		Collector:      dnsrecords.NewCollector(r, nil),
		TyposquatLimit: 100,
	})...), nil)

	report, err := svc.Verify(context.Background(), "example.com", nil)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if report.Records == nil || report.Records.DMARC != "v=DMARC1; p=reject" {
		t.Errorf("Records = %+v", report.Records)
	}
	if report.Wildcard == nil || report.Wildcard.Wildcard {
		t.Errorf("Wildcard = %+v", report.Wildcard)
	}
	if report.Typosquat == nil || len(report.Typosquat.Registered) != 1 || report.Typosquat.Registered[0].Domain != "examp1e.com" {
		t.Errorf("Typosquat = %+v", report.Typosquat)
	}
}

func TestMXHosts(t *testing.T) {
	r := mapResolver{
		"example.com/MX": {"20 mx2.example.com.", "10 mx1.example.com.", "garbage"},
		"nomail.com/MX":  {"0 ."},
	}
	hosts, err := mxHosts(context.Background(), r, "example.com")
	if err != nil || !reflect.DeepEqual(hosts, []string{"mx1.example.com", "mx2.example.com"}) {
		t.Errorf("hosts = %v, err = %v", hosts, err)
	}
	if _, err := mxHosts(context.Background(), r, "nomail.com"); !errors.Is(err, errNoMX) {
		t.Errorf("null MX error = %v", err)
	}
	if _, err := mxHosts(context.Background(), r, "broken.example"); err == nil {
		t.Error("expected resolver error")
	}
}
