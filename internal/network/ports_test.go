package network

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestServiceName(t *testing.T) {
	tests := []struct {
		port int
		want string
	}{
		{80, "http"},
		{443, "https"},
		{22, "ssh"},
		{3306, "mysql"},
		{993, "imaps"},
		{27017, "mongodb"},
		{9999, "unknown"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("port_%d", tt.port), func(t *testing.T) {
			if got := ServiceName(tt.port); got != tt.want {
				t.Errorf("ServiceName(%d) = %v, want %v", tt.port, got, tt.want)
			}
		})
	}
}

func TestPortRisk(t *testing.T) {
	tests := []struct {
		port int
		want string
	}{
		{23, RiskCritical},
		{3389, RiskCritical},
		{22, RiskHigh},
		{6379, RiskHigh},
		{8080, RiskMedium},
		{25, RiskMedium},
		{443, RiskLow},
		{12345, RiskInfo},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("port_%d", tt.port), func(t *testing.T) {
			if got := PortRisk(tt.port); got != tt.want {
				t.Errorf("PortRisk(%d) = %v, want %v", tt.port, got, tt.want)
			}
		})
	}
}

// listen opens a loopback listener that writes banner to every client.
func listen(t *testing.T, banner string) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			if banner != "" {
				_, _ = conn.Write([]byte(banner))
			}
			_ = conn.Close()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

func TestScannerScan(t *testing.T) {
	withBanner := listen(t, "SSH-2.0-OpenSSH_9.6\r\n")
	silent := listen(t, "")
	closed := closedPort(t)

	s := NewScanner([]int{silent, closed, withBanner}, time.Second, 2, zaptest.NewLogger(t))
	s.BannerWait = 200 * time.Millisecond

	open := s.Scan(context.Background(), "127.0.0.1")
	if len(open) != 2 {
		t.Fatalf("got %d open ports, want 2: %+v", len(open), open)
	}
	for i := 1; i < len(open); i++ {
		if open[i-1].Port > open[i].Port {
			t.Errorf("ports not sorted: %+v", open)
		}
	}
	for _, p := range open {
		if p.State != "open" || p.Protocol != "tcp" || p.Description == "" {
			t.Errorf("incomplete port info %+v", p)
		}
		switch p.Port {
		case withBanner:
			if p.Banner != "SSH-2.0-OpenSSH_9.6" {
				t.Errorf("banner = %q", p.Banner)
			}
		case silent:
			if p.Banner != "" {
				t.Errorf("silent port banner = %q", p.Banner)
			}
		default:
			t.Errorf("unexpected port %d", p.Port)
		}
	}
}

func TestScannerCancelledContext(t *testing.T) {
	port := listen(t, "")
	s := NewScanner([]int{port}, time.Second, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if open := s.Scan(ctx, "127.0.0.1"); len(open) != 0 {
		t.Errorf("cancelled scan found %+v", open)
	}
}

func TestNewScannerDefaults(t *testing.T) {
	s := NewScanner(nil, 0, 0, nil)
	if len(s.Ports) != len(DefaultPorts) || s.Timeout != 2*time.Second || s.MaxWorkers != 10 {
		t.Errorf("defaults = %+v", s)
	}
}

func TestAnalyzeRisks(t *testing.T) {
	s := NewScanner(nil, 0, 0, nil)
	ports := []PortInfo{
		{Port: 23, Risk: RiskCritical},
		{Port: 22, Risk: RiskHigh},
		{Port: 3306, Risk: RiskHigh},
		{Port: 443, Risk: RiskLow},
	}
	issues, recs := s.AnalyzeRisks(ports)
	if len(issues) != 2 || len(recs) != 2 {
		t.Fatalf("issues=%v recs=%v", issues, recs)
	}
	if !strings.HasPrefix(issues[0], "1 critical") || !strings.HasPrefix(issues[1], "2 high-risk") {
		t.Errorf("issues = %v", issues)
	}

	if issues, recs := s.AnalyzeRisks([]PortInfo{{Port: 80, Risk: RiskLow}}); issues != nil || recs != nil {
		t.Errorf("web-only exposure produced %v / %v", issues, recs)
	}
}
