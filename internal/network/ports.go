// Package network probes the network surface of a domain: exposed TCP
// services and CNAMEs left pointing at unclaimed third-party resources.
package network

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/domaincheck/internal/shared/constants"
)

// Risk levels assigned to open ports.
const (
	RiskCritical = "critical"
	RiskHigh     = "high"
	RiskMedium   = "medium"
	RiskLow      = "low"
	RiskInfo     = "info"
)

// DefaultPorts is scanned when no port list is configured.
var DefaultPorts = []int{21, 22, 23, 25, 53, 80, 110, 143, 443, 445, 3306, 3389, 5432, 5900, 6379, 8080, 8443, 27017}

var serviceNames = map[int]string{
	21:    "ftp",
	22:    "ssh",
	23:    "telnet",
	25:    "smtp",
	53:    "dns",
	80:    "http",
	110:   "pop3",
	143:   "imap",
	443:   "https",
	445:   "smb",
	465:   "smtps",
	587:   "submission",
	993:   "imaps",
	995:   "pop3s",
	3306:  "mysql",
	3389:  "rdp",
	5432:  "postgresql",
	5900:  "vnc",
	6379:  "redis",
	8080:  "http-alt",
	8443:  "https-alt",
	27017: "mongodb",
}

var portRisks = map[int]string{
	23: RiskCritical, 3389: RiskCritical, 5900: RiskCritical,
	21: RiskHigh, 22: RiskHigh, 445: RiskHigh, 3306: RiskHigh, 5432: RiskHigh, 6379: RiskHigh, 27017: RiskHigh,
	25: RiskMedium, 110: RiskMedium, 143: RiskMedium, 8080: RiskMedium, 8443: RiskMedium,
	80: RiskLow, 443: RiskLow,
}

// PortInfo describes one open TCP port.
type PortInfo struct {
	Port        int    `json:"port"`
	Protocol    string `json:"protocol"`
	State       string `json:"state"`
	Service     string `json:"service"`
	Banner      string `json:"banner,omitempty"`
	Risk        string `json:"risk"`
	Description string `json:"description,omitempty"`
}

// Scanner dials a fixed list of TCP ports with a bounded worker pool.
type Scanner struct {
	Ports      []int
	Timeout    time.Duration
	MaxWorkers int
	BannerWait time.Duration
	logger     *zap.Logger
}

// NewScanner returns a scanner for ports. Zero values fall back to
// DefaultPorts, a 2s dial timeout and 10 workers.
func NewScanner(ports []int, timeout time.Duration, maxWorkers int, logger *zap.Logger) *Scanner {
	if len(ports) == 0 {
		ports = DefaultPorts
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if maxWorkers <= 0 {
		maxWorkers = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		Ports:      append([]int(nil), ports...),
		Timeout:    timeout,
		MaxWorkers: maxWorkers,
		BannerWait: time.Second,
		logger:     logger,
	}
}

// Scan returns the open ports on host, sorted by port number, with
// service, risk and description filled in.
func (s *Scanner) Scan(ctx context.Context, host string) []PortInfo {
	start := time.Now()
	portChan := make(chan int)
	resultChan := make(chan PortInfo, len(s.Ports))
	var wg sync.WaitGroup

	workers := s.MaxWorkers
	if workers > len(s.Ports) {
		workers = len(s.Ports)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for port := range portChan {
				if info, ok := s.probe(ctx, host, port); ok {
					resultChan <- info
				}
			}
		}()
	}

	go func() {
		defer close(portChan)
		for _, port := range s.Ports {
			select {
			case portChan <- port:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(resultChan)

	open := make([]PortInfo, 0, len(resultChan))
	for info := range resultChan {
		open = append(open, info)
	}
	sort.Slice(open, func(i, j int) bool { return open[i].Port < open[j].Port })
	describe(open)

	s.logger.Info("port_scan_complete",
		zap.String("host", host),
		zap.Int("scanned", len(s.Ports)),
		zap.Int("open", len(open)),
		zap.Duration("duration", time.Since(start)))
	return open
}

func (s *Scanner) probe(ctx context.Context, host string, port int) (PortInfo, bool) {
	dialer := net.Dialer{Timeout: s.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return PortInfo{}, false
	}
	defer conn.Close()

	info := PortInfo{
		Port:     port,
		Protocol: "tcp",
		State:    "open",
		Service:  ServiceName(port),
		Risk:     PortRisk(port),
	}

	_ = conn.SetReadDeadline(time.Now().Add(s.BannerWait))
	buf := make([]byte, constants.BannerLimitBytes)
	if n, _ := conn.Read(buf); n > 0 {
		info.Banner = strings.TrimSpace(string(buf[:n]))
	}
	return info, true
}

// ServiceName returns the well-known service on port, or "unknown".
func ServiceName(port int) string {
	if name, ok := serviceNames[port]; ok {
		return name
	}
	return "unknown"
}

// PortRisk returns the exposure risk of an open port.
func PortRisk(port int) string {
	if risk, ok := portRisks[port]; ok {
		return risk
	}
	return RiskInfo
}

func describe(ports []PortInfo) {
	for i := range ports {
		p := &ports[i]
		switch p.Risk {
		case RiskCritical:
			p.Description = fmt.Sprintf("CRITICAL: Port %d (%s) should not be exposed to the internet", p.Port, p.Service)
		case RiskHigh:
			p.Description = fmt.Sprintf("HIGH RISK: Port %d (%s) exposed, ensure authentication and encryption", p.Port, p.Service)
		case RiskMedium:
			p.Description = fmt.Sprintf("MEDIUM RISK: Port %d (%s) exposed, review its configuration", p.Port, p.Service)
		case RiskLow:
			p.Description = fmt.Sprintf("LOW RISK: Port %d (%s) is a standard web port", p.Port, p.Service)
		default:
			p.Description = fmt.Sprintf("INFO: Port %d (%s) is open", p.Port, p.Service)
		}
	}
}

// AnalyzeRisks summarizes critical and high-risk exposures.
func (s *Scanner) AnalyzeRisks(ports []PortInfo) (issues, recommendations []string) {
	var critical, high int
	for _, p := range ports {
		switch p.Risk {
		case RiskCritical:
			critical++
		case RiskHigh:
			high++
		}
	}
	if critical > 0 {
		issues = append(issues, fmt.Sprintf("%d critical port(s) exposed (Telnet/RDP/VNC)", critical))
		recommendations = append(recommendations,
			"Close or firewall critical ports. Use a VPN for remote access instead of direct exposure.")
	}
	if high > 0 {
		issues = append(issues, fmt.Sprintf("%d high-risk port(s) exposed (SSH/Database/SMB)", high))
		recommendations = append(recommendations,
			"Restrict database and administrative ports to trusted IPs only.")
	}
	return issues, recommendations
}
