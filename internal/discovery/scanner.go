package discovery

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/netmap-core/internal/device"
)

const (
	defaultSubnet   = "192.168.1.0/24"
	defaultWorkers  = 32
	defaultMaxHosts = 4096

	// UnknownHostname names a promoted candidate that had no reverse DNS.
	UnknownHostname = "Unknown"
)

// Pinger reports whether an address answers.
type Pinger interface {
	Reachable(ctx context.Context, ip string) (bool, error)
}

// Resolver performs reverse DNS. *net.Resolver satisfies it.
type Resolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// Inventory is the subset of the device registry discovery needs.
type Inventory interface {
	TrackedIPs(ctx context.Context) (map[string]struct{}, error)
	CreateDevice(ctx context.Context, d *device.Device) error
}

// Metrics receives scan outcomes.
type Metrics interface {
	ObserveScan(err error)
}

// Observer is told about every completed scan.
type Observer interface {
	ScanCompleted(ctx context.Context, result *ScanResult)
}

// Logger defines the logging interface used by the Scanner.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Candidate is a responsive host not yet in the inventory.
type Candidate struct {
	Hostname  *string `json:"hostname"`
	IPAddress string  `json:"ip_address"`
}

// ScanResult is a completed scan.
type ScanResult struct {
	Subnet     string        `json:"subnet"`
	Candidates []Candidate   `json:"candidates"`
	Swept      int           `json:"swept"`
	Responsive int           `json:"responsive"`
	Duration   time.Duration `json:"duration"`
	At         time.Time     `json:"at"`
}

// Config holds scanner settings.
type Config struct {
	DefaultSubnet    string
	Workers          int
	MaxHosts         int
	ResolveHostnames bool
}

// Scanner sweeps subnets and promotes candidates.
type Scanner struct {
	cfg       Config
	pinger    Pinger
	resolver  Resolver
	inventory Inventory
	history   device.StatusHistoryRepository

	metrics   Metrics
	observers []Observer
	obsMu     sync.RWMutex
	logger    Logger
}

// NewScanner creates a Scanner. resolver may be nil to skip reverse DNS.
func NewScanner(cfg Config, pinger Pinger, resolver Resolver, inventory Inventory) *Scanner {
	if cfg.DefaultSubnet == "" {
		cfg.DefaultSubnet = defaultSubnet
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.MaxHosts <= 0 {
		cfg.MaxHosts = defaultMaxHosts
	}
	if resolver == nil {
		cfg.ResolveHostnames = false
	}
	return &Scanner{
		cfg:       cfg,
		pinger:    pinger,
		resolver:  resolver,
		inventory: inventory,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the scanner.
func (s *Scanner) SetLogger(logger Logger) {
	s.logger = logger
}

// SetMetrics sets the metrics sink for the scanner.
func (s *Scanner) SetMetrics(metrics Metrics) {
	s.metrics = metrics
}

// SetStatusHistory records promotions in the device status history.
func (s *Scanner) SetStatusHistory(history device.StatusHistoryRepository) {
	s.history = history
}

// AddObserver registers o for completed scans.
func (s *Scanner) AddObserver(o Observer) {
	s.obsMu.Lock()
	s.observers = append(s.observers, o)
	s.obsMu.Unlock()
}

// Scan sweeps subnet (or the configured default when empty) and returns
// responsive hosts that are not tracked yet, ordered by address.
// Every failure wraps ErrScan.
func (s *Scanner) Scan(ctx context.Context, subnet string) (*ScanResult, error) {
	result, err := s.scan(ctx, subnet)
	if s.metrics != nil {
		s.metrics.ObserveScan(err)
	}
	if err != nil {
		s.logger.Warn("subnet scan failed", "subnet", subnet, "error", err)
		return nil, err
	}

	s.logger.Info("subnet scan completed",
		"subnet", result.Subnet,
		"swept", result.Swept,
		"responsive", result.Responsive,
		"new", len(result.Candidates),
		"duration", result.Duration.String(),
	)

	s.obsMu.RLock()
	observers := s.observers
	s.obsMu.RUnlock()
	for _, o := range observers {
		o.ScanCompleted(ctx, result)
	}
	return result, nil
}

func (s *Scanner) scan(ctx context.Context, subnet string) (*ScanResult, error) {
	start := time.Now()
	if strings.TrimSpace(subnet) == "" {
		subnet = s.cfg.DefaultSubnet
	}

	prefix, err := ParseSubnet(subnet)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScan, err)
	}
	hosts, err := usableHosts(prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScan, err)
	}
	if hosts.count > int64(s.cfg.MaxHosts) {
		return nil, fmt.Errorf("%w: %w: %s has %d hosts, limit is %d",
			ErrScan, ErrSubnetTooLarge, prefix, hosts.count, s.cfg.MaxHosts)
	}

	addrs := hosts.addrs()
	found := make([]*Candidate, len(addrs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, addr := range addrs {
		ip := addr.String()
		g.Go(func() error {
			ok, err := s.pinger.Reachable(gctx, ip)
			if err != nil {
				return err
			}
			if ok {
				found[i] = &Candidate{IPAddress: ip, Hostname: s.lookupHostname(gctx, ip)}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScan, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScan, err)
	}

	tracked, err := s.inventory.TrackedIPs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: loading tracked addresses: %w", ErrScan, err)
	}

	result := &ScanResult{
		Subnet:     prefix.String(),
		Candidates: []Candidate{},
		Swept:      len(addrs),
		At:         time.Now().UTC(),
	}
	// found is indexed by address order, so candidates come out sorted.
	for _, c := range found {
		if c == nil {
			continue
		}
		result.Responsive++
		if _, ok := tracked[c.IPAddress]; ok {
			continue
		}
		result.Candidates = append(result.Candidates, *c)
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (s *Scanner) lookupHostname(ctx context.Context, ip string) *string {
	if !s.cfg.ResolveHostnames {
		return nil
	}
	names, err := s.resolver.LookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		return nil
	}
	name := strings.TrimSuffix(names[0], ".")
	if name == "" {
		return nil
	}
	return &name
}

// Promote turns a candidate into an online device of type OTHER, named
// "Unknown" when the candidate has no hostname.
func (s *Scanner) Promote(ctx context.Context, c Candidate) (*device.Device, error) {
	ip := strings.TrimSpace(c.IPAddress)
	if ip == "" {
		return nil, fmt.Errorf("%w: %w: ip_address is required", device.ErrInvalidDevice, device.ErrInvalidIPAddress)
	}

	hostname := UnknownHostname
	if c.Hostname != nil && strings.TrimSpace(*c.Hostname) != "" {
		hostname = *c.Hostname
	}

	d := &device.Device{
		Hostname:   hostname,
		IPAddress:  &ip,
		DeviceType: device.DeviceTypeOther,
		IsOnline:   true,
	}
	if err := s.inventory.CreateDevice(ctx, d); err != nil {
		return nil, err
	}

	if s.history != nil {
		if err := s.history.RecordStatusChange(ctx, d.ID, true, device.StatusSourcePromote, ""); err != nil {
			s.logger.Warn("failed to record promotion in status history", "device_id", d.ID, "error", err)
		}
	}

	s.logger.Info("candidate promoted", "device_id", d.ID, "ip", ip, "hostname", hostname)
	return d, nil
}

// NetResolver is the default resolver.
var NetResolver Resolver = net.DefaultResolver
