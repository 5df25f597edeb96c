package probe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Probe methods.
const (
	MethodLocalhost = "localhost"
	MethodPing      = "ping"
	MethodARP       = "arp"
	MethodNone      = "none"
)

// Status texts. Every online text contains the word "online".
const (
	StatusOnline          = "Device is online"
	StatusOnlineLocalhost = "Device is online (localhost)"
	StatusOnlineARP       = "Device is online (ARP fallback)"
	StatusOffline         = "Device is offline"
)

const (
	defaultTimeout = 2 * time.Second

	// commandGrace is added to the ping deadline so ping can report its
	// own timeout before the context kills it.
	commandGrace = time.Second

	procARPTable = "/proc/net/arp"

	// arpFlagIncomplete marks an ARP entry with no resolved MAC.
	arpFlagIncomplete = "0x0"
)

// Result is the outcome of one probe.
type Result struct {
	Online  bool          `json:"online"`
	Method  string        `json:"method"`
	Status  string        `json:"status"`
	Output  string        `json:"output,omitempty"`
	Latency time.Duration `json:"latency"`
}

// Prober checks the reachability of an address.
type Prober interface {
	Probe(ctx context.Context, ip string) (Result, error)
}

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec // name is ping or arp, args are a validated address
}

// Config holds probe settings.
type Config struct {
	// Timeout bounds a single ping. Defaults to 2s.
	Timeout time.Duration

	// ARPTablePath overrides /proc/net/arp. When the file is missing,
	// "arp -a" is used instead.
	ARPTablePath string

	// Runner overrides command execution. Defaults to ExecRunner.
	Runner Runner
}

// Pinger probes with ping and falls back to the ARP table.
type Pinger struct {
	timeout  time.Duration
	arpTable string
	run      Runner
}

// New creates a Pinger from cfg, applying defaults.
func New(cfg Config) *Pinger {
	p := &Pinger{
		timeout:  cfg.Timeout,
		arpTable: cfg.ARPTablePath,
		run:      cfg.Runner,
	}
	if p.timeout <= 0 {
		p.timeout = defaultTimeout
	}
	if p.arpTable == "" {
		p.arpTable = procARPTable
	}
	if p.run == nil {
		p.run = ExecRunner
	}
	return p
}

// IsLocalhost reports whether ip names the local host.
func IsLocalhost(ip string) bool {
	switch ip {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// Probe checks ip with ping, then the ARP table.
func (p *Pinger) Probe(ctx context.Context, ip string) (Result, error) {
	start := time.Now()
	if IsLocalhost(ip) {
		return Result{
			Online: true,
			Method: MethodLocalhost,
			Status: StatusOnlineLocalhost,
		}, nil
	}

	out, err := p.ping(ctx, ip)
	if err == nil {
		return Result{
			Online:  true,
			Method:  MethodPing,
			Status:  StatusOnline,
			Output:  string(out),
			Latency: time.Since(start),
		}, nil
	}
	if fatal := probeError(ctx, err); fatal != nil {
		return Result{}, fatal
	}

	if p.inARPTable(ctx, ip) {
		return Result{
			Online:  true,
			Method:  MethodARP,
			Status:  StatusOnlineARP,
			Latency: time.Since(start),
		}, nil
	}

	return Result{
		Online:  false,
		Method:  MethodNone,
		Status:  StatusOffline,
		Output:  string(out),
		Latency: time.Since(start),
	}, nil
}

// Reachable sends a single ping without the ARP fallback.
func (p *Pinger) Reachable(ctx context.Context, ip string) (bool, error) {
	if IsLocalhost(ip) {
		return true, nil
	}
	if _, err := p.ping(ctx, ip); err != nil {
		if fatal := probeError(ctx, err); fatal != nil {
			return false, fatal
		}
		return false, nil
	}
	return true, nil
}

func (p *Pinger) ping(ctx context.Context, ip string) ([]byte, error) {
	seconds := max(int(p.timeout/time.Second), 1)

	pingCtx, cancel := context.WithTimeout(ctx, p.timeout+commandGrace)
	defer cancel()

	return p.run(pingCtx, "ping", "-c", "1", "-W", strconv.Itoa(seconds), ip)
}

// probeError separates "host did not answer" from "could not probe".
func probeError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, ctxErr)
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	return nil
}

func (p *Pinger) inARPTable(ctx context.Context, ip string) bool {
	if data, err := os.ReadFile(p.arpTable); err == nil {
		return procARPContains(data, ip)
	}

	out, err := p.run(ctx, "arp", "-a")
	if err != nil {
		return false
	}
	return arpOutputContains(out, ip)
}

// procARPContains parses the /proc/net/arp format:
//
//	IP address       HW type     Flags       HW address            Mask     Device
//	192.168.1.1      0x1         0x2         aa:bb:cc:dd:ee:ff     *        eth0
func procARPContains(data []byte, ip string) bool {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] != ip {
			continue
		}
		if fields[2] != arpFlagIncomplete {
			return true
		}
	}
	return false
}

// arpOutputContains matches "? (192.168.1.1) at aa:bb:..." lines from arp -a.
func arpOutputContains(out []byte, ip string) bool {
	needle := "(" + ip + ")"
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if strings.Contains(line, needle) && !strings.Contains(line, "incomplete") {
			return true
		}
	}
	return false
}
