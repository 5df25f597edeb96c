package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/nerrad567/netmap-core/internal/device"
	"github.com/nerrad567/netmap-core/internal/probe"
)

const (
	defaultInterval    = 30 * time.Second
	defaultConcurrency = 16

	refreshKey = "refresh"
)

// Refresh cycle outcomes, as reported to Metrics.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeCoalesced = "coalesced"
	OutcomeFailed    = "failed"
)

// Devices is the subset of the device registry the monitor needs.
type Devices interface {
	ListDevices(ctx context.Context, filter device.Filter) ([]device.Device, error)
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	SetOnline(ctx context.Context, id string, online bool) (*device.Device, bool, error)
	Counts() (total, online int)
}

// Metrics receives probe and cycle observations.
type Metrics interface {
	ObserveProbe(method string, online bool, err error, d time.Duration)
	ObserveRefreshCycle(outcome string)
	SetDeviceCounts(total, online int)
}

// Logger defines the logging interface used by the Monitor.
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

type noopMetrics struct{}

func (noopMetrics) ObserveProbe(string, bool, error, time.Duration) {}
func (noopMetrics) ObserveRefreshCycle(string)                      {}
func (noopMetrics) SetDeviceCounts(int, int)                        {}

// Config holds monitor settings.
type Config struct {
	// Interval between refresh cycles. Default: 30 seconds.
	Interval time.Duration

	// Concurrency caps simultaneous probes. Default: 16.
	Concurrency int
}

// Summary describes one refresh cycle.
type Summary struct {
	Probed   int           `json:"probed"`
	Online   int           `json:"online"`
	Changed  int           `json:"changed"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// Monitor periodically probes devices and applies the results.
type Monitor struct {
	devices     Devices
	prober      probe.Prober
	interval    time.Duration
	concurrency int

	notifiers   []Notifier
	notifiersMu sync.RWMutex

	metrics Metrics
	logger  Logger

	cycles singleflight.Group

	cancel   context.CancelFunc
	cancelMu sync.Mutex
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a Monitor. Call Start to begin periodic refreshes.
func New(devices Devices, prober probe.Prober, cfg Config) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Monitor{
		devices:     devices,
		prober:      prober,
		interval:    interval,
		concurrency: concurrency,
		metrics:     noopMetrics{},
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the monitor.
func (m *Monitor) SetLogger(logger Logger) {
	m.logger = logger
}

// SetMetrics sets the metrics sink for the monitor.
func (m *Monitor) SetMetrics(metrics Metrics) {
	m.metrics = metrics
}

// AddNotifier registers n to receive every probe result.
func (m *Monitor) AddNotifier(n Notifier) {
	m.notifiersMu.Lock()
	m.notifiers = append(m.notifiers, n)
	m.notifiersMu.Unlock()
}

// Start runs a refresh immediately and then on every tick until ctx is
// cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)

	m.cancelMu.Lock()
	m.cancel = cancel
	m.cancelMu.Unlock()

	m.wg.Add(1)
	go m.loop(loopCtx)

	m.logger.Info("status monitor started", "interval", m.interval.String(), "concurrency", m.concurrency)
}

// Stop cancels the in-flight cycle and waits for it to finish.
// Safe to call multiple times, and before Start.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.cancelMu.Lock()
		cancel := m.cancel
		m.cancelMu.Unlock()

		if cancel != nil {
			cancel()
		}
		m.wg.Wait()
		m.logger.Info("status monitor stopped")
	})
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// tick starts a cycle without blocking the ticker; a slow cycle is joined
// by later ticks.
func (m *Monitor) tick(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		summary, err := m.RefreshAll(ctx)
		if err != nil {
			m.logger.Debug("refresh cycle ended early", "error", err)
			return
		}
		m.logger.Debug("refresh cycle completed",
			"probed", summary.Probed,
			"online", summary.Online,
			"changed", summary.Changed,
			"failed", summary.Failed,
			"duration", summary.Duration.String(),
		)
	}()
}

// RefreshAll probes every device that has an IP address. If a cycle is
// already running, the call waits for it and returns its summary. The
// cycle runs under the context of the call that started it.
func (m *Monitor) RefreshAll(ctx context.Context) (Summary, error) {
	var leader bool
	ch := m.cycles.DoChan(refreshKey, func() (any, error) {
		leader = true
		return m.refresh(ctx)
	})

	res := <-ch
	if !leader {
		m.metrics.ObserveRefreshCycle(OutcomeCoalesced)
	}
	summary, _ := res.Val.(Summary) //nolint:errcheck // refresh always returns a Summary
	return summary, res.Err
}

func (m *Monitor) refresh(ctx context.Context) (Summary, error) {
	start := time.Now()

	devices, err := m.devices.ListDevices(ctx, device.Filter{})
	if err != nil {
		m.metrics.ObserveRefreshCycle(OutcomeFailed)
		return Summary{}, fmt.Errorf("listing devices: %w", err)
	}

	var probed, online, changed, failed, skipped atomic.Int64

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i := range devices {
		d := devices[i]
		if d.IP() == "" {
			skipped.Add(1)
			continue
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			ev, err := m.probeDevice(ctx, &d, device.StatusSourceMonitor)
			if err != nil {
				failed.Add(1)
				return nil
			}
			probed.Add(1)
			if ev.Result.Online {
				online.Add(1)
			}
			if ev.Changed {
				changed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // per-device failures are counted, never returned

	m.metrics.SetDeviceCounts(m.devices.Counts())

	summary := Summary{
		Probed:   int(probed.Load()),
		Online:   int(online.Load()),
		Changed:  int(changed.Load()),
		Failed:   int(failed.Load()),
		Skipped:  int(skipped.Load()),
		Duration: time.Since(start),
	}

	if err := ctx.Err(); err != nil {
		m.metrics.ObserveRefreshCycle(OutcomeCancelled)
		return summary, err
	}
	m.metrics.ObserveRefreshCycle(OutcomeCompleted)
	return summary, nil
}

// CheckDevice probes one device immediately and applies the result.
// A device without an IP address fails with device.ErrNoIPAddress.
func (m *Monitor) CheckDevice(ctx context.Context, id string) (*device.Device, probe.Result, error) {
	d, err := m.devices.GetDevice(ctx, id)
	if err != nil {
		return nil, probe.Result{}, err
	}
	if d.IP() == "" {
		return nil, probe.Result{}, device.ErrNoIPAddress
	}

	ev, err := m.probeDevice(ctx, d, device.StatusSourceCheck)
	if err != nil {
		return nil, probe.Result{}, err
	}
	m.metrics.SetDeviceCounts(m.devices.Counts())
	return &ev.Device, ev.Result, nil
}

// probeDevice probes d, writes the result and notifies. On error the
// device keeps its previous state.
func (m *Monitor) probeDevice(ctx context.Context, d *device.Device, source string) (Event, error) {
	start := time.Now()
	res, err := m.prober.Probe(ctx, d.IP())
	m.metrics.ObserveProbe(res.Method, res.Online, err, time.Since(start))
	if err != nil {
		m.logger.Debug("probe failed", "device_id", d.ID, "ip", d.IP(), "error", err)
		return Event{}, err
	}

	updated, changed, err := m.devices.SetOnline(ctx, d.ID, res.Online)
	if err != nil {
		if !errors.Is(err, device.ErrDeviceNotFound) {
			m.logger.Warn("failed to apply probe result", "device_id", d.ID, "error", err)
		}
		return Event{}, err
	}

	ev := Event{
		Device:  *updated,
		Result:  res,
		Changed: changed,
		Source:  source,
		At:      time.Now().UTC(),
	}
	if changed {
		m.logger.Info("device status changed",
			"device_id", d.ID, "hostname", d.Hostname, "is_online", res.Online, "method", res.Method)
	}
	m.notify(ctx, ev)
	return ev, nil
}

func (m *Monitor) notify(ctx context.Context, ev Event) {
	m.notifiersMu.RLock()
	notifiers := m.notifiers
	m.notifiersMu.RUnlock()

	for _, n := range notifiers {
		n.StatusObserved(ctx, ev)
	}
}
