package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/netmap-core/internal/device"
	"github.com/nerrad567/netmap-core/internal/infrastructure/database"
	"github.com/nerrad567/netmap-core/internal/probe"
	_ "github.com/nerrad567/netmap-core/migrations"
)

type fakeProber struct {
	mu      sync.Mutex
	online  map[string]bool
	errs    map[string]error
	calls   map[string]int
	block   chan struct{}
	entered chan struct{}
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		online: make(map[string]bool),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeProber) Probe(ctx context.Context, ip string) (probe.Result, error) {
	f.mu.Lock()
	f.calls[ip]++
	online, err := f.online[ip], f.errs[ip]
	block, entered := f.block, f.entered
	f.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return probe.Result{}, fmt.Errorf("%w: %w", probe.ErrProbeFailed, ctx.Err())
		}
	}
	if err != nil {
		return probe.Result{}, err
	}
	if online {
		return probe.Result{Online: true, Method: probe.MethodPing, Status: probe.StatusOnline}, nil
	}
	return probe.Result{Method: probe.MethodNone, Status: probe.StatusOffline}, nil
}

func (f *fakeProber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type fakeMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	probes   int
	total    int
	online   int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{outcomes: make(map[string]int)}
}

func (f *fakeMetrics) ObserveProbe(string, bool, error, time.Duration) {
	f.mu.Lock()
	f.probes++
	f.mu.Unlock()
}

func (f *fakeMetrics) ObserveRefreshCycle(outcome string) {
	f.mu.Lock()
	f.outcomes[outcome]++
	f.mu.Unlock()
}

func (f *fakeMetrics) SetDeviceCounts(total, online int) {
	f.mu.Lock()
	f.total, f.online = total, online
	f.mu.Unlock()
}

func (f *fakeMetrics) outcome(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outcomes[name]
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) StatusObserved(_ context.Context, ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

type fixture struct {
	registry *device.Registry
	history  *device.SQLiteStatusHistoryRepository
	prober   *fakeProber
	metrics  *fakeMetrics
	monitor  *Monitor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Open(database.Config{Path: ":memory:", BusyTimeout: 1})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	if err := registry.RefreshCache(context.Background()); err != nil {
		t.Fatal(err)
	}

	f := &fixture{
		registry: registry,
		history:  device.NewSQLiteStatusHistoryRepository(db.DB),
		prober:   newFakeProber(),
		metrics:  newFakeMetrics(),
	}
	f.monitor = New(registry, f.prober, Config{Interval: time.Hour, Concurrency: 4})
	f.monitor.SetMetrics(f.metrics)
	return f
}

func (f *fixture) addDevice(t *testing.T, hostname, ip string) *device.Device {
	t.Helper()
	d := &device.Device{Hostname: hostname, IPAddress: device.StringPtr(ip)}
	if err := f.registry.CreateDevice(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	return d
}

func (f *fixture) isOnline(t *testing.T, id string) bool {
	t.Helper()
	d, err := f.registry.GetDevice(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return d.IsOnline
}

func TestRefreshAll_AppliesResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	up := f.addDevice(t, "up", "10.0.0.1")
	down := f.addDevice(t, "down", "10.0.0.2")
	flaky := f.addDevice(t, "flaky", "10.0.0.3")
	noIP := f.addDevice(t, "no-ip", "")

	// flaky was online before its probe starts failing.
	if _, _, err := f.registry.SetOnline(ctx, flaky.ID, true); err != nil {
		t.Fatal(err)
	}

	f.prober.online["10.0.0.1"] = true
	f.prober.errs["10.0.0.3"] = fmt.Errorf("%w: boom", probe.ErrProbeFailed)

	summary, err := f.monitor.RefreshAll(ctx)
	if err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}

	if summary.Probed != 2 || summary.Online != 1 || summary.Changed != 1 || summary.Failed != 1 || summary.Skipped != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if !f.isOnline(t, up.ID) {
		t.Error("up should be online")
	}
	if f.isOnline(t, down.ID) {
		t.Error("down should be offline")
	}
	if !f.isOnline(t, flaky.ID) {
		t.Error("a failed probe must keep the previous value")
	}
	if f.isOnline(t, noIP.ID) {
		t.Error("device without IP should be untouched")
	}
	if f.prober.calls[""] != 0 {
		t.Error("device without IP was probed")
	}

	if f.metrics.outcome(OutcomeCompleted) != 1 {
		t.Errorf("completed cycles = %d", f.metrics.outcome(OutcomeCompleted))
	}
	if f.metrics.total != 4 || f.metrics.online != 2 {
		t.Errorf("device counts = %d/%d, want 4/2", f.metrics.total, f.metrics.online)
	}
}

func TestRefreshAll_UnchangedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.addDevice(t, "steady", "10.0.0.1")
	f.prober.online["10.0.0.1"] = true

	log := &eventLog{}
	changes := &eventLog{}
	f.monitor.AddNotifier(log)
	f.monitor.AddNotifier(OnChange(changes))

	for range 3 {
		if _, err := f.monitor.RefreshAll(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if !f.isOnline(t, d.ID) {
		t.Error("device should be online")
	}
	if log.len() != 3 {
		t.Errorf("all-results notifier saw %d events, want 3", log.len())
	}
	if changes.len() != 1 {
		t.Errorf("change notifier saw %d events, want 1", changes.len())
	}
}

func TestRefreshAll_CoalescesOverlappingCycles(t *testing.T) {
	f := newFixture(t)
	f.addDevice(t, "slow", "10.0.0.1")
	f.prober.block = make(chan struct{})
	f.prober.entered = make(chan struct{}, 1)

	ctx := context.Background()
	first := make(chan Summary, 1)
	go func() {
		s, _ := f.monitor.RefreshAll(ctx) //nolint:errcheck // compared below
		first <- s
	}()
	<-f.prober.entered

	go func() {
		time.Sleep(100 * time.Millisecond)
		close(f.prober.block)
	}()
	second, err := f.monitor.RefreshAll(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if got := <-first; got != second {
		t.Errorf("joined cycle summary %+v differs from leader %+v", second, got)
	}
	if f.prober.callCount() != 1 {
		t.Errorf("probe calls = %d, want 1", f.prober.callCount())
	}
	if f.metrics.outcome(OutcomeCompleted) != 1 || f.metrics.outcome(OutcomeCoalesced) != 1 {
		t.Errorf("outcomes = %v", f.metrics.outcomes)
	}
}

func TestStartStop(t *testing.T) {
	f := newFixture(t)
	f.addDevice(t, "a", "10.0.0.1")
	f.prober.online["10.0.0.1"] = true
	f.monitor = New(f.registry, f.prober, Config{Interval: 20 * time.Millisecond})
	f.monitor.SetMetrics(f.metrics)

	f.monitor.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for f.metrics.outcome(OutcomeCompleted) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	f.monitor.Stop()
	f.monitor.Stop()

	if f.metrics.outcome(OutcomeCompleted) < 2 {
		t.Errorf("completed cycles = %d, want at least 2", f.metrics.outcome(OutcomeCompleted))
	}

	after := f.prober.callCount()
	time.Sleep(60 * time.Millisecond)
	if f.prober.callCount() != after {
		t.Error("probes continued after Stop")
	}
}

func TestStop_CancelsInFlightCycle(t *testing.T) {
	f := newFixture(t)
	d := f.addDevice(t, "hung", "10.0.0.1")
	f.prober.block = make(chan struct{})
	f.prober.entered = make(chan struct{}, 1)

	f.monitor.Start(context.Background())
	<-f.prober.entered

	done := make(chan struct{})
	go func() {
		f.monitor.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while a probe was in flight")
	}

	if f.isOnline(t, d.ID) {
		t.Error("cancelled probe changed device state")
	}
	if f.metrics.outcome(OutcomeCancelled) != 1 {
		t.Errorf("cancelled cycles = %d, want 1", f.metrics.outcome(OutcomeCancelled))
	}
}

func TestStop_BeforeStart(t *testing.T) {
	f := newFixture(t)
	f.monitor.Stop()
}

func TestCheckDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.monitor.AddNotifier(OnChange(NewHistoryRecorder(f.history, nil)))

	withIP := f.addDevice(t, "host", "10.0.0.9")
	noIP := f.addDevice(t, "bare", "")
	f.prober.online["10.0.0.9"] = true

	d, res, err := f.monitor.CheckDevice(ctx, withIP.ID)
	if err != nil {
		t.Fatalf("CheckDevice() error = %v", err)
	}
	if !d.IsOnline || res.Status != probe.StatusOnline {
		t.Errorf("CheckDevice() = %+v, %+v", d, res)
	}

	history, err := f.history.GetHistory(ctx, withIP.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Source != device.StatusSourceCheck || history[0].Method != probe.MethodPing {
		t.Errorf("history = %+v", history)
	}

	if _, _, err := f.monitor.CheckDevice(ctx, noIP.ID); !errors.Is(err, device.ErrNoIPAddress) {
		t.Errorf("CheckDevice(no ip) = %v, want ErrNoIPAddress", err)
	}
	if _, _, err := f.monitor.CheckDevice(ctx, "missing"); !errors.Is(err, device.ErrDeviceNotFound) {
		t.Errorf("CheckDevice(missing) = %v, want ErrDeviceNotFound", err)
	}

	f.prober.errs["10.0.0.9"] = probe.ErrProbeFailed
	if _, _, err := f.monitor.CheckDevice(ctx, withIP.ID); !errors.Is(err, probe.ErrProbeFailed) {
		t.Errorf("CheckDevice(probe error) = %v", err)
	}
	if !f.isOnline(t, withIP.ID) {
		t.Error("failed check must not change state")
	}
}
