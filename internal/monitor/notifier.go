package monitor

import (
	"context"
	"time"

	"github.com/nerrad567/netmap-core/internal/device"
	"github.com/nerrad567/netmap-core/internal/probe"
)

// Event is a single applied probe result.
type Event struct {
	Device  device.Device `json:"device"`
	Result  probe.Result  `json:"result"`
	Changed bool          `json:"changed"`
	Source  string        `json:"source"`
	At      time.Time     `json:"at"`
}

// Notifier receives every applied probe result, changed or not.
// Implementations must not block for long; they run on the probe goroutine.
type Notifier interface {
	StatusObserved(ctx context.Context, ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event)

// StatusObserved calls f.
func (f NotifierFunc) StatusObserved(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// OnChange wraps n so it only sees events where is_online changed.
func OnChange(n Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, ev Event) {
		if ev.Changed {
			n.StatusObserved(ctx, ev)
		}
	})
}

// HistoryRecorder writes status transitions to the status history.
type HistoryRecorder struct {
	repo   device.StatusHistoryRepository
	logger Logger
}

// NewHistoryRecorder creates a Notifier backed by repo. Register it
// through OnChange so only transitions are stored.
func NewHistoryRecorder(repo device.StatusHistoryRepository, logger Logger) *HistoryRecorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &HistoryRecorder{repo: repo, logger: logger}
}

// StatusObserved records ev as a transition.
func (h *HistoryRecorder) StatusObserved(ctx context.Context, ev Event) {
	if err := h.repo.RecordStatusChange(ctx, ev.Device.ID, ev.Result.Online, ev.Source, ev.Result.Method); err != nil {
		h.logger.Warn("failed to record status history", "device_id", ev.Device.ID, "error", err)
	}
}
