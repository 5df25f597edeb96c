package audit

import (
	"context"
	"sync"
)

// queueSize is the buffer for pending entries. Entries beyond it are dropped.
const queueSize = 256

// Logger is the logging surface the recorder needs.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder queues audit entries and writes them serially from a single
// goroutine, so request handlers never wait on SQLite.
type Recorder struct {
	repo   Repository
	logger Logger
	queue  chan *AuditLog

	wg       sync.WaitGroup
	stopOnce sync.Once
	cancel   context.CancelFunc
}

// NewRecorder creates a recorder writing to repo. Call Start before Record.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{
		repo:   repo,
		logger: noopLogger{},
		queue:  make(chan *AuditLog, queueSize),
	}
}

// SetLogger sets the logger for drop and write failures.
func (r *Recorder) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Start launches the drain goroutine. It exits when ctx is cancelled or
// Stop is called, after writing whatever is still queued.
func (r *Recorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.drain(ctx)
}

// Stop ends the drain goroutine and waits for queued entries to be written.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
	})
	r.wg.Wait()
}

// Record enqueues an entry. It never blocks; a full queue drops the entry.
func (r *Recorder) Record(action, entityType, entityID string, details map[string]any) {
	entry := &AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Source:     "api",
		Details:    details,
	}

	select {
	case r.queue <- entry:
	default:
		r.logger.Warn("audit queue full, dropping entry",
			"action", action,
			"entity_type", entityType,
		)
	}
}

// List passes through to the repository.
func (r *Recorder) List(ctx context.Context, filter Filter) (*ListResult, error) {
	return r.repo.List(ctx, filter)
}

func (r *Recorder) drain(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case entry := <-r.queue:
			r.write(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-r.queue:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(entry *AuditLog) {
	// The request context is gone by now; writes use a fresh one.
	if err := r.repo.Create(context.Background(), entry); err != nil {
		r.logger.Error("audit log write failed",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"error", err,
		)
	}
}
