package device

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// StatusHistoryEntry records one observed reachability transition.
type StatusHistoryEntry struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"device_id"`
	IsOnline  bool      `json:"is_online"`
	Source    string    `json:"source"`
	Method    string    `json:"method,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusHistoryRepository stores and retrieves reachability transitions.
type StatusHistoryRepository interface {
	// RecordStatusChange stores a transition. source is one of the
	// StatusSource constants; method is the probe method, if any.
	RecordStatusChange(ctx context.Context, deviceID string, online bool, source, method string) error

	// GetHistory returns up to limit entries, newest first.
	GetHistory(ctx context.Context, deviceID string, limit int) ([]StatusHistoryEntry, error)
}

// SQLiteStatusHistoryRepository implements StatusHistoryRepository.
type SQLiteStatusHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteStatusHistoryRepository creates a new status history repository.
func NewSQLiteStatusHistoryRepository(db *sql.DB) *SQLiteStatusHistoryRepository {
	return &SQLiteStatusHistoryRepository{db: db}
}

// RecordStatusChange inserts a transition for a device.
func (r *SQLiteStatusHistoryRepository) RecordStatusChange(ctx context.Context, deviceID string, online bool, source, method string) error {
	if deviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if source == "" {
		source = StatusSourceMonitor
	}

	var m sql.NullString
	if method != "" {
		m = sql.NullString{String: method, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_status_history (device_id, is_online, source, method, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		deviceID, boolToInt(online), source, m, time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting status history: %w", err)
	}
	return nil
}

// GetHistory returns transitions for a device, newest first.
// limit defaults to 50 and is capped at 200.
func (r *SQLiteStatusHistoryRepository) GetHistory(ctx context.Context, deviceID string, limit int) ([]StatusHistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, device_id, is_online, source, method, created_at
		FROM device_status_history
		WHERE device_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		deviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying status history: %w", err)
	}
	defer rows.Close()

	entries := []StatusHistoryEntry{}
	for rows.Next() {
		var e StatusHistoryEntry
		var online int
		var method sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.DeviceID, &online, &e.Source, &method, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning status history: %w", err)
		}
		e.IsOnline = online != 0
		e.Method = method.String
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parsing status history timestamp %q: %w", createdAt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status history: %w", err)
	}
	return entries, nil
}
