package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// timeFormat is fixed-width so TEXT timestamps sort chronologically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const deviceColumns = `id, hostname, ip_address, mac_address, device_type, notes, photo,
	is_online, created_at, updated_at`

// Repository defines the interface for device persistence operations.
type Repository interface {
	// GetByID returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// List returns devices matching filter, ordered by hostname.
	List(ctx context.Context, filter Filter) ([]Device, error)

	// Create returns ErrDeviceExists if the ID is taken.
	Create(ctx context.Context, device *Device) error

	// Update replaces every mutable field. CreatedAt is preserved.
	Update(ctx context.Context, device *Device) error

	// Delete cascades to the device's connections and configuration files.
	Delete(ctx context.Context, id string) error

	// UpdateOnline writes only the reachability flag.
	UpdateOnline(ctx context.Context, id string, online bool, at time.Time) error

	// UpdatePhoto sets or clears (empty key) the photo blob key.
	UpdatePhoto(ctx context.Context, id string, key string, at time.Time) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+deviceColumns+" FROM devices WHERE id = ?", id)
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	return device, nil
}

// List retrieves devices matching filter, ordered by hostname.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]Device, error) {
	var conditions []string
	var args []any
	if filter.Type != "" {
		conditions = append(conditions, "device_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.IsOnline != nil {
		conditions = append(conditions, "is_online = ?")
		args = append(args, boolToInt(*filter.IsOnline))
	}

	query := "SELECT " + deviceColumns + " FROM devices"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY hostname, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Create inserts a new device, filling CreatedAt and UpdatedAt.
func (r *SQLiteRepository) Create(ctx context.Context, device *Device) error {
	now := time.Now().UTC()
	if device.CreatedAt.IsZero() {
		device.CreatedAt = now
	}
	device.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		device.ID,
		device.Hostname,
		nullableString(device.IPAddress),
		nullableString(device.MACAddress),
		string(device.DeviceType),
		device.Notes,
		nullableString(&device.Photo),
		boolToInt(device.IsOnline),
		device.CreatedAt.UTC().Format(timeFormat),
		device.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Update modifies an existing device.
func (r *SQLiteRepository) Update(ctx context.Context, device *Device) error {
	device.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			hostname = ?, ip_address = ?, mac_address = ?, device_type = ?,
			notes = ?, photo = ?, is_online = ?, updated_at = ?
		WHERE id = ?`,
		device.Hostname,
		nullableString(device.IPAddress),
		nullableString(device.MACAddress),
		string(device.DeviceType),
		device.Notes,
		nullableString(&device.Photo),
		boolToInt(device.IsOnline),
		device.UpdatedAt.Format(timeFormat),
		device.ID,
	)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}
	return requireOneRow(result)
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return requireOneRow(result)
}

// UpdateOnline writes the reachability flag.
func (r *SQLiteRepository) UpdateOnline(ctx context.Context, id string, online bool, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE devices SET is_online = ?, updated_at = ? WHERE id = ?",
		boolToInt(online), at.UTC().Format(timeFormat), id,
	)
	if err != nil {
		return fmt.Errorf("updating device status: %w", err)
	}
	return requireOneRow(result)
}

// UpdatePhoto sets or clears the photo key.
func (r *SQLiteRepository) UpdatePhoto(ctx context.Context, id string, key string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE devices SET photo = ?, updated_at = ? WHERE id = ?",
		nullableString(&key), at.UTC().Format(timeFormat), id,
	)
	if err != nil {
		return fmt.Errorf("updating device photo: %w", err)
	}
	return requireOneRow(result)
}

func requireOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(scanner rowScanner) (*Device, error) {
	var d Device
	var ip, mac, notes, photo sql.NullString
	var deviceType, createdAt, updatedAt string
	var online int

	if err := scanner.Scan(
		&d.ID, &d.Hostname, &ip, &mac, &deviceType, &notes, &photo,
		&online, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	if ip.Valid {
		d.IPAddress = &ip.String
	}
	if mac.Valid {
		d.MACAddress = &mac.String
	}
	d.Notes = notes.String
	d.Photo = photo.String
	d.DeviceType = DeviceType(deviceType)
	d.IsOnline = online != 0

	var err error
	if d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at %q: %w", updatedAt, err)
	}
	return &d, nil
}

// nullableString maps nil and empty strings to NULL.
func nullableString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
