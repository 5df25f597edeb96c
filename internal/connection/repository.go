package connection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/netmap-core/internal/infrastructure/database"
)

const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const selectConnections = `
	SELECT c.id, c.source_device_id, c.target_device_id, c.connection_type, c.created_at,
		s.hostname, t.hostname
	FROM connections c
	JOIN devices s ON s.id = c.source_device_id
	JOIN devices t ON t.id = c.target_device_id`

// Repository defines persistence for connections.
type Repository interface {
	// GetByID returns ErrConnectionNotFound if the connection does not exist.
	GetByID(ctx context.Context, id string) (*Connection, error)

	// List returns all connections, or those touching deviceID when it
	// is non-empty, oldest first.
	List(ctx context.Context, deviceID string) ([]Connection, error)

	// CreateChecked verifies both endpoints and the reverse rule, then
	// inserts, all in one transaction. Hostnames are filled on success.
	CreateChecked(ctx context.Context, c *Connection) error

	// UpdateChecked is CreateChecked for an existing row. The reverse
	// check ignores the row being updated.
	UpdateChecked(ctx context.Context, c *Connection) error

	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetByID retrieves a connection with its endpoint hostnames.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Connection, error) {
	row := r.db.QueryRowContext(ctx, selectConnections+" WHERE c.id = ?", id)
	c, err := scanConnection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConnectionNotFound
		}
		return nil, fmt.Errorf("querying connection: %w", err)
	}
	return c, nil
}

// List retrieves connections, optionally restricted to one device.
func (r *SQLiteRepository) List(ctx context.Context, deviceID string) ([]Connection, error) {
	query := selectConnections
	var args []any
	if deviceID != "" {
		query += " WHERE c.source_device_id = ? OR c.target_device_id = ?"
		args = append(args, deviceID, deviceID)
	}
	query += " ORDER BY c.created_at, c.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying connections: %w", err)
	}
	defer rows.Close()

	conns := []Connection{}
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning connection: %w", err)
		}
		conns = append(conns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating connections: %w", err)
	}
	return conns, nil
}

// CreateChecked inserts c after checking endpoints and the reverse rule.
func (r *SQLiteRepository) CreateChecked(ctx context.Context, c *Connection) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := checkEndpoints(ctx, tx, c); err != nil {
			return err
		}
		if err := checkReverse(ctx, tx, c.SourceDevice, c.TargetDevice, ""); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO connections (id, source_device_id, target_device_id, connection_type, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.SourceDevice, c.TargetDevice, string(c.ConnectionType),
			c.CreatedAt.UTC().Format(timeFormat),
		)
		if err != nil {
			return fmt.Errorf("inserting connection: %w", err)
		}
		return nil
	})
}

// UpdateChecked rewrites an existing connection's endpoints and type.
func (r *SQLiteRepository) UpdateChecked(ctx context.Context, c *Connection) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var createdAt string
		err := tx.QueryRowContext(ctx, "SELECT created_at FROM connections WHERE id = ?", c.ID).Scan(&createdAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrConnectionNotFound
		}
		if err != nil {
			return fmt.Errorf("loading connection: %w", err)
		}
		if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return fmt.Errorf("parsing created_at %q: %w", createdAt, err)
		}

		if err := checkEndpoints(ctx, tx, c); err != nil {
			return err
		}
		if err := checkReverse(ctx, tx, c.SourceDevice, c.TargetDevice, c.ID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE connections SET source_device_id = ?, target_device_id = ?, connection_type = ?
			WHERE id = ?`,
			c.SourceDevice, c.TargetDevice, string(c.ConnectionType), c.ID,
		); err != nil {
			return fmt.Errorf("updating connection: %w", err)
		}
		return nil
	})
}

// Delete removes a connection by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM connections WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting connection: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

// checkEndpoints resolves both device hostnames, failing if either is missing.
func checkEndpoints(ctx context.Context, tx *sql.Tx, c *Connection) error {
	lookup := func(id string) (string, error) {
		var hostname string
		err := tx.QueryRowContext(ctx, "SELECT hostname FROM devices WHERE id = ?", id).Scan(&hostname)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
		}
		if err != nil {
			return "", fmt.Errorf("looking up device %s: %w", id, err)
		}
		return hostname, nil
	}

	var err error
	if c.SourceDeviceHostname, err = lookup(c.SourceDevice); err != nil {
		return err
	}
	if c.TargetDeviceHostname, err = lookup(c.TargetDevice); err != nil {
		return err
	}
	return nil
}

// checkReverse fails when target→source already exists, ignoring excludeID.
func checkReverse(ctx context.Context, tx *sql.Tx, source, target, excludeID string) error {
	var n int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM connections
		WHERE source_device_id = ? AND target_device_id = ? AND id <> ?`,
		target, source, excludeID,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("checking reverse connection: %w", err)
	}
	if n > 0 {
		return ErrReverseExists
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(scanner rowScanner) (*Connection, error) {
	var c Connection
	var connType, createdAt string
	if err := scanner.Scan(
		&c.ID, &c.SourceDevice, &c.TargetDevice, &connType, &createdAt,
		&c.SourceDeviceHostname, &c.TargetDeviceHostname,
	); err != nil {
		return nil, err
	}
	c.ConnectionType = Type(connType)

	var err error
	if c.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	return &c, nil
}
