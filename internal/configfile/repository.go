package configfile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const fileColumns = "id, related_device_id, description, file_name, content_type, size, uploaded_at"

// ConfigurationFile is the metadata of an uploaded file.
type ConfigurationFile struct {
	ID            string    `json:"id"`
	RelatedDevice string    `json:"related_device"`
	Description   string    `json:"description"`
	FileName      string    `json:"file_name"`
	ContentType   string    `json:"content_type"`
	Size          int64     `json:"size"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// BlobKey is where the content of f is stored.
func (f *ConfigurationFile) BlobKey() string {
	return devicePrefix(f.RelatedDevice) + "/" + f.ID + "/" + f.FileName
}

func devicePrefix(deviceID string) string {
	return "configs/" + deviceID
}

// Repository defines persistence for file metadata.
type Repository interface {
	Create(ctx context.Context, f *ConfigurationFile) error
	GetByID(ctx context.Context, id string) (*ConfigurationFile, error)

	// List returns every file, or a device's files when deviceID is set,
	// newest first.
	List(ctx context.Context, deviceID string) ([]ConfigurationFile, error)

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

// Create inserts file metadata.
func (r *SQLiteRepository) Create(ctx context.Context, f *ConfigurationFile) error {
	if f.UploadedAt.IsZero() {
		f.UploadedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO configuration_files ("+fileColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		f.ID, f.RelatedDevice, f.Description, f.FileName, f.ContentType, f.Size,
		f.UploadedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting configuration file: %w", err)
	}
	return nil
}

// GetByID returns ErrFileNotFound if the file does not exist.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*ConfigurationFile, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+fileColumns+" FROM configuration_files WHERE id = ?", id)
	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("querying configuration file: %w", err)
	}
	return f, nil
}

// List returns file metadata, newest first.
func (r *SQLiteRepository) List(ctx context.Context, deviceID string) ([]ConfigurationFile, error) {
	query := "SELECT " + fileColumns + " FROM configuration_files"
	var args []any
	if deviceID != "" {
		query += " WHERE related_device_id = ?"
		args = append(args, deviceID)
	}
	query += " ORDER BY uploaded_at DESC, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying configuration files: %w", err)
	}
	defer rows.Close()

	files := []ConfigurationFile{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning configuration file: %w", err)
		}
		files = append(files, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating configuration files: %w", err)
	}
	return files, nil
}

// Delete removes file metadata.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM configuration_files WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting configuration file: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrFileNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(scanner rowScanner) (*ConfigurationFile, error) {
	var f ConfigurationFile
	var description sql.NullString
	var uploadedAt string
	if err := scanner.Scan(&f.ID, &f.RelatedDevice, &description, &f.FileName,
		&f.ContentType, &f.Size, &uploadedAt); err != nil {
		return nil, err
	}
	f.Description = description.String

	var err error
	if f.UploadedAt, err = time.Parse(time.RFC3339Nano, uploadedAt); err != nil {
		return nil, fmt.Errorf("parsing uploaded_at %q: %w", uploadedAt, err)
	}
	return &f, nil
}
