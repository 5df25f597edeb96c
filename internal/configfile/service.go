package configfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nerrad567/netmap-core/internal/device"
	"github.com/nerrad567/netmap-core/internal/infrastructure/blobstore"
)

const (
	maxDescriptionLength = 255
	defaultContentType   = "application/octet-stream"
)

// Devices resolves the device a file is attached to.
type Devices interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
}

// Logger defines the logging interface used by the Service.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Upload is an incoming file.
type Upload struct {
	DeviceID    string
	FileName    string
	Description string
	ContentType string
	Content     io.Reader
}

// Service manages configuration file metadata and content together.
type Service struct {
	repo     Repository
	blobs    *blobstore.Store
	devices  Devices
	maxBytes int64
	logger   Logger
}

// NewService creates a Service. maxBytes <= 0 means unlimited.
func NewService(repo Repository, blobs *blobstore.Store, devices Devices, maxBytes int64) *Service {
	return &Service{
		repo:     repo,
		blobs:    blobs,
		devices:  devices,
		maxBytes: maxBytes,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// MaxBytes returns the upload size limit.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Upload stores content and records its metadata. Validation failures
// wrap ErrInvalidFile.
func (s *Service) Upload(ctx context.Context, up Upload) (*ConfigurationFile, error) {
	name, err := SanitizeFileName(up.FileName)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(up.Description) > maxDescriptionLength {
		return nil, fmt.Errorf("%w: description exceeds %d characters", ErrInvalidFile, maxDescriptionLength)
	}
	if up.Content == nil {
		return nil, fmt.Errorf("%w: file content is required", ErrInvalidFile)
	}

	deviceID := strings.TrimSpace(up.DeviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("%w: related_device is required", ErrInvalidFile)
	}
	if _, err := s.devices.GetDevice(ctx, deviceID); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}
		return nil, err
	}

	f := &ConfigurationFile{
		ID:            uuid.New().String(),
		RelatedDevice: deviceID,
		Description:   strings.TrimSpace(up.Description),
		FileName:      name,
		ContentType:   contentType(up.ContentType, name),
	}

	n, err := s.blobs.Put(f.BlobKey(), up.Content, s.maxBytes)
	if err != nil {
		if errors.Is(err, blobstore.ErrTooLarge) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFile, err)
		}
		return nil, fmt.Errorf("storing file content: %w", err)
	}
	f.Size = n

	if err := s.repo.Create(ctx, f); err != nil {
		_ = s.blobs.Delete(f.BlobKey()) //nolint:errcheck // best-effort cleanup of the orphaned blob
		return nil, err
	}

	s.logger.Info("configuration file uploaded", "id", f.ID, "device_id", deviceID, "file_name", name, "size", n)
	return f, nil
}

// List returns every file, or the files of deviceID.
func (s *Service) List(ctx context.Context, deviceID string) ([]ConfigurationFile, error) {
	return s.repo.List(ctx, strings.TrimSpace(deviceID))
}

// Get returns the metadata of one file.
func (s *Service) Get(ctx context.Context, id string) (*ConfigurationFile, error) {
	return s.repo.GetByID(ctx, id)
}

// Open returns the metadata and content of a file. The caller closes the reader.
func (s *Service) Open(ctx context.Context, id string) (*ConfigurationFile, io.ReadCloser, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(f.BlobKey())
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: content missing for %s", ErrFileNotFound, id)
		}
		return nil, nil, err
	}
	return f, rc, nil
}

// Delete removes a file's metadata and content.
func (s *Service) Delete(ctx context.Context, id string) (*ConfigurationFile, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, err
	}
	if err := s.blobs.DeletePrefix(devicePrefix(f.RelatedDevice) + "/" + f.ID); err != nil {
		s.logger.Warn("failed to delete configuration file content", "id", id, "error", err)
	}
	s.logger.Info("configuration file deleted", "id", id)
	return f, nil
}

// PurgeDevice removes the content of every file of deviceID. Call it
// after the device is deleted; the metadata rows cascade with the device.
func (s *Service) PurgeDevice(deviceID string) error {
	if strings.TrimSpace(deviceID) == "" {
		return nil
	}
	return s.blobs.DeletePrefix(devicePrefix(deviceID))
}

// SanitizeFileName reduces name to its base name and rejects names that
// cannot be stored.
func SanitizeFileName(name string) (string, error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	base := path.Base(name)
	switch base {
	case "", ".", "..", "/":
		return "", fmt.Errorf("%w: file name is required", ErrInvalidFile)
	}
	if utf8.RuneCountInString(base) > maxDescriptionLength {
		return "", fmt.Errorf("%w: file name exceeds %d characters", ErrInvalidFile, maxDescriptionLength)
	}
	return base, nil
}

func contentType(declared, name string) string {
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	if byExt := mime.TypeByExtension(path.Ext(name)); byExt != "" {
		return byExt
	}
	return defaultContentType
}
