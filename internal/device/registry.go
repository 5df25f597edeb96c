package device

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
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

// Registry provides device management with caching and thread safety.
//
// The cache is populated by RefreshCache and kept in sync by every
// mutating call. Until it has been loaded, reads go to the repository.
// Returned devices are deep copies; callers can modify them freely.
type Registry struct {
	repo    Repository
	cache   map[string]*Device
	loaded  bool
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a new device registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx, Filter{})
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Device, len(devices))
	for i := range devices {
		r.cache[devices[i].ID] = devices[i].DeepCopy()
	}
	r.loaded = true

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// GetDevice returns ErrDeviceNotFound if the device does not exist.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	loaded := r.loaded
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}
	if loaded {
		return nil, ErrDeviceNotFound
	}
	return r.repo.GetByID(ctx, id)
}

// ListDevices returns devices matching filter, ordered by hostname.
func (r *Registry) ListDevices(ctx context.Context, filter Filter) ([]Device, error) {
	r.cacheMu.RLock()
	if !r.loaded {
		r.cacheMu.RUnlock()
		return r.repo.List(ctx, filter)
	}

	devices := make([]Device, 0, len(r.cache))
	for _, d := range r.cache {
		if filter.Matches(d) {
			devices = append(devices, *d.DeepCopy())
		}
	}
	r.cacheMu.RUnlock()

	slices.SortFunc(devices, func(a, b Device) int {
		return cmp.Or(cmp.Compare(a.Hostname, b.Hostname), cmp.Compare(a.ID, b.ID))
	})
	return devices, nil
}

// CreateDevice normalises and validates d, assigns an ID and persists it.
// Nothing is stored when validation fails.
func (r *Registry) CreateDevice(ctx context.Context, d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}
	if d.ID == "" {
		d.ID = GenerateID()
	}
	Normalize(d)
	if err := ValidateDevice(d); err != nil {
		return err
	}

	if err := r.repo.Create(ctx, d); err != nil {
		return err
	}
	r.store(d)

	r.logger.Info("device created", "id", d.ID, "hostname", d.Hostname)
	return nil
}

// UpdateDevice replaces every mutable field of an existing device.
func (r *Registry) UpdateDevice(ctx context.Context, d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}
	existing, err := r.GetDevice(ctx, d.ID)
	if err != nil {
		return err
	}
	Normalize(d)
	if err := ValidateDevice(d); err != nil {
		return err
	}
	d.CreatedAt = existing.CreatedAt

	if err := r.repo.Update(ctx, d); err != nil {
		return err
	}
	r.store(d)

	r.logger.Info("device updated", "id", d.ID, "hostname", d.Hostname)
	return nil
}

// DeleteDevice removes a device. Its connections and configuration file
// rows go with it.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("device deleted", "id", id)
	return nil
}

// SetOnline records a reachability observation. It returns the updated
// device and whether the flag changed. An unchanged value is not written.
func (r *Registry) SetOnline(ctx context.Context, id string, online bool) (*Device, bool, error) {
	current, err := r.GetDevice(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if current.IsOnline == online {
		return current, false, nil
	}

	now := time.Now().UTC()
	if err := r.repo.UpdateOnline(ctx, id, online, now); err != nil {
		return nil, false, err
	}

	current.IsOnline = online
	current.UpdatedAt = now
	r.storeIfPresent(current)

	r.logger.Debug("device status updated", "id", id, "is_online", online)
	return current.DeepCopy(), true, nil
}

// SetPhoto sets the photo blob key; an empty key clears it.
func (r *Registry) SetPhoto(ctx context.Context, id string, key string) (*Device, error) {
	current, err := r.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := r.repo.UpdatePhoto(ctx, id, key, now); err != nil {
		return nil, err
	}

	current.Photo = key
	current.UpdatedAt = now
	r.storeIfPresent(current)
	return current.DeepCopy(), nil
}

// TrackedIPs returns the set of IP addresses already in the inventory.
func (r *Registry) TrackedIPs(ctx context.Context) (map[string]struct{}, error) {
	devices, err := r.ListDevices(ctx, Filter{})
	if err != nil {
		return nil, err
	}
	ips := make(map[string]struct{}, len(devices))
	for i := range devices {
		if ip := devices[i].IP(); ip != "" {
			ips[ip] = struct{}{}
		}
	}
	return ips, nil
}

// GetDeviceCount returns the number of cached devices.
func (r *Registry) GetDeviceCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// Counts returns the cached total and online device counts.
func (r *Registry) Counts() (total, online int) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	for _, d := range r.cache {
		if d.IsOnline {
			online++
		}
	}
	return len(r.cache), online
}

func (r *Registry) store(d *Device) {
	r.cacheMu.Lock()
	r.cache[d.ID] = d.DeepCopy()
	r.cacheMu.Unlock()
}

// storeIfPresent avoids resurrecting a device deleted concurrently.
func (r *Registry) storeIfPresent(d *Device) {
	r.cacheMu.Lock()
	if _, ok := r.cache[d.ID]; ok {
		r.cache[d.ID] = d.DeepCopy()
	}
	r.cacheMu.Unlock()
}
