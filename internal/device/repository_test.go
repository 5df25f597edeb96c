package device

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSQLiteRepository_CRUD(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d := testDevice("nas", "10.0.0.5")
	d.ID = GenerateID()
	d.MACAddress = StringPtr("aa:bb:cc:dd:ee:ff")
	d.Notes = "rack 2"

	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if d.CreatedAt.IsZero() || d.UpdatedAt.IsZero() {
		t.Error("Create() should set timestamps")
	}

	got, err := repo.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Hostname != "nas" || got.IP() != "10.0.0.5" || *got.MACAddress != "aa:bb:cc:dd:ee:ff" ||
		got.Notes != "rack 2" || got.DeviceType != DeviceTypeComputer || got.IsOnline {
		t.Errorf("GetByID() = %+v", got)
	}
	if !got.CreatedAt.Equal(d.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, d.CreatedAt)
	}

	got.Hostname = "nas-2"
	got.IPAddress = nil
	got.IsOnline = true
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	updated, err := repo.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if updated.Hostname != "nas-2" || updated.IPAddress != nil || !updated.IsOnline {
		t.Errorf("after Update = %+v", updated)
	}

	if err := repo.Delete(ctx, d.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, d.ID); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() after Delete = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_CreateDuplicate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d := testDevice("a", "")
	d.ID = "dup"
	if err := repo.Create(ctx, d); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(ctx, d); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("second Create() = %v, want ErrDeviceExists", err)
	}
}

func TestSQLiteRepository_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	now := time.Now()

	missing := testDevice("ghost", "")
	missing.ID = "missing"

	checks := map[string]error{
		"Update":       repo.Update(ctx, missing),
		"Delete":       repo.Delete(ctx, "missing"),
		"UpdateOnline": repo.UpdateOnline(ctx, "missing", true, now),
		"UpdatePhoto":  repo.UpdatePhoto(ctx, "missing", "photos/x", now),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("%s() = %v, want ErrDeviceNotFound", name, err)
		}
	}
}

func TestSQLiteRepository_ListFiltersAndOrder(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	seed := []*Device{
		{ID: "3", Hostname: "printer", DeviceType: DeviceTypePrinter},
		{ID: "1", Hostname: "alpha", DeviceType: DeviceTypeRouter, IsOnline: true},
		{ID: "2", Hostname: "bravo", DeviceType: DeviceTypeRouter},
	}
	for _, d := range seed {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all ordered by hostname", Filter{}, []string{"alpha", "bravo", "printer"}},
		{"by type", Filter{Type: DeviceTypeRouter}, []string{"alpha", "bravo"}},
		{"online only", Filter{IsOnline: BoolPtr(true)}, []string{"alpha"}},
		{"offline routers", Filter{Type: DeviceTypeRouter, IsOnline: BoolPtr(false)}, []string{"bravo"}},
		{"no match", Filter{Type: DeviceTypeMobile}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devices, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(devices) != len(tt.want) {
				t.Fatalf("List() returned %d devices, want %d", len(devices), len(tt.want))
			}
			for i, d := range devices {
				if d.Hostname != tt.want[i] {
					t.Errorf("devices[%d] = %q, want %q", i, d.Hostname, tt.want[i])
				}
			}
		})
	}
}

func TestSQLiteRepository_UpdateOnlineAndPhoto(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d := testDevice("cam", "10.0.0.9")
	d.ID = "cam"
	if err := repo.Create(ctx, d); err != nil {
		t.Fatal(err)
	}

	if err := repo.UpdateOnline(ctx, "cam", true, time.Now()); err != nil {
		t.Fatalf("UpdateOnline() error = %v", err)
	}
	if err := repo.UpdatePhoto(ctx, "cam", "photos/cam/front.jpg", time.Now()); err != nil {
		t.Fatalf("UpdatePhoto() error = %v", err)
	}
	got, _ := repo.GetByID(ctx, "cam") //nolint:errcheck // checked below
	if !got.IsOnline || got.Photo != "photos/cam/front.jpg" {
		t.Errorf("got %+v", got)
	}

	if err := repo.UpdatePhoto(ctx, "cam", "", time.Now()); err != nil {
		t.Fatal(err)
	}
	got, _ = repo.GetByID(ctx, "cam") //nolint:errcheck // checked below
	if got.Photo != "" {
		t.Errorf("photo not cleared: %q", got.Photo)
	}
}

func TestSQLiteRepository_DeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		if err := repo.Create(ctx, &Device{ID: id, Hostname: id, DeviceType: DeviceTypeOther}); err != nil {
			t.Fatal(err)
		}
	}
	now := time.Now().UTC().Format(timeFormat)
	if _, err := db.ExecContext(ctx,
		"INSERT INTO connections (id, source_device_id, target_device_id, connection_type, created_at) VALUES ('c1','a','b','LAN',?)", now); err != nil {
		t.Fatal(err)
	}
	if _, err := db.ExecContext(ctx,
		"INSERT INTO configuration_files (id, related_device_id, file_name, uploaded_at) VALUES ('f1','b','x.cfg',?)", now); err != nil {
		t.Fatal(err)
	}

	if err := repo.Delete(ctx, "b"); err != nil {
		t.Fatal(err)
	}

	for _, table := range []string{"connections", "configuration_files"} {
		var n int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("%s rows = %d after device delete, want 0", table, n)
		}
	}
}
