package device

import (
	"context"
	"database/sql"
	"testing"

	"github.com/nerrad567/netmap-core/internal/infrastructure/database"
	_ "github.com/nerrad567/netmap-core/migrations"
)

// setupTestDB opens an in-memory database with the real schema applied.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{Path: ":memory:", BusyTimeout: 1})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db.DB
}

func testDevice(hostname, ip string) *Device {
	return &Device{
		Hostname:   hostname,
		IPAddress:  StringPtr(ip),
		DeviceType: DeviceTypeComputer,
	}
}
