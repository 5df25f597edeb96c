// Package migrations embeds the netmap SQL schema into the binary so the
// service can migrate a fresh database without any files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/netmap-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
