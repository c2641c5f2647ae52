// Package migrations embeds the SQL schema into the binary, one directory
// per dialect (sqlite/, postgres/).
package migrations

import (
	"embed"

	"github.com/twinkletaps/twinkletaps-core/internal/infrastructure/database"
)

//go:embed sqlite/*.sql postgres/*.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
