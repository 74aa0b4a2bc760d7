package ordermart

import "embed"

//go:embed db/postgres/migrations/*.sql
var MigrationsFS embed.FS
