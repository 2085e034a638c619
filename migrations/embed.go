package migrations

import "embed"

// Postgres holds the .up.sql migration files applied by migrate.ApplyPostgres.
//
//go:embed postgres
var Postgres embed.FS
