package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the registry of all schema migrations.
var Migrations = migrate.NewMigrations()
