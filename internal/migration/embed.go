package migration

import "embed"

const migrationsDir = "migrations"

// Up-only schema migrations for the scheduling and billing tables.
//
//go:embed migrations/*.up.sql
var embeddedMigrations embed.FS
