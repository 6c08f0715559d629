// Package migrations holds the credential store schema.
package migrations

import "github.com/uptrace/bun/migrate"

// Migrations is the registry consumed by `readerapi db` and by tests.
var Migrations = migrate.NewMigrations()
