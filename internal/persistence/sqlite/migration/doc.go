// Package migration opens configured SQLite connections and applies the
// embedded, versioned schema migrations.
//
// Migration files live in the sql directory and follow the golang-migrate
// naming convention: {version}_{description}.up.sql with a matching
// .down.sql. Applied versions are tracked in the schema_migrations table.
//
// Example usage:
//
//	db, err := migration.Open(migration.DefaultSQLiteConfig("dojo.db"))
//	if err != nil {
//		return err
//	}
//	if err := migration.Up(ctx, db); err != nil {
//		return err
//	}
package migration
