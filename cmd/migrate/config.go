package main

import (
	"os"

	"bookrec/internal/config"
)

const defaultMigrationsDir = "db/migrations"

func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return defaultMigrationsDir
}

// databaseDSN honors DB_DSN (after .env files are loaded) and falls back to
// the API default so both binaries target the same database.
func databaseDSN() string {
	if v := os.Getenv("DB_DSN"); v != "" {
		return v
	}
	return config.Default().DSN
}
