package main

import (
	"testing"

	"bookrec/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestMigrationsDir(t *testing.T) {
	t.Setenv("MIGRATIONS_DIR", "")
	assert.Equal(t, "db/migrations", migrationsDir())

	t.Setenv("MIGRATIONS_DIR", "/custom/migrations")
	assert.Equal(t, "/custom/migrations", migrationsDir())
}

func TestDatabaseDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	assert.Equal(t, config.Default().DSN, databaseDSN())

	t.Setenv("DB_DSN", "postgres://u:p@db:5432/bookrec")
	assert.Equal(t, "postgres://u:p@db:5432/bookrec", databaseDSN())
}

func TestRun_CreateRequiresName(t *testing.T) {
	assert.EqualError(t, run("create", ""), "name is required for 'create' command")
}
