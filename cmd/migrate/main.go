package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"bookrec/internal/config"
	"bookrec/internal/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	config.LoadEnvFiles()
	log := logger.Init(logger.Config{Level: os.Getenv("LOG_LEVEL"), Format: "console"})

	if err := run(*command, *name); err != nil {
		log.Fatal().Err(err).Str("command", *command).Msg("migration failed")
	}
	log.Info().Str("command", *command).Str("dir", migrationsDir()).Msg("migration command finished")
}

func run(command, name string) error {
	dir := migrationsDir()
	if command == "create" {
		if name == "" {
			return errors.New("name is required for 'create' command")
		}
		return goose.Create(nil, dir, name, "sql")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseDSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	switch command {
	case "up":
		return goose.UpContext(ctx, db, dir)
	case "down":
		return goose.DownContext(ctx, db, dir)
	case "status":
		return goose.StatusContext(ctx, db, dir)
	default:
		return fmt.Errorf("unknown command %q, use: up, down, status, create", command)
	}
}
