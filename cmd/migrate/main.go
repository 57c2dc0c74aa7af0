package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"AwabarTickets/internal/config"
	"AwabarTickets/internal/db"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = "migrations"
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	applied, err := migrate(ctx, pool, dir)
	if err != nil {
		log.Fatalf("migrate failed: %v", err)
	}
	if applied == 0 {
		log.Printf("schema up to date")
	} else {
		log.Printf("applied %d migration(s)", applied)
	}
}

// migrate applies every pending .sql file in dir, in name order, recording
// each in schema_migrations so reruns are no-ops.
func migrate(ctx context.Context, pool *db.Pool, dir string) (int, error) {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	applied := 0
	for _, name := range names {
		var done bool
		row := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename=$1)`, name)
		if err := row.Scan(&done); err != nil {
			return applied, err
		}
		if done {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return applied, err
		}
		if sql := strings.TrimSpace(string(data)); sql != "" {
			if _, err := pool.Exec(ctx, sql); err != nil {
				return applied, err
			}
		}
		if _, err := pool.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, name); err != nil {
			return applied, err
		}
		log.Printf("applied %s", name)
		applied++
	}
	return applied, nil
}
