package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"
)

// pgDuplicateTable is the Postgres SQLSTATE for "relation already exists".
const pgDuplicateTable = "42P07"

// Migration is one schema change. Statements run in a single transaction.
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

// Migrations lists every schema change in order. Never edit an applied entry;
// append a new one instead.
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "create_login_address",
		Statements: []string{`
			CREATE TABLE login_address (
				id SERIAL NOT NULL,
				uid VARCHAR(64) NOT NULL,
				ip VARCHAR(64) NOT NULL,
				created_at INTEGER NOT NULL,
				PRIMARY KEY (id)
			)`,
		},
	},
	{
		Version: 2,
		Name:    "create_users",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS users (
				uid VARCHAR(64) NOT NULL,
				display_name VARCHAR(255),
				email VARCHAR(255),
				PRIMARY KEY (uid)
			)`,
		},
	},
	{
		Version: 3,
		Name:    "create_appconfig",
		Statements: []string{`
			CREATE TABLE IF NOT EXISTS appconfig (
				appid VARCHAR(32) NOT NULL,
				configkey VARCHAR(64) NOT NULL,
				configvalue TEXT,
				PRIMARY KEY (appid, configkey)
			)`,
		},
	},
	{
		Version: 4,
		Name:    "index_login_address_uid",
		Statements: []string{
			`CREATE INDEX IF NOT EXISTS login_address_uid_idx ON login_address (uid)`,
		},
	},
}

// Migrate applies every migration not yet recorded in schema_migrations and
// returns the versions it applied.
func (db *DB) Migrate(ctx context.Context) ([]int, error) {
	return db.migrate(ctx, Migrations)
}

func (db *DB) migrate(ctx context.Context, migrations []Migration) ([]int, error) {
	_, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER NOT NULL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	done, err := db.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var applied []int
	for _, m := range migrations {
		if done[m.Version] {
			continue
		}
		if err := db.apply(ctx, m); err != nil {
			if !isDuplicateTable(err) {
				return applied, err
			}
			// The table was created outside this migrator, e.g. by the
			// host platform. Adopt it.
			slog.Warn("Table already exists, recording migration as applied",
				"version", m.Version,
				"name", m.Name,
			)
			if err := db.record(ctx, m); err != nil {
				return applied, err
			}
		}
		slog.Info("Applied migration", "version", m.Version, "name", m.Name)
		applied = append(applied, m.Version)
	}
	return applied, nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		done[v] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migrations: %w", err)
	}
	return done, nil
}

func (db *DB) apply(ctx context.Context, m Migration) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: failed to begin transaction: %w", m.Version, err)
	}
	defer tx.Rollback()

	for _, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
		m.Version, m.Name,
	); err != nil {
		return fmt.Errorf("migration %d: failed to record version: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: failed to commit: %w", m.Version, err)
	}
	return nil
}

func (db *DB) record(ctx context.Context, m Migration) error {
	if _, err := db.conn.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`,
		m.Version, m.Name,
	); err != nil {
		return fmt.Errorf("migration %d: failed to record version: %w", m.Version, err)
	}
	return nil
}

func isDuplicateTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgDuplicateTable
}
