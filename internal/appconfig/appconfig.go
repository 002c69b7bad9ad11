// Package appconfig reads per-application settings from the appconfig table.
package appconfig

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// Store is a key/value settings store scoped by application id.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
}

// NewStore creates a store over an open connection pool.
func NewStore(conn *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{conn: conn, logger: logger}
}

// GetAppValue returns the stored value for (appID, key), or def when the
// setting is missing or cannot be read.
func (s *Store) GetAppValue(ctx context.Context, appID, key, def string) string {
	query := `
		SELECT configvalue
		FROM appconfig
		WHERE appid = $1 AND configkey = $2
	`
	var value sql.NullString
	err := s.conn.QueryRowContext(ctx, query, appID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return def
	}
	if err != nil {
		s.logger.Warn("Failed to read app setting, using default",
			"app", appID,
			"key", key,
			"default", def,
			"error", err,
		)
		return def
	}
	if !value.Valid {
		return def
	}
	return value.String
}

// SetAppValue creates or replaces a setting.
func (s *Store) SetAppValue(ctx context.Context, appID, key, value string) error {
	query := `
		INSERT INTO appconfig (appid, configkey, configvalue)
		VALUES ($1, $2, $3)
		ON CONFLICT (appid, configkey) DO UPDATE SET configvalue = EXCLUDED.configvalue
	`
	if _, err := s.conn.ExecContext(ctx, query, appID, key, value); err != nil {
		return fmt.Errorf("failed to set app value %s/%s: %w", appID, key, err)
	}
	return nil
}

// Static is an in-memory settings source, used when no database is wired
// and in tests. Keys are "app/key".
type Static map[string]string

// GetAppValue implements the same lookup as Store.
func (s Static) GetAppValue(_ context.Context, appID, key, def string) string {
	if v, ok := s[appID+"/"+key]; ok {
		return v
	}
	return def
}
