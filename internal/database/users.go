package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrUserNotFound is returned by GetUser when no row matches the uid.
var ErrUserNotFound = errors.New("user not found")

// User is an account known to the user directory.
type User struct {
	UID         string
	DisplayName string
	Email       string
}

// EmailAddress returns the user's address and whether one is set.
func (u *User) EmailAddress() (string, bool) {
	return u.Email, u.Email != ""
}

// GetUser looks up a user by uid.
func (db *DB) GetUser(ctx context.Context, uid string) (*User, error) {
	query := `
		SELECT uid, display_name, email
		FROM users
		WHERE uid = $1
	`
	var (
		u           User
		displayName sql.NullString
		email       sql.NullString
	)
	err := db.conn.QueryRowContext(ctx, query, uid).Scan(&u.UID, &displayName, &email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, uid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.DisplayName = displayName.String
	u.Email = email.String
	return &u, nil
}

// UpsertUser creates or replaces a user. An empty Email is stored as NULL.
func (db *DB) UpsertUser(ctx context.Context, u User) error {
	if u.UID == "" {
		return fmt.Errorf("uid cannot be empty")
	}
	query := `
		INSERT INTO users (uid, display_name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO UPDATE
		SET display_name = EXCLUDED.display_name, email = EXCLUDED.email
	`
	email := sql.NullString{String: u.Email, Valid: u.Email != ""}
	if _, err := db.conn.ExecContext(ctx, query, u.UID, u.DisplayName, email); err != nil {
		return fmt.Errorf("failed to upsert user %s: %w", u.UID, err)
	}
	return nil
}
