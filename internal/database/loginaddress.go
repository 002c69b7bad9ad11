package database

import (
	"context"
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

// MaxLoginAddressFieldLen is the width, in characters, of the uid and ip columns.
const MaxLoginAddressFieldLen = 64

// created_at is a 32-bit column.
var (
	MinLoginAddressTime = time.Unix(math.MinInt32, 0).UTC()
	MaxLoginAddressTime = time.Unix(math.MaxInt32, 0).UTC()
)

// LoginAddress is one row of the login_address log.
type LoginAddress struct {
	ID        int64
	UID       string
	IP        string
	CreatedAt time.Time
}

// InsertLoginAddress appends a row to the login address log and returns its id.
// The log is append-only; repeated (uid, ip) pairs are stored as new rows.
func (db *DB) InsertLoginAddress(ctx context.Context, uid, ip string, at time.Time) (int64, error) {
	if uid == "" {
		return 0, fmt.Errorf("uid cannot be empty")
	}
	if utf8.RuneCountInString(uid) > MaxLoginAddressFieldLen {
		return 0, fmt.Errorf("uid exceeds %d characters", MaxLoginAddressFieldLen)
	}
	if utf8.RuneCountInString(ip) > MaxLoginAddressFieldLen {
		return 0, fmt.Errorf("ip exceeds %d characters", MaxLoginAddressFieldLen)
	}
	if at.Before(MinLoginAddressTime) || at.After(MaxLoginAddressTime) {
		return 0, fmt.Errorf("login time %s is outside the storable range", at.UTC().Format(time.RFC3339))
	}

	query := `
		INSERT INTO login_address (uid, ip, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	var id int64
	if err := db.conn.QueryRowContext(ctx, query, uid, ip, at.Unix()).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert login address: %w", err)
	}
	return id, nil
}

// LoginAddressesByUID returns up to limit rows for uid, newest first.
func (db *DB) LoginAddressesByUID(ctx context.Context, uid string, limit int) ([]LoginAddress, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, uid, ip, created_at
		FROM login_address
		WHERE uid = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := db.conn.QueryContext(ctx, query, uid, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query login addresses: %w", err)
	}
	defer rows.Close()

	var result []LoginAddress
	for rows.Next() {
		var (
			la        LoginAddress
			createdAt int64
		)
		if err := rows.Scan(&la.ID, &la.UID, &la.IP, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan login address: %w", err)
		}
		la.CreatedAt = time.Unix(createdAt, 0).UTC()
		result = append(result, la)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating login addresses: %w", err)
	}

	return result, nil
}
