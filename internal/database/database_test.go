package database

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMock(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock DB: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return &DB{conn: mockDB}, mock
}

func TestNewDB(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
	}{
		{name: "invalid DSN", dsn: "invalid-dsn"},
		{name: "unreachable host", dsn: "postgres://postgres@127.0.0.1:1/suspicious_login?sslmode=disable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := NewDB(tt.dsn)
			if err == nil {
				db.Close()
				t.Errorf("NewDB(%q) error = nil, want error", tt.dsn)
			}
		})
	}
}

func TestDB_Close(t *testing.T) {
	db := &DB{conn: nil}
	if err := db.Close(); err != nil {
		t.Errorf("DB.Close() with nil conn should not return error, got %v", err)
	}

	db, mock := newMock(t)
	mock.ExpectClose()
	if err := db.Close(); err != nil {
		t.Errorf("DB.Close() error = %v, want nil", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestDB_GetUser(t *testing.T) {
	columns := []string{"uid", "display_name", "email"}

	tests := []struct {
		name      string
		uid       string
		setup     func(mock sqlmock.Sqlmock)
		wantErr   error
		wantEmail string
		wantHas   bool
	}{
		{
			name: "user with email",
			uid:  "alice",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT uid, display_name, email`).
					WithArgs("alice").
					WillReturnRows(sqlmock.NewRows(columns).AddRow("alice", "Alice", "alice@example.com"))
			},
			wantEmail: "alice@example.com",
			wantHas:   true,
		},
		{
			name: "user without email",
			uid:  "bob",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT uid, display_name, email`).
					WithArgs("bob").
					WillReturnRows(sqlmock.NewRows(columns).AddRow("bob", nil, nil))
			},
			wantHas: false,
		},
		{
			name: "missing user",
			uid:  "ghost",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT uid, display_name, email`).
					WithArgs("ghost").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: ErrUserNotFound,
		},
		{
			name: "database error",
			uid:  "alice",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT uid, display_name, email`).
					WithArgs("alice").
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			tt.setup(mock)

			user, err := db.GetUser(context.Background(), tt.uid)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetUser() error = %v, want %v", err, tt.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("GetUser() error = %v", err)
				}
				email, ok := user.EmailAddress()
				if ok != tt.wantHas || email != tt.wantEmail {
					t.Errorf("EmailAddress() = (%q, %v), want (%q, %v)", email, ok, tt.wantEmail, tt.wantHas)
				}
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("Unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestDB_InsertLoginAddress(t *testing.T) {
	at := time.Unix(1700000000, 0)

	t.Run("success", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO login_address`).
			WithArgs("alice", "203.0.113.7", at.Unix()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

		id, err := db.InsertLoginAddress(context.Background(), "alice", "203.0.113.7", at)
		if err != nil {
			t.Fatalf("InsertLoginAddress() error = %v", err)
		}
		if id != 42 {
			t.Errorf("InsertLoginAddress() id = %d, want 42", id)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unfulfilled expectations: %v", err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		db, mock := newMock(t)
		long := strings.Repeat("x", MaxLoginAddressFieldLen+1)

		longMultibyte := strings.Repeat("é", MaxLoginAddressFieldLen+1)

		cases := []struct {
			uid, ip string
			at      time.Time
		}{
			{uid: "", ip: "203.0.113.7", at: at},
			{uid: long, ip: "203.0.113.7", at: at},
			{uid: "alice", ip: long, at: at},
			{uid: longMultibyte, ip: "203.0.113.7", at: at},
			{uid: "alice", ip: "203.0.113.7", at: MaxLoginAddressTime.Add(time.Second)},
			{uid: "alice", ip: "203.0.113.7", at: MinLoginAddressTime.Add(-time.Second)},
		}
		for _, c := range cases {
			if _, err := db.InsertLoginAddress(context.Background(), c.uid, c.ip, c.at); err == nil {
				t.Errorf("InsertLoginAddress(%q, %q, %v) should fail", c.uid, c.ip, c.at)
			}
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unexpected queries: %v", err)
		}
	})

	t.Run("multibyte values within column width", func(t *testing.T) {
		db, mock := newMock(t)
		uid := strings.Repeat("é", 40)
		ip := strings.Repeat("ü", MaxLoginAddressFieldLen)
		mock.ExpectQuery(`INSERT INTO login_address`).
			WithArgs(uid, ip, at.Unix()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

		if _, err := db.InsertLoginAddress(context.Background(), uid, ip, at); err != nil {
			t.Fatalf("InsertLoginAddress() error = %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unfulfilled expectations: %v", err)
		}
	})

	t.Run("latest storable time", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO login_address`).
			WithArgs("alice", "203.0.113.7", int64(math.MaxInt32)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))

		if _, err := db.InsertLoginAddress(context.Background(), "alice", "203.0.113.7", MaxLoginAddressTime); err != nil {
			t.Fatalf("InsertLoginAddress() error = %v", err)
		}
	})

	t.Run("database error", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO login_address`).WillReturnError(sql.ErrConnDone)

		if _, err := db.InsertLoginAddress(context.Background(), "alice", "203.0.113.7", at); err == nil {
			t.Error("InsertLoginAddress() should return database error")
		}
	})
}

func TestDB_LoginAddressesByUID(t *testing.T) {
	db, mock := newMock(t)
	rows := sqlmock.NewRows([]string{"id", "uid", "ip", "created_at"}).
		AddRow(2, "alice", "203.0.113.7", 1700000100).
		AddRow(1, "alice", "203.0.113.7", 1700000000)
	mock.ExpectQuery(`SELECT id, uid, ip, created_at`).
		WithArgs("alice", 10).
		WillReturnRows(rows)

	got, err := db.LoginAddressesByUID(context.Background(), "alice", 10)
	if err != nil {
		t.Fatalf("LoginAddressesByUID() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("LoginAddressesByUID() len = %d, want 2", len(got))
	}
	if got[0].ID != 2 || !got[0].CreatedAt.Equal(time.Unix(1700000100, 0)) {
		t.Errorf("first row = %+v", got[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestDB_LoginAddressesByUID_DefaultLimit(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT id, uid, ip, created_at`).
		WithArgs("alice", 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "uid", "ip", "created_at"}))

	got, err := db.LoginAddressesByUID(context.Background(), "alice", 0)
	if err != nil {
		t.Fatalf("LoginAddressesByUID() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("LoginAddressesByUID() len = %d, want 0", len(got))
	}
}

func TestDB_UpsertUser(t *testing.T) {
	t.Run("with email", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs("alice", "Alice", "alice@example.com").
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := db.UpsertUser(context.Background(), User{UID: "alice", DisplayName: "Alice", Email: "alice@example.com"}); err != nil {
			t.Fatalf("UpsertUser() error = %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unfulfilled expectations: %v", err)
		}
	})

	t.Run("without email", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs("bob", "Bob", nil).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := db.UpsertUser(context.Background(), User{UID: "bob", DisplayName: "Bob"}); err != nil {
			t.Fatalf("UpsertUser() error = %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unfulfilled expectations: %v", err)
		}
	})

	t.Run("empty uid", func(t *testing.T) {
		db, _ := newMock(t)
		if err := db.UpsertUser(context.Background(), User{}); err == nil {
			t.Error("UpsertUser() should reject empty uid")
		}
	})
}
