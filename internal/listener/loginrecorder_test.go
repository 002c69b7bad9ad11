package listener

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/victorlap/suspicious-login/internal/events"
	"github.com/victorlap/suspicious-login/internal/metrics"
)

type insertCall struct {
	uid, ip string
	at      time.Time
}

type fakeLoginStore struct {
	calls []insertCall
	err   error
}

func (f *fakeLoginStore) InsertLoginAddress(ctx context.Context, uid, ip string, at time.Time) (int64, error) {
	f.calls = append(f.calls, insertCall{uid: uid, ip: ip, at: at})
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.calls)), nil
}

type loginCounter struct {
	metrics.NoOp
	recorded int
}

func (c *loginCounter) RecordLoginRecorded() { c.recorded++ }

func TestLoginRecorder_Records(t *testing.T) {
	logger, logs := newRecordingLogger()
	store := &fakeLoginStore{}
	counter := &loginCounter{}
	r := NewLoginRecorder(logger, store, counter)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r.Handle(context.Background(), events.LoginEvent{UID: "alice", IP: "203.0.113.7", At: at})
	r.Handle(context.Background(), &events.LoginEvent{UID: "alice", IP: "203.0.113.7", At: at})

	if len(store.calls) != 2 {
		t.Fatalf("inserts = %d, want 2", len(store.calls))
	}
	if got := store.calls[0]; got.uid != "alice" || got.ip != "203.0.113.7" || !got.at.Equal(at) {
		t.Errorf("insert = %+v", got)
	}
	if counter.recorded != 2 {
		t.Errorf("recorded = %d, want 2", counter.recorded)
	}
	if errs := logs.atLeast(slog.LevelWarn); len(errs) != 0 {
		t.Errorf("unexpected log entries: %v", errs)
	}
}

func TestLoginRecorder_DefaultsTimestamp(t *testing.T) {
	store := &fakeLoginStore{}
	r := NewLoginRecorder(nil, store, nil)
	now := time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.Handle(context.Background(), events.LoginEvent{UID: "alice", IP: "198.51.100.1"})

	if len(store.calls) != 1 || !store.calls[0].at.Equal(now) {
		t.Errorf("inserts = %+v, want timestamp %v", store.calls, now)
	}
}

func TestLoginRecorder_IgnoresOtherEvents(t *testing.T) {
	logger, logs := newRecordingLogger()
	store := &fakeLoginStore{}
	r := NewLoginRecorder(logger, store, nil)

	r.Handle(context.Background(), events.NewSuspiciousLoginEvent("alice", "203.0.113.7"))
	r.Handle(context.Background(), (*events.LoginEvent)(nil))

	if len(store.calls) != 0 {
		t.Errorf("inserts = %d, want 0", len(store.calls))
	}
	if len(logs.records) != 0 {
		t.Errorf("log records = %d, want 0", len(logs.records))
	}
}

func TestLoginRecorder_InsertFailure(t *testing.T) {
	logger, logs := newRecordingLogger()
	counter := &loginCounter{}
	r := NewLoginRecorder(logger, &fakeLoginStore{err: errors.New("uid exceeds 64 characters")}, counter)

	r.Handle(context.Background(), events.LoginEvent{UID: "alice", IP: "203.0.113.7"})

	errs := logs.atLeast(slog.LevelError)
	if len(errs) != 1 {
		t.Fatalf("error entries = %d, want 1", len(errs))
	}
	if uid, _ := attr(errs[0], "uid"); uid != "alice" {
		t.Errorf("uid attr = %q", uid)
	}
	if counter.recorded != 0 {
		t.Errorf("recorded = %d, want 0", counter.recorded)
	}
}
