package listener

import (
	"context"
	"log/slog"
	"time"

	"github.com/victorlap/suspicious-login/internal/events"
	"github.com/victorlap/suspicious-login/internal/metrics"
)

// LoginStore appends to the login-address log.
type LoginStore interface {
	InsertLoginAddress(ctx context.Context, uid, ip string, at time.Time) (int64, error)
}

// LoginRecorder appends every observed login to the login-address log.
type LoginRecorder struct {
	logger  *slog.Logger
	store   LoginStore
	metrics metrics.Recorder
	now     func() time.Time
}

// NewLoginRecorder creates the listener. A nil recorder disables metrics.
func NewLoginRecorder(logger *slog.Logger, store LoginStore, rec metrics.Recorder) *LoginRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.NewNoOp()
	}
	return &LoginRecorder{
		logger:  logger,
		store:   store,
		metrics: rec,
		now:     time.Now,
	}
}

// Handle implements dispatcher.Listener for LoginEvent. A zero timestamp is
// replaced by the current time.
func (r *LoginRecorder) Handle(ctx context.Context, ev events.Event) {
	var event events.LoginEvent
	switch e := ev.(type) {
	case events.LoginEvent:
		event = e
	case *events.LoginEvent:
		if e == nil {
			return
		}
		event = *e
	default:
		return
	}

	at := event.At
	if at.IsZero() {
		at = r.now()
	}

	id, err := r.store.InsertLoginAddress(ctx, event.UID, event.IP, at)
	if err != nil {
		r.logger.Error("Could not record login address",
			"uid", event.UID,
			"ip", event.IP,
			"error", err,
		)
		return
	}

	r.metrics.RecordLoginRecorded()
	r.logger.Debug("Recorded login address",
		"id", id,
		"uid", event.UID,
		"ip", event.IP,
	)
}
