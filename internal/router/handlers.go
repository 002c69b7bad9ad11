package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/victorlap/suspicious-login/internal/database"
	"github.com/victorlap/suspicious-login/internal/events"
	"github.com/victorlap/suspicious-login/pkg/metrics"
)

// Dispatcher hands events to listeners and reports how many ran.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev events.Event) int
}

// SettingsStore writes app settings.
type SettingsStore interface {
	SetAppValue(ctx context.Context, appID, key, value string) error
}

// LoginHistory reads the login-address log.
type LoginHistory interface {
	LoginAddressesByUID(ctx context.Context, uid string, limit int) ([]database.LoginAddress, error)
}

// MetricsSource provides the current metrics snapshot.
type MetricsSource interface {
	Snapshot() *metrics.Snapshot
}

// Handlers wraps dependencies for HTTP handlers. Nil dependencies make the
// corresponding endpoints answer 404.
type Handlers struct {
	dispatcher Dispatcher
	settings   SettingsStore
	history    LoginHistory
	metrics    MetricsSource
}

// NewHandlers creates the handlers.
func NewHandlers(d Dispatcher, settings SettingsStore, history LoginHistory, m MetricsSource) *Handlers {
	return &Handlers{
		dispatcher: d,
		settings:   settings,
		history:    history,
		metrics:    m,
	}
}

// EventRequest is the body of POST /api/v1/events.
type EventRequest struct {
	Type       string  `json:"type"`
	UID        string  `json:"uid"`
	IP         *string `json:"ip,omitempty"`
	OccurredAt int64   `json:"occurred_at,omitempty"`
}

// EventResponse is returned for accepted events.
type EventResponse struct {
	EventID   string `json:"event_id"`
	Listeners int    `json:"listeners"`
}

// LoginAddressResponse is one entry of the login history.
type LoginAddressResponse struct {
	ID        int64     `json:"id"`
	UID       string    `json:"uid"`
	IP        string    `json:"ip"`
	CreatedAt time.Time `json:"created_at"`
}

type settingRequest struct {
	Value *string `json:"value"`
}

// Health answers liveness checks.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// GetMetrics returns this service's metrics snapshot.
// GET /api/v1/metrics
func (h *Handlers) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		writeError(w, http.StatusNotFound, "metrics are disabled")
		return
	}
	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}

// PostEvent decodes an event and dispatches it synchronously.
// POST /api/v1/events
func (h *Handlers) PostEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.UID = strings.TrimSpace(req.UID)
	if req.UID == "" {
		writeError(w, http.StatusBadRequest, "uid is required")
		return
	}

	var ev events.Event
	switch req.Type {
	case events.NameSuspiciousLogin:
		ev = events.SuspiciousLoginEvent{UID: req.UID, IP: req.IP}
	case events.NameLogin:
		login := events.LoginEvent{UID: req.UID}
		if req.IP != nil {
			login.IP = *req.IP
		}
		if req.OccurredAt > 0 {
			login.At = time.Unix(req.OccurredAt, 0).UTC()
			if login.At.After(database.MaxLoginAddressTime) {
				writeError(w, http.StatusBadRequest, "occurred_at is out of range")
				return
			}
		}
		ev = login
	default:
		writeError(w, http.StatusBadRequest, "unknown event type")
		return
	}

	eventID := uuid.NewString()
	n := h.dispatcher.Dispatch(r.Context(), ev)
	slog.Info("Dispatched event from admin API",
		"event_id", eventID,
		"event_name", ev.EventName(),
		"uid", req.UID,
		"listeners", n,
	)

	writeJSON(w, http.StatusAccepted, EventResponse{EventID: eventID, Listeners: n})
}

// PutSetting creates or replaces an app setting.
// PUT /api/v1/apps/{app}/settings/{key}
func (h *Handlers) PutSetting(w http.ResponseWriter, r *http.Request) {
	if h.settings == nil {
		writeError(w, http.StatusNotFound, "settings store is not configured")
		return
	}
	app := chi.URLParam(r, "app")
	key := chi.URLParam(r, "key")

	var req settingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"value\": \"...\"}")
		return
	}

	if err := h.settings.SetAppValue(r.Context(), app, key, *req.Value); err != nil {
		slog.Error("Failed to store app setting", "app", app, "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store setting")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetLoginHistory lists recorded login addresses of a user, newest first.
// GET /api/v1/users/{uid}/logins?limit=N
func (h *Handlers) GetLoginHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "login history is not configured")
		return
	}
	uid := chi.URLParam(r, "uid")

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	rows, err := h.history.LoginAddressesByUID(r.Context(), uid, limit)
	if err != nil {
		slog.Error("Failed to read login history", "uid", uid, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read login history")
		return
	}

	out := make([]LoginAddressResponse, 0, len(rows))
	for _, la := range rows {
		out = append(out, LoginAddressResponse{
			ID:        la.ID,
			UID:       la.UID,
			IP:        la.IP,
			CreatedAt: la.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
