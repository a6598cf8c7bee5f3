package request

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
)

// handleGetEvent checks whether an event exists and is still open.
// GET /events?eventCode=CODE
func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	code := NormalizeEventCode(r.URL.Query().Get("eventCode"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "eventCode is required")
		return
	}

	ev, err := s.store.GetEvent(r.Context(), code)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		log.Printf("request-service: get event: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if ev.Expired(time.Now()) {
		writeError(w, http.StatusGone, "event expired")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"eventCode": ev.EventCode,
		"expiresAt": ev.ExpiresAt,
	})
}

// handleCreateEvent creates or renews an event, resetting its expiry to
// 12 hours from now. POST /events  body: { eventCode, password }
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var body struct {
		EventCode string `json:"eventCode"`
		Password  string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	code := NormalizeEventCode(body.EventCode)
	if code == "" {
		writeError(w, http.StatusBadRequest, "eventCode is required")
		return
	}

	want, err := s.store.CreatePassword(r.Context())
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("request-service: read create password: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if want == "" || body.Password != want {
		writeError(w, http.StatusUnauthorized, "wrong password")
		return
	}

	ev, err := s.store.UpsertEvent(r.Context(), code, time.Now().Add(EventTTL))
	if err != nil {
		log.Printf("request-service: upsert event: %v", err)
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	s.publishEvent(r.Context(), "event.created", ev)

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"event": ev,
	})
}
