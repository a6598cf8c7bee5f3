package request

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
)

// handleListRequests serves the ranked trailing-window queue.
// GET /requests?eventCode=CODE
func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("eventCode")

	items, err := s.engine.List(r.Context(), code)
	if err != nil {
		log.Printf("request-service: list requests: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"requests": []RequestItem{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": items})
}

// handleSubmitRequest accepts a guest submission, merging duplicates.
// POST /requests  body: { eventCode, title?, url?, dedication? }
func (s *Server) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var in SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	code := NormalizeEventCode(in.EventCode)

	key := "post:" + clientIP(r) + ":" + code
	if ok, retryAfter := s.limiter.Allow(r.Context(), key); !ok {
		secs := int(retryAfter.Seconds())
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"ok":            false,
			"error":         "Too Many Requests",
			"retryAfterSec": secs,
		})
		return
	}

	item, merged, err := s.engine.Submit(r.Context(), in)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if merged {
		s.publishEvent(r.Context(), "request.merged", item)
	} else {
		s.publishEvent(r.Context(), "request.submitted", item)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"merged":  merged,
		"request": item,
	})
}

// handleAdjustVotes is the privileged vote adjustment used by the DJ
// console. PATCH /requests  body: { id, delta? }
func (s *Server) handleAdjustVotes(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	if !s.secretOK(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var body struct {
		ID    string `json:"id"`
		Delta *int   `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	delta := 1
	if body.Delta != nil {
		delta = *body.Delta
	}

	item, err := s.engine.Upvote(r.Context(), body.ID, delta)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	s.publishEvent(r.Context(), "request.voted", item)

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"request": item,
	})
}
