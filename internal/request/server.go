package request

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	engine    *Engine
	store     Store
	rdb       *redis.Client
	limiter   *Limiter
	apiSecret string
}

func NewServer(store Store, rdb *redis.Client, resolver TitleResolver, apiSecret string) *Server {
	return &Server{
		engine:    NewEngine(store, resolver),
		store:     store,
		rdb:       rdb,
		limiter:   NewLimiter(rdb, RateWindow),
		apiSecret: apiSecret,
	}
}

func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)

	r.Get("/requests", s.handleListRequests)
	r.Post("/requests", s.handleSubmitRequest)
	r.Patch("/requests", s.handleAdjustVotes)

	r.Get("/events", s.handleGetEvent)
	r.Post("/events", s.handleCreateEvent)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "request-service",
	})
}

// secretOK gates the privileged vote-adjustment path. An unset secret
// leaves the path open (single-operator deployments).
func (s *Server) secretOK(r *http.Request) bool {
	if s.apiSecret == "" {
		return true
	}
	return r.Header.Get("X-Api-Secret") == s.apiSecret
}

func (s *Server) publishEvent(ctx context.Context, eventType string, payload any) {
	if s.rdb == nil {
		return
	}
	body := map[string]any{
		"type":    eventType,
		"payload": payload,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, "broadcast", string(data)).Err(); err != nil {
		log.Printf("request-service: publish event: %v", err)
	}
}
