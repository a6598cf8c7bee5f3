package request

import (
	"context"
	"log"
	"time"
)

// StartSweeper starts a background worker that drops expired events and
// requests that aged out of the browse window.
func (s *Server) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *Server) sweep(ctx context.Context) {
	removed, err := s.store.DeleteExpired(ctx, time.Now())
	if err != nil {
		log.Printf("request-service: sweep error: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("request-service: sweep removed %d expired rows", removed)
	}
}
