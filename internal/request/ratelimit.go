package request

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateWindow is the per-(client, event) submission cooldown.
const RateWindow = 10 * time.Second

// Limiter enforces one submission per key per window. With a redis client
// it uses SET NX PX so multiple API instances share the window; without
// one it degrades to a local map.
type Limiter struct {
	rdb    *redis.Client
	window time.Duration

	mu   sync.Mutex
	seen map[string]time.Time

	now func() time.Time
}

func NewLimiter(rdb *redis.Client, window time.Duration) *Limiter {
	return &Limiter{
		rdb:    rdb,
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Allow reports whether the key may submit now. When denied, retryAfter is
// the time left in the window, rounded up to whole seconds.
func (l *Limiter) Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration) {
	if l.rdb != nil {
		set, err := l.rdb.SetNX(ctx, "rl:"+key, "1", l.window).Result()
		if err == nil {
			if set {
				return true, 0
			}
			ttl, err := l.rdb.PTTL(ctx, "rl:"+key).Result()
			if err != nil || ttl <= 0 {
				ttl = l.window
			}
			return false, roundUpSeconds(ttl)
		}
		// Redis trouble: fall through to the local window rather than
		// rejecting or waving everything past.
		log.Printf("request: rate limiter redis error: %v", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if last, found := l.seen[key]; found {
		if elapsed := now.Sub(last); elapsed < l.window {
			return false, roundUpSeconds(l.window - elapsed)
		}
	}
	l.seen[key] = now

	if len(l.seen) > 4096 {
		for k, v := range l.seen {
			if now.Sub(v) >= l.window {
				delete(l.seen, k)
			}
		}
	}
	return true, 0
}

func roundUpSeconds(d time.Duration) time.Duration {
	secs := d / time.Second
	if d%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs * time.Second
}
