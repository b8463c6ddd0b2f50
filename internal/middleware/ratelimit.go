package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"smartbin-backend/internal/config"
)

// KeyedLimiter keeps one token bucket per key (client IP, API key).
// Idle buckets are pruned so the map does not grow without bound.
type KeyedLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	limit    rate.Limit
	burst    int
	lastScan time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewKeyedLimiter(limit rate.Limit, burst int) *KeyedLimiter {
	return &KeyedLimiter{
		buckets:  map[string]*bucket{},
		limit:    limit,
		burst:    burst,
		lastScan: time.Now(),
	}
}

func (k *KeyedLimiter) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if time.Since(k.lastScan) > 10*time.Minute {
		for id, b := range k.buckets {
			if time.Since(b.lastSeen) > time.Hour {
				delete(k.buckets, id)
			}
		}
		k.lastScan = time.Now()
	}

	b, ok := k.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow()
}

// Middleware returns a 429 when the key's bucket is empty.
func (k *KeyedLimiter) Middleware(keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !k.Allow(keyFn(r)) {
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// GeneralLimiter rate limits all API traffic per client IP.
func GeneralLimiter(cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	perSecond := rate.Limit(float64(cfg.GeneralPerMin) / 60.0)
	return NewKeyedLimiter(perSecond, cfg.GeneralPerMin).Middleware(clientIP)
}

// AuthLimiter throttles login attempts per client IP. The window is
// fifteen minutes, matching account lockout expectations.
func AuthLimiter(cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	perSecond := rate.Limit(float64(cfg.AuthPerWindow) / (15 * 60))
	return NewKeyedLimiter(perSecond, cfg.AuthPerWindow).Middleware(clientIP)
}

// DeviceLimiter rate limits device traffic per API key.
func DeviceLimiter(cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	perSecond := rate.Limit(float64(cfg.DevicePerMin) / 60.0)
	limiter := NewKeyedLimiter(perSecond, cfg.DevicePerMin)
	return limiter.Middleware(func(r *http.Request) string {
		if key := r.Header.Get("X-API-Key"); key != "" {
			return key
		}
		return clientIP(r)
	})
}
