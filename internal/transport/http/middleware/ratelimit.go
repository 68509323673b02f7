package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/shared"
)

type RateLimitKeyFunc func(r *http.Request) string

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	mu       sync.Mutex
	perMin   int
	limit    rate.Limit
	burst    int
	keyFn    RateLimitKeyFunc
	visitors map[string]*visitor
	idleTTL  time.Duration
	lastGC   time.Time
	log      *zap.Logger
}

// RateLimit allows perMinute requests per key with a burst of the same size.
// Keys default to the authenticated user, then the client IP.
func RateLimit(perMinute int, log *zap.Logger, keyFn RateLimitKeyFunc) func(http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = actorOrIPKey
	}
	rl := &rateLimiter{
		perMin:   perMinute,
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		keyFn:    keyFn,
		visitors: map[string]*visitor{},
		idleTTL:  10 * time.Minute,
		log:      log,
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return "ip:" + shared.ClientIP(r)
}

// IPKey limits by client address only, for unauthenticated endpoints.
func IPKey(r *http.Request) string {
	return "ip:" + shared.ClientIP(r)
}

func (rl *rateLimiter) get(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if now.Sub(rl.lastGC) > rl.idleTTL {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > rl.idleTTL {
				delete(rl.visitors, k)
			}
		}
		rl.lastGC = now
	}
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	if rl.perMin <= 0 {
		return true
	}
	key := rl.keyFn(r)
	now := time.Now()
	limiter := rl.get(key, now)
	reservation := limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.perMin))
	if delay > 0 {
		reservation.CancelAt(now)
		retry := int(math.Ceil(delay.Seconds()))
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
		if rl.log != nil {
			rl.log.Warn("rate limit exceeded", zap.String("key", key), zap.String("path", r.URL.Path))
		}
		api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
		return false
	}
	remaining := int(limiter.TokensAt(now))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	return true
}
