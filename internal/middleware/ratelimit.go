package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/repeatapi/internal/logging"
)

// KeyFunc derives the rate limit bucket for a request. An empty key skips
// limiting.
type KeyFunc func(r *http.Request) string

// RateLimiter is a fixed-window request counter stored in Redis. It fails
// open: when Redis is missing or erroring, requests pass.
type RateLimiter struct {
	redis   *redis.Client
	limit   int64
	window  time.Duration
	prefix  string
	keyFunc KeyFunc
}

func NewRateLimiter(redisClient *redis.Client, limit int64, window time.Duration, prefix string, keyFunc KeyFunc) *RateLimiter {
	return &RateLimiter{
		redis:   redisClient,
		limit:   limit,
		window:  window,
		prefix:  prefix,
		keyFunc: keyFunc,
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.redis == nil || rl.keyFunc == nil {
			next.ServeHTTP(w, r)
			return
		}

		key := rl.keyFunc(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		allowed, remaining, resetAt, err := rl.allow(r.Context(), rl.prefix+key)
		if err != nil {
			logging.FromContext(r.Context()).Warn("Rate limiter unavailable", logging.Fields{"error": err.Error()})
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(rl.limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int64(time.Until(resetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"success":false,"message":"Too many requests. Please try again later."}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ctx context.Context, key string) (allowed bool, remaining int64, resetAt time.Time, err error) {
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err = rl.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		// NX keeps the window anchored at the first request.
		pipe.ExpireNX(ctx, key, rl.window)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return false, 0, time.Time{}, err
	}

	allowed, remaining, resetAt = evaluateWindow(incr.Val(), rl.limit, ttl.Val(), rl.window, time.Now())
	return allowed, remaining, resetAt, nil
}

func evaluateWindow(count, limit int64, ttl, window time.Duration, now time.Time) (bool, int64, time.Time) {
	if ttl <= 0 {
		ttl = window
	}
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= limit, remaining, now.Add(ttl)
}

// ClientIPKey keys requests by client address. Proxy headers are honored
// only when trustProxy is set, since clients can forge them.
func ClientIPKey(trustProxy bool) KeyFunc {
	return func(r *http.Request) string {
		return ClientIP(r, trustProxy)
	}
}

func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
