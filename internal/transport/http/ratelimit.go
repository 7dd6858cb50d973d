package http

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// tokenBucketScript refills and drains a per-key bucket atomically so that
// every API instance sharing the Redis sees the same budget.
const tokenBucketScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call("HMGET", key, "tokens", "last_update")
local tokens = tonumber(data[1]) or burst
local last_update = tonumber(data[2]) or now

tokens = math.min(burst, tokens + (now - last_update) * rate)

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end
redis.call("HMSET", key, "tokens", tokens, "last_update", now)
redis.call("EXPIRE", key, 60)
return allowed
`

// RateLimiter bounds reservation attempts per client. With a Redis client it
// enforces a distributed token bucket; without one it falls back to in-memory
// buckets local to this process. Redis failures fail open.
type RateLimiter struct {
	rps    float64
	burst  int
	client *redis.Client
	script *redis.Script
	logger *zap.Logger

	mu      sync.Mutex
	buckets map[string]*localBucket
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const bucketIdleTTL = 5 * time.Minute

func NewRateLimiter(rps float64, burst int, client *redis.Client, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		rps:     rps,
		burst:   burst,
		client:  client,
		script:  redis.NewScript(tokenBucketScript),
		logger:  logger,
		buckets: make(map[string]*localBucket),
	}
}

// Allow reports whether the caller identified by key may proceed.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	if rl.client == nil {
		return rl.allowLocal(key)
	}

	now := float64(time.Now().UnixNano()) / 1e9
	result, err := rl.script.Run(ctx, rl.client, []string{"ratelimit:" + key}, rl.rps, rl.burst, now).Int()
	if err != nil {
		rl.logger.Warn("rate limiter redis failure, allowing request", zap.Error(err))
		return true
	}
	return result == 1
}

func (rl *RateLimiter) allowLocal(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &localBucket{limiter: rate.NewLimiter(rate.Limit(rl.rps), rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	for k, v := range rl.buckets {
		if now.Sub(v.lastSeen) > bucketIdleTTL {
			delete(rl.buckets, k)
		}
	}
	rl.mu.Unlock()

	return b.limiter.Allow()
}

// Middleware rejects over-limit requests with 429, keyed by client IP.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(r.Context(), clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(1))
			writeError(w, http.StatusTooManyRequests, codeRateLimited, "too many requests, retry later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
