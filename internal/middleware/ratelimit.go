// Package middleware holds the Echo middleware of the HTTP API.
package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/habit-tracker/internal/config"
	"github.com/iliyamo/habit-tracker/internal/logger"
)

// tokenBucket refills and takes one token atomically.  It returns
// {allowed, tokens left, ms until the next refill}.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(state[1]) or capacity
local ts = tonumber(state[2]) or now

local steps = math.floor(math.max(0, now - ts) / interval)
if steps > 0 then
  tokens = math.min(capacity, tokens + steps * refill)
  ts = ts + steps * interval
end

local allowed = 0
local wait = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  wait = math.max(0, interval - (now - ts))
end

redis.call('HSET', key, 'tokens', tokens, 'ts', ts)
redis.call('EXPIRE', key, ttl)
return {allowed, tokens, wait}
`)

// maxPeek bounds how much of a request body is read to find the caller.
const maxPeek = 64 << 10

// NewRateLimiter throttles callers with a Redis token bucket.  It is a
// pass-through when disabled or rdb is nil, and fails open on Redis
// errors: a missing limiter must never block habit writes.
func NewRateLimiter(cfg config.RateLimitConfig, rdb redis.Scripter) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			res, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL/time.Second),
			).Int64Slice()
			if err != nil || len(res) != 3 {
				logger.Warn("ratelimit: skipping check", "key", key, "error", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res[1], 10))
			if res[0] == 1 {
				return next(c)
			}

			secs := int(math.Ceil(float64(res[2]) / 1000))
			h.Set("Retry-After", strconv.Itoa(secs))
			logger.Info("ratelimit: blocked", "key", key, "retry_after", secs)
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too many requests",
				"retry_after": secs,
			})
		}
	}
}

// rateKey builds "<prefix>:<subject>[:<route>]" for the configured strategy.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	subject := "ip:" + realIP(c)
	if cfg.KeyStrategy != config.RateKeyIP {
		if who := caller(c); who != "" {
			subject = who
		}
	}
	if cfg.KeyStrategy == config.RateKeyCallerRoute {
		return fmt.Sprintf("%s:%s:%s %s", cfg.Prefix, subject, c.Request().Method, c.Path())
	}
	return cfg.Prefix + ":" + subject
}

func realIP(c echo.Context) string {
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// callerBody holds the fields that identify a caller in a request body:
// user_id on the JSON API, the user ids of the voice envelope on /alexa.
type callerBody struct {
	UserID  json.RawMessage `json:"user_id"`
	Session *struct {
		User struct {
			UserID string `json:"userId"`
		} `json:"user"`
	} `json:"session"`
	Context *struct {
		System struct {
			User struct {
				UserID string `json:"userId"`
			} `json:"user"`
		} `json:"System"`
	} `json:"context"`
}

// caller names the habit user (or habit) a request acts for, or "" when
// the request does not say.  There is no authentication; the value is
// taken as given.
func caller(c echo.Context) string {
	if id := strings.TrimSpace(c.QueryParam("user_id")); id != "" {
		return "user:" + id
	}
	switch path := c.Path(); {
	case strings.HasPrefix(path, "/v1/users/:id"):
		return "user:" + c.Param("id")
	case strings.HasPrefix(path, "/v1/habits/:id"):
		return "habit:" + c.Param("id")
	}

	body := peekBody(c.Request())
	if len(body) == 0 {
		return ""
	}
	var b callerBody
	if err := json.Unmarshal(body, &b); err != nil {
		return ""
	}
	if id := strings.Trim(strings.TrimSpace(string(b.UserID)), `"`); id != "" && id != "null" {
		return "user:" + id
	}
	if b.Context != nil && b.Context.System.User.UserID != "" {
		return "voice:" + b.Context.System.User.UserID
	}
	if b.Session != nil && b.Session.User.UserID != "" {
		return "voice:" + b.Session.User.UserID
	}
	return ""
}

// peekBody reads up to maxPeek bytes of a JSON body and puts them back so
// the handler still sees the whole body.
func peekBody(r *http.Request) []byte {
	if r.Body == nil || r.Method == http.MethodGet || !strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return nil
	}
	buf, err := io.ReadAll(io.LimitReader(r.Body, maxPeek))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(buf), r.Body), r.Body}
	if err != nil || len(buf) == maxPeek {
		return nil
	}
	return buf
}
