package config

import (
	"strings"
	"time"
)

// Key strategies for the API rate limiter.  The caller is the habit user
// named by the request (user_id, the voice envelope's user) or, for
// per-habit routes, the habit; anonymous callers fall back to their IP.
const (
	RateKeyIP          = "ip"
	RateKeyCaller      = "caller"
	RateKeyCallerRoute = "caller_route"
)

// RateLimitConfig configures the Redis token bucket in front of /v1 and
// /alexa.  Each bucket holds Capacity tokens and regains RefillTokens every
// RefillInterval; idle buckets expire after TTL.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  A voice session
// issues a handful of requests per utterance, so the default bucket is 30
// requests refilled at one per second.
func LoadRateLimitConfig() RateLimitConfig {
	rl := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       max(envInt("RATE_LIMIT_CAPACITY", 30), 1),
		RefillTokens:   max(envInt("RATE_LIMIT_REFILL_TOKENS", 1), 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    strings.ToLower(envStr("RATE_LIMIT_KEY_STRATEGY", RateKeyCallerRoute)),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "habits:rl"),
	}
	if rl.RefillInterval <= 0 {
		rl.RefillInterval = time.Second
	}
	// A bucket must outlive the time it takes to refill completely.
	if full := time.Duration(rl.Capacity/rl.RefillTokens+1) * rl.RefillInterval; rl.TTL < full {
		rl.TTL = full
	}
	switch rl.KeyStrategy {
	case RateKeyIP, RateKeyCaller, RateKeyCallerRoute:
	default:
		rl.KeyStrategy = RateKeyCallerRoute
	}
	return rl
}
