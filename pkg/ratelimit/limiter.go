package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shailjagaurzz/jan-kavach/pkg/common"
	"github.com/shailjagaurzz/jan-kavach/pkg/config"
	"github.com/shailjagaurzz/jan-kavach/pkg/logger"
	"go.uber.org/zap"
)

// IdentityType distinguishes authenticated users from anonymous clients.
type IdentityType int

const (
	// IdentityAnonymous identifies clients keyed by IP address
	IdentityAnonymous IdentityType = iota
	// IdentityAuthenticated identifies clients keyed by user id
	IdentityAuthenticated
)

// Rule is the effective rate limit applied to one (endpoint, identity) pair.
type Rule struct {
	Limit  int
	Burst  int
	Window time.Duration
}

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed      bool
	Remaining    int
	RetryAfter   time.Duration
	Limit        int
	Window       time.Duration
	ResetAfter   time.Duration
	IdentityKey  string
	EndpointKey  string
	IdentityType IdentityType
}

// slidingWindowScript trims expired entries, counts the window, and admits the
// request if under limit+burst. Returns {allowed, remaining, retry_ms}.
const slidingWindowScript = `
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local burst = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local capacity = limit + burst

if count >= capacity then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  local retry = 0
  if oldest[2] then
    retry = (tonumber(oldest[2]) + window) - now
  end
  return {0, 0, retry}
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window)
return {1, capacity - count - 1, 0}
`

// Limiter implements a Redis-backed sliding window rate limiter.
type Limiter struct {
	client *redis.Client
	script *redis.Script
	cfg    config.RateLimitConfig
	now    func() time.Time
}

// NewLimiter creates a limiter over the given Redis client.
func NewLimiter(client *redis.Client, cfg config.RateLimitConfig) *Limiter {
	return &Limiter{
		client: client,
		script: redis.NewScript(slidingWindowScript),
		cfg:    cfg,
		now:    time.Now,
	}
}

// WithNow overrides the limiter's clock, for tests.
func (l *Limiter) WithNow(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// RuleFor resolves the effective rule for an endpoint and identity type.
func (l *Limiter) RuleFor(endpoint string, identity IdentityType) Rule {
	rule := Rule{Window: l.cfg.Window()}

	if identity == IdentityAuthenticated {
		rule.Limit = l.cfg.DefaultLimit
		rule.Burst = l.cfg.DefaultBurst
	} else {
		rule.Limit = l.cfg.AnonymousLimit
		rule.Burst = l.cfg.AnonymousBurst
	}
	if rule.Burst < 0 {
		rule.Burst = 0
	}

	override, ok := l.cfg.EndpointOverrides[endpoint]
	if !ok {
		return rule
	}

	if identity == IdentityAuthenticated {
		if override.AuthenticatedLimit > 0 {
			rule.Limit = override.AuthenticatedLimit
		}
		rule.Burst = override.AuthenticatedBurst
	} else {
		if override.AnonymousLimit > 0 {
			rule.Limit = override.AnonymousLimit
		}
		rule.Burst = override.AnonymousBurst
	}
	if rule.Burst < 0 {
		rule.Burst = 0
	}

	if override.WindowSeconds > 0 {
		rule.Window = time.Duration(override.WindowSeconds) * time.Second
	}

	return rule
}

// Allow checks whether the request identified by (endpoint, identity) may proceed.
func (l *Limiter) Allow(ctx context.Context, endpoint, identity string, rule Rule, identityType IdentityType) (Result, error) {
	result := Result{
		IdentityKey:  identity,
		EndpointKey:  endpoint,
		IdentityType: identityType,
		Limit:        rule.Limit,
		Window:       rule.Window,
	}

	// Disabled limiter or non-positive limit means no enforcement
	if !l.cfg.Enabled || rule.Limit <= 0 {
		result.Allowed = true
		if rule.Limit > 0 {
			result.Remaining = rule.Limit
		}
		return result, nil
	}

	window := rule.Window
	if window <= 0 {
		window = l.cfg.Window()
		result.Window = window
	}

	key := fmt.Sprintf("%s:%s:%s", l.cfg.RedisPrefix, endpoint, identity)
	nowMs := float64(l.now().UnixNano()) / float64(time.Millisecond)

	raw, err := l.script.Run(ctx, l.client, []string{key},
		formatFloat(nowMs),
		strconv.FormatInt(window.Milliseconds(), 10),
		strconv.Itoa(rule.Limit),
		strconv.Itoa(rule.Burst),
		uuid.NewString(),
	).Result()
	if err != nil {
		// Fail open: availability over strict enforcement when Redis is down
		logger.Warn("Rate limit check failed, allowing request", zap.Error(err))
		result.Allowed = true
		result.Remaining = rule.Limit
		return result, nil
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) < 3 {
		result.Allowed = true
		result.Remaining = rule.Limit
		return result, nil
	}

	result.Allowed = toInt(values[0]) == 1
	result.Remaining = toInt(values[1])
	retryMs := toFloat(values[2])
	if retryMs > 0 {
		result.RetryAfter = time.Duration(retryMs * float64(time.Millisecond))
		result.ResetAfter = result.RetryAfter
	}

	return result, nil
}

// Middleware enforces rate limits per endpoint, keyed by user id when
// authenticated and client IP otherwise.
func Middleware(limiter *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = c.Request.URL.Path
		}

		identity := c.GetString("user_id")
		identityType := IdentityAuthenticated
		if identity == "" {
			identity = c.ClientIP()
			identityType = IdentityAnonymous
		}

		rule := limiter.RuleFor(endpoint, identityType)
		result, err := limiter.Allow(c.Request.Context(), endpoint, identity, rule, identityType)
		if err != nil {
			c.Next()
			return
		}

		c.Writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			retrySeconds := int(result.RetryAfter.Seconds() + 0.5)
			if retrySeconds < 1 {
				retrySeconds = 1
			}
			c.Writer.Header().Set("Retry-After", strconv.Itoa(retrySeconds))
			common.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}

		c.Next()
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 10, 64)
}

func toInt(v interface{}) int {
	switch t := v.(type) {
	case int64:
		return int(t)
	case int:
		return t
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
