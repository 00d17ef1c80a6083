package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shailjagaurzz/jan-kavach/pkg/config"
)

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		WindowSeconds:  60,
		DefaultLimit:   100,
		DefaultBurst:   10,
		AnonymousLimit: 30,
		AnonymousBurst: 5,
		RedisPrefix:    "rl",
	}
}

// matchAnyArgs ignores script arguments; the member id is random per request.
func matchAnyArgs(expected, actual []interface{}) error { return nil }

func TestRuleFor_Defaults(t *testing.T) {
	limiter := NewLimiter(nil, testConfig())

	auth := limiter.RuleFor("/api/v1/fraud/detect", IdentityAuthenticated)
	assert.Equal(t, 100, auth.Limit)
	assert.Equal(t, 10, auth.Burst)
	assert.Equal(t, time.Minute, auth.Window)

	anon := limiter.RuleFor("/api/v1/fraud/detect", IdentityAnonymous)
	assert.Equal(t, 30, anon.Limit)
	assert.Equal(t, 5, anon.Burst)
}

func TestRuleFor_EndpointOverride(t *testing.T) {
	cfg := testConfig()
	cfg.EndpointOverrides = map[string]config.EndpointRateLimitConfig{
		"/api/v1/evidence": {
			AuthenticatedLimit: 10,
			AuthenticatedBurst: 2,
			AnonymousLimit:     3,
			WindowSeconds:      300,
		},
	}
	limiter := NewLimiter(nil, cfg)

	auth := limiter.RuleFor("/api/v1/evidence", IdentityAuthenticated)
	assert.Equal(t, 10, auth.Limit)
	assert.Equal(t, 2, auth.Burst)
	assert.Equal(t, 5*time.Minute, auth.Window)

	anon := limiter.RuleFor("/api/v1/evidence", IdentityAnonymous)
	assert.Equal(t, 3, anon.Limit)
	assert.Equal(t, 0, anon.Burst, "override without an anonymous burst resets it")

	other := limiter.RuleFor("/api/v1/fraud/detect", IdentityAuthenticated)
	assert.Equal(t, 100, other.Limit)
}

func TestRuleFor_NegativeBurstClamped(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultBurst = -5
	limiter := NewLimiter(nil, cfg)

	rule := limiter.RuleFor("/api/v1/fraud/detect", IdentityAuthenticated)
	assert.Equal(t, 0, rule.Burst)
}

func TestAllow_DisabledSkipsRedis(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	limiter := NewLimiter(nil, cfg)

	result, err := limiter.Allow(context.Background(), "/api/v1/fraud/detect", "user-1",
		Rule{Limit: 100, Window: time.Minute}, IdentityAuthenticated)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 100, result.Remaining)
}

func TestAllow_ZeroLimitUnenforced(t *testing.T) {
	limiter := NewLimiter(nil, testConfig())

	result, err := limiter.Allow(context.Background(), "/api/v1/fraud/detect", "user-1",
		Rule{Limit: 0, Window: time.Minute}, IdentityAuthenticated)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestAllow_AdmitsUnderCapacity(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewLimiter(client, testConfig())
	rule := Rule{Limit: 100, Burst: 10, Window: time.Minute}

	mock.CustomMatch(matchAnyArgs).
		ExpectEvalSha(limiter.script.Hash(), []string{"rl:/api/v1/fraud/detect:user-1"}, "0", "0", "0", "0", "0").
		SetVal([]interface{}{int64(1), int64(109), int64(0)})

	result, err := limiter.Allow(context.Background(), "/api/v1/fraud/detect", "user-1", rule, IdentityAuthenticated)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 109, result.Remaining)
	assert.Zero(t, result.RetryAfter)
}

func TestAllow_DeniesOverCapacity(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewLimiter(client, testConfig())
	rule := Rule{Limit: 30, Burst: 5, Window: time.Minute}

	mock.CustomMatch(matchAnyArgs).
		ExpectEvalSha(limiter.script.Hash(), []string{"rl:/api/v1/fraud/detect:10.0.0.9"}, "0", "0", "0", "0", "0").
		SetVal([]interface{}{int64(0), int64(0), int64(1500)})

	result, err := limiter.Allow(context.Background(), "/api/v1/fraud/detect", "10.0.0.9", rule, IdentityAnonymous)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 1500*time.Millisecond, result.RetryAfter)
	assert.Equal(t, result.RetryAfter, result.ResetAfter)
}

func TestAllow_FailsOpenOnRedisError(t *testing.T) {
	// An unreachable Redis must not take the API down with it.
	client, _ := redismock.NewClientMock()
	limiter := NewLimiter(client, testConfig())
	rule := Rule{Limit: 100, Burst: 10, Window: time.Minute}

	result, err := limiter.Allow(context.Background(), "/api/v1/fraud/detect", "user-1", rule, IdentityAuthenticated)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 100, result.Remaining)
}

func newLimiterRouter(limiter *Limiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(limiter))
	router.POST("/api/v1/fraud/detect", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestMiddleware_AllowsAndSetsHeaders(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewLimiter(client, testConfig())

	mock.CustomMatch(matchAnyArgs).
		ExpectEvalSha(limiter.script.Hash(), []string{"rl:/api/v1/fraud/detect:192.0.2.1"}, "0", "0", "0", "0", "0").
		SetVal([]interface{}{int64(1), int64(34), int64(0)})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fraud/detect", nil)
	newLimiterRouter(limiter).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "34", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestMiddleware_RejectsWhenLimited(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewLimiter(client, testConfig())

	mock.CustomMatch(matchAnyArgs).
		ExpectEvalSha(limiter.script.Hash(), []string{"rl:/api/v1/fraud/detect:192.0.2.1"}, "0", "0", "0", "0", "0").
		SetVal([]interface{}{int64(0), int64(0), int64(30000)})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fraud/detect", nil)
	newLimiterRouter(limiter).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
}
