package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hivley/internal/redis"
	"hivley/internal/services"
	"hivley/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) result() (*redis.RateLimitResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	remaining := 4
	if !f.allowed {
		remaining = 0
	}
	return &redis.RateLimitResult{Allowed: f.allowed, Remaining: remaining, ResetIn: 30 * time.Second, Limit: 5}, nil
}

func (f *fakeLimiter) AllowMessage(_ context.Context, profileID string) (*redis.RateLimitResult, error) {
	f.keys = append(f.keys, profileID)
	return f.result()
}

func (f *fakeLimiter) AllowAuth(_ context.Context, ip string) (*redis.RateLimitResult, error) {
	f.keys = append(f.keys, ip)
	return f.result()
}

type fakeParser struct{}

func (fakeParser) ParseAccessToken(token string) (services.AccessClaims, error) {
	if token == "" || token == "bad" {
		return services.AccessClaims{}, errors.New("invalid token")
	}
	return services.AccessClaims{UserID: token}, nil
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRateLimit(t *testing.T) {
	t.Run("allowed sets headers", func(t *testing.T) {
		limiter := &fakeLimiter{allowed: true}
		r := gin.New()
		r.POST("/login", AuthRateLimitMiddleware(limiter, logger.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

		w := serve(r, http.MethodPost, "/login", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "30", w.Header().Get("X-RateLimit-Reset"))
		assert.Len(t, limiter.keys, 1)
	})

	t.Run("denied", func(t *testing.T) {
		r := gin.New()
		r.POST("/login", AuthRateLimitMiddleware(&fakeLimiter{}, logger.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

		w := serve(r, http.MethodPost, "/login", nil)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "RATE_LIMITED")
	})

	t.Run("redis error fails open", func(t *testing.T) {
		r := gin.New()
		r.POST("/login", AuthRateLimitMiddleware(&fakeLimiter{err: errors.New("dial tcp: refused")}, logger.NewNop()), func(c *gin.Context) { c.Status(http.StatusOK) })

		w := serve(r, http.MethodPost, "/login", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("nil limiter", func(t *testing.T) {
		r := gin.New()
		r.POST("/login", AuthRateLimitMiddleware(nil, nil), func(c *gin.Context) { c.Status(http.StatusOK) })
		assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/login", nil).Code)
	})
}

func TestMessageRateLimitKeysByProfile(t *testing.T) {
	limiter := &fakeLimiter{allowed: true}
	userID := uuid.New()

	r := gin.New()
	r.Use(AuthMiddleware(fakeParser{}))
	r.POST("/messages", MessageRateLimitMiddleware(limiter, logger.NewNop()), func(c *gin.Context) { c.Status(http.StatusCreated) })

	w := serve(r, http.MethodPost, "/messages", http.Header{"Authorization": {"Bearer " + userID.String()}})
	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, limiter.keys, 1)
	assert.Equal(t, userID.String(), limiter.keys[0])
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(AuthMiddleware(fakeParser{}))
	r.GET("/me", func(c *gin.Context) {
		id, ok := services.UserIDFromContext(c.Request.Context())
		require.True(t, ok)
		c.String(http.StatusOK, id.String())
	})

	userID := uuid.New()
	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + userID.String(), http.StatusUnauthorized},
		{"rejected token", "Bearer bad", http.StatusUnauthorized},
		{"subject not a uuid", "Bearer not-a-uuid", http.StatusUnauthorized},
		{"lowercase scheme", "bearer " + userID.String(), http.StatusOK},
		{"valid", "Bearer " + userID.String(), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.Header{}
			if tc.header != "" {
				h.Set("Authorization", tc.header)
			}
			w := serve(r, http.MethodGet, "/me", h)
			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.Equal(t, userID.String(), w.Body.String())
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		id, _ := c.Request.Context().Value(logger.RequestIdKey).(string)
		c.String(http.StatusOK, id)
	})

	w := serve(r, http.MethodGet, "/", nil)
	assert.Len(t, w.Header().Get("X-Request-Id"), 32)
	assert.Equal(t, w.Header().Get("X-Request-Id"), w.Body.String())

	w = serve(r, http.MethodGet, "/", http.Header{"X-Request-Id": {"abc-123"}})
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-Id"))

	w = serve(r, http.MethodGet, "/", http.Header{"X-Request-Id": {strings.Repeat("x", 65)}})
	assert.Len(t, w.Header().Get("X-Request-Id"), 32)

	w = serve(r, http.MethodGet, "/", http.Header{"X-Request-Id": {"a b\tc"}})
	assert.Len(t, w.Header().Get("X-Request-Id"), 32)
}

func TestCORS(t *testing.T) {
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	t.Run("wildcard", func(t *testing.T) {
		r := gin.New()
		r.Use(CORS([]string{"*"}))
		r.GET("/", ok)

		w := serve(r, http.MethodGet, "/", http.Header{"Origin": {"https://app.example"}})
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("listed origin", func(t *testing.T) {
		r := gin.New()
		r.Use(CORS([]string{"https://app.example/"}))
		r.GET("/", ok)

		w := serve(r, http.MethodGet, "/", http.Header{"Origin": {"https://app.example"}})
		assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

		w = serve(r, http.MethodGet, "/", http.Header{"Origin": {"https://evil.example"}})
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight", func(t *testing.T) {
		r := gin.New()
		r.Use(CORS([]string{"*"}))
		r.GET("/", ok)

		w := serve(r, http.MethodOptions, "/", http.Header{"Origin": {"https://app.example"}})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	})
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/", nil)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}
