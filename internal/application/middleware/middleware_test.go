package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "0123456789abcdef0123456789abcdef"

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(j *JWTMiddleware) *gin.Engine {
	router := gin.New()
	router.GET("/me", j.Authenticate(), func(c *gin.Context) {
		c.String(http.StatusOK, ClientID(c))
	})
	return router
}

func get(router http.Handler, header string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	t.Run("accepts a valid token", func(t *testing.T) {
		j := NewJWTMiddleware(secret, "storekit-manager", &fakeBlocklist{}, zap.NewNop())
		token, _, err := j.GenerateAccessToken("app-1", time.Minute)
		require.NoError(t, err)

		w := get(newAuthRouter(j), "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "app-1", w.Body.String())
	})

	t.Run("rejects missing and malformed headers", func(t *testing.T) {
		j := NewJWTMiddleware(secret, "storekit-manager", &fakeBlocklist{}, zap.NewNop())
		router := newAuthRouter(j)

		assert.Equal(t, http.StatusUnauthorized, get(router, "").Code)
		assert.Equal(t, http.StatusUnauthorized, get(router, "Token abc").Code)
		assert.Equal(t, http.StatusUnauthorized, get(router, "Bearer not-a-jwt").Code)
	})

	t.Run("rejects tokens from another issuer or key", func(t *testing.T) {
		j := NewJWTMiddleware(secret, "storekit-manager", &fakeBlocklist{}, zap.NewNop())
		other := NewJWTMiddleware(secret, "someone-else", &fakeBlocklist{}, zap.NewNop())
		token, _, err := other.GenerateAccessToken("app-1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, get(newAuthRouter(j), "Bearer "+token).Code)

		wrongKey := NewJWTMiddleware("fedcba9876543210fedcba9876543210", "storekit-manager", &fakeBlocklist{}, zap.NewNop())
		token, _, err = wrongKey.GenerateAccessToken("app-1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, get(newAuthRouter(j), "Bearer "+token).Code)
	})

	t.Run("rejects expired tokens", func(t *testing.T) {
		j := NewJWTMiddleware(secret, "storekit-manager", &fakeBlocklist{}, zap.NewNop())
		token, _, err := j.GenerateAccessToken("app-1", -time.Minute)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, get(newAuthRouter(j), "Bearer "+token).Code)
	})

	t.Run("rejects revoked tokens", func(t *testing.T) {
		blocklist := &fakeBlocklist{}
		j := NewJWTMiddleware(secret, "storekit-manager", blocklist, zap.NewNop())
		token, jti, err := j.GenerateAccessToken("app-1", time.Minute)
		require.NoError(t, err)
		require.NoError(t, j.RevokeToken(context.Background(), jti, time.Minute))

		w := get(newAuthRouter(j), "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "TOKEN_REVOKED")
	})

	t.Run("fails closed when the blocklist is unavailable", func(t *testing.T) {
		j := NewJWTMiddleware(secret, "storekit-manager", &fakeBlocklist{err: errors.New("redis down")}, zap.NewNop())
		token, _, err := j.GenerateAccessToken("app-1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, get(newAuthRouter(j), "Bearer "+token).Code)
	})
}

func TestRateLimiter(t *testing.T) {
	newRouter := func(limiter *RateLimiter) *gin.Engine {
		router := gin.New()
		router.GET("/me", limiter.Middleware(ByClientID, redis_rate.PerMinute(2)), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("allows until the limit then rejects", func(t *testing.T) {
		allower := &fakeAllower{remaining: 1}
		router := newRouter(NewRateLimiter(allower, false, zap.NewNop()))

		first := get(router, "")
		assert.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))

		second := get(router, "")
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
		assert.Equal(t, "3", second.Header().Get("Retry-After"))
		assert.Contains(t, allower.keys[0], "ratelimit:ip:")
	})

	t.Run("limiter error fails open or closed", func(t *testing.T) {
		closed := newRouter(NewRateLimiter(&fakeAllower{err: errors.New("redis down")}, false, zap.NewNop()))
		assert.Equal(t, http.StatusServiceUnavailable, get(closed, "").Code)

		open := newRouter(NewRateLimiter(&fakeAllower{err: errors.New("redis down")}, true, zap.NewNop()))
		assert.Equal(t, http.StatusOK, get(open, "").Code)
	})
}
