package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeRateLimitStore struct {
	trimErr   error
	count     int
	oldest    time.Time
	hasOldest bool

	recordedKeys []string
}

func (f *fakeRateLimitStore) TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error {
	return f.trimErr
}

func (f *fakeRateLimitStore) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	return f.count, nil
}

func (f *fakeRateLimitStore) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	f.recordedKeys = append(f.recordedKeys, identifier)
	return nil
}

func (f *fakeRateLimitStore) OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	return f.oldest, f.hasOldest, nil
}

var rateLimitNow = time.Date(2025, 10, 12, 10, 0, 0, 0, time.UTC)

func newRateLimitedRouter(t *testing.T, store *fakeRateLimitStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return rateLimitNow })

	router := gin.New()
	router.Use(limiter.RateLimit(RateLimitRule{
		Name:   "login",
		Limit:  5,
		Window: time.Minute,
		Identifier: func(c *gin.Context) (string, bool) {
			return "192.0.2.1", true
		},
	}))
	router.POST("/api/v1/auth/login", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimiterAllowsWhenBelowLimit(t *testing.T) {
	oldest := rateLimitNow.Add(-30 * time.Second)
	store := &fakeRateLimitStore{count: 2, oldest: oldest, hasOldest: true}
	router := newRateLimitedRouter(t, store)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"login:192.0.2.1"}, store.recordedKeys)
	assert.Equal(t, "5", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, strconv.FormatInt(oldest.Add(time.Minute).Unix(), 10), rr.Header().Get("X-RateLimit-Reset"))
	assert.Empty(t, rr.Header().Get("Retry-After"))
}

func TestRateLimiterBlocksWhenLimitExceeded(t *testing.T) {
	store := &fakeRateLimitStore{count: 5, oldest: rateLimitNow.Add(-30 * time.Second), hasOldest: true}
	router := newRateLimitedRouter(t, store)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))

	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Empty(t, store.recordedKeys)
	assert.Equal(t, "30", rr.Header().Get("Retry-After"))

	var problem ProblemDetails
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Equal(t, http.StatusTooManyRequests, problem.Status)
	assert.Equal(t, 30, problem.RetryAfter)
	assert.Equal(t, "/api/v1/auth/login", problem.Instance)
}

func TestRateLimiterFailsOpenOnStoreError(t *testing.T) {
	store := &fakeRateLimitStore{trimErr: errors.New("redis down")}
	router := newRateLimitedRouter(t, store)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, store.recordedKeys)
	assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimiterSkipsRulesWithoutIdentifier(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeRateLimitStore{count: 100}
	limiter := NewRateLimiter(store, zaptest.NewLogger(t))

	router := gin.New()
	router.Use(limiter.RateLimit(RateLimitRule{Name: "password", Limit: 1, Window: time.Minute, Identifier: PrincipalIdentifier()}))
	router.PATCH("/api/v1/auth/password", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/api/v1/auth/password", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, store.recordedKeys)
}
