package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KanavDutta/cryptofence/metrics"
	"github.com/KanavDutta/cryptofence/middleware"
	"github.com/KanavDutta/cryptofence/pkg/cryptoservice"
	"github.com/KanavDutta/cryptofence/pkg/ratelimit"
	"github.com/KanavDutta/cryptofence/store"
)

var discard = slog.New(slog.DiscardHandler)

type testEnv struct {
	ops     *ratelimit.Limiter
	checks  *ratelimit.Limiter
	metrics *metrics.Metrics
	reg     *prometheus.Registry
	router  http.Handler
	now     *time.Time
}

func newTestEnv(t *testing.T, bucket ratelimit.BucketConfig, opts ...func(*RouterConfig)) *testEnv {
	t.Helper()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	reg := prometheus.NewRegistry()
	m, err := metrics.NewMetrics(reg)
	require.NoError(t, err)

	newLimiter := func() *ratelimit.Limiter {
		limiter, err := ratelimit.NewLimiter(
			ratelimit.WithDefaultBucket(bucket),
			ratelimit.WithClock(func() time.Time { return now }),
			ratelimit.WithObserver(m),
		)
		require.NoError(t, err)
		return limiter
	}
	ops, checks := newLimiter(), newLimiter()

	svc := cryptoservice.New(cryptoservice.NewStandard(), ops, discard)
	vault, err := cryptoservice.NewVault(svc, store.NewMemoryStore(), bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	cfg := RouterConfig{
		Handler:  NewHandler(checks, vault, discard),
		Metrics:  m,
		Gatherer: reg,
		Logger:   discard,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &testEnv{ops: ops, checks: checks, metrics: m, reg: reg, router: NewRouter(cfg), now: &now}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func generous() ratelimit.BucketConfig {
	return ratelimit.BucketConfig{TokensPerSecond: 1, BurstSize: 100, InitialTokens: 100}
}

func TestCheckRateLimit_AllowsRequests(t *testing.T) {
	env := newTestEnv(t, ratelimit.BucketConfig{TokensPerSecond: 5, BurstSize: 10, InitialTokens: 10})

	w := env.do(t, http.MethodPost, "/check", CheckRequest{Key: "test-user"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp CheckResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Allowed)
	assert.Equal(t, "test-user", resp.Key)
	assert.Equal(t, int64(10), resp.Limit)
	assert.Equal(t, int64(9), resp.Remaining)
	assert.Zero(t, resp.RetryAfterMs)
}

func TestCheckRateLimit_BlocksWhenExceeded(t *testing.T) {
	env := newTestEnv(t, ratelimit.BucketConfig{TokensPerSecond: 2, BurstSize: 5, InitialTokens: 5})

	w := env.do(t, http.MethodPost, "/check", CheckRequest{Key: "test-user", Tokens: 5})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/check", CheckRequest{Key: "test-user"})
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp CheckResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Allowed)
	assert.Equal(t, int64(500), resp.RetryAfterMs)

	*env.now = env.now.Add(500 * time.Millisecond)
	w = env.do(t, http.MethodPost, "/check", CheckRequest{Key: "test-user"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheckRateLimit_MoreThanBurst(t *testing.T) {
	env := newTestEnv(t, ratelimit.BucketConfig{TokensPerSecond: 1, BurstSize: 5, InitialTokens: 5})

	w := env.do(t, http.MethodPost, "/check", CheckRequest{Key: "k", Tokens: 6})
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp CheckResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, int64(-1), resp.RetryAfterMs)

	tokens, ok := env.checks.Tokens("check:k")
	require.True(t, ok)
	assert.InDelta(t, 5.0, tokens, 1e-9)
}

func TestCheckRateLimit_BadRequests(t *testing.T) {
	env := newTestEnv(t, generous())

	tests := []struct {
		name string
		body any
		code string
	}{
		{name: "invalid json", body: "{not json", code: "invalid_request"},
		{name: "missing key", body: CheckRequest{}, code: "validation_failed"},
		{name: "negative tokens", body: CheckRequest{Key: "k", Tokens: -2}, code: "validation_failed"},
		{name: "key too long", body: CheckRequest{Key: strings.Repeat("k", 257)}, code: "validation_failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/check", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.code, resp.Error)
		})
	}

	assert.Zero(t, env.checks.Count())
}

func TestCheckRateLimit_WrongMethod(t *testing.T) {
	env := newTestEnv(t, generous())

	w := env.do(t, http.MethodGet, "/check", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRecords_Lifecycle(t *testing.T) {
	env := newTestEnv(t, generous())
	secret := []byte("the launch codes")

	w := env.do(t, http.MethodPost, "/records", SealRequest{ID: "rec-1", Data: secret})
	require.Equal(t, http.StatusCreated, w.Code)

	var sealed RecordResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sealed))
	assert.Equal(t, "rec-1", sealed.ID)
	assert.Empty(t, sealed.Data)

	w = env.do(t, http.MethodGet, "/records/rec-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var opened RecordResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&opened))
	assert.Equal(t, secret, opened.Data)

	w = env.do(t, http.MethodDelete, "/records/rec-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/records/rec-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/records/rec-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecords_ExistingIDConflicts(t *testing.T) {
	env := newTestEnv(t, generous())

	w := env.do(t, http.MethodPost, "/records", SealRequest{ID: "rec-1", Data: []byte("first")})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/records", SealRequest{ID: "rec-1", Data: []byte("second")})
	require.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodGet, "/records/rec-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var opened RecordResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&opened))
	assert.Equal(t, []byte("first"), opened.Data)
}

func TestRecords_GeneratedID(t *testing.T) {
	env := newTestEnv(t, generous())

	w := env.do(t, http.MethodPost, "/records", SealRequest{Data: []byte("x")})
	require.Equal(t, http.StatusCreated, w.Code)

	var sealed RecordResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&sealed))
	assert.Len(t, sealed.ID, 36)
}

func TestRecords_InvalidInput(t *testing.T) {
	env := newTestEnv(t, generous())

	w := env.do(t, http.MethodPost, "/records", `{"id":"a"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/records", `{"id":"a","data":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, exists := env.ops.Tokens(cryptoservice.OpEncrypt)
	assert.False(t, exists, "no token should be spent on invalid input")
}

func TestRecords_RateLimited(t *testing.T) {
	env := newTestEnv(t, ratelimit.BucketConfig{TokensPerSecond: 0.1, BurstSize: 1, InitialTokens: 1})

	w := env.do(t, http.MethodPost, "/records", SealRequest{Data: []byte("one")})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/records", SealRequest{Data: []byte("two")})
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "rate_limit_exceeded", resp.Error)
}

func TestMetricsEndpoints(t *testing.T) {
	env := newTestEnv(t, ratelimit.BucketConfig{TokensPerSecond: 1, BurstSize: 1, InitialTokens: 1})

	env.do(t, http.MethodPost, "/check", CheckRequest{Key: "a"})
	env.do(t, http.MethodPost, "/check", CheckRequest{Key: "a"})

	w := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot metrics.Snapshot
	require.NoError(t, json.NewDecoder(w.Body).Decode(&snapshot))
	assert.Equal(t, int64(2), snapshot.TotalDecisions)
	assert.Equal(t, int64(1), snapshot.DeniedDecisions)

	w = env.do(t, http.MethodGet, "/metrics/prometheus", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `cryptofence_ratelimit_decisions_total{key="check:a",outcome="denied"} 1`)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	env := newTestEnv(t, generous())
	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	down := newTestEnv(t, generous(), func(c *RouterConfig) {
		c.Health = pinger{err: errors.New("connection refused")}
	})
	w = down.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestRouter_ClientLimit(t *testing.T) {
	clients, err := ratelimit.NewLimiter(ratelimit.WithDefaultBucket(ratelimit.BucketConfig{
		TokensPerSecond: 0.01,
		BurstSize:       1,
		InitialTokens:   1,
	}))
	require.NoError(t, err)
	gate, err := middleware.NewRateLimiter(middleware.Config{Limiter: clients})
	require.NoError(t, err)

	env := newTestEnv(t, generous(), func(c *RouterConfig) { c.ClientLimit = gate })

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/check", CheckRequest{Key: "a"}).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(t, http.MethodPost, "/check", CheckRequest{Key: "b"}).Code)

	// Health and metrics are not charged to the client
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil).Code)
}

func TestCheckRateLimit_CannotSpendOperationBudget(t *testing.T) {
	// Wired to the very limiter that gates the vault, /check still only
	// reaches its own prefixed buckets.
	adapter, err := ratelimit.AdapterConfig{MaxOperationsPerMinute: 60}.CreateAdapter()
	require.NoError(t, err)

	svc := cryptoservice.New(cryptoservice.NewStandard(), adapter, discard)
	vault, err := cryptoservice.NewVault(svc, store.NewMemoryStore(), bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)

	env := &testEnv{router: NewRouter(RouterConfig{Handler: NewHandler(adapter.Limiter(), vault, discard)})}

	w := env.do(t, http.MethodPost, "/check", CheckRequest{Key: adapter.Domain(), Tokens: 30})
	require.Equal(t, http.StatusOK, w.Code)

	var resp CheckResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, adapter.Domain(), resp.Key)

	w = env.do(t, http.MethodPost, "/records", SealRequest{Data: []byte("still allowed")})
	assert.Equal(t, http.StatusCreated, w.Code)

	tokens, ok := adapter.Limiter().Tokens(adapter.Domain())
	require.True(t, ok)
	assert.InDelta(t, 29, tokens, 0.5)
	assert.Equal(t, []string{adapter.Domain(), CheckKeyPrefix + adapter.Domain()}, adapter.Limiter().Keys())
}
