package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/xboard-sub/internal/async"
	"github.com/creamcroissant/xboard-sub/internal/cache"
	"github.com/creamcroissant/xboard-sub/internal/config"
	"github.com/creamcroissant/xboard-sub/internal/repository"
	"github.com/creamcroissant/xboard-sub/internal/security"
	"github.com/creamcroissant/xboard-sub/internal/service"
	"github.com/creamcroissant/xboard-sub/internal/support/i18n"
	"github.com/creamcroissant/xboard-sub/internal/support/logging"
)

type stubUsers struct {
	user *repository.User
	err  error
}

func (s stubUsers) FindByToken(_ context.Context, token string) (*repository.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.user != nil && s.user.Token == token {
		return s.user, nil
	}
	return nil, service.ErrInvalidToken
}

func (stubUsers) IsAvailable(*repository.User) bool { return true }

func (stubUsers) ResetDay(context.Context, *repository.User) (int, bool) { return 0, false }

type stubSubscription struct {
	result *service.SubscriptionResult
	last   service.SubscriptionParams
	user   *repository.User
}

func (s *stubSubscription) Subscribe(_ context.Context, user *repository.User, params service.SubscriptionParams) *service.SubscriptionResult {
	s.user = user
	s.last = params
	return s.result
}

type stubHeartbeat struct {
	err error
	id  int64
}

func (s *stubHeartbeat) Beat(_ context.Context, id int64, _ string) error {
	s.id = id
	return s.err
}

func (s *stubHeartbeat) Sync(context.Context) (int, error) { return 0, nil }

type routerFixture struct {
	handler      http.Handler
	subscription *stubSubscription
	heartbeat    *stubHeartbeat
}

type memoryLogs struct {
	logs []*repository.SubscriptionLog
}

func (m *memoryLogs) Log(_ context.Context, log *repository.SubscriptionLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func (m *memoryLogs) ListByUser(context.Context, int64, int) ([]*repository.SubscriptionLog, error) {
	return m.logs, nil
}

func (m *memoryLogs) DeleteBefore(context.Context, int64) (int64, error) { return 0, nil }

func newRouterFixture(t *testing.T, cfg *config.Config, opts ...RouterOption) *routerFixture {
	return newRouterFixtureWithLogs(t, cfg, nil, opts...)
}

func newRouterFixtureWithLogs(t *testing.T, cfg *config.Config, logs *async.SubscriptionLogQueue, opts ...RouterOption) *routerFixture {
	t.Helper()
	manager, err := i18n.NewManager()
	require.NoError(t, err)
	if cfg == nil {
		cfg = &config.Config{Metrics: config.MetricsConfig{Enabled: true}}
	}
	sub := &stubSubscription{result: &service.SubscriptionResult{
		Payload:     []byte("dm1lc3M6Ly8="),
		ContentType: "text/plain; charset=utf-8",
		ETag:        "abc123",
		Headers:     map[string]string{"subscription-userinfo": "upload=1; download=2; total=3; expire=0"},
		Outcome:     service.OutcomeOK,
		Client:      "general",
	}}
	hb := &stubHeartbeat{}
	users := stubUsers{user: &repository.User{ID: 7, Token: "good"}}
	handler := NewRouter(logging.Discard(), Services{
		Users:            users,
		Subscription:     sub,
		Heartbeat:        hb,
		I18n:             manager,
		SubscriptionLogs: logs,
	}, cfg, opts...)
	return &routerFixture{handler: handler, subscription: sub, heartbeat: hb}
}

func (f *routerFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	f := newRouterFixture(t, nil)
	for _, path := range []string{"/healthz", "/health"} {
		rec := f.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	}
}

func TestSubscribeTokenErrors(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/client/subscribe", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "token is null", rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/client/subscribe?token=bad", nil)
	req.Header.Set("Accept-Language", "en-US")
	rec = f.do(req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "token is error", rec.Body.String())
}

func TestSubscribeWritesDocument(t *testing.T) {
	f := newRouterFixture(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/client/subscribe?token=good&flag=clash&lang=en-US", nil)
	req.Header.Set("User-Agent", "ClashMeta/1.18")
	rec := f.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dm1lc3M6Ly8=", rec.Body.String())
	assert.Equal(t, `"abc123"`, rec.Header().Get("ETag"))
	assert.Equal(t, "upload=1; download=2; total=3; expire=0", rec.Header().Get("Subscription-Userinfo"))
	assert.Equal(t, "clash", f.subscription.last.Flag)
	assert.Equal(t, "ClashMeta/1.18", f.subscription.last.UserAgent)
	assert.Equal(t, "en-US", f.subscription.last.Lang)
	require.NotNil(t, f.subscription.user)
	assert.Equal(t, int64(7), f.subscription.user.ID)
}

func TestSubscribeNotModified(t *testing.T) {
	f := newRouterFixture(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/client/subscribe?token=good", nil)
	req.Header.Set("If-None-Match", `W/"zzz", "abc123"`)
	rec := f.do(req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestSubscribeEmptyOutcomeStillOK(t *testing.T) {
	f := newRouterFixture(t, nil)
	f.subscription.result = &service.SubscriptionResult{ContentType: "text/plain; charset=utf-8", Outcome: service.OutcomeNoServers}
	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/client/subscribe?token=good", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Empty(t, rec.Header().Get("ETag"))
}

func TestSubscribeCustomPath(t *testing.T) {
	f := newRouterFixture(t, &config.Config{Subscribe: config.SubscribeConfig{Path: "sub"}})
	rec := f.do(httptest.NewRequest(http.MethodGet, "/sub?token=good", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/client/subscribe?token=good", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscribeRateLimited(t *testing.T) {
	limiter, err := security.NewRateLimiter(cache.NewStore(cache.Options{}), "subscribe", 1, time.Minute)
	require.NoError(t, err)
	f := newRouterFixture(t, nil, WithSubscribeLimiter(limiter))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/client/subscribe?token=good", nil)
	req.RemoteAddr = "192.0.2.10:5000"
	assert.Equal(t, http.StatusOK, f.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/client/subscribe?token=good", nil)
	req.RemoteAddr = "192.0.2.10:5001"
	rec := f.do(req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retry, 1)
	assert.LessOrEqual(t, retry, 60)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/client/subscribe?token=good", nil)
	req.RemoteAddr = "192.0.2.11:5000"
	assert.Equal(t, http.StatusOK, f.do(req).Code)
}

func TestHeartbeatRoute(t *testing.T) {
	f := newRouterFixture(t, nil)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/server/heartbeat?id=3&token=k", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), f.heartbeat.id)

	f.heartbeat.err = service.ErrInvalidServerToken
	rec = f.do(httptest.NewRequest(http.MethodPost, "/api/v1/server/heartbeat?id=3&token=x", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	f.heartbeat.err = service.ErrNotFound
	rec = f.do(httptest.NewRequest(http.MethodPost, "/api/v1/server/heartbeat?id=3&token=k", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/api/v1/server/heartbeat?id=abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	cfg := &config.Config{Metrics: config.MetricsConfig{Enabled: true, Namespace: "xboard_sub", Subsystem: "http", Token: "secret"}}
	f := newRouterFixture(t, cfg, WithRegistry(registry))

	f.do(httptest.NewRequest(http.MethodGet, "/api/v1/client/subscribe?token=good", nil))

	rec := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `xboard_sub_http_requests_total{method="GET",route="/api/v1/client/subscribe",status="200"} 1`), body)
}

func TestSubscribeRecordsLog(t *testing.T) {
	repo := &memoryLogs{}
	queue := async.NewSubscriptionLogQueue(repo, time.Hour, logging.Discard())
	defer queue.Stop()
	f := newRouterFixtureWithLogs(t, nil, queue)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/client/subscribe?token=good", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	req.Header.Set("User-Agent", "v2rayN/6.0")
	require.Equal(t, http.StatusOK, f.do(req).Code)

	// token 错误的请求不记录。
	f.do(httptest.NewRequest(http.MethodGet, "/api/v1/client/subscribe?token=bad", nil))

	require.Equal(t, 1, queue.Flush(context.Background()))
	require.Len(t, repo.logs, 1)
	assert.Equal(t, int64(7), repo.logs[0].UserID)
	assert.Equal(t, "general", repo.logs[0].Client)
	assert.Equal(t, "ok", repo.logs[0].Outcome)
	assert.Equal(t, "203.0.113.9", repo.logs[0].IP)
	assert.Equal(t, "v2rayN/6.0", repo.logs[0].UserAgent)
}
