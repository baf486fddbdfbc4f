// 文件路径: internal/api/router.go
// 模块说明: HTTP 路由：健康检查、Prometheus 指标、订阅导出与节点心跳。
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/creamcroissant/xboard-sub/internal/api/handler"
	"github.com/creamcroissant/xboard-sub/internal/api/middleware"
	"github.com/creamcroissant/xboard-sub/internal/async"
	"github.com/creamcroissant/xboard-sub/internal/config"
	"github.com/creamcroissant/xboard-sub/internal/security"
	"github.com/creamcroissant/xboard-sub/internal/service"
	"github.com/creamcroissant/xboard-sub/internal/support/i18n"
)

const heartbeatPath = "/api/v1/server/heartbeat"

var quietPaths = []string{"/health", "/healthz", "/metrics"}

type Services struct {
	Users        service.UserService
	Subscription service.SubscriptionService
	Heartbeat    service.HeartbeatService
	I18n         *i18n.Manager
	// SubscriptionLogs 为 nil 时不记录订阅拉取日志。
	SubscriptionLogs *async.SubscriptionLogQueue
}

type routerOptions struct {
	registry         *prometheus.Registry
	subscribeLimiter *security.RateLimiter
}

// RouterOption 调整路由的可选依赖。
type RouterOption func(*routerOptions)

// WithRegistry 指定指标注册表；未指定时使用独立的新注册表。
func WithRegistry(reg *prometheus.Registry) RouterOption {
	return func(o *routerOptions) {
		o.registry = reg
	}
}

// WithSubscribeLimiter 为订阅接口开启按 IP 限流。
func WithSubscribeLimiter(limiter *security.RateLimiter) RouterOption {
	return func(o *routerOptions) {
		o.subscribeLimiter = limiter
	}
}

// NewRouter wires the subscription endpoints.
func NewRouter(logger *slog.Logger, services Services, cfg *config.Config, opts ...RouterOption) http.Handler {
	var options routerOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if cfg == nil {
		panic("router requires Config")
	}
	if services.Users == nil {
		panic("router requires UserService")
	}
	if services.Subscription == nil {
		panic("router requires SubscriptionService")
	}
	if services.I18n == nil {
		panic("router requires I18n Manager")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if options.registry == nil {
		options.registry = prometheus.NewRegistry()
	}

	r := chi.NewRouter()
	r.Use(
		chiMiddleware.RequestID,
		chiMiddleware.RealIP,
	)

	metricsCfg := cfg.Metrics
	if metricsCfg.Enabled {
		metrics := middleware.NewMetrics(options.registry, middleware.MetricsConfig{
			Namespace: metricsCfg.Namespace,
			Subsystem: metricsCfg.Subsystem,
			Buckets:   metricsCfg.Buckets,
			SkipPaths: quietPaths,
		})
		r.Use(metrics.Middleware())
	}

	r.Use(
		middleware.StructuredLogger(middleware.LoggingConfig{
			Logger:        logger,
			SlowThreshold: 500 * time.Millisecond,
			SkipPaths:     quietPaths,
		}),
		chiMiddleware.Recoverer,
		chiMiddleware.Compress(5),
		middleware.I18n(services.I18n),
	)

	health := func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","ts":"` + time.Now().UTC().Format(time.RFC3339Nano) + `"}`))
	}
	r.Get("/healthz", health)
	// Alias for Docker health check
	r.Get("/health", health)

	if metricsCfg.Enabled {
		metricsHandler := promhttp.HandlerFor(options.registry, promhttp.HandlerOpts{Registry: options.registry})
		if metricsCfg.Token != "" {
			r.With(middleware.MetricsGuard(metricsCfg.Token)).Handle("/metrics", metricsHandler)
		} else {
			r.Handle("/metrics", metricsHandler)
		}
	}

	clientHandler := handler.NewClientHandler(services.Subscription, services.I18n, services.SubscriptionLogs)
	r.With(
		middleware.RateLimit(options.subscribeLimiter, logger),
		middleware.ClientToken(services.Users, services.I18n, logger),
	).Get(subscribePath(cfg.Subscribe.Path), clientHandler.Subscribe)

	if services.Heartbeat != nil {
		serverHandler := handler.NewServerHandler(services.Heartbeat, services.I18n, logger)
		r.Post(heartbeatPath, serverHandler.Heartbeat)
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		logger.Warn("unmapped route hit", "method", req.Method, "path", req.URL.Path)
		http.NotFound(w, req)
	})

	return r
}

func subscribePath(raw string) string {
	path := strings.TrimSpace(raw)
	if path == "" {
		return "/api/v1/client/subscribe"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
