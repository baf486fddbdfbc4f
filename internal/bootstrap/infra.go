// 文件路径: internal/bootstrap/infra.go
// 模块说明: 组装缓存、在线状态、翻译与指标注册表等共享组件。
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/creamcroissant/xboard-sub/internal/cache"
	"github.com/creamcroissant/xboard-sub/internal/config"
	"github.com/creamcroissant/xboard-sub/internal/support/i18n"
)

// Infrastructure bundles shared helpers required by the subscription services.
type Infrastructure struct {
	Cache    cache.Store
	Liveness *cache.Liveness
	I18n     *i18n.Manager
	Registry *prometheus.Registry
}

// BuildInfrastructure wires default implementations for cache/liveness/i18n/metrics.
func BuildInfrastructure(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required / 配置不能为空")
	}

	cacheStore := cache.NewStore(cache.Options{
		Prefix:          "xboard-sub",
		DefaultTTL:      cfg.Cache.DefaultTTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
	})

	translator, err := i18n.NewManager(
		i18n.WithLogger(logger),
		i18n.WithDefaultLang(cfg.I18n.DefaultLang),
	)
	if err != nil {
		return nil, fmt.Errorf("i18n manager: %w", err)
	}
	if err := translator.LoadFromDir(cfg.I18n.Dir); err != nil {
		return nil, fmt.Errorf("load locales: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Infrastructure{
		Cache:    cacheStore,
		Liveness: cache.NewLiveness(cacheStore, cfg.Subscribe.OnlineWindow),
		I18n:     translator,
		Registry: registry,
	}, nil
}
