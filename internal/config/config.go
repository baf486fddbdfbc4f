package config

import (
	"log/slog"
	"strings"
	"time"
)

// Config 汇总应用的全部配置。
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"database"`
	Subscribe SubscribeConfig `mapstructure:"subscribe"`
	Server    ServerConfig    `mapstructure:"server"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	I18n      I18nConfig      `mapstructure:"i18n"`
}

// HTTPConfig 定义 HTTP 服务配置。
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig 定义日志配置。File 为空时输出到标准输出。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	AddSource  bool   `mapstructure:"add_source"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DBConfig 定义数据库配置。
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// SubscribeConfig 定义订阅相关配置。
type SubscribeConfig struct {
	// Path 是订阅接口的路由。
	Path string `mapstructure:"path"`
	// ShowInfoToServer 开启后在节点列表前插入流量、重置、到期信息。
	ShowInfoToServer bool `mapstructure:"show_info_to_server"`
	// ResetTrafficMethod 套餐未设置重置方式时使用的默认值。
	ResetTrafficMethod string `mapstructure:"reset_traffic_method"`
	Timezone           string `mapstructure:"timezone"`
	InfoLang           string `mapstructure:"info_lang"`
	// Method 订阅链接生成方式：0/1 直接使用 token，2 使用 TOTP 令牌。
	Method            int           `mapstructure:"method"`
	URLs              string        `mapstructure:"urls"`
	TOTPExpireMinutes int           `mapstructure:"totp_expire_minutes"`
	OnlineWindow      time.Duration `mapstructure:"online_window"`
	AppName           string        `mapstructure:"app_name"`
	AppURL            string        `mapstructure:"app_url"`
	ClashTemplate     string        `mapstructure:"clash_template"`
	// RateLimit 是单个来源 IP 在 RateWindow 内允许的订阅请求数，0 表示不限流。
	RateLimit  int           `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`
}

// ServerConfig 节点上报心跳使用的通信密钥。
type ServerConfig struct {
	Token string `mapstructure:"token"`
}

// CacheConfig 定义进程内缓存配置。
type CacheConfig struct {
	DefaultTTL      time.Duration `mapstructure:"default_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// JobsConfig 定义定时任务配置。
type JobsConfig struct {
	LivenessSpec string `mapstructure:"liveness_spec"`
	// LogCleanupSpec 订阅日志清理周期，LogRetention <= 0 时不清理。
	LogCleanupSpec string        `mapstructure:"log_cleanup_spec"`
	LogRetention   time.Duration `mapstructure:"log_retention"`
	// LogFlushInterval 订阅日志缓冲的落库间隔。
	LogFlushInterval time.Duration `mapstructure:"log_flush_interval"`
}

// MetricsConfig 定义 Prometheus 指标配置。
type MetricsConfig struct {
	Enabled   bool      `mapstructure:"enabled"`
	Namespace string    `mapstructure:"namespace"`
	Subsystem string    `mapstructure:"subsystem"`
	Token     string    `mapstructure:"token"`
	Buckets   []float64 `mapstructure:"buckets"`
}

// I18nConfig 定义翻译配置。
type I18nConfig struct {
	DefaultLang string `mapstructure:"default_lang"`
	Dir         string `mapstructure:"dir"`
}

func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Location 解析订阅时区，空值或无法识别时使用本地时区。
func (c SubscribeConfig) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// BaseURLs 把逗号分隔的订阅域名拆成列表。
func (c SubscribeConfig) BaseURLs() []string {
	var urls []string
	for _, part := range strings.Split(c.URLs, ",") {
		if trimmed := strings.TrimRight(strings.TrimSpace(part), "/"); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	return urls
}
