package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load 依次合并默认值、config.yaml、.env 旧格式变量与 XBOARD_SUB_ 前缀的环境变量。
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile 与 Load 相同，但可以显式指定配置文件路径。
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/xboard-sub/")
	}

	v.SetEnvPrefix("XBOARD_SUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := loadDotEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", "0.0.0.0:8080")
	v.SetDefault("http.shutdown_timeout", "15s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("database.path", "data/xboard-sub.db")

	v.SetDefault("subscribe.path", "/api/v1/client/subscribe")
	v.SetDefault("subscribe.show_info_to_server", false)
	v.SetDefault("subscribe.reset_traffic_method", "0")
	v.SetDefault("subscribe.timezone", "Local")
	v.SetDefault("subscribe.info_lang", "zh-CN")
	v.SetDefault("subscribe.method", 0)
	v.SetDefault("subscribe.urls", "")
	v.SetDefault("subscribe.totp_expire_minutes", 5)
	v.SetDefault("subscribe.online_window", "300s")
	v.SetDefault("subscribe.app_name", "XBoard")
	v.SetDefault("subscribe.rate_limit", 60)
	v.SetDefault("subscribe.rate_window", "1m")

	v.SetDefault("cache.default_ttl", "5m")
	v.SetDefault("cache.cleanup_interval", "1m")

	v.SetDefault("jobs.liveness_spec", "@every 1m")
	v.SetDefault("jobs.log_cleanup_spec", "@every 1h")
	v.SetDefault("jobs.log_retention", "168h")
	v.SetDefault("jobs.log_flush_interval", "5s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "xboard_sub")
	v.SetDefault("metrics.subsystem", "http")

	v.SetDefault("i18n.default_lang", "zh-CN")
}

func loadDotEnv(v *viper.Viper) error {
	candidates := []string{".", ".."}
	for _, path := range candidates {
		file := filepath.Clean(filepath.Join(path, ".env"))
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat .env: %w", err)
		}

		envViper := viper.New()
		envViper.SetConfigFile(file)
		envViper.SetConfigType("env")
		if err := envViper.ReadInConfig(); err != nil {
			return fmt.Errorf("read .env: %w", err)
		}
		bindLegacyEnv(v, envViper)
	}
	return nil
}

// bindLegacyEnv 把 V2board 风格的扁平变量映射到分层配置，真实环境变量仍然优先。
func bindLegacyEnv(target *viper.Viper, source *viper.Viper) {
	mappings := map[string]string{
		"HTTP_ADDR":            "http.addr",
		"LOG_LEVEL":            "log.level",
		"LOG_FORMAT":           "log.format",
		"LOG_FILE":             "log.file",
		"DB_PATH":              "database.path",
		"SUBSCRIBE_PATH":       "subscribe.path",
		"SUBSCRIBE_URL":        "subscribe.urls",
		"SUBSCRIBE_METHOD":     "subscribe.method",
		"SHOW_INFO_TO_SERVER":  "subscribe.show_info_to_server",
		"RESET_TRAFFIC_METHOD": "subscribe.reset_traffic_method",
		"APP_NAME":             "subscribe.app_name",
		"APP_URL":              "subscribe.app_url",
		"SERVER_TOKEN":         "server.token",
		"METRICS_TOKEN":        "metrics.token",
	}
	for oldKey, newKey := range mappings {
		if val := source.GetString(oldKey); val != "" {
			target.Set(newKey, val)
		}
	}
}
