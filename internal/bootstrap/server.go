package bootstrap

import (
	"net/http"
	"time"

	"github.com/creamcroissant/xboard-sub/internal/config"
)

// NewHTTPServer 构建订阅服务的 http.Server，订阅文档较大时写超时需要留足。
func NewHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
