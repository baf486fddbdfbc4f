// 文件路径: internal/api/handler/client.go
// 模块说明: 客户端订阅导出。用户已由 ClientToken 中间件放入 context。
package handler

import (
	"net"
	"net/http"
	"strings"

	"github.com/creamcroissant/xboard-sub/internal/api/requestctx"
	"github.com/creamcroissant/xboard-sub/internal/async"
	"github.com/creamcroissant/xboard-sub/internal/repository"
	"github.com/creamcroissant/xboard-sub/internal/service"
	"github.com/creamcroissant/xboard-sub/internal/support/i18n"
)

// ClientHandler covers the subscription export endpoint.
type ClientHandler struct {
	Subscription service.SubscriptionService
	i18n         *i18n.Manager
	logs         *async.SubscriptionLogQueue
}

// NewClientHandler logs 为 nil 时不记录拉取日志。
func NewClientHandler(subscription service.SubscriptionService, i18nMgr *i18n.Manager, logs *async.SubscriptionLogQueue) *ClientHandler {
	return &ClientHandler{Subscription: subscription, i18n: i18nMgr, logs: logs}
}

// Subscribe 生成订阅文档。生成失败时仍然返回 200 与空内容。
func (h *ClientHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if h.Subscription == nil {
		respondErrorI18n(r.Context(), w, http.StatusServiceUnavailable, "api.internal_error", h.i18n)
		return
	}
	user := requestctx.UserFromContext(r.Context())
	params := service.SubscriptionParams{
		Flag:      r.URL.Query().Get("flag"),
		UserAgent: r.UserAgent(),
		Lang:      requestctx.GetLanguage(r.Context()),
	}
	result := h.Subscription.Subscribe(r.Context(), user, params)
	if user != nil {
		h.logs.Enqueue(&repository.SubscriptionLog{
			UserID:    user.ID,
			Client:    result.Client,
			Outcome:   string(result.Outcome),
			IP:        remoteIP(r),
			UserAgent: r.UserAgent(),
		})
	}

	if result.ContentType != "" {
		w.Header().Set("Content-Type", result.ContentType)
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	for key, value := range result.Headers {
		if key == "" || strings.EqualFold(key, "content-type") {
			continue
		}
		w.Header().Set(key, value)
	}
	if etag := formatETag(result.ETag); etag != "" {
		w.Header().Set("ETag", etag)
		if etagMatches(r.Header.Get("If-None-Match"), result.ETag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Payload)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
