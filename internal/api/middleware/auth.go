// 文件路径: internal/api/middleware/auth.go
// 模块说明: 订阅 token 校验，校验通过后把用户放入 context。
package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/creamcroissant/xboard-sub/internal/api/requestctx"
	"github.com/creamcroissant/xboard-sub/internal/service"
	"github.com/creamcroissant/xboard-sub/internal/support/i18n"
)

// ClientToken 读取查询参数 token：缺失返回 403 "token is null"，找不到用户返回 403 "token is error"。
func ClientToken(users service.UserService, translator *i18n.Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.URL.Query().Get("token"))
			lang := requestctx.GetLanguage(r.Context())
			if token == "" {
				writeText(w, http.StatusForbidden, translate(translator, lang, "api.token.missing", "token is null"))
				return
			}
			if users == nil {
				writeText(w, http.StatusServiceUnavailable, translate(translator, lang, "api.internal_error", "internal server error"))
				return
			}
			user, err := users.FindByToken(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrMissingToken) {
					writeText(w, http.StatusForbidden, translate(translator, lang, "api.token.invalid", "token is error"))
					return
				}
				logger.Error("client token lookup failed", "error", err)
				writeText(w, http.StatusInternalServerError, translate(translator, lang, "api.internal_error", "internal server error"))
				return
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithUser(r.Context(), user)))
		})
	}
}

func writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}

func translate(translator *i18n.Manager, lang, key, fallback string) string {
	if translator == nil {
		return fallback
	}
	if text := translator.Translate(lang, key); text != key {
		return text
	}
	return fallback
}
