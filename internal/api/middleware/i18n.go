package middleware

import (
	"net/http"
	"strings"

	"github.com/creamcroissant/xboard-sub/internal/api/requestctx"
	"github.com/creamcroissant/xboard-sub/internal/support/i18n"
)

// I18n 依次从 lang 参数、X-I18N-Lang 头、Accept-Language 中选出语言并写入 context。
func I18n(manager *i18n.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := strings.TrimSpace(r.URL.Query().Get("lang"))
			if lang == "" {
				lang = strings.TrimSpace(r.Header.Get("X-I18N-Lang"))
			}
			if lang == "" && manager != nil {
				lang = manager.Match(r.Header.Get("Accept-Language"))
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithLanguage(r.Context(), lang)))
		})
	}
}
