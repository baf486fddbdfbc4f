package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/creamcroissant/xboard-sub/internal/api/requestctx"
	"github.com/creamcroissant/xboard-sub/internal/support/i18n"
)

// Helper to respond with JSON
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response JSON", "error", err)
	}
}

// respondErrorI18n 按请求语言翻译 key 后返回 {"message": ...}。
func respondErrorI18n(ctx context.Context, w http.ResponseWriter, status int, key string, i18nMgr *i18n.Manager) {
	msg := key
	if i18nMgr != nil {
		msg = i18nMgr.Translate(requestctx.GetLanguage(ctx), key)
	}
	respondJSON(w, status, map[string]any{"message": msg})
}
