package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/creamcroissant/xboard-sub/internal/service"
	"github.com/creamcroissant/xboard-sub/internal/support/i18n"
)

// ServerHandler 接收节点心跳。
type ServerHandler struct {
	heartbeat service.HeartbeatService
	i18n      *i18n.Manager
	logger    *slog.Logger
}

func NewServerHandler(heartbeat service.HeartbeatService, i18nMgr *i18n.Manager, logger *slog.Logger) *ServerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServerHandler{heartbeat: heartbeat, i18n: i18nMgr, logger: logger}
}

// Heartbeat 处理 POST /api/v1/server/heartbeat?id=&token=，token 也可以放在 Authorization 头里。
func (h *ServerHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	if h.heartbeat == nil {
		respondErrorI18n(r.Context(), w, http.StatusServiceUnavailable, "api.internal_error", h.i18n)
		return
	}
	query := r.URL.Query()
	token := strings.TrimSpace(query.Get("token"))
	if token == "" {
		token = strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	}
	id, err := strconv.ParseInt(strings.TrimSpace(query.Get("id")), 10, 64)
	if err != nil || id <= 0 {
		respondErrorI18n(r.Context(), w, http.StatusNotFound, "api.server.not_found", h.i18n)
		return
	}

	if err := h.heartbeat.Beat(r.Context(), id, token); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidServerToken):
			respondErrorI18n(r.Context(), w, http.StatusForbidden, "api.server.token_invalid", h.i18n)
		case errors.Is(err, service.ErrNotFound):
			respondErrorI18n(r.Context(), w, http.StatusNotFound, "api.server.not_found", h.i18n)
		default:
			h.logger.Error("server heartbeat failed", "server_id", id, "error", err)
			respondErrorI18n(r.Context(), w, http.StatusInternalServerError, "api.internal_error", h.i18n)
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": true})
}
