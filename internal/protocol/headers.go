package protocol

import (
	"fmt"
	"time"

	"github.com/creamcroissant/xboard-sub/internal/repository"
	"github.com/creamcroissant/xboard-sub/internal/support/i18n"
)

func formatI18n(i18nMgr *i18n.Manager, lang, key string, args ...any) string {
	if i18nMgr == nil {
		return key
	}
	return i18nMgr.Translate(lang, key, args...)
}

// buildUserHeaders 生成 subscription-userinfo 等客户端通用响应头。
func buildUserHeaders(user *repository.User, lang string, i18nMgr *i18n.Manager) map[string]string {
	if user == nil {
		return nil
	}
	headers := map[string]string{
		"subscription-userinfo":   fmt.Sprintf("upload=%d; download=%d; total=%d; expire=%d", user.U, user.D, user.TransferEnable, user.ExpiredAt),
		"profile-update-interval": "24",
	}
	if user.Email != "" {
		headers["profile-title"] = user.Email
	}

	now := time.Now().Unix()
	if user.ExpiredAt > 0 {
		daysLeft := (user.ExpiredAt - now) / 86400
		if daysLeft <= 0 {
			headers["x-subscription-status"] = formatI18n(i18nMgr, lang, "subscription.status.expired")
		} else if daysLeft <= 7 {
			headers["x-subscription-status"] = formatI18n(i18nMgr, lang, "subscription.status.expiring_in_days", daysLeft)
		}
	}
	if user.TransferEnable > 0 {
		remaining := user.TransferEnable - (user.U + user.D)
		if remaining <= 0 {
			headers["x-traffic-status"] = formatI18n(i18nMgr, lang, "subscription.status.exhausted")
		} else if float64(remaining)/float64(user.TransferEnable) < 0.1 {
			headers["x-traffic-status"] = formatI18n(i18nMgr, lang, "subscription.status.low")
		}
	}
	return headers
}
