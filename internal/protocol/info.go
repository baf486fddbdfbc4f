// 文件路径: internal/protocol/info.go
// 模块说明: 订阅信息注入，把剩余流量、重置倒计时、到期时间作为伪节点插到列表最前面。
package protocol

import (
	"fmt"
	"time"

	"github.com/creamcroissant/xboard-sub/internal/quota"
	"github.com/creamcroissant/xboard-sub/internal/repository"
	"github.com/creamcroissant/xboard-sub/internal/support/i18n"
)

// 信息条目的翻译键与默认文案。
const (
	infoTrafficKey = "subscription.info.remaining_traffic"
	infoResetKey   = "subscription.info.reset_days"
	infoExpireKey  = "subscription.info.expire_date"

	infoTrafficFallback = "剩余流量：%s"
	infoResetFallback   = "距离下次重置剩余：%d 天"
	infoExpireFallback  = "套餐到期：%s"
)

// InfoOptions 控制信息条目的文案与时区。
type InfoOptions struct {
	Location *time.Location
	Lang     string
	I18n     *i18n.Manager
}

// BuildInfo 计算用户的订阅信息条目。resetDays 仅在 hasReset 且大于 0 时展示。
func BuildInfo(user *repository.User, resetDays int, hasReset bool, opts InfoOptions) SubscribeInfo {
	if user == nil {
		return SubscribeInfo{}
	}
	remaining := user.TransferEnable - (user.U + user.D)
	info := SubscribeInfo{
		TrafficLine: translateInfo(opts, infoTrafficKey, infoTrafficFallback, quota.FormatTraffic(remaining)),
		ExpireLine:  translateInfo(opts, infoExpireKey, infoExpireFallback, quota.FormatExpiry(user.ExpiredAt, opts.Location)),
	}
	if hasReset && resetDays > 0 {
		info.ResetLine = translateInfo(opts, infoResetKey, infoResetFallback, resetDays)
	}
	return info
}

func translateInfo(opts InfoOptions, key, fallback string, arg any) string {
	if opts.I18n != nil {
		if text := opts.I18n.Translate(opts.Lang, key, arg); text != key {
			return text
		}
	}
	return fmt.Sprintf(fallback, arg)
}

// InjectInfo 以第一个节点为模板克隆信息节点，返回的新列表顺序为
// [剩余流量, 重置倒计时(可选), 到期时间, 原节点...]。空列表原样返回。
func InjectInfo(servers []Server, info SubscribeInfo) []Server {
	if len(servers) == 0 {
		return servers
	}
	template := servers[0]
	names := make([]string, 0, 3)
	names = append(names, info.TrafficLine)
	if info.ResetLine != "" {
		names = append(names, info.ResetLine)
	}
	names = append(names, info.ExpireLine)

	out := make([]Server, 0, len(servers)+len(names))
	for _, name := range names {
		clone := template.Clone()
		clone.Name = name
		out = append(out, clone)
	}
	return append(out, servers...)
}
