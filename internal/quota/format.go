// 文件路径: internal/quota/format.go
// 模块说明: 流量与日期的展示格式化，供订阅信息节点与响应头复用。
package quota

import (
	"fmt"
	"time"
)

const (
	kib = 1024.0
	mib = 1024.0 * 1024
	gib = 1024.0 * 1024 * 1024
)

// NoExpiryLabel 是没有到期时间时展示的文案。
const NoExpiryLabel = "长期有效"

// FormatTraffic 把字节数转换为带单位的字符串（二进制进位），负数统一显示为 "0 B"。
func FormatTraffic(bytes int64) string {
	value := float64(bytes)
	switch {
	case value >= gib:
		return fmt.Sprintf("%.2f GB", value/gib)
	case value >= mib:
		return fmt.Sprintf("%.2f MB", value/mib)
	case value >= kib:
		return fmt.Sprintf("%.2f KB", value/kib)
	case bytes < 0:
		return "0 B"
	default:
		return fmt.Sprintf("%.2f B", value)
	}
}

// FormatDate renders epoch seconds as YYYY-MM-DD in loc (time.Local when nil).
func FormatDate(epoch int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(epoch, 0).In(loc).Format("2006-01-02")
}

// FormatExpiry 返回到期日期，未设置到期时间时返回 NoExpiryLabel。
func FormatExpiry(expiredAt int64, loc *time.Location) string {
	if expiredAt <= 0 {
		return NoExpiryLabel
	}
	return FormatDate(expiredAt, loc)
}
