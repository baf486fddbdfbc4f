package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Liveness 记录节点最近一次心跳时间，键形如 last_check:<type>:<id>。
type Liveness struct {
	store  Store
	window time.Duration
	now    func() time.Time
}

// NewLiveness 创建在线状态跟踪器，window 内有心跳的节点视为在线。
func NewLiveness(store Store, window time.Duration) *Liveness {
	if window <= 0 {
		window = 300 * time.Second
	}
	return &Liveness{store: store.Namespace("last_check"), window: window, now: time.Now}
}

// Window 返回在线判定窗口。
func (l *Liveness) Window() time.Duration {
	return l.window
}

// Mark 写入心跳时间，缓存有效期为窗口的两倍。
func (l *Liveness) Mark(ctx context.Context, serverType string, id int64, at int64) error {
	return l.store.Set(ctx, livenessKey(serverType, id), at, 2*l.window)
}

// LastCheck 返回缓存中的心跳时间。
func (l *Liveness) LastCheck(ctx context.Context, serverType string, id int64) (int64, bool) {
	return l.store.GetInt64(ctx, livenessKey(serverType, id))
}

// Online 判断 lastCheck 是否落在窗口内。
func (l *Liveness) Online(lastCheck int64) bool {
	if lastCheck <= 0 {
		return false
	}
	return l.now().Unix()-int64(l.window/time.Second) <= lastCheck
}

func livenessKey(serverType string, id int64) string {
	return fmt.Sprintf("%s:%d", strings.ToLower(strings.TrimSpace(serverType)), id)
}
