// 文件路径: internal/cache/store.go
// 模块说明: 基于 go-cache 的进程内缓存。节点在线时间、token 查询结果与限流计数共用同一个后端，按命名空间隔离。
package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store 是订阅服务使用的缓存接口。
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (any, bool)
	// GetInt64 兼容 int、int64 与数字字符串。
	GetInt64(ctx context.Context, key string) (int64, bool)
	Delete(ctx context.Context, key string)
	// TTL 返回剩余有效期，键不存在或永不过期时 ok 为 false。
	TTL(ctx context.Context, key string) (time.Duration, bool)
	// Increment 原子累加计数器，键不存在时以 ttl 新建。
	Increment(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	Namespace(prefix string) Store
}

// Options 配置内存缓存行为。
type Options struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	Prefix          string
}

// NewStore 创建 go-cache 后端，CleanupInterval 缺省时与 DefaultTTL 相同。
func NewStore(opts Options) Store {
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	cleanup := opts.CleanupInterval
	if cleanup <= 0 {
		cleanup = ttl
	}
	return &namespaced{
		backend: gocache.New(ttl, cleanup),
		ttl:     ttl,
		prefix:  joinKey(opts.Prefix),
	}
}

type namespaced struct {
	backend *gocache.Cache
	ttl     time.Duration
	prefix  string
}

func (n *namespaced) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	n.backend.Set(n.key(key), value, n.expiry(ttl))
	return nil
}

func (n *namespaced) Get(_ context.Context, key string) (any, bool) {
	return n.backend.Get(n.key(key))
}

func (n *namespaced) GetInt64(_ context.Context, key string) (int64, bool) {
	raw, ok := n.backend.Get(n.key(key))
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func (n *namespaced) Delete(_ context.Context, key string) {
	n.backend.Delete(n.key(key))
}

func (n *namespaced) TTL(_ context.Context, key string) (time.Duration, bool) {
	_, expiresAt, ok := n.backend.GetWithExpiration(n.key(key))
	if !ok || expiresAt.IsZero() {
		return 0, false
	}
	if remain := time.Until(expiresAt); remain > 0 {
		return remain, true
	}
	return 0, false
}

func (n *namespaced) Increment(_ context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	full := n.key(key)
	// Add 只在键不存在时成功，保证首个计数携带 ttl，之后累加不刷新过期时间。
	if err := n.backend.Add(full, delta, n.expiry(ttl)); err == nil {
		return delta, nil
	}
	current, err := n.backend.IncrementInt64(full, delta)
	if err != nil {
		return 0, fmt.Errorf("cache increment %s: %w", full, err)
	}
	return current, nil
}

func (n *namespaced) Namespace(prefix string) Store {
	return &namespaced{backend: n.backend, ttl: n.ttl, prefix: joinKey(n.prefix, prefix)}
}

func (n *namespaced) key(key string) string {
	return joinKey(n.prefix, key)
}

func (n *namespaced) expiry(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return n.ttl
}

// joinKey 以冒号拼接非空片段，首尾多余的冒号和空白会被去掉。
func joinKey(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.Trim(part, ": "); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, ":")
}
