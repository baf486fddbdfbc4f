// 文件路径: internal/security/ratelimiter.go
// 模块说明: 基于缓存计数的固定窗口限流，用于订阅拉取与节点心跳接口。
package security

import (
	"context"
	"fmt"
	"time"

	"github.com/creamcroissant/xboard-sub/internal/cache"
)

// RateLimiter 控制同一来源在窗口内的请求次数。
type RateLimiter struct {
	store  cache.Store
	limit  int
	window time.Duration
	now    func() time.Time
}

// RateResult 描述 Allow 调用的结果。
type RateResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// NewRateLimiter 使用缓存存储构建限流器，namespace 区分不同接口的计数。
func NewRateLimiter(store cache.Store, namespace string, limit int, window time.Duration) (*RateLimiter, error) {
	if store == nil {
		return nil, fmt.Errorf("rate limiter requires cache store / 限流器需要缓存存储")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive / limit 必须为正数")
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		store:  store.Namespace("rate").Namespace(namespace),
		limit:  limit,
		window: window,
		now:    time.Now,
	}, nil
}

// Allow 计数加一并判断是否仍在限额内。窗口从第一次计数开始，不随后续请求延长。
func (l *RateLimiter) Allow(ctx context.Context, key string) (RateResult, error) {
	ttl := l.window
	if remain, ok := l.store.TTL(ctx, key); ok && remain > 0 {
		ttl = remain
	}
	current, err := l.store.Increment(ctx, key, 1, ttl)
	if err != nil {
		return RateResult{}, fmt.Errorf("increment rate limit counter: %w", err)
	}
	remaining := l.limit - int(current)
	if remaining < 0 {
		remaining = 0
	}
	return RateResult{
		Allowed:   current <= int64(l.limit),
		Remaining: remaining,
		ResetAt:   l.now().Add(ttl),
	}, nil
}

// Limit 返回窗口内允许的请求数。
func (l *RateLimiter) Limit() int {
	return l.limit
}

// Reset 清除指定 key 的计数。
func (l *RateLimiter) Reset(ctx context.Context, key string) {
	l.store.Delete(ctx, key)
}
