// 文件路径: internal/security/ratelimiter.go
// 模块说明: 基于缓存计数的固定窗口限流，登录与全局请求限流共用。
package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/creamcroissant/vibemall/internal/cache"
)

// RateLimiter 控制重复行为（如登录尝试）。
type RateLimiter struct {
	store cache.Store
	now   func() time.Time
}

// RateResult 描述 Allow 调用的结果。
type RateResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// NewRateLimiter 使用缓存存储构建限流器。
func NewRateLimiter(store cache.Store) (*RateLimiter, error) {
	if store == nil {
		return nil, fmt.Errorf("rate limiter requires cache store / 限流器需要缓存存储")
	}
	return &RateLimiter{store: store.Scope("rate"), now: time.Now}, nil
}

// Key 拼接限流 key，忽略空段并统一小写。
func Key(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ":")
}

// Allow 判断指定 key 是否可以在当前窗口内继续执行。
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateResult, error) {
	if l == nil {
		return RateResult{}, fmt.Errorf("rate limiter not initialized / 限流器未初始化")
	}
	if limit <= 0 {
		return RateResult{}, fmt.Errorf("limit must be positive / limit 必须为正数")
	}
	if window <= 0 {
		window = time.Minute
	}

	current, err := l.store.Incr(ctx, key, 1, window)
	if err != nil {
		return RateResult{}, fmt.Errorf("rate limit counter: %w / 限流计数自增失败", err)
	}
	ttl, ok := l.store.Remaining(ctx, key)
	if !ok {
		ttl = window
	}

	return RateResult{
		Allowed:   current <= int64(limit),
		Remaining: max(limit-int(current), 0),
		ResetAt:   l.now().UTC().Add(ttl),
	}, nil
}

// Reset 清除指定 key 的计数。
func (l *RateLimiter) Reset(ctx context.Context, key string) {
	if l == nil {
		return
	}
	l.store.Forget(ctx, key)
}
