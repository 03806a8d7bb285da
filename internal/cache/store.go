// 文件路径: internal/cache/store.go
// 模块说明: 进程内缓存，限流计数、登录失败次数、活跃节流标记、分类计数与看板快照都放在这里。
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store 按用途拆成三类操作：窗口计数、节流标记、JSON 快照。
type Store interface {
	// Incr 在固定窗口内累加计数；窗口从第一次累加开始计算，后续调用不延长。
	Incr(ctx context.Context, key string, delta int64, window time.Duration) (int64, error)
	// Count 读取当前计数，不存在时为 0。
	Count(ctx context.Context, key string) int64
	// Remaining 返回 key 距过期的剩余时间。
	Remaining(ctx context.Context, key string) (time.Duration, bool)

	Mark(ctx context.Context, key string, ttl time.Duration)
	Marked(ctx context.Context, key string) bool

	PutJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	LoadJSON(ctx context.Context, key string, dest any) (bool, error)

	Forget(ctx context.Context, key string)
	Scope(prefix string) Store
}

// Options 配置内存缓存行为。
type Options struct {
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	Prefix          string
}

// NewStore 创建基于 go-cache 的缓存实现。
func NewStore(opts Options) Store {
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	sweep := opts.CleanupInterval
	if sweep <= 0 {
		sweep = ttl
	}
	return &memoryStore{
		items:  gocache.New(ttl, sweep),
		ttl:    ttl,
		prefix: scopeKey("", opts.Prefix),
	}
}

// RememberJSON 先读缓存，未命中或解码失败时调用 load 并写回。
func RememberJSON[T any](ctx context.Context, store Store, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var out T
	if store != nil {
		if hit, err := store.LoadJSON(ctx, key, &out); err == nil && hit {
			return out, nil
		}
	}
	out, err := load(ctx)
	if err != nil {
		return out, err
	}
	if store != nil {
		_ = store.PutJSON(ctx, key, out, ttl)
	}
	return out, nil
}

type memoryStore struct {
	items  *gocache.Cache
	ttl    time.Duration
	prefix string
}

func (m *memoryStore) Incr(_ context.Context, key string, delta int64, window time.Duration) (int64, error) {
	k := m.key(key)
	// Add 只在 key 不存在时生效，已有窗口保持原过期时间
	_ = m.items.Add(k, int64(0), m.expiry(window))
	n, err := m.items.IncrementInt64(k, delta)
	if err != nil {
		return 0, fmt.Errorf("cache incr %s: %w", k, err)
	}
	return n, nil
}

func (m *memoryStore) Count(_ context.Context, key string) int64 {
	v, ok := m.items.Get(m.key(key))
	if !ok {
		return 0
	}
	n, _ := v.(int64)
	return n
}

func (m *memoryStore) Remaining(_ context.Context, key string) (time.Duration, bool) {
	_, exp, ok := m.items.GetWithExpiration(m.key(key))
	if !ok || exp.IsZero() {
		return 0, false
	}
	left := time.Until(exp)
	return left, left > 0
}

func (m *memoryStore) Mark(_ context.Context, key string, ttl time.Duration) {
	m.items.Set(m.key(key), struct{}{}, m.expiry(ttl))
}

func (m *memoryStore) Marked(_ context.Context, key string) bool {
	_, ok := m.items.Get(m.key(key))
	return ok
}

func (m *memoryStore) PutJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	m.items.Set(m.key(key), data, m.expiry(ttl))
	return nil
}

func (m *memoryStore) LoadJSON(_ context.Context, key string, dest any) (bool, error) {
	v, ok := m.items.Get(m.key(key))
	if !ok {
		return false, nil
	}
	data, ok := v.([]byte)
	if !ok {
		return false, fmt.Errorf("cache value %s is not json", key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache decode %s: %w", key, err)
	}
	return true, nil
}

func (m *memoryStore) Forget(_ context.Context, key string) {
	m.items.Delete(m.key(key))
}

func (m *memoryStore) Scope(prefix string) Store {
	return &memoryStore{items: m.items, ttl: m.ttl, prefix: scopeKey(m.prefix, prefix)}
}

func (m *memoryStore) key(key string) string {
	return scopeKey(m.prefix, key)
}

func (m *memoryStore) expiry(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return m.ttl
}

// scopeKey 以冒号拼接非空片段，如 vibemall:auth:activity:42。
func scopeKey(parent, child string) string {
	child = strings.Trim(child, ": ")
	switch {
	case parent == "":
		return child
	case child == "":
		return parent
	}
	return parent + ":" + child
}
