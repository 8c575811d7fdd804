// Package ratelimit 提供按客户端隔离的令牌桶限流
package ratelimit

import (
	"math"
	"sync"
	"time"

	"inquiry-classifier/pkg/errs"
)

// Limiter 按客户端键隔离的令牌桶限流器。
// 每个客户端独立成桶，互不影响；空闲超过回收窗口的桶由定时清扫回收。
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket

	ratePerSec float64
	capacity   float64
	limit      int
}

// bucket 单个客户端的令牌桶状态
type bucket struct {
	mu       sync.Mutex
	tokens   float64
	lastSeen time.Time
}

// Config 限流配置
type Config struct {
	RequestsPerMinute int
	Burst             int
}

// NewLimiter 创建限流器。
// 参数 cfg: 限流配置（每分钟速率与突发容量）。
// 返回: Limiter 指针。
func NewLimiter(cfg Config) *Limiter {
	return &Limiter{
		buckets:    make(map[string]*bucket),
		ratePerSec: float64(cfg.RequestsPerMinute) / 60.0,
		capacity:   float64(cfg.Burst),
		limit:      cfg.RequestsPerMinute,
	}
}

// Allow 尝试为客户端消耗一个令牌。
// 令牌不足返回 *errs.RateLimitedError，携带限流头所需的全部信息。
// 补充与扣减在桶锁内原子完成，并发请求不会超发。
func (l *Limiter) Allow(clientKey string) error {
	b := l.getBucket(clientKey)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	l.refill(b, now)
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return nil
	}

	// 计算下一个令牌可用的等待时间
	deficit := 1 - b.tokens
	waitSec := deficit / l.ratePerSec
	retryAfter := time.Duration(math.Ceil(waitSec)) * time.Second

	return &errs.RateLimitedError{
		Limit:      l.limit,
		Remaining:  0,
		RetryAfter: retryAfter,
		ResetAt:    now.Add(retryAfter),
	}
}

// Remaining 返回客户端当前可用的完整令牌数。
func (l *Limiter) Remaining(clientKey string) int {
	b := l.getBucket(clientKey)

	b.mu.Lock()
	defer b.mu.Unlock()
	l.refill(b, time.Now())
	return int(b.tokens)
}

// refill 按流逝时间补充令牌，调用方必须持有桶锁。
func (l *Limiter) refill(b *bucket, now time.Time) {
	elapsed := now.Sub(b.lastSeen).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = math.Min(l.capacity, b.tokens+elapsed*l.ratePerSec)
}

// getBucket 获取或创建客户端的令牌桶。
func (l *Limiter) getBucket(clientKey string) *bucket {
	l.mu.RLock()
	b, ok := l.buckets[clientKey]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok = l.buckets[clientKey]; ok {
		return b
	}
	b = &bucket{
		tokens:   l.capacity,
		lastSeen: time.Now(),
	}
	l.buckets[clientKey] = b
	return b
}

// Sweep 回收空闲超过 idleWindow 的客户端桶，返回回收数量。
// 由 cron 定时任务调用，防止长时间运行后桶表无界增长。
func (l *Limiter) Sweep(idleWindow time.Duration) int {
	cutoff := time.Now().Add(-idleWindow)
	removed := 0

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		b.mu.Lock()
		idle := b.lastSeen.Before(cutoff)
		b.mu.Unlock()
		if idle {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Size 返回当前活跃客户端桶数。
func (l *Limiter) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buckets)
}
