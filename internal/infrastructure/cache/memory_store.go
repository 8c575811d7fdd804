package cache

import (
	"context"
	"sync"
	"time"

	"inquiry-classifier/internal/domain/models"
)

// MemoryStore 进程内缓存存储实现。
// 用于未配置 Redis 的单实例部署和测试。
// 过期采用读取时惰性检查，配合定时 Sweep 回收不再访问的条目。
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	entry     *models.CacheEntry
	expiresAt time.Time
}

// NewMemoryStore 创建进程内缓存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
	}
}

// Get 获取缓存条目，过期条目在读取时删除。
func (s *MemoryStore) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	s.mu.RLock()
	item, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}
	if time.Now().After(item.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, ErrCacheMiss
	}
	return item.entry, nil
}

// Set 写入缓存条目。
func (s *MemoryStore) Set(ctx context.Context, key string, entry *models.CacheEntry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &memoryEntry{
		entry:     entry,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete 删除缓存条目。
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Sweep 清理所有已过期条目，返回清理数量。
// 由 cron 定时任务调用。
func (s *MemoryStore) Sweep() int {
	now := time.Now()
	removed := 0

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, item := range s.entries {
		if now.After(item.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len 返回当前条目数。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close 实现 Store 接口，进程内存储无需释放资源。
func (s *MemoryStore) Close() error {
	return nil
}
