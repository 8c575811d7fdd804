package persistence

import (
	"context"
	"sync"

	"inquiry-classifier/internal/domain/models"
)

// MemoryAuditStore 进程内审计存储实现，用于单实例部署和测试
type MemoryAuditStore struct {
	mu      sync.RWMutex
	records map[string]*models.ClassificationResult
}

// NewMemoryAuditStore 创建进程内审计存储。
func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{
		records: make(map[string]*models.ClassificationResult),
	}
}

// Put 持久化审计记录。
func (s *MemoryAuditStore) Put(ctx context.Context, result *models.ClassificationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[result.ID] = result.Clone()
	return nil
}

// Get 按分类ID查询审计记录。
func (s *MemoryAuditStore) Get(ctx context.Context, id string) (*models.ClassificationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return record.Clone(), nil
}

// Len 返回当前记录数。
func (s *MemoryAuditStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close 实现 AuditStore 接口。
func (s *MemoryAuditStore) Close() error {
	return nil
}
