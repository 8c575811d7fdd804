// Package events 提供分类进度事件的发布与订阅
package events

import (
	"sync"
	"time"

	"inquiry-classifier/internal/domain/models"
)

// EventType 事件类型
type EventType string

const (
	// TypeStart 分类开始
	TypeStart EventType = "classification_start"
	// TypeProgress 阶段进度更新
	TypeProgress EventType = "classification_progress"
	// TypeComplete 分类完成，携带最终结果
	TypeComplete EventType = "classification_complete"
	// TypeError 分类失败
	TypeError EventType = "error"
)

// Stage 流水线阶段标识
type Stage string

const (
	StageCacheLookup Stage = "cache_lookup"
	StageRateCheck   Stage = "rate_check"
	StageLLMCall     Stage = "llm_call"
	StageFallback    Stage = "fallback"
	StageCacheStore  Stage = "cache_store"
)

// Event 单条进度事件。
// 同一 InquiryID 的事件按发布顺序投递。
type Event struct {
	Type      EventType                    `json:"type"`
	InquiryID string                       `json:"inquiry_id"`
	Progress  int                          `json:"progress"`
	Stage     Stage                        `json:"stage,omitempty"`
	Message   string                       `json:"message,omitempty"`
	Result    *models.ClassificationResult `json:"result,omitempty"`
	Timestamp time.Time                    `json:"timestamp"`
}

// subscriberBuffer 每个订阅通道的缓冲长度。
// 流水线阶段数有限，正常消费时不会写满。
const subscriberBuffer = 16

// Hub 进度事件中心。
// 发布端永不阻塞：订阅者缓冲写满时丢弃该订阅者的后续事件，
// 慢消费方不能拖慢分类流水线。
type Hub struct {
	mu   sync.RWMutex
	subs map[string][]chan Event
}

// NewHub 创建事件中心。
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string][]chan Event),
	}
}

// Subscribe 订阅指定询盘的进度事件。
// 返回事件通道与取消函数，取消后通道关闭。
func (h *Hub) Subscribe(inquiryID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[inquiryID] = append(h.subs[inquiryID], ch)
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		channels := h.subs[inquiryID]
		for i, sub := range channels {
			if sub == ch {
				h.subs[inquiryID] = append(channels[:i], channels[i+1:]...)
				close(ch)
				break
			}
		}
		if len(h.subs[inquiryID]) == 0 {
			delete(h.subs, inquiryID)
		}
	}
	return ch, cancel
}

// Publish 向询盘的所有订阅者投递事件，非阻塞。
func (h *Hub) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[event.InquiryID] {
		select {
		case ch <- event:
		default:
			// 订阅者消费过慢，丢弃事件保护发布端
		}
	}
}

// PublishStart 发布分类开始事件。
func (h *Hub) PublishStart(inquiryID string) {
	h.Publish(Event{Type: TypeStart, InquiryID: inquiryID, Progress: 0})
}

// PublishProgress 发布阶段进度事件。
func (h *Hub) PublishProgress(inquiryID string, stage Stage, progress int) {
	h.Publish(Event{Type: TypeProgress, InquiryID: inquiryID, Stage: stage, Progress: progress})
}

// PublishComplete 发布完成事件，携带最终结果。
func (h *Hub) PublishComplete(inquiryID string, result *models.ClassificationResult) {
	h.Publish(Event{Type: TypeComplete, InquiryID: inquiryID, Progress: 100, Result: result})
}

// PublishError 发布失败事件。
func (h *Hub) PublishError(inquiryID string, message string) {
	h.Publish(Event{Type: TypeError, InquiryID: inquiryID, Message: message})
}
