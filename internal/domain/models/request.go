package models

import "time"

// 询盘文本长度边界（字符数，按rune计）
const (
	// MinInquiryLength 询盘文本最小长度
	MinInquiryLength = 10
	// MaxInquiryLength 询盘文本最大长度
	MaxInquiryLength = 5000
)

// InquirySource 询盘来源渠道
type InquirySource string

const (
	SourceWebForm InquirySource = "web_form"
	SourceEmail   InquirySource = "email"
	SourceChat    InquirySource = "chat"
	SourcePhone   InquirySource = "phone"
	SourceAPI     InquirySource = "api"
)

// Priority 业务优先级
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// InquiryMetadata 询盘附加元数据。
// 识别的键使用类型化字段，未识别的字符串键保留在Extra中透传。
type InquiryMetadata struct {
	Source     InquirySource     `json:"source,omitempty"`
	CustomerID string            `json:"customer_id,omitempty"`
	Priority   Priority          `json:"priority,omitempty"`
	Timestamp  *time.Time        `json:"timestamp,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// ClassificationRequest 一次分类请求。
// 由单次编排调用独占，响应产生后即丢弃，不保留可变状态。
type ClassificationRequest struct {
	// Text 询盘原文
	Text string `json:"text"`
	// Metadata 可选元数据
	Metadata *InquiryMetadata `json:"metadata,omitempty"`
	// AllowDegraded 为true时，限流拒绝会降级为规则分类立即返回，
	// 而不是返回429让调用方等待
	AllowDegraded bool `json:"allow_degraded,omitempty"`
}
