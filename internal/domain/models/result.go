package models

import (
	"sort"
	"time"
)

// minScoreInList all_categories中保留的最低置信度（多标签，不要求归一化）
const minScoreInList = 0.1

// CategoryScore 类别及其置信度
type CategoryScore struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
}

// ClassificationResult 分类结果。
// 不变式：AllCategories 按置信度降序排列，且首元素等于 PrimaryCategory。
type ClassificationResult struct {
	ID               string          `json:"id"`
	PrimaryCategory  Category        `json:"primary_category"`
	Confidence       float64         `json:"confidence"`
	AllCategories    []CategoryScore `json:"all_categories"`
	DetectedLanguage Language        `json:"detected_language"`
	Keywords         []string        `json:"suggested_keywords,omitempty"`
	SuggestedActions []string        `json:"suggested_actions,omitempty"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
	FallbackUsed     bool            `json:"fallback_used"`
	ModelVersion     string          `json:"model_version,omitempty"`
	ProcessedAt      time.Time       `json:"processed_at"`
}

// NormalizeCategories 整理候选类别列表以满足结果不变式：
// 过滤低于阈值的条目、按置信度降序排序、并确保主类别位于首位。
func NormalizeCategories(primary Category, confidence float64, scores []CategoryScore) []CategoryScore {
	filtered := make([]CategoryScore, 0, len(scores))
	hasPrimary := false
	for _, s := range scores {
		if s.Category == primary {
			// 主类别始终保留，置信度以顶层字段为准
			filtered = append(filtered, CategoryScore{Category: primary, Confidence: confidence})
			hasPrimary = true
			continue
		}
		if s.Confidence > minScoreInList {
			filtered = append(filtered, s)
		}
	}
	if !hasPrimary {
		filtered = append(filtered, CategoryScore{Category: primary, Confidence: confidence})
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Confidence > filtered[j].Confidence
	})

	// 排序后主类别可能因同分漂移，强制移到首位
	for i, s := range filtered {
		if s.Category == primary && i != 0 {
			copy(filtered[1:i+1], filtered[0:i])
			filtered[0] = s
			break
		}
	}

	return filtered
}

// Band 返回结果的置信度档位
func (r *ClassificationResult) Band() ConfidenceBand {
	return BandFor(r.Confidence)
}

// Clone 复制结果，缓存命中时用于生成携带新ID的响应副本
func (r *ClassificationResult) Clone() *ClassificationResult {
	dup := *r
	dup.AllCategories = append([]CategoryScore(nil), r.AllCategories...)
	dup.Keywords = append([]string(nil), r.Keywords...)
	dup.SuggestedActions = append([]string(nil), r.SuggestedActions...)
	return &dup
}
