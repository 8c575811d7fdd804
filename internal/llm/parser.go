package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"inquiry-classifier/internal/domain/models"
	"inquiry-classifier/pkg/errs"
)

// rawClassification 模型输出JSON的中间结构
type rawClassification struct {
	PrimaryCategory  string     `json:"primary_category"`
	Confidence       float64    `json:"confidence"`
	AllCategories    []rawScore `json:"all_categories"`
	Keywords         []string   `json:"keywords"`
	SuggestedActions []string   `json:"suggested_actions"`
}

type rawScore struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// ParseClassification 严格解析模型输出的分类JSON。
// 容忍markdown代码围栏包裹，但不容忍结构缺失：
// 类别不在封闭集合内或置信度越界一律返回 errs.ErrLLMParse。
func ParseClassification(raw string) (*models.ClassificationResult, error) {
	cleaned := stripMarkdownFence(raw)

	var parsed rawClassification
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrLLMParse, err)
	}

	primary := models.Category(parsed.PrimaryCategory)
	if !primary.IsValid() {
		return nil, fmt.Errorf("%w: unknown category %q", errs.ErrLLMParse, parsed.PrimaryCategory)
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v out of range", errs.ErrLLMParse, parsed.Confidence)
	}

	scores := make([]models.CategoryScore, 0, len(parsed.AllCategories))
	for _, s := range parsed.AllCategories {
		category := models.Category(s.Category)
		if !category.IsValid() || s.Confidence < 0 || s.Confidence > 1 {
			// 单项越界丢弃该项，不整体失败
			continue
		}
		scores = append(scores, models.CategoryScore{
			Category:   category,
			Confidence: s.Confidence,
		})
	}

	return &models.ClassificationResult{
		PrimaryCategory:  primary,
		Confidence:       parsed.Confidence,
		AllCategories:    models.NormalizeCategories(primary, parsed.Confidence, scores),
		Keywords:         parsed.Keywords,
		SuggestedActions: parsed.SuggestedActions,
	}, nil
}

// stripMarkdownFence 去除可能包裹JSON的markdown代码围栏
func stripMarkdownFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
