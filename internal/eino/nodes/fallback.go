// Package nodes 提供分类流水线 Graph 中使用的 Lambda 节点实现
package nodes

import (
	"context"
	"regexp"
	"strings"

	"inquiry-classifier/internal/domain/models"
)

// categoryRule 单个类别的关键词规则
type categoryRule struct {
	category   models.Category
	confidence float64
	keywords   []string
}

// fallbackRules 规则分类的关键词表，按优先级排列。
// 置信度刻意压在保守区间（0.60-0.75），反映该路径以准确率换可用性。
var fallbackRules = []categoryRule{
	{
		category:   models.CategoryQuoteRequest,
		confidence: 0.75,
		keywords: []string{
			"quote", "quotation", "price", "pricing", "cost", "estimate",
			"見積", "価格", "いくら",
		},
	},
	{
		category:   models.CategoryTechnicalSpecification,
		confidence: 0.70,
		keywords: []string{
			"tolerance", "specification", "material", "surface roughness",
			"hardness", "astm", "sus304",
			"公差", "仕様", "材質", "表面粗さ",
		},
	},
	{
		category:   models.CategoryCapabilityQuestion,
		confidence: 0.65,
		keywords: []string{
			"can you", "do you have", "capable", "capacity", "5-axis",
			"できますか", "可能ですか", "加工機", "対応",
		},
	},
	{
		category:   models.CategoryPartnershipInquiry,
		confidence: 0.70,
		keywords: []string{
			"partner", "partnership", "long-term", "supplier", "strategic",
			"collaboration", "ongoing",
			"パートナー", "長期的", "協力",
		},
	},
}

// generalConfidence 未命中任何规则时的一般咨询置信度
const generalConfidence = 0.60

// RuleClassify 确定性规则分类 Lambda 函数。
// 永不失败、永不调用外部服务，输出始终带 fallback_used=true。
// 在LLM超时/出错、返回置信度低于下限、或限流拒绝且调用方接受降级时被调用。
// 参数 ctx: 上下文对象。
// 参数 text: 已清洗的询盘文本。
// 参数 language: 已检测的语言。
// 返回: 分类结果（ID与耗时由编排层补齐）。
func RuleClassify(ctx context.Context, text string, language models.Language) (*models.ClassificationResult, error) {
	lower := strings.ToLower(text)

	primary := models.CategoryGeneralInquiry
	confidence := generalConfidence

	for _, rule := range fallbackRules {
		if containsAny(lower, rule.keywords) {
			primary = rule.category
			confidence = rule.confidence
			break
		}
	}

	scores := []models.CategoryScore{
		{Category: primary, Confidence: confidence},
	}
	if primary != models.CategoryGeneralInquiry {
		scores = append(scores, models.CategoryScore{
			Category:   models.CategoryGeneralInquiry,
			Confidence: 0.3,
		})
	}

	return &models.ClassificationResult{
		PrimaryCategory:  primary,
		Confidence:       confidence,
		AllCategories:    models.NormalizeCategories(primary, confidence, scores),
		DetectedLanguage: language,
		Keywords:         ExtractKeywords(text),
		SuggestedActions: SuggestedActions(primary),
		FallbackUsed:     true,
	}, nil
}

// containsAny 判断文本是否包含任一关键词
func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// knownTerms 关键词抽取用的制造业常见术语表
var knownTerms = []string{
	"quote", "aluminum", "steel", "titanium", "tolerance", "cnc", "iso",
	"brackets", "parts", "manufacturing", "anodizing", "welding",
	"見積", "アルミニウム", "ステンレス", "公差", "加工",
}

// numberPattern 匹配文本中的数值（数量、公差等）
var numberPattern = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)

// 关键词抽取上限
const (
	maxKeywords       = 10
	maxNumberKeywords = 3
)

// ExtractKeywords 从询盘文本中抽取关键术语与数值。
// 术语表命中在前，数值最多取前三个，总数不超过十个。
func ExtractKeywords(text string) []string {
	lower := strings.ToLower(text)
	keywords := make([]string, 0, maxKeywords)

	for _, term := range knownTerms {
		if strings.Contains(lower, term) {
			keywords = append(keywords, term)
		}
	}

	numbers := numberPattern.FindAllString(text, maxNumberKeywords)
	keywords = append(keywords, numbers...)

	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

// suggestedActionsMap 各类别的建议处理动作
var suggestedActionsMap = map[models.Category][]string{
	models.CategoryQuoteRequest: {
		"Route to sales team",
		"Generate automated quote template",
	},
	models.CategoryTechnicalSpecification: {
		"Route to engineering team",
		"Check technical feasibility",
	},
	models.CategoryCapabilityQuestion: {
		"Route to support team",
		"Provide capability documentation",
	},
	models.CategoryPartnershipInquiry: {
		"Route to business development",
		"Schedule partnership discussion",
	},
	models.CategoryGeneralInquiry: {
		"Route to general support",
		"Check FAQ for answer",
	},
	models.CategoryUnknown: {
		"Manual review required",
		"Escalate to supervisor",
	},
}

// SuggestedActions 返回类别对应的建议动作
func SuggestedActions(category models.Category) []string {
	if actions, ok := suggestedActionsMap[category]; ok {
		return actions
	}
	return []string{"Review manually"}
}
