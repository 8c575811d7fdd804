// Package models 定义制造业询盘分类的领域模型
package models

// Category 询盘分类类别，封闭集合
type Category string

const (
	// CategoryQuoteRequest 询价请求
	CategoryQuoteRequest Category = "QUOTE_REQUEST"
	// CategoryTechnicalSpecification 技术规格
	CategoryTechnicalSpecification Category = "TECHNICAL_SPECIFICATION"
	// CategoryCapabilityQuestion 加工能力咨询
	CategoryCapabilityQuestion Category = "CAPABILITY_QUESTION"
	// CategoryPartnershipInquiry 合作意向
	CategoryPartnershipInquiry Category = "PARTNERSHIP_INQUIRY"
	// CategoryGeneralInquiry 一般咨询
	CategoryGeneralInquiry Category = "GENERAL_INQUIRY"
	// CategoryUnknown 无法判定
	CategoryUnknown Category = "UNKNOWN"
)

// AllCategories 返回全部类别，顺序固定
func AllCategories() []Category {
	return []Category{
		CategoryQuoteRequest,
		CategoryTechnicalSpecification,
		CategoryCapabilityQuestion,
		CategoryPartnershipInquiry,
		CategoryGeneralInquiry,
		CategoryUnknown,
	}
}

// IsValid 判断类别是否属于封闭集合
func (c Category) IsValid() bool {
	switch c {
	case CategoryQuoteRequest, CategoryTechnicalSpecification, CategoryCapabilityQuestion,
		CategoryPartnershipInquiry, CategoryGeneralInquiry, CategoryUnknown:
		return true
	}
	return false
}

// Language 检测到的询盘语言
type Language string

const (
	// LanguageEN 英语
	LanguageEN Language = "en"
	// LanguageJA 日语
	LanguageJA Language = "ja"
	// LanguageOther 其他或混合语言
	LanguageOther Language = "other"
)

// ConfidenceBand 置信度档位，决定缓存TTL
type ConfidenceBand string

const (
	// BandHigh 高置信度（≥0.9）
	BandHigh ConfidenceBand = "high"
	// BandMedium 中置信度（0.7–0.9）
	BandMedium ConfidenceBand = "medium"
	// BandLow 低置信度（<0.7），不进入缓存
	BandLow ConfidenceBand = "low"
)

// BandFor 根据置信度计算档位
func BandFor(confidence float64) ConfidenceBand {
	switch {
	case confidence >= 0.9:
		return BandHigh
	case confidence >= 0.7:
		return BandMedium
	default:
		return BandLow
	}
}
