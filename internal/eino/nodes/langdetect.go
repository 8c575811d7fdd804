// Package nodes 提供分类流水线 Graph 中使用的 Lambda 节点实现
package nodes

import (
	"context"
	"unicode"

	"inquiry-classifier/internal/domain/models"
)

// japaneseRatioThreshold 日文字符占比超过该阈值判定为日语
const japaneseRatioThreshold = 0.3

// DetectLanguage 基于字符区间启发式检测询盘语言 Lambda 函数。
// 单次遍历，不会失败；无法判定的输入返回 other。
// 参数 ctx: 上下文对象。
// 参数 text: 待检测文本。
// 返回: 检测到的语言（en/ja/other）。
func DetectLanguage(ctx context.Context, text string) (models.Language, error) {
	return Detect(text), nil
}

// Detect 检测文本语言。
// 平假名/片假名/汉字占比超过30%判为日语；少量CJK混入判为other；
// 拉丁字母为主判为英语。
func Detect(text string) models.Language {
	var total, japanese, latin, letters int

	for _, r := range text {
		total++

		if isJapanese(r) {
			japanese++
		}
		if unicode.IsLetter(r) {
			letters++
			if unicode.In(r, unicode.Latin) {
				latin++
			}
		}
	}

	if total == 0 || letters == 0 {
		return models.LanguageOther
	}

	if float64(japanese) > float64(total)*japaneseRatioThreshold {
		return models.LanguageJA
	}

	if japanese > 0 {
		// 少量日文混在其他文字中，按混合语言处理
		return models.LanguageOther
	}

	if latin*2 > letters {
		return models.LanguageEN
	}

	return models.LanguageOther
}

// isJapanese 判断rune是否属于日文书写系统（平假名、片假名或CJK汉字）
func isJapanese(r rune) bool {
	return (r >= 0x3040 && r <= 0x309f) || // 平假名
		(r >= 0x30a0 && r <= 0x30ff) || // 片假名
		(r >= 0x4e00 && r <= 0x9fff) // CJK统一汉字
}
