// Package nodes 提供分类流水线 Graph 中使用的 Lambda 节点实现
package nodes

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"inquiry-classifier/internal/domain/models"
	"inquiry-classifier/pkg/errs"
)

// injectionPatterns 提示注入的已知模式黑名单。
// 清洗是尽力而为的；结构性防护（分隔符包裹）由LLM适配器负责。
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous(\s+instructions)?`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?instructions`),
	regexp.MustCompile(`(?i)system\s*:\s*`),
	regexp.MustCompile(`(?i)assistant\s*:\s*`),
	regexp.MustCompile(`(?i)###\s*instruction`),
	regexp.MustCompile(`<\|.*?\|>`),
	regexp.MustCompile(`(?is)\[INST\].*?\[/INST\]`),
}

// 元数据清洗限制
const (
	maxMetadataValueLen = 256
	maxMetadataExtraLen = 16
)

// metadataKeyPattern 元数据键只允许字母、数字和下划线
var metadataKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// SanitizeText 对询盘文本进行清洗与校验 Lambda 函数。
// 执行控制字符移除、注入模式清除、空白规范化和长度校验。
// 纯函数，无副作用，同一输入始终产生同一输出。
// 参数 ctx: 上下文对象。
// 参数 text: 原始询盘文本。
// 返回: 清洗后的文本，校验失败时返回 *errs.ValidationError。
func SanitizeText(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errs.NewValidation("text", "EMPTY", "inquiry text cannot be empty")
	}

	// 1. 移除控制字符（保留换行和制表符）
	text = removeControlChars(text)

	// 2. 清除提示注入模式
	for _, pattern := range injectionPatterns {
		text = pattern.ReplaceAllString(text, "")
	}

	// 3. 规范化空白字符（多个空白合并为一个空格）
	text = normalizeWhitespace(text)

	// 4. 长度校验（按rune计数，日文文本一字一rune）
	length := utf8.RuneCountInString(text)
	if length < models.MinInquiryLength {
		return "", errs.NewValidation("text", "TOO_SHORT", "inquiry text must be at least 10 characters")
	}
	if length > models.MaxInquiryLength {
		return "", errs.NewValidation("text", "TOO_LONG", "inquiry text must not exceed 5000 characters")
	}

	return text, nil
}

// SanitizeMetadata 清洗询盘元数据。
// 识别的类型化字段原样保留；Extra中的键必须匹配字母数字下划线模式，
// 值截断到上限长度，超出条目数上限的部分丢弃。
func SanitizeMetadata(md *models.InquiryMetadata) *models.InquiryMetadata {
	if md == nil {
		return nil
	}

	clean := *md
	if len(md.Extra) > 0 {
		clean.Extra = make(map[string]string, len(md.Extra))
		for key, value := range md.Extra {
			if !metadataKeyPattern.MatchString(key) {
				continue
			}
			if len(clean.Extra) >= maxMetadataExtraLen {
				break
			}
			if len(value) > maxMetadataValueLen {
				value = value[:maxMetadataValueLen]
			}
			clean.Extra[key] = removeControlChars(value)
		}
	}

	return &clean
}

// normalizeWhitespace 规范化空白字符，将连续的空白字符替换为单个空格。
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// removeControlChars 移除字符串中的不可打印控制字符（保留换行和制表符）。
func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
}
