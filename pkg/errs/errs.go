// Package errs 定义分类服务的错误分类体系。
// 只有 ValidationError 与 RateLimitedError 会跨越服务边界；
// LLM 相关错误与缓存不可用一律在编排层内部降级处理。
package errs

import (
	"errors"
	"fmt"
	"time"
)

// LLM 调用路径的哨兵错误，调用方通过 errors.Is 判断
var (
	// ErrLLMTimeout LLM调用超时
	ErrLLMTimeout = errors.New("llm call timed out")
	// ErrLLMProvider LLM服务端错误
	ErrLLMProvider = errors.New("llm provider error")
	// ErrLLMParse LLM返回内容无法解析为结构化结果
	ErrLLMParse = errors.New("llm response not parseable")
	// ErrCacheUnavailable 缓存后端不可用，按未命中降级
	ErrCacheUnavailable = errors.New("cache unavailable")
)

// ValidationError 输入校验错误，映射为 HTTP 400
type ValidationError struct {
	Field   string // 出错字段
	Code    string // TOO_SHORT / TOO_LONG / EMPTY / INVALID
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NewValidation 创建校验错误
func NewValidation(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

// RateLimitedError 限流拒绝，映射为 HTTP 429。
// 携带生成 X-RateLimit-* 响应头所需的全部信息。
type RateLimitedError struct {
	Limit      int           // 每分钟允许的请求数
	Remaining  int           // 当前剩余额度（被拒绝时为0）
	RetryAfter time.Duration // 距下一个令牌可用的等待时间
	ResetAt    time.Time     // 额度恢复时间点
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter.Round(time.Second))
}

// AsValidation 判断err是否为校验错误
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsRateLimited 判断err是否为限流拒绝
func AsRateLimited(err error) (*RateLimitedError, bool) {
	var re *RateLimitedError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
