package llm

import (
	"context"
	"errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"inquiry-classifier/internal/domain/models"
	"inquiry-classifier/pkg/errs"
	"inquiry-classifier/pkg/logger"
)

// AnthropicClassifier 基于 Anthropic Messages API 的分类器实现
type AnthropicClassifier struct {
	client       anthropic.Client
	model        string
	maxTokens    int64
	timeout      time.Duration
	modelVersion string
	log          logger.Logger
}

// AnthropicConfig Anthropic 分类器配置
type AnthropicConfig struct {
	APIKey       string
	Model        string
	MaxTokens    int
	Timeout      time.Duration
	ModelVersion string
}

// NewAnthropicClassifier 创建 Anthropic 分类器。
// 参数 cfg: 分类器配置。
// 参数 log: 日志记录器。
// 返回: AnthropicClassifier 指针。
func NewAnthropicClassifier(cfg AnthropicConfig, log logger.Logger) *AnthropicClassifier {
	return &AnthropicClassifier{
		client:       anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:        cfg.Model,
		maxTokens:    int64(cfg.MaxTokens),
		timeout:      cfg.Timeout,
		modelVersion: cfg.ModelVersion,
		log:          log,
	}
}

// Classify 调用模型对询盘文本进行单次分类。
// 超时由内部 context 控制，调用方无需预先设置 deadline。
func (c *AnthropicClassifier) Classify(ctx context.Context, text string, language models.Language) (*models.ClassificationResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	message, err := c.client.Messages.New(callCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildUserPrompt(text, language))),
		},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			c.log.WarnContext(ctx, "LLM调用超时",
				"model", c.model,
				"elapsed_ms", time.Since(start).Milliseconds())
			return nil, errs.ErrLLMTimeout
		}
		c.log.ErrorContext(ctx, "LLM调用失败",
			"model", c.model,
			"error", err.Error())
		return nil, errs.ErrLLMProvider
	}

	var raw string
	for _, block := range message.Content {
		if block.Type == "text" {
			raw = block.Text
			break
		}
	}
	if raw == "" {
		c.log.ErrorContext(ctx, "LLM响应缺少文本内容", "model", c.model)
		return nil, errs.ErrLLMParse
	}

	result, err := ParseClassification(raw)
	if err != nil {
		c.log.ErrorContext(ctx, "LLM响应解析失败",
			"model", c.model,
			"error", err.Error())
		return nil, err
	}

	result.DetectedLanguage = language
	result.ModelVersion = c.modelVersion

	c.log.DebugContext(ctx, "LLM分类完成",
		"model", c.model,
		"category", string(result.PrimaryCategory),
		"confidence", result.Confidence,
		"tokens_in", message.Usage.InputTokens,
		"tokens_out", message.Usage.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds())

	return result, nil
}
