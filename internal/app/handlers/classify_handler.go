// Package handlers 提供HTTP请求处理器
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"inquiry-classifier/internal/app/middleware"
	"inquiry-classifier/internal/domain/models"
	"inquiry-classifier/internal/eino/callbacks"
	"inquiry-classifier/internal/eino/flows"
	"inquiry-classifier/internal/infrastructure/persistence"
	"inquiry-classifier/pkg/errs"
	"inquiry-classifier/pkg/logger"
	"inquiry-classifier/pkg/status"
)

// ClassifyService 分类服务接口，由编译后的 Graph 实现，测试时可替换
type ClassifyService interface {
	Classify(ctx context.Context, input *flows.ClassifyInput) (*models.ClassificationResult, error)
}

// ClassifyHandler 询盘分类处理器
type ClassifyHandler struct {
	service ClassifyService
	audit   persistence.AuditStore
	metrics *callbacks.MetricsHandler
	logger  logger.Logger
}

// NewClassifyHandler 创建询盘分类处理器
func NewClassifyHandler(
	service ClassifyService,
	audit persistence.AuditStore,
	metrics *callbacks.MetricsHandler,
	log logger.Logger,
) *ClassifyHandler {
	return &ClassifyHandler{
		service: service,
		audit:   audit,
		metrics: metrics,
		logger:  log,
	}
}

// APIResponse 统一的API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorDetail 错误详情
type ErrorDetail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ClassifyRequest 分类请求
type ClassifyRequest struct {
	Text          string                  `json:"text" binding:"required"`
	Metadata      *models.InquiryMetadata `json:"metadata,omitempty"`
	AllowDegraded bool                    `json:"allow_degraded,omitempty"`
}

// Classify 对询盘文本进行分类
// POST /v1/inquiries/classify
func (h *ClassifyHandler) Classify(c *gin.Context) {
	ctx := c.Request.Context()
	requestID := middleware.GetRequestID(c)

	h.logger.InfoContext(ctx, "开始处理分类请求", "request_id", requestID)

	// 解析请求参数
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.ErrorContext(ctx, "分类请求参数解析失败",
			"request_id", requestID,
			"error", err.Error())
		h.respondWithError(c, http.StatusBadRequest, status.ErrCodeInvalidParam, "请求参数格式错误", err.Error())
		return
	}

	input := &flows.ClassifyInput{
		InquiryID:     generateInquiryID(),
		Text:          req.Text,
		Metadata:      req.Metadata,
		AllowDegraded: req.AllowDegraded,
		ClientKey:     middleware.ClientKey(c),
	}

	// 调用分类流水线
	startTime := time.Now()
	result, err := h.service.Classify(ctx, input)
	duration := time.Since(startTime).Milliseconds()

	if err != nil {
		h.respondWithClassifyError(c, err, duration)
		return
	}

	h.logger.InfoContext(ctx, "分类请求处理完成",
		"request_id", requestID,
		"inquiry_id", result.ID,
		"category", string(result.PrimaryCategory),
		"confidence", result.Confidence,
		"fallback_used", result.FallbackUsed,
		"duration_ms", duration)

	c.Header("X-Processing-Time", fmt.Sprintf("%dms", result.ProcessingTimeMs))
	h.respondWithSuccess(c, result, "分类成功")
}

// GetInquiry 根据ID获取分类审计记录
// GET /v1/inquiries/:inquiry_id
func (h *ClassifyHandler) GetInquiry(c *gin.Context) {
	ctx := c.Request.Context()
	requestID := middleware.GetRequestID(c)

	inquiryID := c.Param("inquiry_id")
	if !validInquiryID(inquiryID) {
		h.logger.ErrorContext(ctx, "查询请求inquiry_id格式错误",
			"request_id", requestID,
			"inquiry_id", inquiryID)
		h.respondWithError(c, http.StatusBadRequest, status.ErrCodeInvalidParam, "inquiry_id格式错误", "")
		return
	}

	record, err := h.audit.Get(ctx, inquiryID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			h.respondWithError(c, http.StatusNotFound, status.ErrCodeNotFound, "分类记录不存在", "")
			return
		}
		h.logger.ErrorContext(ctx, "审计记录查询失败",
			"request_id", requestID,
			"inquiry_id", inquiryID,
			"error", err.Error())
		h.respondWithError(c, http.StatusInternalServerError, status.ErrCodeInternal, "查询失败", err.Error())
		return
	}

	h.respondWithSuccess(c, record, "查询成功")
}

// GetStatistics 获取分类统计信息（仅管理员）
// GET /v1/inquiries/statistics
func (h *ClassifyHandler) GetStatistics(c *gin.Context) {
	ctx := c.Request.Context()
	requestID := middleware.GetRequestID(c)

	h.logger.InfoContext(ctx, "开始处理统计查询请求", "request_id", requestID)

	statistics := map[string]interface{}{
		"status": "running",
		"time":   time.Now().Unix(),
	}
	if h.metrics != nil {
		statistics["pipeline"] = h.metrics.GetMetrics()
	}

	h.respondWithSuccess(c, statistics, "统计查询成功")
}

// HealthCheck 健康检查
// GET /v1/inquiries/health
func (h *ClassifyHandler) HealthCheck(c *gin.Context) {
	healthInfo := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	}
	h.respondWithSuccess(c, healthInfo, "服务正常")
}

// respondWithClassifyError 将流水线错误映射到HTTP状态码。
// 校验失败=400，限流=429并附带限流头，其余=500。
func (h *ClassifyHandler) respondWithClassifyError(c *gin.Context, err error, durationMs int64) {
	ctx := c.Request.Context()
	requestID := middleware.GetRequestID(c)

	if ve, ok := errs.AsValidation(err); ok {
		h.logger.InfoContext(ctx, "分类请求校验失败",
			"request_id", requestID,
			"field", ve.Field,
			"code", ve.Code)
		h.respondWithValidationError(c, ve)
		return
	}

	if rle, ok := errs.AsRateLimited(err); ok {
		if h.metrics != nil {
			h.metrics.RecordRateLimited()
		}
		h.logger.WarnContext(ctx, "分类请求被限流",
			"request_id", requestID,
			"retry_after", rle.RetryAfter.String())

		c.Header("Retry-After", strconv.Itoa(int(rle.RetryAfter.Seconds())))
		c.Header("X-RateLimit-Limit", strconv.Itoa(rle.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(rle.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(rle.ResetAt.Unix(), 10))
		h.respondWithError(c, http.StatusTooManyRequests, status.ErrCodeRateLimited, "请求超出限流额度", rle.Error())
		return
	}

	h.logger.ErrorContext(ctx, "分类服务调用失败",
		"request_id", requestID,
		"duration_ms", durationMs,
		"error", err.Error())
	h.respondWithError(c, http.StatusInternalServerError, status.ErrCodeInternal, "分类失败", err.Error())
}

// respondWithValidationError 返回400校验错误响应
func (h *ClassifyHandler) respondWithValidationError(c *gin.Context, ve *errs.ValidationError) {
	response := APIResponse{
		Success:   false,
		Code:      int(status.ErrCodeInvalidParam),
		Message:   "请求参数验证失败",
		RequestID: middleware.GetRequestID(c),
		Timestamp: time.Now().Unix(),
		Data: ErrorDetail{
			Field:   ve.Field,
			Message: ve.Message,
			Code:    ve.Code,
		},
	}
	c.JSON(http.StatusBadRequest, response)
}

// respondWithSuccess 返回成功响应
func (h *ClassifyHandler) respondWithSuccess(c *gin.Context, data interface{}, message string) {
	response := APIResponse{
		Success:   true,
		Code:      int(status.CodeOK),
		Message:   message,
		Data:      data,
		RequestID: middleware.GetRequestID(c),
		Timestamp: time.Now().Unix(),
	}

	c.JSON(http.StatusOK, response)
}

// respondWithError 返回错误响应
func (h *ClassifyHandler) respondWithError(c *gin.Context, httpStatus int, code status.StatusCode, message, detail string) {
	response := APIResponse{
		Success:   false,
		Code:      int(code),
		Message:   message,
		RequestID: middleware.GetRequestID(c),
		Timestamp: time.Now().Unix(),
	}

	if detail != "" {
		response.Data = ErrorDetail{
			Message: detail,
			Code:    code.String(),
		}
	}

	c.JSON(httpStatus, response)
}

// generateInquiryID 生成分类结果ID
func generateInquiryID() string {
	return "clf_" + uuid.New().String()
}

// validInquiryID 校验分类ID格式：clf_ 前缀加UUID
func validInquiryID(id string) bool {
	if !strings.HasPrefix(id, "clf_") {
		return false
	}
	_, err := uuid.Parse(strings.TrimPrefix(id, "clf_"))
	return err == nil
}
