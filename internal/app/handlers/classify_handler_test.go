package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"inquiry-classifier/internal/domain/models"
	"inquiry-classifier/internal/eino/flows"
	"inquiry-classifier/internal/infrastructure/persistence"
	"inquiry-classifier/pkg/errs"
	"inquiry-classifier/pkg/logger"
)

// fakeService 测试用分类服务
type fakeService struct {
	result *models.ClassificationResult
	err    error
}

func (f *fakeService) Classify(ctx context.Context, input *flows.ClassifyInput) (*models.ClassificationResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	result := f.result.Clone()
	result.ID = input.InquiryID
	return result, nil
}

func newTestRouter(service ClassifyService, audit persistence.AuditStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewClassifyHandler(service, audit, nil, logger.Default())

	router := gin.New()
	router.POST("/v1/inquiries/classify", handler.Classify)
	router.GET("/v1/inquiries/statistics", handler.GetStatistics)
	router.GET("/v1/inquiries/health", handler.HealthCheck)
	router.GET("/v1/inquiries/:inquiry_id", handler.GetInquiry)
	return router
}

func successResult() *models.ClassificationResult {
	return &models.ClassificationResult{
		PrimaryCategory:  models.CategoryQuoteRequest,
		Confidence:       0.95,
		DetectedLanguage: models.LanguageEN,
		ProcessingTimeMs: 42,
		ProcessedAt:      time.Now(),
	}
}

func postClassify(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/inquiries/classify", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestClassifyEndpointSuccess(t *testing.T) {
	router := newTestRouter(&fakeService{result: successResult()}, persistence.NewMemoryAuditStore())

	recorder := postClassify(t, router, `{"text": "We need a quote for 1000 aluminum brackets"}`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var response APIResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !response.Success {
		t.Errorf("expected success response")
	}
	if got := recorder.Header().Get("X-Processing-Time"); got != "42ms" {
		t.Errorf("expected X-Processing-Time 42ms, got %q", got)
	}

	data, _ := json.Marshal(response.Data)
	var result models.ClassificationResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.PrimaryCategory != models.CategoryQuoteRequest {
		t.Errorf("expected QUOTE_REQUEST, got %s", result.PrimaryCategory)
	}
	if result.ID == "" {
		t.Errorf("result must carry an inquiry id")
	}
}

func TestClassifyEndpointMissingBody(t *testing.T) {
	router := newTestRouter(&fakeService{result: successResult()}, persistence.NewMemoryAuditStore())

	recorder := postClassify(t, router, `{}`)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing text, got %d", recorder.Code)
	}
}

func TestClassifyEndpointValidationError(t *testing.T) {
	service := &fakeService{err: errs.NewValidation("text", "TOO_SHORT", "inquiry text must be at least 10 characters")}
	router := newTestRouter(service, persistence.NewMemoryAuditStore())

	recorder := postClassify(t, router, `{"text": "short"}`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}

	var response APIResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	data, _ := json.Marshal(response.Data)
	var detail ErrorDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		t.Fatalf("unmarshal detail: %v", err)
	}
	if detail.Code != "TOO_SHORT" || detail.Field != "text" {
		t.Errorf("unexpected error detail: %+v", detail)
	}
}

func TestClassifyEndpointRateLimited(t *testing.T) {
	service := &fakeService{err: &errs.RateLimitedError{
		Limit:      100,
		Remaining:  0,
		RetryAfter: 30 * time.Second,
		ResetAt:    time.Unix(1700000000, 0),
	}}
	router := newTestRouter(service, persistence.NewMemoryAuditStore())

	recorder := postClassify(t, router, `{"text": "We need a quote for 1000 aluminum brackets"}`)
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", recorder.Code)
	}

	headers := map[string]string{
		"Retry-After":           "30",
		"X-RateLimit-Limit":     "100",
		"X-RateLimit-Remaining": "0",
		"X-RateLimit-Reset":     "1700000000",
	}
	for name, want := range headers {
		if got := recorder.Header().Get(name); got != want {
			t.Errorf("header %s: expected %s, got %s", name, want, got)
		}
	}
}

func TestGetInquiry(t *testing.T) {
	audit := persistence.NewMemoryAuditStore()
	record := successResult()
	record.ID = "clf_a7e57b21-9d5e-4b6a-8a3f-2f10b52d94cb"
	if err := audit.Put(context.Background(), record); err != nil {
		t.Fatalf("seed audit store: %v", err)
	}

	router := newTestRouter(&fakeService{result: successResult()}, audit)

	tests := []struct {
		name     string
		path     string
		wantCode int
	}{
		{
			name:     "existing record",
			path:     "/v1/inquiries/clf_a7e57b21-9d5e-4b6a-8a3f-2f10b52d94cb",
			wantCode: http.StatusOK,
		},
		{
			name:     "unknown record",
			path:     "/v1/inquiries/clf_00000000-0000-0000-0000-000000000000",
			wantCode: http.StatusNotFound,
		},
		{
			name:     "malformed id",
			path:     "/v1/inquiries/not-a-valid-id",
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			if recorder.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, recorder.Code)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&fakeService{result: successResult()}, persistence.NewMemoryAuditStore())

	req := httptest.NewRequest(http.MethodGet, "/v1/inquiries/health", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", recorder.Code)
	}
}
