package flows

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"inquiry-classifier/configs"
	"inquiry-classifier/internal/domain/models"
	"inquiry-classifier/internal/events"
	"inquiry-classifier/internal/infrastructure/cache"
	"inquiry-classifier/internal/infrastructure/persistence"
	"inquiry-classifier/internal/infrastructure/ratelimit"
	"inquiry-classifier/pkg/errs"
	"inquiry-classifier/pkg/logger"
)

// fakeClassifier 测试用分类器，可编程返回结果或错误
type fakeClassifier struct {
	calls  int32
	result *models.ClassificationResult
	err    error
}

func (f *fakeClassifier) Classify(ctx context.Context, text string, language models.Language) (*models.ClassificationResult, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	result := f.result.Clone()
	result.DetectedLanguage = language
	return result, nil
}

func (f *fakeClassifier) callCount() int32 {
	return atomic.LoadInt32(&f.calls)
}

func llmResult(confidence float64) *models.ClassificationResult {
	return &models.ClassificationResult{
		PrimaryCategory: models.CategoryQuoteRequest,
		Confidence:      confidence,
		AllCategories: []models.CategoryScore{
			{Category: models.CategoryQuoteRequest, Confidence: confidence},
		},
		Keywords:     []string{"quote", "aluminum"},
		ModelVersion: "v1.2.0",
	}
}

type testHarness struct {
	service *ClassifyService
	fake    *fakeClassifier
	audit   *persistence.MemoryAuditStore
	limiter *ratelimit.Limiter
}

func newTestService(t *testing.T, fake *fakeClassifier, rateCfg ratelimit.Config) *testHarness {
	t.Helper()

	cfg := configs.DefaultConfig()
	cfg.Auth.JWTSecret = "test"
	cfg.RateLimit.RequestsPerMinute = rateCfg.RequestsPerMinute
	cfg.RateLimit.Burst = rateCfg.Burst

	log := logger.Default()
	tier := cache.NewTierManager(cache.NewMemoryStore(), cache.TierConfig{
		KeyPrefix: cfg.Cache.KeyPrefix,
		HighTTL:   cfg.Cache.HighTTL,
		MediumTTL: cfg.Cache.MediumTTL,
	}, log)
	limiter := ratelimit.NewLimiter(rateCfg)
	audit := persistence.NewMemoryAuditStore()

	graph := NewClassifyGraph(tier, limiter, fake, events.NewHub(), audit, cfg, log)
	service, err := NewClassifyService(context.Background(), graph)
	if err != nil {
		t.Fatalf("compile graph: %v", err)
	}
	return &testHarness{service: service, fake: fake, audit: audit, limiter: limiter}
}

func classifyInput(id, text string) *ClassifyInput {
	return &ClassifyInput{
		InquiryID: id,
		Text:      text,
		ClientKey: "test-client",
	}
}

func TestClassifyHappyPath(t *testing.T) {
	fake := &fakeClassifier{result: llmResult(0.95)}
	h := newTestService(t, fake, ratelimit.Config{RequestsPerMinute: 100, Burst: 10})

	result, err := h.service.Classify(context.Background(), classifyInput("clf_1", "We need a quote for 1000 aluminum brackets"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.ID != "clf_1" {
		t.Errorf("expected id clf_1, got %s", result.ID)
	}
	if result.PrimaryCategory != models.CategoryQuoteRequest {
		t.Errorf("expected QUOTE_REQUEST, got %s", result.PrimaryCategory)
	}
	if result.FallbackUsed {
		t.Errorf("llm path must not set fallback_used")
	}
	if result.DetectedLanguage != models.LanguageEN {
		t.Errorf("expected en, got %s", result.DetectedLanguage)
	}
	if result.ProcessingTimeMs < 1 {
		t.Errorf("processing time must be at least 1ms, got %d", result.ProcessingTimeMs)
	}
	if fake.callCount() != 1 {
		t.Errorf("expected 1 llm call, got %d", fake.callCount())
	}
}

func TestClassifyCacheHitSkipsLLM(t *testing.T) {
	fake := &fakeClassifier{result: llmResult(0.95)}
	h := newTestService(t, fake, ratelimit.Config{RequestsPerMinute: 100, Burst: 10})
	ctx := context.Background()

	first, err := h.service.Classify(ctx, classifyInput("clf_1", "We need a quote for 1000 aluminum brackets"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 大小写与空白差异应命中同一缓存条目
	second, err := h.service.Classify(ctx, classifyInput("clf_2", "  WE NEED A QUOTE FOR 1000 ALUMINUM BRACKETS"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fake.callCount() != 1 {
		t.Errorf("second request should hit cache, got %d llm calls", fake.callCount())
	}
	if second.ID != "clf_2" {
		t.Errorf("cached result must carry the new inquiry id, got %s", second.ID)
	}
	if second.PrimaryCategory != first.PrimaryCategory {
		t.Errorf("cached category mismatch")
	}
}

func TestClassifyLowConfidenceNotCached(t *testing.T) {
	// 0.65 低于置信度下限，走规则回退且不写缓存
	fake := &fakeClassifier{result: llmResult(0.65)}
	h := newTestService(t, fake, ratelimit.Config{RequestsPerMinute: 100, Burst: 10})
	ctx := context.Background()

	first, err := h.service.Classify(ctx, classifyInput("clf_1", "Some borderline manufacturing question here"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.FallbackUsed {
		t.Errorf("below-floor confidence should fall back to rules")
	}

	if _, err := h.service.Classify(ctx, classifyInput("clf_2", "Some borderline manufacturing question here")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.callCount() != 2 {
		t.Errorf("expected 2 llm calls (no caching below floor), got %d", fake.callCount())
	}
}

func TestClassifyFallbackOnLLMFailure(t *testing.T) {
	fake := &fakeClassifier{err: errs.ErrLLMTimeout}
	h := newTestService(t, fake, ratelimit.Config{RequestsPerMinute: 100, Burst: 10})

	result, err := h.service.Classify(context.Background(), classifyInput("clf_1", "We need a quote for 1000 aluminum brackets"))
	if err != nil {
		t.Fatalf("llm failure must not fail the request: %v", err)
	}
	if !result.FallbackUsed {
		t.Errorf("expected fallback result")
	}
	if result.PrimaryCategory != models.CategoryQuoteRequest {
		t.Errorf("rule fallback should still detect quote request, got %s", result.PrimaryCategory)
	}
}

func TestClassifyRateLimited(t *testing.T) {
	fake := &fakeClassifier{result: llmResult(0.95)}
	h := newTestService(t, fake, ratelimit.Config{RequestsPerMinute: 1, Burst: 1})
	ctx := context.Background()

	if _, err := h.service.Classify(ctx, classifyInput("clf_1", "First unique inquiry about steel parts")); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}

	_, err := h.service.Classify(ctx, classifyInput("clf_2", "Second unique inquiry about titanium parts"))
	rle, ok := errs.AsRateLimited(err)
	if !ok {
		t.Fatalf("expected rate limited error, got %v", err)
	}
	if rle.RetryAfter <= 0 {
		t.Errorf("expected positive retry-after")
	}
}

func TestClassifyDegradedOnRateLimit(t *testing.T) {
	fake := &fakeClassifier{result: llmResult(0.95)}
	h := newTestService(t, fake, ratelimit.Config{RequestsPerMinute: 1, Burst: 1})
	ctx := context.Background()

	if _, err := h.service.Classify(ctx, classifyInput("clf_1", "First unique inquiry about steel parts")); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}

	input := classifyInput("clf_2", "We need a quote for titanium parts please")
	input.AllowDegraded = true
	result, err := h.service.Classify(ctx, input)
	if err != nil {
		t.Fatalf("degraded request should succeed: %v", err)
	}
	if !result.FallbackUsed {
		t.Errorf("degraded path must use rule fallback")
	}
	if fake.callCount() != 1 {
		t.Errorf("degraded path must not call llm, got %d calls", fake.callCount())
	}
}

func TestClassifyValidationError(t *testing.T) {
	fake := &fakeClassifier{result: llmResult(0.95)}
	h := newTestService(t, fake, ratelimit.Config{RequestsPerMinute: 100, Burst: 10})

	_, err := h.service.Classify(context.Background(), classifyInput("clf_1", "short"))
	ve, ok := errs.AsValidation(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Code != "TOO_SHORT" {
		t.Errorf("expected TOO_SHORT, got %s", ve.Code)
	}
	if fake.callCount() != 0 {
		t.Errorf("invalid input must not reach llm")
	}
}

func TestClassifyJapaneseInquiry(t *testing.T) {
	fake := &fakeClassifier{result: llmResult(0.92)}
	h := newTestService(t, fake, ratelimit.Config{RequestsPerMinute: 100, Burst: 10})

	result, err := h.service.Classify(context.Background(), classifyInput("clf_ja", "アルミニウム部品500個の見積もりをお願いします"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DetectedLanguage != models.LanguageJA {
		t.Errorf("expected ja, got %s", result.DetectedLanguage)
	}
}

func TestClassifyWritesAuditRecord(t *testing.T) {
	fake := &fakeClassifier{result: llmResult(0.95)}
	h := newTestService(t, fake, ratelimit.Config{RequestsPerMinute: 100, Burst: 10})
	ctx := context.Background()

	result, err := h.service.Classify(ctx, classifyInput("clf_audit", "We need a quote for 1000 aluminum brackets"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 审计写入是异步的，轮询等待
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if record, err := h.audit.Get(ctx, result.ID); err == nil {
			if record.PrimaryCategory != result.PrimaryCategory {
				t.Errorf("audit record category mismatch")
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("audit record was not written")
}
