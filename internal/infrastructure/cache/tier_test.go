package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"inquiry-classifier/internal/domain/models"
	"inquiry-classifier/pkg/logger"
)

func newTestTier(t *testing.T) (*TierManager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	manager := NewTierManager(store, TierConfig{
		KeyPrefix: "classification:",
		HighTTL:   24 * time.Hour,
		MediumTTL: time.Hour,
	}, logger.Default())
	return manager, store
}

func testResult(confidence float64) *models.ClassificationResult {
	return &models.ClassificationResult{
		ID:              "clf_test",
		PrimaryCategory: models.CategoryQuoteRequest,
		Confidence:      confidence,
		AllCategories: []models.CategoryScore{
			{Category: models.CategoryQuoteRequest, Confidence: confidence},
		},
		DetectedLanguage: models.LanguageEN,
		ProcessedAt:      time.Now(),
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("We need a quote for 1000 aluminum brackets")
	b := Fingerprint("  WE NEED A QUOTE FOR 1000 ALUMINUM BRACKETS  ")
	if a != b {
		t.Errorf("case and whitespace variants must share a fingerprint")
	}

	c := Fingerprint("completely different inquiry text here")
	if a == c {
		t.Errorf("different texts must not collide")
	}

	if len(a) != 64 {
		t.Errorf("expected hex sha256 fingerprint, got length %d", len(a))
	}
}

func TestTierStoreAndLookup(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestTier(t)

	fp := Fingerprint("high confidence inquiry")
	manager.StoreResult(ctx, fp, testResult(0.95))

	cached, hit := manager.Lookup(ctx, fp)
	if !hit {
		t.Fatalf("expected cache hit for high confidence result")
	}
	if cached.PrimaryCategory != models.CategoryQuoteRequest {
		t.Errorf("unexpected cached category: %s", cached.PrimaryCategory)
	}
}

func TestTierSkipsLowConfidence(t *testing.T) {
	ctx := context.Background()
	manager, store := newTestTier(t)

	fp := Fingerprint("low confidence inquiry")
	manager.StoreResult(ctx, fp, testResult(0.5))

	if _, hit := manager.Lookup(ctx, fp); hit {
		t.Errorf("low confidence results must not be cached")
	}
	if store.Len() != 0 {
		t.Errorf("store should be empty, has %d entries", store.Len())
	}
}

func TestTierSkipsFallbackResults(t *testing.T) {
	ctx := context.Background()
	manager, store := newTestTier(t)

	result := testResult(0.95)
	result.FallbackUsed = true

	manager.StoreResult(ctx, Fingerprint("fallback inquiry"), result)
	if store.Len() != 0 {
		t.Errorf("fallback results must not be cached")
	}
}

func TestTierTTLBands(t *testing.T) {
	manager, _ := newTestTier(t)

	tests := []struct {
		name string
		band models.ConfidenceBand
		want time.Duration
	}{
		{name: "high band gets long ttl", band: models.BandHigh, want: 24 * time.Hour},
		{name: "medium band gets short ttl", band: models.BandMedium, want: time.Hour},
		{name: "low band not cached", band: models.BandLow, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := manager.TTLFor(tt.band); got != tt.want {
				t.Errorf("TTLFor(%s) = %v, want %v", tt.band, got, tt.want)
			}
		})
	}
}

func TestTierInvalidate(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestTier(t)

	fp := Fingerprint("inquiry to invalidate")
	manager.StoreResult(ctx, fp, testResult(0.95))

	if err := manager.Invalidate(ctx, fp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, hit := manager.Lookup(ctx, fp); hit {
		t.Errorf("expected miss after invalidation")
	}
}

func TestDoOnceCollapsesConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestTier(t)

	var calls int32
	release := make(chan struct{})
	fn := func() (*models.ClassificationResult, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return testResult(0.9), nil
	}

	const waiters = 8
	var wg sync.WaitGroup
	results := make([]*models.ClassificationResult, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			result, _, err := manager.DoOnce(ctx, "same-fingerprint", fn)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results[idx] = result
		}(i)
	}

	// 等待首个调用方进入 fn 后放行
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected exactly 1 underlying call, got %d", got)
	}
	for i, result := range results {
		if result == nil {
			t.Errorf("waiter %d got nil result", i)
		}
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	entry := &models.CacheEntry{Fingerprint: "fp", Result: testResult(0.95)}
	if err := store.Set(ctx, "expired", entry, -time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Set(ctx, "live", entry, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if removed := store.Sweep(); removed != 1 {
		t.Errorf("expected 1 entry swept, got %d", removed)
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 live entry, got %d", store.Len())
	}
}
