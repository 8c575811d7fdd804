package events

import (
	"testing"

	"inquiry-classifier/internal/domain/models"
)

func TestPublishSubscribeOrdering(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("clf_1")
	defer cancel()

	hub.PublishStart("clf_1")
	hub.PublishProgress("clf_1", StageCacheLookup, 20)
	hub.PublishProgress("clf_1", StageLLMCall, 60)
	hub.PublishComplete("clf_1", &models.ClassificationResult{ID: "clf_1"})

	wantTypes := []EventType{TypeStart, TypeProgress, TypeProgress, TypeComplete}
	for i, want := range wantTypes {
		event := <-ch
		if event.Type != want {
			t.Errorf("event %d: expected %s, got %s", i, want, event.Type)
		}
	}

	final := EventType("")
	select {
	case event := <-ch:
		final = event.Type
	default:
	}
	if final != "" {
		t.Errorf("unexpected extra event: %s", final)
	}
}

func TestSubscribersAreIsolatedByInquiry(t *testing.T) {
	hub := NewHub()
	chA, cancelA := hub.Subscribe("clf_a")
	defer cancelA()
	chB, cancelB := hub.Subscribe("clf_b")
	defer cancelB()

	hub.PublishStart("clf_a")

	if event := <-chA; event.InquiryID != "clf_a" {
		t.Errorf("expected event for clf_a, got %s", event.InquiryID)
	}

	select {
	case event := <-chB:
		t.Errorf("clf_b should not receive clf_a events, got %s", event.Type)
	default:
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe("clf_slow")
	defer cancel()

	// 无人消费，超出缓冲后发布端仍不阻塞
	for i := 0; i < subscriberBuffer*2; i++ {
		hub.PublishProgress("clf_slow", StageLLMCall, i)
	}
}

func TestCancelClosesChannel(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("clf_done")
	cancel()

	if _, ok := <-ch; ok {
		t.Errorf("channel should be closed after cancel")
	}

	// 取消后发布不应panic
	hub.PublishStart("clf_done")
}

func TestCompleteEventCarriesResult(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("clf_r")
	defer cancel()

	result := &models.ClassificationResult{
		ID:              "clf_r",
		PrimaryCategory: models.CategoryQuoteRequest,
		Confidence:      0.95,
	}
	hub.PublishComplete("clf_r", result)

	event := <-ch
	if event.Progress != 100 {
		t.Errorf("complete event should carry progress 100, got %d", event.Progress)
	}
	if event.Result == nil || event.Result.PrimaryCategory != models.CategoryQuoteRequest {
		t.Errorf("complete event should carry the result")
	}
}
