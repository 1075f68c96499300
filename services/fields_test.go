package services

import (
	"testing"

	"playstore-analytics/models"
)

func TestFirstPresentPriorityOrder(t *testing.T) {
	record := map[string]any{
		"rating": 4,
		"stars":  5,
	}
	got := FirstPresent(record, []string{"score", "rating", "stars"})
	if got != 4 {
		t.Errorf("FirstPresent = %v; want 4 (rating outranks stars)", got)
	}
}

func TestFirstPresentCaseInsensitive(t *testing.T) {
	record := map[string]any{"REVIEW_TEXT": "nice"}
	got := FirstPresent(record, []string{"content", "review_text"})
	if got != "nice" {
		t.Errorf("FirstPresent = %v; want %q", got, "nice")
	}
}

func TestFirstPresentCaseCollisionDeterministic(t *testing.T) {
	// JSON allows keys differing only in case; the resolution must not
	// depend on map iteration order.
	exact := map[string]any{"Score": 5, "score": 3}
	folded := map[string]any{"SCORE": 5, "Score": 3}
	for i := 0; i < 200; i++ {
		if got := FirstPresent(exact, []string{"score", "rating"}); got != 3 {
			t.Fatalf("FirstPresent = %v; want 3 (exact-case key wins)", got)
		}
		if got := FirstPresent(folded, []string{"score", "rating"}); got != 5 {
			t.Fatalf("FirstPresent = %v; want 5 (smallest key wins)", got)
		}
	}
}

func TestFirstPresentSkipsNil(t *testing.T) {
	record := map[string]any{
		"content": nil,
		"text":    "body here",
	}
	got := FirstPresent(record, []string{"content", "review_text", "text"})
	if got != "body here" {
		t.Errorf("FirstPresent = %v; want %q", got, "body here")
	}
}

func TestFirstPresentAbsent(t *testing.T) {
	record := map[string]any{"unrelated": 1}
	if got := FirstPresent(record, []string{"score", "rating"}); got != nil {
		t.Errorf("FirstPresent = %v; want nil", got)
	}
}

func TestNormalizeReviewFieldsSynonyms(t *testing.T) {
	raw := models.RawReview{
		"review_id":  "r1",
		"author":     "Sam",
		"body":       "works well",
		"stars":      5,
		"likes":      3,
		"created_at": "2025-11-08 13:54:14",
		"app_id":     "com.example.app",
	}

	norm := NormalizeReviewFields(raw)

	tests := []struct {
		field string
		want  any
	}{
		{"reviewId", "r1"},
		{"userName", "Sam"},
		{"content", "works well"},
		{"score", 5},
		{"thumbsUpCount", 3},
		{"at", "2025-11-08 13:54:14"},
		{"appId", "com.example.app"},
		{"userImage", nil},
		{"replyContent", nil},
	}
	for _, tt := range tests {
		if got := norm[tt.field]; got != tt.want {
			t.Errorf("norm[%q] = %v; want %v", tt.field, got, tt.want)
		}
	}
}

func TestNormalizeReviewFieldsDropsUnknownKeys(t *testing.T) {
	norm := NormalizeReviewFields(models.RawReview{"totally_unknown": 1, "content": "x"})
	if _, ok := norm["totally_unknown"]; ok {
		t.Error("unknown field should not survive normalization")
	}
	if len(norm) != len(reviewFieldCandidates) {
		t.Errorf("normalized record has %d keys; want %d", len(norm), len(reviewFieldCandidates))
	}
}
