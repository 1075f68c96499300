package services

import (
	"sort"
	"strings"

	"playstore-analytics/models"
)

// Candidate key names per canonical review field, in priority order. The
// review sources disagree on naming (Play Store dumps, CSV exports, older
// snapshots), so every record is reconciled through this table.
var reviewFieldCandidates = map[string][]string{
	"reviewId":             {"reviewId", "review_id", "id"},
	"userName":             {"userName", "user_name", "author", "author_name"},
	"userImage":            {"userImage", "user_image", "avatar"},
	"content":              {"content", "review_text", "text", "body"},
	"score":                {"score", "rating", "stars"},
	"thumbsUpCount":        {"thumbsUpCount", "likes", "helpful_count"},
	"reviewCreatedVersion": {"reviewCreatedVersion", "review_version"},
	"at":                   {"at", "timestamp", "created_at"},
	"replyContent":         {"replyContent", "reply_text"},
	"repliedAt":            {"repliedAt", "reply_timestamp"},
	"appVersion":           {"appVersion", "app_version"},
	"appId":                {"appId", "app_id"},
}

// FirstPresent returns the first non-nil value found in the mapping for the
// candidate names, matched case-insensitively, or nil when none is present.
// Keys differing only in case resolve deterministically: an exact-case match
// wins, otherwise the lexicographically smallest key. Pure lookup, no side
// effects on the input record.
func FirstPresent(record map[string]any, candidates []string) any {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range candidates {
		if v, ok := record[name]; ok && v != nil {
			return v
		}
		want := strings.ToLower(name)
		for _, k := range keys {
			if v := record[k]; v != nil && strings.ToLower(k) == want {
				return v
			}
		}
	}
	return nil
}

// NormalizeReviewFields maps one raw review record onto the canonical key
// set. Unrecognized input fields are dropped; missing canonical fields come
// out nil.
func NormalizeReviewFields(record models.RawReview) map[string]any {
	out := make(map[string]any, len(reviewFieldCandidates))
	for field, candidates := range reviewFieldCandidates {
		out[field] = FirstPresent(record, candidates)
	}
	return out
}
