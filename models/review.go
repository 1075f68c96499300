package models

// RawReview is one review record as it arrives from the store, before any
// field-name reconciliation. Sources disagree on key names and casing, so
// no schema is enforced here.
type RawReview map[string]any

// ProcessedReview is the canonical review shape written to the processed
// JSONL file. Pass-through fields keep whatever JSON type the source used;
// absence is encoded as null. Score and ThumbsUpCount are guaranteed to be
// integers or null, never strings.
type ProcessedReview struct {
	ReviewID             any     `json:"reviewId"`
	UserName             any     `json:"userName"`
	UserImage            any     `json:"userImage"`
	Content              any     `json:"content"`
	Score                *int64  `json:"score"`
	ThumbsUpCount        *int64  `json:"thumbsUpCount"`
	ReviewCreatedVersion any     `json:"reviewCreatedVersion"`
	At                   any     `json:"at"`
	AtISO                *string `json:"at_iso"`
	AtEpoch              *int64  `json:"at_epoch"`
	ReplyContent         any     `json:"replyContent"`
	RepliedAt            any     `json:"repliedAt"`
	AppVersion           any     `json:"appVersion"`
	AppID                any     `json:"appId"`
}
