package services

import (
	"strconv"
	"strings"
	"time"
)

// isoLayout renders UTC timestamps with an explicit +00:00 offset, matching
// the format the downstream tables and dashboard expect.
const isoLayout = "2006-01-02T15:04:05-07:00"

// reviewTimestampLayout is the exact format review sources use for `at`.
const reviewTimestampLayout = "2006-01-02 15:04:05"

// humanDateLayouts are tried in order by ParseHumanDate.
var humanDateLayouts = []string{
	"2006-01-02 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
}

// CoerceInt converts a loosely-typed value to an integer. JSON numbers come
// in as float64 and get truncated; numeric strings are parsed; anything
// else (including fractional strings like "4.5") yields nil, never an error.
func CoerceInt(v any) *int64 {
	switch n := v.(type) {
	case nil:
		return nil
	case int64:
		return &n
	case int:
		i := int64(n)
		return &i
	case float64:
		i := int64(n)
		return &i
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil
		}
		return &i
	default:
		return nil
	}
}

// EpochToISO converts Unix seconds to an ISO-8601 UTC string. Nil or zero
// epochs yield nil rather than the 1970 sentinel.
func EpochToISO(epoch *int64) *string {
	if epoch == nil || *epoch == 0 {
		return nil
	}
	s := time.Unix(*epoch, 0).UTC().Format(isoLayout)
	return &s
}

// ParseHumanDate parses date strings seen in store metadata, trying the
// known layouts in order and normalizing to ISO-8601 UTC. On failure it
// returns the original trimmed string, NOT nil — downstream columns
// therefore mix ISO strings with raw source strings. That mirrors the
// historical behavior of this pipeline and is kept deliberately; see
// DESIGN.md before changing it. Empty input yields nil.
func ParseHumanDate(s string) *string {
	if s == "" {
		return nil
	}
	for _, layout := range humanDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			iso := t.UTC().Format(isoLayout)
			return &iso
		}
	}
	trimmed := strings.TrimSpace(s)
	return &trimmed
}

// ParseReviewTimestamp parses a review `at` value, assumed UTC. The exact
// review layout yields both an ISO string and a Unix epoch; anything else
// goes through the human-date fallback with no epoch.
func ParseReviewTimestamp(raw string) (*string, *int64) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(reviewTimestampLayout, raw); err == nil {
		t = t.UTC()
		iso := t.Format(isoLayout)
		epoch := t.Unix()
		return &iso, &epoch
	}
	return ParseHumanDate(raw), nil
}
