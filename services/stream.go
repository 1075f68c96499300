package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// forEachJSONLine streams a processed JSONL file one decoded object at a
// time. Malformed lines are skipped and counted, never fatal. Every
// aggregation pass in this package runs through here, so memory stays
// constant in the number of reviews.
func forEachJSONLine(path string, fn func(map[string]any)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("stream: input file not found: %q: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	skipped := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			skipped++
			continue
		}
		fn(obj)
	}
	if err := scanner.Err(); err != nil {
		return skipped, fmt.Errorf("stream: scan %q: %w", path, err)
	}
	return skipped, nil
}

// numericScore reads the `score` field of a processed review object. The
// transformer guarantees it is a JSON number or null; anything else counts
// as unrated.
func numericScore(obj map[string]any) *int64 {
	switch n := obj["score"].(type) {
	case float64:
		v := int64(n)
		return &v
	default:
		return nil
	}
}

// idString renders an identifier field for grouping and reporting. Processed
// files carry string ids, but older dumps sometimes hold numbers; those group
// under their decimal rendering rather than being dropped.
func idString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// reviewDate returns the best available date string for a processed review,
// preferring the normalized at_iso over the raw at.
func reviewDate(obj map[string]any) string {
	if s, ok := obj["at_iso"].(string); ok && s != "" {
		return s
	}
	if s, ok := obj["at"].(string); ok {
		return s
	}
	return ""
}

// Round3 rounds to three decimal places, the precision of the metric tables.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// FormatDecimal renders a rounded metric for CSV: minimal digits, but always
// at least one decimal place so averages read as "3.0" rather than "3".
func FormatDecimal(v float64) string {
	s := strconv.FormatFloat(Round3(v), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
