package services

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"playstore-analytics/models"
	"playstore-analytics/utils"
)

// ReviewTransformer streams raw reviews (JSONL or CSV) through the field
// normalizer and emits canonical JSONL. One record is in memory at a time;
// unlike the app transformer, review volume is unbounded.
type ReviewTransformer struct {
	logger *utils.Logger

	// MaxLines caps the number of emitted records when > 0, for partial
	// and test runs.
	MaxLines int
}

// NewReviewTransformer creates a ReviewTransformer with the given logger.
func NewReviewTransformer(logger *utils.Logger) *ReviewTransformer {
	return &ReviewTransformer{logger: logger}
}

// Transform reads the raw reviews file and writes canonical JSONL to
// outPath. Output goes to a temp file first and is renamed into place on
// success, so an interrupted run never leaves a partial file visible.
// Returns the number of records written.
func (t *ReviewTransformer) Transform(inPath, outPath string) (int, error) {
	t.logger.Info("[reviews] Reading reviews from %s, writing processed JSONL to %s", inPath, outPath)

	in, err := os.Open(inPath)
	if err != nil {
		return 0, fmt.Errorf("reviews: raw reviews file not found: %q: %w", inPath, err)
	}
	defer in.Close()

	tmpPath := outPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("reviews: create temp output %q: %w", tmpPath, err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	count := 0
	skipped := 0
	emit := func(raw models.RawReview) error {
		if err := enc.Encode(t.normalizeOne(raw)); err != nil {
			return fmt.Errorf("reviews: encode record: %w", err)
		}
		count++
		return nil
	}

	if strings.HasSuffix(strings.ToLower(inPath), ".csv") {
		skipped, err = t.streamCSV(in, emit)
	} else {
		skipped, err = t.streamJSONL(in, emit)
	}
	if err != nil {
		return count, err
	}

	if err := w.Flush(); err != nil {
		return count, fmt.Errorf("reviews: flush output: %w", err)
	}
	if err := out.Close(); err != nil {
		return count, fmt.Errorf("reviews: close output: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return count, fmt.Errorf("reviews: rename %q to %q: %w", tmpPath, outPath, err)
	}

	if skipped > 0 {
		t.logger.Warn("[reviews] Skipped %d malformed record(s)", skipped)
	}
	t.logger.Info("[reviews] Wrote %d reviews", count)
	return count, nil
}

// normalizeOne maps one raw record onto the canonical shape: field names
// reconciled, timestamps resolved to an ISO/epoch pair, counts coerced to
// integer or null.
func (t *ReviewTransformer) normalizeOne(raw models.RawReview) models.ProcessedReview {
	norm := NormalizeReviewFields(raw)

	rec := models.ProcessedReview{
		ReviewID:             norm["reviewId"],
		UserName:             norm["userName"],
		UserImage:            norm["userImage"],
		Content:              norm["content"],
		ReviewCreatedVersion: norm["reviewCreatedVersion"],
		At:                   norm["at"],
		ReplyContent:         norm["replyContent"],
		RepliedAt:            norm["repliedAt"],
		AppVersion:           norm["appVersion"],
		AppID:                norm["appId"],
	}

	if at, ok := norm["at"].(string); ok && at != "" {
		rec.AtISO, rec.AtEpoch = ParseReviewTimestamp(at)
	}

	rec.Score = coerceScore(norm["score"])
	rec.ThumbsUpCount = CoerceInt(norm["thumbsUpCount"])

	return rec
}

// coerceScore coerces to integer and additionally drops values outside the
// 1..5 star range, so a processed score is always a valid rating or null.
func coerceScore(v any) *int64 {
	score := CoerceInt(v)
	if score != nil && (*score < 1 || *score > 5) {
		return nil
	}
	return score
}

// streamJSONL yields one record per line. A line that is not valid JSON
// gets one brace-extraction attempt (some dumps wrap objects in a prefix or
// suffix); if that also fails the line is skipped and counted.
func (t *ReviewTransformer) streamJSONL(r io.Reader, emit func(models.RawReview) error) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	count := 0
	skipped := 0
	for scanner.Scan() {
		if t.MaxLines > 0 && count >= t.MaxLines {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var obj models.RawReview
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			obj = extractBracedObject(line)
			if obj == nil {
				skipped++
				continue
			}
		}
		if err := emit(obj); err != nil {
			return skipped, err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return skipped, fmt.Errorf("reviews: scan input: %w", err)
	}
	return skipped, nil
}

// extractBracedObject retries a malformed line using the outermost braces.
func extractBracedObject(line string) models.RawReview {
	start := strings.Index(line, "{")
	end := strings.LastIndex(line, "}")
	if start < 0 || end <= start {
		return nil
	}
	var obj models.RawReview
	if err := json.Unmarshal([]byte(line[start:end+1]), &obj); err != nil {
		return nil
	}
	return obj
}

// streamCSV yields one record per data row, keyed by the header row.
func (t *ReviewTransformer) streamCSV(r io.Reader, emit func(models.RawReview) error) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reviews: read csv header: %w", err)
	}

	count := 0
	skipped := 0
	for {
		if t.MaxLines > 0 && count >= t.MaxLines {
			break
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		obj := make(models.RawReview, len(header))
		for i, col := range header {
			if i < len(row) {
				obj[col] = row[i]
			}
		}
		if err := emit(obj); err != nil {
			return skipped, err
		}
		count++
	}
	return skipped, nil
}
