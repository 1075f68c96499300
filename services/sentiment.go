package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"playstore-analytics/models"
	"playstore-analytics/storage"
	"playstore-analytics/utils"
)

// FlaggedReviewHeader is the column order of the
// inconsistent_sentiment_reviews table.
var FlaggedReviewHeader = []string{"reviewId", "appId", "score", "content"}

// Lexicon holds the keyword lists used for polarity classification. The
// defaults cover the vocabulary actually seen in store reviews; a YAML file
// can replace either list for other domains.
type Lexicon struct {
	Negative []string `yaml:"negative"`
	Positive []string `yaml:"positive"`
}

// DefaultLexicon returns the built-in term lists.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Negative: []string{
			"bad", "terrible", "horrible", "awful", "worst", "scam",
			"refund", "bug", "broken", "crash", "doesn't work",
			"doesnt work", "waste", "useless",
		},
		Positive: []string{
			"great", "excellent", "amazing", "love", "awesome",
			"fantastic", "perfect", "very good", "works well", "helpful",
		},
	}
}

// LoadLexicon reads a YAML lexicon file. Lists absent from the file keep
// their defaults.
func LoadLexicon(path string) (Lexicon, error) {
	lex := DefaultLexicon()

	data, err := os.ReadFile(path)
	if err != nil {
		return lex, fmt.Errorf("sentiment: read lexicon %q: %w", path, err)
	}

	var file Lexicon
	if err := yaml.Unmarshal(data, &file); err != nil {
		return lex, fmt.Errorf("sentiment: parse lexicon %q: %w", path, err)
	}
	if len(file.Negative) > 0 {
		lex.Negative = file.Negative
	}
	if len(file.Positive) > 0 {
		lex.Positive = file.Positive
	}
	return lex, nil
}

// SentimentFlagger scans processed reviews for ratings that contradict the
// keyword-derived polarity of their text. Pure substring heuristics — this
// produces a diagnostic report, not a correction.
type SentimentFlagger struct {
	logger  *utils.Logger
	lexicon Lexicon
}

// NewSentimentFlagger creates a flagger with the given lexicon.
func NewSentimentFlagger(logger *utils.Logger, lexicon Lexicon) *SentimentFlagger {
	return &SentimentFlagger{logger: logger, lexicon: lexicon}
}

// Polarity classifies text as negative (-1), positive (+1) or neutral (0).
// A text matching both lists is neutral: mixed signals are not evidence of
// inconsistency.
func (f *SentimentFlagger) Polarity(text string) int {
	t := strings.ToLower(text)
	neg := containsAny(t, f.lexicon.Negative)
	pos := containsAny(t, f.lexicon.Positive)
	switch {
	case neg && !pos:
		return -1
	case pos && !neg:
		return 1
	default:
		return 0
	}
}

// IsContradictory reports whether the numeric score disagrees with the text
// polarity: negative text with score >= 4, or positive text with score <= 2.
// A nil score is never contradictory.
func (f *SentimentFlagger) IsContradictory(score *int64, content string) bool {
	if score == nil {
		return false
	}
	switch f.Polarity(content) {
	case -1:
		return *score >= 4
	case 1:
		return *score <= 2
	default:
		return false
	}
}

// Flag streams the processed reviews JSONL and returns one row per review
// whose rating contradicts its text.
func (f *SentimentFlagger) Flag(reviewsPath string) ([]models.FlaggedReview, error) {
	f.logger.Info("[sentiment] Scanning processed reviews from %s", reviewsPath)

	var flagged []models.FlaggedReview
	skipped, err := forEachJSONLine(reviewsPath, func(obj map[string]any) {
		score := numericScore(obj)
		content := asString(obj["content"])
		if !f.IsContradictory(score, content) {
			return
		}
		flagged = append(flagged, models.FlaggedReview{
			ReviewID: idString(obj["reviewId"]),
			AppID:    idString(obj["appId"]),
			Score:    *score,
			Content:  content,
		})
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		f.logger.Warn("[sentiment] Skipped %d malformed line(s)", skipped)
	}
	f.logger.Info("[sentiment] Flagged %d inconsistent review(s)", len(flagged))
	return flagged, nil
}

// WriteCSV writes the inconsistent_sentiment_reviews table.
func (f *SentimentFlagger) WriteCSV(rows []models.FlaggedReview, outPath string) error {
	f.logger.Info("[sentiment] Writing flagged reviews to %s", outPath)

	w, err := storage.NewCSVTableWriter(outPath, FlaggedReviewHeader)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, r := range rows {
		record := []string{
			r.ReviewID,
			r.AppID,
			strconv.FormatInt(r.Score, 10),
			r.Content,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Close()
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
