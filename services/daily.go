package services

import (
	"sort"
	"strconv"
	"time"

	"playstore-analytics/models"
	"playstore-analytics/storage"
	"playstore-analytics/utils"
)

// DailyMetricsHeader is the column order of the daily_metrics table.
var DailyMetricsHeader = []string{"date", "daily_num_reviews", "daily_avg_rating"}

// DailyMetricsService computes per-calendar-day (UTC) review statistics from
// the processed reviews file in a single streaming pass.
type DailyMetricsService struct {
	logger *utils.Logger
}

// NewDailyMetricsService creates a DailyMetricsService with the given logger.
func NewDailyMetricsService(logger *utils.Logger) *DailyMetricsService {
	return &DailyMetricsService{logger: logger}
}

// Aggregate streams the processed reviews JSONL and returns one row per
// calendar date, sorted ascending. Reviews whose date cannot be determined
// are skipped.
func (s *DailyMetricsService) Aggregate(reviewsPath string) ([]models.DailyMetricRow, error) {
	s.logger.Info("[daily] Reading processed reviews from %s", reviewsPath)

	daily := make(map[string]*models.DailyAggregate)

	skipped, err := forEachJSONLine(reviewsPath, func(obj map[string]any) {
		date := extractDate(obj)
		if date == "" {
			return
		}

		agg, ok := daily[date]
		if !ok {
			agg = &models.DailyAggregate{Date: date}
			daily[date] = agg
		}
		agg.CountReviews++
		if score := numericScore(obj); score != nil {
			agg.CountRated++
			agg.SumScores += float64(*score)
		}
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		s.logger.Warn("[daily] Skipped %d malformed line(s)", skipped)
	}
	s.logger.Info("[daily] Computed daily metrics for %d dates", len(daily))

	dates := make([]string, 0, len(daily))
	for d := range daily {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	rows := make([]models.DailyMetricRow, 0, len(dates))
	for _, d := range dates {
		agg := daily[d]
		row := models.DailyMetricRow{Date: d, NumReviews: agg.CountReviews}
		if agg.CountRated > 0 {
			avg := Round3(agg.SumScores / float64(agg.CountRated))
			row.AvgRating = &avg
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// extractDate pulls the YYYY-MM-DD calendar date out of a processed review,
// preferring at_iso. An ISO-shaped prefix is sliced directly; otherwise the
// raw review timestamp layout is tried.
func extractDate(obj map[string]any) string {
	raw := reviewDate(obj)
	if raw == "" {
		return ""
	}

	if len(raw) >= 10 && raw[4] == '-' && raw[7] == '-' {
		return raw[:10]
	}

	if t, err := time.Parse(reviewTimestampLayout, raw); err == nil {
		return t.UTC().Format("2006-01-02")
	}
	return ""
}

// WriteCSV writes the daily_metrics table. Days with no rated reviews get an
// empty average cell.
func (s *DailyMetricsService) WriteCSV(rows []models.DailyMetricRow, outPath string) error {
	s.logger.Info("[daily] Writing daily metrics to %s", outPath)

	w, err := storage.NewCSVTableWriter(outPath, DailyMetricsHeader)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, r := range rows {
		record := []string{
			r.Date,
			strconv.FormatInt(r.NumReviews, 10),
			formatOptional(r.AvgRating),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Close()
}
