package services

import (
	"sort"
	"strconv"

	"playstore-analytics/models"
	"playstore-analytics/storage"
	"playstore-analytics/utils"
)

// AppKPIHeader is the column order of the app_kpis table.
var AppKPIHeader = []string{
	"appId", "num_reviews", "avg_rating", "low_rating_pct",
	"first_review_date", "last_review_date",
}

// KPIService computes per-app summary statistics from the processed reviews
// file in a single streaming pass.
type KPIService struct {
	logger *utils.Logger
}

// NewKPIService creates a KPIService with the given logger.
func NewKPIService(logger *utils.Logger) *KPIService {
	return &KPIService{logger: logger}
}

// Aggregate streams the processed reviews JSONL and returns one finalized
// row per distinct appId, sorted ascending. Aggregates are created lazily on
// the first review seen for an app and live only for this pass. Numeric ids
// group under their decimal rendering; records without an appId are skipped.
func (s *KPIService) Aggregate(reviewsPath string) ([]models.AppKPIRow, error) {
	s.logger.Info("[kpis] Reading processed reviews from %s", reviewsPath)

	aggregates := make(map[string]*models.AppAggregate)

	skipped, err := forEachJSONLine(reviewsPath, func(obj map[string]any) {
		appID := idString(obj["appId"])
		if appID == "" {
			return
		}

		agg, ok := aggregates[appID]
		if !ok {
			agg = &models.AppAggregate{AppID: appID}
			aggregates[appID] = agg
		}
		agg.Update(numericScore(obj), reviewDate(obj))
	})
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		s.logger.Warn("[kpis] Skipped %d malformed line(s)", skipped)
	}
	s.logger.Info("[kpis] Computed aggregates for %d apps", len(aggregates))

	appIDs := make([]string, 0, len(aggregates))
	for id := range aggregates {
		appIDs = append(appIDs, id)
	}
	sort.Strings(appIDs)

	rows := make([]models.AppKPIRow, 0, len(appIDs))
	for _, id := range appIDs {
		rows = append(rows, finalizeApp(aggregates[id]))
	}
	return rows, nil
}

// finalizeApp turns an accumulator into an output row. Rating-derived
// metrics stay nil when the app never saw a rated review.
func finalizeApp(agg *models.AppAggregate) models.AppKPIRow {
	row := models.AppKPIRow{
		AppID:           agg.AppID,
		NumReviews:      agg.NumReviews,
		FirstReviewDate: agg.FirstDate,
		LastReviewDate:  agg.LastDate,
	}
	if agg.RatedReviews > 0 {
		avg := Round3(agg.ScoreSum / float64(agg.RatedReviews))
		pct := Round3(float64(agg.LowRatedReviews) / float64(agg.RatedReviews) * 100.0)
		row.AvgRating = &avg
		row.LowRatingPct = &pct
	}
	return row
}

// WriteCSV writes the app_kpis table. Nil metrics become empty cells.
func (s *KPIService) WriteCSV(rows []models.AppKPIRow, outPath string) error {
	s.logger.Info("[kpis] Writing app KPIs to %s", outPath)

	w, err := storage.NewCSVTableWriter(outPath, AppKPIHeader)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, r := range rows {
		record := []string{
			r.AppID,
			strconv.FormatInt(r.NumReviews, 10),
			formatOptional(r.AvgRating),
			formatOptional(r.LowRatingPct),
			r.FirstReviewDate,
			r.LastReviewDate,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Close()
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return FormatDecimal(*v)
}
