package models

// AppAggregate accumulates per-app review statistics during a single
// streaming pass. Created lazily on the first review seen for an appId,
// finalized into an AppKPIRow at the end of the pass, never persisted
// across runs.
type AppAggregate struct {
	AppID           string
	NumReviews      int64
	RatedReviews    int64
	ScoreSum        float64
	LowRatedReviews int64
	FirstDate       string
	LastDate        string
}

// Update folds one review into the aggregate. Dates are compared as plain
// strings, which orders chronologically because they are zero-padded ISO.
func (a *AppAggregate) Update(score *int64, dateStr string) {
	a.NumReviews++

	if score != nil {
		a.RatedReviews++
		a.ScoreSum += float64(*score)
		if *score <= 2 {
			a.LowRatedReviews++
		}
	}

	if dateStr != "" {
		if a.FirstDate == "" || dateStr < a.FirstDate {
			a.FirstDate = dateStr
		}
		if a.LastDate == "" || dateStr > a.LastDate {
			a.LastDate = dateStr
		}
	}
}

// AppKPIRow is one finalized row of the app_kpis table. AvgRating and
// LowRatingPct are nil when the app had no rated reviews.
type AppKPIRow struct {
	AppID           string
	NumReviews      int64
	AvgRating       *float64
	LowRatingPct    *float64
	FirstReviewDate string
	LastReviewDate  string
}

// DailyAggregate accumulates review statistics for one UTC calendar date.
type DailyAggregate struct {
	Date         string
	CountReviews int64
	CountRated   int64
	SumScores    float64
}

// DailyMetricRow is one finalized row of the daily_metrics table.
// AvgRating is nil when no review that day carried a score.
type DailyMetricRow struct {
	Date       string
	NumReviews int64
	AvgRating  *float64
}

// FlaggedReview is one row of the inconsistent_sentiment_reviews report:
// a review whose keyword-derived text polarity contradicts its star score.
type FlaggedReview struct {
	ReviewID string
	AppID    string
	Score    int64
	Content  string
}

// PipelineReport holds the post-run analytics printed after a pipeline run.
type PipelineReport struct {
	AppsProcessed    int
	TotalReviews     int64
	RatedReviews     int64
	OverallAvgRating float64
	DistinctApps     int
	DistinctDates    int
	FirstDate        string
	LastDate         string
	TopRated         []AppKPIRow
	BusiestDays      []DailyMetricRow
	FlaggedReviews   int
}
