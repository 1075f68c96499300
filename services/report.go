package services

import (
	"fmt"
	"sort"
	"strings"

	"playstore-analytics/models"
	"playstore-analytics/utils"
)

// ReportService builds and prints the post-run analytics summary over the
// finalized metric tables.
type ReportService struct {
	logger *utils.Logger
}

// NewReportService creates a ReportService with the given logger.
func NewReportService(logger *utils.Logger) *ReportService {
	return &ReportService{logger: logger}
}

// Generate derives the run summary from the finalized rows.
func (s *ReportService) Generate(appsProcessed int, kpis []models.AppKPIRow,
	daily []models.DailyMetricRow, flagged int) *models.PipelineReport {

	report := &models.PipelineReport{
		AppsProcessed:  appsProcessed,
		DistinctApps:   len(kpis),
		DistinctDates:  len(daily),
		FlaggedReviews: flagged,
	}

	var weightedSum float64
	var ratedWeight int64
	var rated []models.AppKPIRow

	for _, row := range kpis {
		report.TotalReviews += row.NumReviews
		if row.AvgRating != nil {
			weightedSum += *row.AvgRating * float64(row.NumReviews)
			ratedWeight += row.NumReviews
			rated = append(rated, row)
		}
		if row.FirstReviewDate != "" &&
			(report.FirstDate == "" || row.FirstReviewDate < report.FirstDate) {
			report.FirstDate = row.FirstReviewDate
		}
		if row.LastReviewDate > report.LastDate {
			report.LastDate = row.LastReviewDate
		}
	}
	if ratedWeight > 0 {
		report.OverallAvgRating = Round3(weightedSum / float64(ratedWeight))
	}

	// Top 5 apps by average rating
	sort.Slice(rated, func(i, j int) bool {
		return *rated[i].AvgRating > *rated[j].AvgRating
	})
	if len(rated) > 5 {
		rated = rated[:5]
	}
	report.TopRated = rated

	// Top 5 busiest days
	busiest := make([]models.DailyMetricRow, len(daily))
	copy(busiest, daily)
	sort.Slice(busiest, func(i, j int) bool {
		return busiest[i].NumReviews > busiest[j].NumReviews
	})
	if len(busiest) > 5 {
		busiest = busiest[:5]
	}
	report.BusiestDays = busiest

	return report
}

// Print renders the report to stdout.
func (s *ReportService) Print(r *models.PipelineReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 PLAY STORE PIPELINE SUMMARY\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Apps processed    : \033[1m%d\033[0m\n", r.AppsProcessed)
	fmt.Printf("  Reviews processed : \033[1m%d\033[0m\n", r.TotalReviews)
	fmt.Printf("  Apps with reviews : \033[1m%d\033[0m\n", r.DistinctApps)
	fmt.Printf("  Active dates      : \033[1m%d\033[0m\n", r.DistinctDates)
	if r.FirstDate != "" {
		fmt.Printf("  Review span       : %s → %s\n", r.FirstDate, r.LastDate)
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Ratings\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.OverallAvgRating > 0 {
		fmt.Printf("  Weighted average rating : \033[1;32m%.3f ★\033[0m\n", r.OverallAvgRating)
	} else {
		fmt.Printf("  No rated reviews\n")
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Top 5 Apps by Average Rating\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.TopRated) == 0 {
		fmt.Printf("  No rated apps\n")
	} else {
		for i, row := range r.TopRated {
			fmt.Printf("  \033[1m%d.\033[0m %-42s \033[1;32m%.3f ★\033[0m (%d reviews)\n",
				i+1, truncate(row.AppID, 40), *row.AvgRating, row.NumReviews)
		}
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Busiest Days\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.BusiestDays) == 0 {
		fmt.Printf("  No dated reviews\n")
	} else {
		max := r.BusiestDays[0].NumReviews
		for _, day := range r.BusiestDays {
			width := int64(0)
			if max > 0 {
				width = day.NumReviews * 30 / max
			}
			bar := strings.Repeat("█", int(width))
			fmt.Printf("  %s %s (%d)\n", day.Date, bar, day.NumReviews)
		}
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Sentiment Consistency\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Contradictory reviews flagged : \033[1;31m%d\033[0m\n", r.FlaggedReviews)

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
