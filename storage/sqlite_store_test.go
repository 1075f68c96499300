package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playstore-analytics/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "metrics.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreAppKPIs(t *testing.T) {
	store := newTestStore(t)

	avg := 3.0
	pct := 50.0
	rows := []models.AppKPIRow{
		{AppID: "com.a", NumReviews: 2, AvgRating: &avg, LowRatingPct: &pct,
			FirstReviewDate: "2025-01-02", LastReviewDate: "2025-01-05"},
		{AppID: "com.b", NumReviews: 1},
	}
	require.NoError(t, store.StoreAppKPIs(rows))

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM app_kpis").Scan(&count))
	assert.Equal(t, 2, count)

	var gotAvg *float64
	var gotReviews int64
	require.NoError(t, store.db.QueryRow(
		"SELECT avg_rating, num_reviews FROM app_kpis WHERE app_id = ?", "com.a",
	).Scan(&gotAvg, &gotReviews))
	require.NotNil(t, gotAvg)
	assert.Equal(t, 3.0, *gotAvg)
	assert.Equal(t, int64(2), gotReviews)

	// Unrated app stores NULL, not zero.
	require.NoError(t, store.db.QueryRow(
		"SELECT avg_rating FROM app_kpis WHERE app_id = ?", "com.b",
	).Scan(&gotAvg))
	assert.Nil(t, gotAvg)
}

func TestSQLiteStoreReplacesOnRerun(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.StoreAppKPIs([]models.AppKPIRow{
		{AppID: "com.a", NumReviews: 2},
		{AppID: "com.b", NumReviews: 1},
	}))
	require.NoError(t, store.StoreAppKPIs([]models.AppKPIRow{
		{AppID: "com.c", NumReviews: 9},
	}))

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM app_kpis").Scan(&count))
	assert.Equal(t, 1, count, "a re-run replaces the table, it does not append")
}

func TestSQLiteStoreDailyMetrics(t *testing.T) {
	store := newTestStore(t)

	avg := 3.0
	require.NoError(t, store.StoreDailyMetrics([]models.DailyMetricRow{
		{Date: "2025-01-01", NumReviews: 2, AvgRating: &avg},
		{Date: "2025-01-02", NumReviews: 1},
	}))

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM daily_metrics").Scan(&count))
	assert.Equal(t, 2, count)

	var gotAvg *float64
	require.NoError(t, store.db.QueryRow(
		"SELECT daily_avg_rating FROM daily_metrics WHERE date = ?", "2025-01-02",
	).Scan(&gotAvg))
	assert.Nil(t, gotAvg)
}
