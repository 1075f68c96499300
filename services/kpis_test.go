package services

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSONL(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reviews_processed.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func TestKPIAggregate(t *testing.T) {
	path := writeJSONL(t,
		`{"appId":"a","score":5,"at_iso":"2025-01-02T10:00:00+00:00"}`,
		`{"appId":"a","score":1,"at_iso":"2025-01-05T10:00:00+00:00"}`,
		`{"appId":"b","score":null}`,
	)

	svc := NewKPIService(newTestLogger())
	rows, err := svc.Aggregate(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	a := rows[0]
	assert.Equal(t, "a", a.AppID)
	assert.Equal(t, int64(2), a.NumReviews)
	require.NotNil(t, a.AvgRating)
	assert.Equal(t, 3.0, *a.AvgRating)
	require.NotNil(t, a.LowRatingPct)
	assert.Equal(t, 50.0, *a.LowRatingPct)
	assert.Equal(t, "2025-01-02T10:00:00+00:00", a.FirstReviewDate)
	assert.Equal(t, "2025-01-05T10:00:00+00:00", a.LastReviewDate)

	b := rows[1]
	assert.Equal(t, "b", b.AppID)
	assert.Equal(t, int64(1), b.NumReviews)
	assert.Nil(t, b.AvgRating)
	assert.Nil(t, b.LowRatingPct)
}

func TestKPIAggregateSortedByAppID(t *testing.T) {
	path := writeJSONL(t,
		`{"appId":"zeta","score":3}`,
		`{"appId":"alpha","score":4}`,
		`{"appId":"mid","score":2}`,
	)

	svc := NewKPIService(newTestLogger())
	rows, err := svc.Aggregate(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "alpha", rows[0].AppID)
	assert.Equal(t, "mid", rows[1].AppID)
	assert.Equal(t, "zeta", rows[2].AppID)
}

func TestKPIAggregateSkipsBadRecords(t *testing.T) {
	path := writeJSONL(t,
		`{"appId":"a","score":5}`,
		`this is not json`,
		`{"score":4}`,
		`{"appId":"","score":4}`,
	)

	svc := NewKPIService(newTestLogger())
	rows, err := svc.Aggregate(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].NumReviews)
}

func TestKPIAggregateNumericAppID(t *testing.T) {
	path := writeJSONL(t,
		`{"appId":12345,"score":4}`,
		`{"appId":"12345","score":2}`,
	)

	svc := NewKPIService(newTestLogger())
	rows, err := svc.Aggregate(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "12345", rows[0].AppID)
	assert.Equal(t, int64(2), rows[0].NumReviews)
}

func TestKPIAggregateDateFallbackToRawAt(t *testing.T) {
	path := writeJSONL(t,
		`{"appId":"a","score":4,"at":"2025-03-01 09:00:00"}`,
	)

	svc := NewKPIService(newTestLogger())
	rows, err := svc.Aggregate(path)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01 09:00:00", rows[0].FirstReviewDate)
}

func TestKPIWriteCSV(t *testing.T) {
	path := writeJSONL(t,
		`{"appId":"a","score":5,"at_iso":"2025-01-02T10:00:00+00:00"}`,
		`{"appId":"a","score":1,"at_iso":"2025-01-05T10:00:00+00:00"}`,
		`{"appId":"b","score":null}`,
	)
	outPath := filepath.Join(t.TempDir(), "app_kpis.csv")

	svc := NewKPIService(newTestLogger())
	rows, err := svc.Aggregate(path)
	require.NoError(t, err)
	require.NoError(t, svc.WriteCSV(rows, outPath))

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, AppKPIHeader, records[0])
	assert.Equal(t, []string{"a", "2", "3.0", "50.0",
		"2025-01-02T10:00:00+00:00", "2025-01-05T10:00:00+00:00"}, records[1])
	assert.Equal(t, []string{"b", "1", "", "", "", ""}, records[2])
}

func TestKPIWriteCSVEmptyInput(t *testing.T) {
	path := writeJSONL(t, "")
	outPath := filepath.Join(t.TempDir(), "app_kpis.csv")

	svc := NewKPIService(newTestLogger())
	rows, err := svc.Aggregate(path)
	require.NoError(t, err)
	require.Empty(t, rows)
	require.NoError(t, svc.WriteCSV(rows, outPath))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, strings.Join(AppKPIHeader, ",")+"\n", string(data))
}
