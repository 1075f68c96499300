package storage

import "playstore-analytics/models"

// MetricsStore mirrors the finalized metric tables into a database so the
// dashboard can query them directly. CSV files remain the canonical output;
// a store is optional.
type MetricsStore interface {
	StoreAppKPIs(rows []models.AppKPIRow) error
	StoreDailyMetrics(rows []models.DailyMetricRow) error
	Close() error
}
