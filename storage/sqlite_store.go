package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"playstore-analytics/models"
)

// SQLiteStore is the embedded alternative to PostgresStore for runs without
// a database server. Same tables, same replace-on-run semantics.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database file and runs
// schema migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sqlite: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	ss := &SQLiteStore{db: db}
	if err := ss.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return ss, nil
}

func (ss *SQLiteStore) migrate() error {
	_, err := ss.db.Exec(`
		CREATE TABLE IF NOT EXISTS app_kpis (
			app_id            TEXT PRIMARY KEY,
			num_reviews       INTEGER NOT NULL,
			avg_rating        REAL,
			low_rating_pct    REAL,
			first_review_date TEXT NOT NULL DEFAULT '',
			last_review_date  TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS daily_metrics (
			date              TEXT PRIMARY KEY,
			daily_num_reviews INTEGER NOT NULL,
			daily_avg_rating  REAL
		);
	`)
	return err
}

// StoreAppKPIs replaces the app_kpis table contents with the given rows,
// inside one transaction.
func (ss *SQLiteStore) StoreAppKPIs(rows []models.AppKPIRow) error {
	tx, err := ss.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM app_kpis"); err != nil {
		return fmt.Errorf("sqlite: clear app_kpis: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO app_kpis (app_id, num_reviews, avg_rating, low_rating_pct, first_review_date, last_review_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare app_kpis insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.AppID, r.NumReviews, nullableFloat(r.AvgRating),
			nullableFloat(r.LowRatingPct), r.FirstReviewDate, r.LastReviewDate); err != nil {
			return fmt.Errorf("sqlite: insert app_kpis row %q: %w", r.AppID, err)
		}
	}
	return tx.Commit()
}

// StoreDailyMetrics replaces the daily_metrics table contents.
func (ss *SQLiteStore) StoreDailyMetrics(rows []models.DailyMetricRow) error {
	tx, err := ss.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM daily_metrics"); err != nil {
		return fmt.Errorf("sqlite: clear daily_metrics: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO daily_metrics (date, daily_num_reviews, daily_avg_rating)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare daily_metrics insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.Date, r.NumReviews, nullableFloat(r.AvgRating)); err != nil {
			return fmt.Errorf("sqlite: insert daily_metrics row %q: %w", r.Date, err)
		}
	}
	return tx.Commit()
}

func (ss *SQLiteStore) Close() error {
	return ss.db.Close()
}
