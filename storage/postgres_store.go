package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"playstore-analytics/models"
)

// PostgresStore persists the aggregated metric tables to PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS app_kpis (
			app_id            TEXT PRIMARY KEY,
			num_reviews       BIGINT NOT NULL,
			avg_rating        NUMERIC(6,3),
			low_rating_pct    NUMERIC(6,3),
			first_review_date TEXT NOT NULL DEFAULT '',
			last_review_date  TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS daily_metrics (
			date              TEXT PRIMARY KEY,
			daily_num_reviews BIGINT NOT NULL,
			daily_avg_rating  NUMERIC(6,3)
		);

		CREATE INDEX IF NOT EXISTS idx_app_kpis_avg_rating ON app_kpis(avg_rating);
	`)
	return err
}

// StoreAppKPIs replaces the app_kpis table contents with the given rows.
// Each run is a full re-run, so old rows are cleared first.
func (ps *PostgresStore) StoreAppKPIs(rows []models.AppKPIRow) error {
	if _, err := ps.db.Exec("DELETE FROM app_kpis"); err != nil {
		return fmt.Errorf("postgres: clear app_kpis: %w", err)
	}

	const batchSize = 50
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := ps.insertKPIBatch(rows[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (ps *PostgresStore) insertKPIBatch(batch []models.AppKPIRow) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*6)

	for idx, r := range batch {
		base := idx * 6
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6))
		valueArgs = append(valueArgs,
			r.AppID, r.NumReviews, nullableFloat(r.AvgRating),
			nullableFloat(r.LowRatingPct), r.FirstReviewDate, r.LastReviewDate)
	}

	query := fmt.Sprintf(`
		INSERT INTO app_kpis (app_id, num_reviews, avg_rating, low_rating_pct, first_review_date, last_review_date)
		VALUES %s
		ON CONFLICT (app_id) DO NOTHING
	`, strings.Join(valueStrings, ","))

	if _, err := ps.db.Exec(query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert app_kpis batch: %w", err)
	}
	return nil
}

// StoreDailyMetrics replaces the daily_metrics table contents.
func (ps *PostgresStore) StoreDailyMetrics(rows []models.DailyMetricRow) error {
	if _, err := ps.db.Exec("DELETE FROM daily_metrics"); err != nil {
		return fmt.Errorf("postgres: clear daily_metrics: %w", err)
	}

	const batchSize = 50
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := ps.insertDailyBatch(rows[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (ps *PostgresStore) insertDailyBatch(batch []models.DailyMetricRow) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*3)

	for idx, r := range batch {
		base := idx * 3
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d)", base+1, base+2, base+3))
		valueArgs = append(valueArgs, r.Date, r.NumReviews, nullableFloat(r.AvgRating))
	}

	query := fmt.Sprintf(`
		INSERT INTO daily_metrics (date, daily_num_reviews, daily_avg_rating)
		VALUES %s
		ON CONFLICT (date) DO NOTHING
	`, strings.Join(valueStrings, ","))

	if _, err := ps.db.Exec(query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert daily_metrics batch: %w", err)
	}
	return nil
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
