package main

import (
	"fmt"
	"os"

	"playstore-analytics/config"
	"playstore-analytics/extractor/playstore"
	"playstore-analytics/services"
	"playstore-analytics/storage"
	"playstore-analytics/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerWithLevel(cfg.LogLevel)

	logger.Info("=== Play Store Analytics Pipeline starting ===")
	logger.Info("Config — raw: %s | processed: %s | metrics backend: %s",
		cfg.RawDir, cfg.ProcessedDir, cfg.MetricsBackend)

	if err := os.MkdirAll(cfg.ProcessedDir, 0755); err != nil {
		logger.Error("Failed to create processed dir: %v", err)
		os.Exit(1)
	}

	if cfg.ExtractEnabled {
		extractor := playstore.New(cfg, logger)
		if err := extractor.Run(); err != nil {
			logger.Error("Extraction failed: %v", err)
			logger.Error("Continuing with whatever raw data is on disk")
		}
	}

	appsIn := cfg.RawPath(cfg.RawAppsFile)
	appsOut := cfg.ProcessedPath("apps_metadata_processed.json")
	reviewsIn := cfg.RawPath(cfg.RawReviewsFile)
	reviewsOut := cfg.ProcessedPath("user_reviews_processed.jsonl")

	appTransformer := services.NewAppTransformer(logger)
	appsProcessed, err := appTransformer.Transform(appsIn, appsOut)
	if err != nil {
		logger.Error("App transform failed: %v", err)
		os.Exit(1)
	}

	reviewTransformer := services.NewReviewTransformer(logger)
	reviewTransformer.MaxLines = cfg.ReviewMaxLines
	if _, err := reviewTransformer.Transform(reviewsIn, reviewsOut); err != nil {
		logger.Error("Review transform failed: %v", err)
		os.Exit(1)
	}

	kpiService := services.NewKPIService(logger)
	kpiRows, err := kpiService.Aggregate(reviewsOut)
	if err != nil {
		logger.Error("KPI aggregation failed: %v", err)
		os.Exit(1)
	}
	if err := kpiService.WriteCSV(kpiRows, cfg.ProcessedPath("app_kpis.csv")); err != nil {
		logger.Error("KPI CSV write failed: %v", err)
		os.Exit(1)
	}

	dailyService := services.NewDailyMetricsService(logger)
	dailyRows, err := dailyService.Aggregate(reviewsOut)
	if err != nil {
		logger.Error("Daily aggregation failed: %v", err)
		os.Exit(1)
	}
	if err := dailyService.WriteCSV(dailyRows, cfg.ProcessedPath("daily_metrics.csv")); err != nil {
		logger.Error("Daily CSV write failed: %v", err)
		os.Exit(1)
	}

	lexicon := services.DefaultLexicon()
	if cfg.LexiconPath != "" {
		lexicon, err = services.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			logger.Warn("Lexicon load failed, using defaults: %v", err)
		}
	}
	flagger := services.NewSentimentFlagger(logger, lexicon)
	flagged, err := flagger.Flag(reviewsOut)
	if err != nil {
		logger.Error("Sentiment scan failed: %v", err)
		os.Exit(1)
	}
	if err := flagger.WriteCSV(flagged, cfg.ProcessedPath("inconsistent_sentiment_reviews.csv")); err != nil {
		logger.Error("Sentiment CSV write failed: %v", err)
		os.Exit(1)
	}

	if store := openMetricsStore(cfg, logger); store != nil {
		defer store.Close()
		if err := store.StoreAppKPIs(kpiRows); err != nil {
			logger.Error("Metrics store app_kpis write failed: %v", err)
		}
		if err := store.StoreDailyMetrics(dailyRows); err != nil {
			logger.Error("Metrics store daily_metrics write failed: %v", err)
		}
	}

	reportService := services.NewReportService(logger)
	report := reportService.Generate(appsProcessed, kpiRows, dailyRows, len(flagged))
	reportService.Print(report)

	fmt.Printf("  Done. Tables → %s (app_kpis.csv, daily_metrics.csv, inconsistent_sentiment_reviews.csv)\n\n",
		cfg.ProcessedDir)
}

// openMetricsStore returns the configured database mirror, or nil when the
// run is CSV-only. A store that fails to open is skipped, not fatal: the
// CSV outputs are the contract.
func openMetricsStore(cfg *config.Config, logger *utils.Logger) storage.MetricsStore {
	switch cfg.MetricsBackend {
	case "postgres":
		store, err := storage.NewPostgresStore(cfg.DSN())
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			return nil
		}
		logger.Info("Mirroring metrics to PostgreSQL (%s)", cfg.PostgresDB)
		return store
	case "sqlite":
		store, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			logger.Error("Failed to open SQLite store: %v", err)
			return nil
		}
		logger.Info("Mirroring metrics to SQLite (%s)", cfg.SQLitePath)
		return store
	default:
		return nil
	}
}
