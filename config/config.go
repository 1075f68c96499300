package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Pipeline directories. The app transformer loads its whole input into
	// memory; this assumes the catalog stays small enough (hundreds of apps,
	// not millions). Reviews are streamed and have no such limit.
	RawDir       string
	ProcessedDir string

	RawAppsFile    string
	RawReviewsFile string

	// ReviewMaxLines caps how many reviews the transformer emits (0 = all).
	// Used for partial/test runs.
	ReviewMaxLines int

	// MetricsBackend selects where aggregated tables are mirrored in
	// addition to CSV: "postgres", "sqlite" or "none".
	MetricsBackend string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	SQLitePath string

	// Extraction collaborator settings.
	ExtractEnabled bool
	TargetApps     int
	ReviewsPerApp  int
	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	ChromeBin      string

	// LexiconPath optionally points at a YAML file overriding the built-in
	// sentiment term lists.
	LexiconPath string

	LogLevel string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		RawDir:       getEnv("RAW_DIR", "./data/raw"),
		ProcessedDir: getEnv("PROCESSED_DIR", "./data/processed"),

		RawAppsFile:    getEnv("RAW_APPS_FILE", "apps_metadata_raw.json"),
		RawReviewsFile: getEnv("RAW_REVIEWS_FILE", "user_reviews_raw.jsonl"),

		ReviewMaxLines: getEnvInt("REVIEW_MAX_LINES", 0),

		MetricsBackend: getEnv("METRICS_BACKEND", "none"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "analytics"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "analytics123"),
		PostgresDB:       getEnv("POSTGRES_DB", "playstore_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		SQLitePath: getEnv("SQLITE_PATH", "./data/processed/metrics.sqlite"),

		ExtractEnabled: getEnvBool("EXTRACT_ENABLED", false),
		TargetApps:     getEnvInt("TARGET_APPS", 150),
		ReviewsPerApp:  getEnvInt("REVIEWS_PER_APP", 500),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 1500),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		ChromeBin:      getEnv("CHROME_BIN", ""),

		LexiconPath: getEnv("LEXICON_PATH", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

// RawPath joins a file name onto the raw data directory.
func (c *Config) RawPath(name string) string {
	return filepath.Join(c.RawDir, name)
}

// ProcessedPath joins a file name onto the processed data directory.
func (c *Config) ProcessedPath(name string) string {
	return filepath.Join(c.ProcessedDir, name)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
