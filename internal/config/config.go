package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port     string
	APIToken string

	DBHost string
	DBPort string
	DBName string
	DBUser string
	DBPass string

	// DBMaxOpenConns is the maximum number of open connections to the database (default 25).
	DBMaxOpenConns int
	// DBMaxIdleConns is the maximum number of idle connections (default 5).
	DBMaxIdleConns int

	// Env is "dev" (default) or "prod". When "prod", API_TOKEN must be set and not the default.
	Env string

	// Collector endpoints. Empty disables that source.
	CommunityURL  string
	ReputationURL string
	ProfileURL    string

	// CollectorTimeout bounds each individual evidence source call.
	CollectorTimeout time.Duration
	// CollectorRatePerSec is the shared call budget across all checks and
	// batch workers; CollectorBurst is the bucket size.
	CollectorRatePerSec float64
	CollectorBurst      int

	// SchedulerPoll is how often the due-target sweep runs (default 1m).
	SchedulerPoll time.Duration
	// SchedulerWorkers is the check worker pool size (default 4).
	SchedulerWorkers int
	// AccelerateOnAlert shortens the recheck cadence after a critical
	// finding when true. Default false: cadence is unchanged.
	AccelerateOnAlert bool

	// BatchItemEstimate seeds per-item ETA math (default 3s); replaced by
	// measured timings once items complete.
	BatchItemEstimate time.Duration

	// AlertDedupWindow suppresses repeated identical alerts within the
	// window (default 48h). Zero disables suppression.
	AlertDedupWindow time.Duration

	// VerifyCacheTTL is how long one-shot verification results stay
	// servable without a fresh collection (default 1h).
	VerifyCacheTTL time.Duration

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	// When empty, the API listens with plain HTTP.
	TLSCertFile string
	TLSKeyFile  string

	// LogFormat is "text" (default) or "json" for structured logging.
	LogFormat string

	// CORSAllowedOrigins is a list of origins allowed for CORS.
	// Set via CORS_ALLOWED_ORIGINS (comma-separated). When empty, no CORS headers are sent (same-origin only).
	CORSAllowedOrigins []string
}

func Load() Config {
	return Config{
		Port:     getEnv("PORT", "8080"),
		APIToken: getEnv("API_TOKEN", "dev-token"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnv("DB_PORT", "5432"),
		DBName: getEnv("DB_NAME", "riskwatch"),
		DBUser: getEnv("DB_USER", "riskwatch"),
		DBPass: getEnv("DB_PASS", "riskwatch"),

		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),

		Env: getEnv("ENV", "dev"),

		CommunityURL:  getEnv("COMMUNITY_URL", ""),
		ReputationURL: getEnv("REPUTATION_URL", ""),
		ProfileURL:    getEnv("PROFILE_URL", ""),

		CollectorTimeout:    getEnvDuration("COLLECTOR_TIMEOUT", 5*time.Second),
		CollectorRatePerSec: getEnvFloat("COLLECTOR_RATE_PER_SEC", 5),
		CollectorBurst:      getEnvInt("COLLECTOR_BURST", 10),

		SchedulerPoll:     getEnvDuration("SCHEDULER_POLL", time.Minute),
		SchedulerWorkers:  getEnvInt("SCHEDULER_WORKERS", 4),
		AccelerateOnAlert: getEnv("ACCELERATE_ON_ALERT", "") == "true",

		BatchItemEstimate: getEnvDuration("BATCH_ITEM_ESTIMATE", 3*time.Second),

		AlertDedupWindow: getEnvDuration("ALERT_DEDUP_WINDOW", 48*time.Hour),

		VerifyCacheTTL: getEnvDuration("VERIFY_CACHE_TTL", time.Hour),

		// Optional TLS configuration for HTTPS.
		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		LogFormat: getEnv("LOG_FORMAT", "text"),

		CORSAllowedOrigins: parseCORSOrigins(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
}

// parseCORSOrigins splits a comma-separated list of origins and trims spaces. Empty strings are omitted.
func parseCORSOrigins(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if o := strings.TrimSpace(p); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings, e.g. "30s", "5m", "2h".
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
