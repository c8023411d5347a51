package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"

	CascadeInline = "inline"
	CascadeAMQP   = "amqp"

	UploadNone       = "none"
	UploadCloudinary = "cloudinary"

	StatsCacheMemory = "memory"
	StatsCacheRedis  = "redis"
)

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Wallet deletion cascade
	CascadeMode      string
	CascadeBatchSize int

	// Image upload
	UploadProvider         string
	CloudinaryCloudName    string
	CloudinaryUploadPreset string
	UploadFolderRoot       string

	// Stats cache
	StatsCache    string
	StatsCacheTTL time.Duration
	RedisURL      string

	// Google Sheets mirror (worker)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		CascadeMode:      getEnv("CASCADE_MODE", CascadeInline),
		CascadeBatchSize: getEnvInt("CASCADE_BATCH_SIZE", 100),

		UploadProvider:         getEnv("UPLOAD_PROVIDER", UploadNone),
		CloudinaryCloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryUploadPreset: getEnv("CLOUDINARY_UPLOAD_PRESET", ""),
		UploadFolderRoot:       getEnv("UPLOAD_FOLDER_ROOT", "expense-tracker"),

		StatsCache:    getEnv("STATS_CACHE", StatsCacheMemory),
		StatsCacheTTL: getEnvDuration("STATS_CACHE_TTL", 5*time.Minute),
		RedisURL:      getEnv("REDIS_URL", ""),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// SheetsEnabled reports whether the worker should mirror events to a sheet.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	errs = appendChoice(errs, "data backend", c.DataBackend, BackendMemory, BackendSQLite)
	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	errs = appendChoice(errs, "cascade mode", c.CascadeMode, CascadeInline, CascadeAMQP)
	if c.CascadeMode == CascadeAMQP {
		if c.AMQPURL == "" {
			errs = append(errs, "AMQP_URL is required when CASCADE_MODE is amqp")
		}
		if c.DataBackend != BackendSQLite {
			errs = append(errs, "CASCADE_MODE amqp needs the sqlite backend so the worker sees the same data")
		}
		if c.StatsCache != StatsCacheRedis {
			errs = append(errs, "CASCADE_MODE amqp needs STATS_CACHE=redis so the worker can drop stats of purged wallets")
		}
	}
	if c.CascadeBatchSize < 1 || c.CascadeBatchSize > 1000 {
		errs = append(errs, fmt.Sprintf("invalid cascade batch size %d: must be between 1 and 1000", c.CascadeBatchSize))
	}

	errs = appendChoice(errs, "upload provider", c.UploadProvider, UploadNone, UploadCloudinary)
	if c.UploadProvider == UploadCloudinary {
		if c.CloudinaryCloudName == "" {
			errs = append(errs, "CLOUDINARY_CLOUD_NAME is required when UPLOAD_PROVIDER is cloudinary")
		}
		if c.CloudinaryUploadPreset == "" {
			errs = append(errs, "CLOUDINARY_UPLOAD_PRESET is required when UPLOAD_PROVIDER is cloudinary")
		}
	}
	if strings.Trim(c.UploadFolderRoot, "/ ") == "" {
		errs = append(errs, "upload folder root cannot be empty")
	}

	errs = appendChoice(errs, "stats cache", c.StatsCache, StatsCacheMemory, StatsCacheRedis)
	if c.StatsCache == StatsCacheRedis && c.RedisURL == "" {
		errs = append(errs, "REDIS_URL is required when STATS_CACHE is redis")
	}
	if c.StatsCacheTTL < time.Second || c.StatsCacheTTL > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid stats cache TTL %v: must be between 1s and 24h", c.StatsCacheTTL))
	}

	if c.SheetsEnabled() {
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for the sheets mirror")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	errs = appendChoice(errs, "log format", c.LogFormat, "text", "json")
	errs = appendChoice(errs, "log level", strings.ToLower(c.LogLevel), "debug", "info", "warn", "warning", "error")

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func appendChoice(errs []string, name, value string, valid ...string) []string {
	if slices.Contains(valid, value) {
		return errs
	}
	return append(errs, fmt.Sprintf("invalid %s '%s': must be one of %v", name, value, valid))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
