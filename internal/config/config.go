package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DefaultJWTSecret is only acceptable outside production.
const DefaultJWTSecret = "qualistock-dev-secret-change-me"

// Config holds runtime configuration for the API, worker and CLI tools.
type Config struct {
	AppEnv    string `envconfig:"APP_ENV" default:"development"`
	AppName   string `envconfig:"APP_NAME" default:"QualiStock API v1.0"`
	Port      string `envconfig:"PORT" default:"3000"`
	APIPrefix string `envconfig:"API_PREFIX" default:"/api/v1"`

	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"http://localhost,http://localhost:3000,http://localhost:5173"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	DBDriver          string        `envconfig:"DB_DRIVER" default:"postgres"`
	DatabaseURL       string        `envconfig:"DATABASE_URL"`
	DBHost            string        `envconfig:"DB_HOST" default:"localhost"`
	DBPort            string        `envconfig:"DB_PORT" default:"5432"`
	DBUser            string        `envconfig:"DB_USER" default:"postgres"`
	DBPassword        string        `envconfig:"DB_PASSWORD"`
	DBName            string        `envconfig:"DB_NAME" default:"qualistock"`
	DBTimeZone        string        `envconfig:"DB_TIMEZONE" default:"UTC"`
	DBLogLevel        string        `envconfig:"DB_LOG_LEVEL" default:"warn"`
	DBMaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"10"`
	DBMaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"100"`
	DBConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`

	JWTSecret string        `envconfig:"JWT_SECRET" default:"qualistock-dev-secret-change-me"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	AlertChannel  string        `envconfig:"ALERT_CHANNEL" default:"qualistock.alerts"`

	LowStockThreshold    int `envconfig:"LOW_STOCK_THRESHOLD" default:"10"`
	ExpiringSoonDays     int `envconfig:"EXPIRING_SOON_DAYS" default:"30"`
	CriticalExpiryDays   int `envconfig:"CRITICAL_EXPIRY_DAYS" default:"7"`
	ExpirationWindowDays int `envconfig:"EXPIRATION_WINDOW_DAYS" default:"90"`

	AuthRateLimit       int  `envconfig:"AUTH_RATE_LIMIT" default:"20"`
	SeedEndpointEnabled bool `envconfig:"SEED_ENDPOINT_ENABLED" default:"true"`

	WorkerConcurrency  int    `envconfig:"WORKER_CONCURRENCY" default:"5"`
	WorkerMetricsAddr  string `envconfig:"WORKER_METRICS_ADDR"`
	StockInitCron      string `envconfig:"STOCK_INIT_CRON" default:"30 5 * * *"`
	ExpirationScanCron string `envconfig:"EXPIRATION_SCAN_CRON" default:"0 6 * * *"`
	CacheWarmupCron    string `envconfig:"CACHE_WARMUP_CRON" default:"*/15 * * * *"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	return FromEnv()
}

// FromEnv processes the environment without touching .env files.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations that must never reach a running server.
func (c *Config) Validate() error {
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return errors.New("JWT_SECRET must be set in production")
	}
	switch c.DBDriver {
	case "postgres", "mysql":
	default:
		return errors.New("DB_DRIVER must be postgres or mysql")
	}
	if c.LowStockThreshold <= 0 {
		return errors.New("LOW_STOCK_THRESHOLD must be positive")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// AllowedOrigins returns the CORS origin list in the form fiber's cors middleware expects.
func (c *Config) AllowedOrigins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}
