package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the console.
type Config struct {
	App       AppConfig
	Backend   BackendConfig
	Session   SessionConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	Logger    LoggerConfig
	Workspace WorkspaceConfig
	Forms     FormsConfig
	Metrics   MetricsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// BackendConfig points at the external helpdesk API.
type BackendConfig struct {
	BaseURL        string
	APIPrefix      string
	TimeoutSeconds int
}

// SessionConfig selects where the authenticated identity is kept.
type SessionConfig struct {
	Backend    string
	File       string
	Key        string
	CookieName string
	TTLMinutes int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PostgresConfig holds the optional session database settings.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	ConnMaxIdleSec int
	ConnMaxLifeSec int
	RunMigrations  bool
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// WorkspaceConfig tunes the admin ticket-review workspace.
type WorkspaceConfig struct {
	PageSize      int
	PreviewLength int
}

// FormsConfig tunes ticket submission validation.
type FormsConfig struct {
	MaxImageBytes int64
}

// MetricsConfig toggles the prometheus registry.
type MetricsConfig struct {
	Enabled bool
}

const (
	SessionBackendFile     = "file"
	SessionBackendRedis    = "redis"
	SessionBackendMemory   = "memory"
	SessionBackendPostgres = "postgres"
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-console"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Backend: BackendConfig{
			BaseURL:        strings.TrimSuffix(getEnv("HELPDESK_API_BASE_URL", "http://localhost:8000"), "/"),
			APIPrefix:      getEnv("HELPDESK_API_PREFIX", "/api"),
			TimeoutSeconds: getEnvAsInt("HELPDESK_API_TIMEOUT_SECONDS", 30),
		},
		Session: SessionConfig{
			Backend:    strings.ToLower(os.Getenv("SESSION_BACKEND")),
			File:       getEnv("SESSION_FILE", defaultSessionFile()),
			Key:        getEnv("SESSION_KEY", "helpdesk:session"),
			CookieName: getEnv("SESSION_COOKIE", "helpdesk_sid"),
			TTLMinutes: getEnvAsInt("SESSION_TTL_MINUTES", 720),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 0)),
			ConnMaxIdleSec: getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 300),
			ConnMaxLifeSec: getEnvAsInt("POSTGRES_CONN_MAX_LIFETIME_SECONDS", 3600),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Workspace: WorkspaceConfig{
			PageSize:      getEnvAsInt("WORKSPACE_PAGE_SIZE", 10),
			PreviewLength: getEnvAsInt("WORKSPACE_PREVIEW_LENGTH", 200),
		},
		Forms: FormsConfig{
			MaxImageBytes: int64(getEnvAsInt("FORM_MAX_IMAGE_BYTES", 10<<20)),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the console cannot run with.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("config: HELPDESK_API_BASE_URL is required")
	}
	switch c.Session.Backend {
	case "", SessionBackendFile, SessionBackendRedis, SessionBackendMemory:
	case SessionBackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: POSTGRES_DSN is required for SESSION_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_BACKEND %q", c.Session.Backend)
	}
	return nil
}

// SessionBackendOr returns the configured backend or fallback when unset.
func (s SessionConfig) SessionBackendOr(fallback string) string {
	if s.Backend == "" {
		return fallback
	}
	return s.Backend
}

// TTL returns how long a server-side session record lives.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 0
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-call transport timeout.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".helpdesk-session.json"
	}
	return filepath.Join(home, ".helpdesk", "session.json")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
