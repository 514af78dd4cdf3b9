// Package config loads service settings from the environment (and an optional .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

type Config struct {
	Env       string `env:"APP_ENV,default=development"`
	HTTPAddr  string `env:"HTTP_ADDR,default=:9091"`
	LogFormat string `env:"LOG_FORMAT"`

	Postgres      PostgresConfig
	Redis         RedisConfig
	Firebase      FirebaseConfig
	Storage       StorageConfig
	Media         MediaConfig
	Prompt        PromptConfig
	Geocoding     GeocodingConfig
	Notifications NotificationsConfig
}

type PostgresConfig struct {
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"POSTGRES_HOST,default=localhost"`
	Port     string `env:"POSTGRES_PORT,default=5432"`
	User     string `env:"POSTGRES_USER,default=meicho"`
	Password string `env:"POSTGRES_PASSWORD"`
	DBName   string `env:"POSTGRES_DB,default=meicho"`
	SSLMode  string `env:"POSTGRES_SSLMODE,default=disable"`
	MaxConns int32  `env:"POSTGRES_MAX_CONNS,default=25"`
	MinConns int32  `env:"POSTGRES_MIN_CONNS,default=5"`
}

// DSN returns DATABASE_URL when set, otherwise a URL built from the POSTGRES_* parts.
func (c PostgresConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	Host        string        `env:"REDIS_HOST,default=localhost"`
	Port        string        `env:"REDIS_PORT,default=6379"`
	Password    string        `env:"REDIS_PASSWORD"`
	DB          int           `env:"REDIS_DB,default=0"`
	SnapshotTTL time.Duration `env:"ENTRY_SNAPSHOT_TTL,default=24h"`
	AuthTTL     time.Duration `env:"AUTH_TOKEN_TTL,default=10m"`
	// StoreIdleTTL closes in-memory entry stores nobody used for this long.
	StoreIdleTTL time.Duration `env:"ENTRY_STORE_IDLE_TTL,default=24h"`
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type FirebaseConfig struct {
	ServiceAccountPath string `env:"FIREBASE_SERVICE_ACCOUNT_PATH"`
	ProjectID          string `env:"FIREBASE_PROJECT_ID"`
}

const (
	StorageLocal  = "local"
	StorageS3     = "s3"
	StorageMemory = "memory"
)

type StorageConfig struct {
	Backend string `env:"OBJECT_STORE,default=local"`

	LocalRoot    string `env:"MEDIA_ROOT,default=./uploads"`
	LocalBaseURL string `env:"MEDIA_BASE_URL,default=http://localhost:9091/media"`

	S3Region        string `env:"S3_REGION,default=us-east-1"`
	S3Bucket        string `env:"S3_BUCKET,default=media"`
	S3AccessKey     string `env:"S3_ACCESS_KEY"`
	S3SecretKey     string `env:"S3_SECRET_KEY"`
	S3Endpoint      string `env:"S3_ENDPOINT"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
	S3UsePathStyle  bool   `env:"S3_USE_PATH_STYLE,default=true"`
}

type MediaConfig struct {
	MaxFileSize int64 `env:"MEDIA_MAX_FILE_SIZE,default=4294967296"`
	// MaxMemory bounds the multipart body kept in memory before spilling to disk.
	MaxMemory int64 `env:"MEDIA_MAX_MEMORY,default=33554432"`
}

type PromptConfig struct {
	Timezone     string `env:"PROMPT_TIMEZONE,default=Asia/Tokyo"`
	History      int    `env:"PROMPT_HISTORY,default=3"`
	SweepSpec    string `env:"PROMPT_SWEEP_SPEC,default=0 0 * * *"`
	ReminderSpec string `env:"PROMPT_REMINDER_SPEC,default=0 20 * * *"`
}

type GeocodingConfig struct {
	BaseURL   string        `env:"NOMINATIM_URL,default=https://nominatim.openstreetmap.org"`
	UserAgent string        `env:"NOMINATIM_USER_AGENT,default=meicho-journal/1.0"`
	Language  string        `env:"NOMINATIM_LANGUAGE,default=en"`
	RPS       float64       `env:"NOMINATIM_RPS,default=1"`
	Timeout   time.Duration `env:"NOMINATIM_TIMEOUT,default=10s"`
}

type NotificationsConfig struct {
	Enabled bool `env:"PUSH_ENABLED,default=false"`
}

// Load reads .env files (missing files are fine) and decodes the environment into a Config.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	switch c.Storage.Backend {
	case StorageLocal, StorageS3, StorageMemory:
	default:
		problems = append(problems, fmt.Sprintf("OBJECT_STORE must be one of local, s3, memory (got %q)", c.Storage.Backend))
	}
	if c.Media.MaxFileSize <= 0 {
		problems = append(problems, "MEDIA_MAX_FILE_SIZE must be positive")
	}
	if c.Prompt.History < 0 {
		problems = append(problems, "PROMPT_HISTORY must not be negative")
	}
	if _, err := time.LoadLocation(c.Prompt.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("PROMPT_TIMEZONE: %v", err))
	}
	if c.Redis.StoreIdleTTL < 0 {
		problems = append(problems, "ENTRY_STORE_IDLE_TTL must not be negative")
	}
	if c.Geocoding.RPS <= 0 {
		problems = append(problems, "NOMINATIM_RPS must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Location is the reference timezone for streak days and prompt expiry.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Prompt.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
