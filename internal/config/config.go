package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	Port        string
	StoreDriver string
	CORSOrigins []string
	PageSize    int

	Postgres Postgres
	Mongo    Mongo
	Redis    Redis
	Twilio   Twilio

	JWTSecret string
	TokenTTL  time.Duration

	LogLevel     string
	LogFormat    string
	TracesStdout bool
	ServiceName  string
}

type Postgres struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the libpq keyword/value connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		p.Host, p.User, p.Password, p.Name, p.Port, p.SSLMode,
	)
}

type Mongo struct {
	URI      string
	Database string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

func (r Redis) Enabled() bool { return r.Addr != "" }

type Twilio struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

func (t Twilio) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.FromNumber != ""
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:        valueOrDefault("PORT", "8080"),
		StoreDriver: strings.ToLower(valueOrDefault("STORE_DRIVER", DriverPostgres)),
		CORSOrigins: splitList(valueOrDefault("CORS_ORIGINS", "*")),
		Postgres: Postgres{
			Host:     valueOrDefault("DB_HOST", "localhost"),
			Port:     valueOrDefault("DB_PORT", "5432"),
			User:     strings.TrimSpace(os.Getenv("DB_USER")),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     valueOrDefault("DB_NAME", "stackit"),
			SSLMode:  valueOrDefault("DB_SSLMODE", "disable"),
		},
		Mongo: Mongo{
			URI:      strings.TrimSpace(os.Getenv("MONGODB_URI")),
			Database: valueOrDefault("MONGODB_DATABASE", "stackit_db"),
		},
		Redis: Redis{
			Addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Twilio: Twilio{
			AccountSID: strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")),
			AuthToken:  strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")),
			FromNumber: strings.TrimSpace(os.Getenv("TWILIO_FROM_NUMBER")),
		},
		JWTSecret:   os.Getenv("JWT_SECRET"),
		LogLevel:    valueOrDefault("LOG_LEVEL", "info"),
		LogFormat:   valueOrDefault("LOG_FORMAT", "json"),
		ServiceName: valueOrDefault("OTEL_SERVICE_NAME", "stackit-backend"),
	}

	var err error
	if cfg.PageSize, err = intOrDefault("PAGE_SIZE", 10); err != nil {
		return Config{}, err
	}
	if cfg.PageSize <= 0 {
		return Config{}, fmt.Errorf("invalid PAGE_SIZE: must be positive")
	}
	if cfg.Redis.DB, err = intOrDefault("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.TracesStdout, err = boolOrDefault("OTEL_TRACES_STDOUT", false); err != nil {
		return Config{}, err
	}

	ttl := valueOrDefault("TOKEN_TTL", "72h")
	if cfg.TokenTTL, err = time.ParseDuration(ttl); err != nil {
		return Config{}, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.Postgres.User == "" {
			return Config{}, fmt.Errorf("DB_USER is required for the postgres store")
		}
	case DriverMongo:
		if cfg.Mongo.URI == "" {
			return Config{}, fmt.Errorf("MONGODB_URI is required for the mongo store")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("invalid STORE_DRIVER %q: want postgres, mongo or memory", cfg.StoreDriver)
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func intOrDefault(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func boolOrDefault(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
