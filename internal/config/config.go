package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App      AppConfig
	Discord  DiscordConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Lock     LockConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Tickets  TicketConfig
	Archive  ArchiveConfig
}

// AppConfig controls the operator HTTP server.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// DiscordConfig holds chat platform credentials.
type DiscordConfig struct {
	Token   string
	AppID   string
	GuildID string
}

// StoreConfig selects the ticket store backend.
type StoreConfig struct {
	Backend      string
	DocumentPath string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LockConfig selects how per-user and per-ticket locks are held.
type LockConfig struct {
	Backend    string
	TTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines operator API token parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// TicketConfig holds lifecycle limits and timings.
type TicketConfig struct {
	MaxPerUser                 int
	MaxPerGroup                int
	IntakeTimeoutSeconds       int
	RefreshIntervalSeconds     int
	InitialRefreshDelaySeconds int
}

// ArchiveConfig configures the local transcript archive.
type ArchiveConfig struct {
	Dir string
}

const (
	StoreBackendFile     = "file"
	StoreBackendPostgres = "postgres"
	LockBackendMemory    = "memory"
	LockBackendRedis     = "redis"
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-bot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Discord: DiscordConfig{
			Token:   os.Getenv("DISCORD_TOKEN"),
			AppID:   os.Getenv("DISCORD_APP_ID"),
			GuildID: os.Getenv("DISCORD_GUILD_ID"),
		},
		Store: StoreConfig{
			Backend:      strings.ToLower(getEnv("TICKET_STORE", StoreBackendFile)),
			DocumentPath: getEnv("TICKET_DOCUMENT_PATH", "config/ticket/ticket.json"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Lock: LockConfig{
			Backend:    strings.ToLower(getEnv("LOCK_BACKEND", LockBackendMemory)),
			TTLSeconds: getEnvAsInt("LOCK_TTL_SECONDS", 30),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Tickets: TicketConfig{
			MaxPerUser:                 getEnvAsInt("TICKET_MAX_PER_USER", 2),
			MaxPerGroup:                getEnvAsInt("TICKET_MAX_PER_GROUP", 1),
			IntakeTimeoutSeconds:       getEnvAsInt("INTAKE_TIMEOUT_SECONDS", 100),
			RefreshIntervalSeconds:     getEnvAsInt("REFRESH_INTERVAL_SECONDS", 60),
			InitialRefreshDelaySeconds: getEnvAsInt("INITIAL_REFRESH_DELAY_SECONDS", 5),
		},
		Archive: ArchiveConfig{
			Dir: os.Getenv("ARCHIVE_DIR"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case StoreBackendFile:
	case StoreBackendPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("TICKET_STORE=postgres requires POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("invalid TICKET_STORE %q", c.Store.Backend)
	}
	switch c.Lock.Backend {
	case LockBackendMemory, LockBackendRedis:
	default:
		return fmt.Errorf("invalid LOCK_BACKEND %q", c.Lock.Backend)
	}
	if c.Tickets.MaxPerUser <= 0 || c.Tickets.MaxPerGroup <= 0 {
		return fmt.Errorf("ticket limits must be positive")
	}
	return nil
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

// TTL returns the lock lease duration.
func (l LockConfig) TTL() time.Duration {
	if l.TTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(l.TTLSeconds) * time.Second
}

// IntakeTimeout returns the per-question reply window.
func (t TicketConfig) IntakeTimeout() time.Duration {
	return seconds(t.IntakeTimeoutSeconds, 100)
}

// RefreshInterval returns the sweep period.
func (t TicketConfig) RefreshInterval() time.Duration {
	return seconds(t.RefreshIntervalSeconds, 60)
}

// InitialRefreshDelay returns the delay before the first summary refresh of a new ticket.
func (t TicketConfig) InitialRefreshDelay() time.Duration {
	if t.InitialRefreshDelaySeconds < 0 {
		return 0
	}
	return time.Duration(t.InitialRefreshDelaySeconds) * time.Second
}

func seconds(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
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
