// Package config loads the server configuration from the environment.
//
// A .env file in the working directory is read first (if present), then every
// HACKMATE_* variable is mapped onto the typed Config:
//
//	HACKMATE_SERVER_ADDR            -> server.addr
//	HACKMATE_DATABASE_DSN           -> database.dsn
//	HACKMATE_SEARCH_REQUESTS_PER_MINUTE -> search.requests_per_minute
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "HACKMATE_"

// DefaultJWTSecret is only acceptable for local development.
const DefaultJWTSecret = "hackmate-dev-secret-change-me"

// Config holds the complete server configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Auth     AuthConfig     `koanf:"auth"`
	Relay    RelayConfig    `koanf:"relay"`
	Search   SearchConfig   `koanf:"search"`
	Telegram TelegramConfig `koanf:"telegram"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	AllowedOrigins  []string      `koanf:"-"`
}

// DatabaseConfig selects the gorm dialector.
type DatabaseConfig struct {
	Driver      string `koanf:"driver"` // postgres | sqlite
	DSN         string `koanf:"dsn"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// RedisConfig is used by the hackathon search cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// AuthConfig configures token issuing.
type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
	Issuer    string        `koanf:"issuer"`
}

// RelayConfig tunes the realtime relay.
type RelayConfig struct {
	SendBuffer      int           `koanf:"send_buffer"`
	PersistTimeout  time.Duration `koanf:"persist_timeout"`
	MaxMessageBytes int64         `koanf:"max_message_bytes"`
}

// SearchConfig configures the hackathon finder upstream.
type SearchConfig struct {
	APIKey            string        `koanf:"api_key"`
	Endpoint          string        `koanf:"endpoint"`
	Model             string        `koanf:"model"`
	RequestsPerMinute int           `koanf:"requests_per_minute"`
	Timeout           time.Duration `koanf:"timeout"`
}

// TelegramConfig enables the Telegram bridge when BotToken is set.
type TelegramConfig struct {
	BotToken string `koanf:"bot_token"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json | console
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigins:  []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Driver:      "postgres",
			DSN:         "host=localhost user=user password=password dbname=hackmate port=5432 sslmode=disable",
			AutoMigrate: true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			CacheTTL: 30 * time.Minute,
		},
		Auth: AuthConfig{
			JWTSecret: DefaultJWTSecret,
			TokenTTL:  72 * time.Hour,
			Issuer:    "hackmate",
		},
		Relay: RelayConfig{
			SendBuffer:      256,
			PersistTimeout:  5 * time.Second,
			MaxMessageBytes: 8 * 1024,
		},
		Search: SearchConfig{
			Endpoint:          "https://api.perplexity.ai/chat/completions",
			Model:             "sonar-pro",
			RequestsPerMinute: 20,
			Timeout:           60 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads .env (optional) and HACKMATE_* variables over the defaults.
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if origins := k.String("server.allowed_origins"); origins != "" {
		cfg.Server.AllowedOrigins = splitCSV(origins)
	}

	return cfg, nil
}

// envKey maps HACKMATE_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Validate checks the values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q (want postgres or sqlite)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}

	if c.Relay.SendBuffer <= 0 {
		return fmt.Errorf("relay send buffer must be positive, got %d", c.Relay.SendBuffer)
	}
	if c.Relay.PersistTimeout <= 0 {
		return errors.New("relay persist timeout must be positive")
	}
	if c.Relay.MaxMessageBytes <= 0 {
		return errors.New("relay max message bytes must be positive")
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("jwt secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	// json logs mean a deployed environment.
	if c.Log.Format == "json" && c.Auth.JWTSecret == DefaultJWTSecret {
		return errors.New("default jwt secret must not be used with json logging")
	}

	if c.Search.RequestsPerMinute <= 0 {
		return errors.New("search requests per minute must be positive")
	}

	return nil
}
