package config_test

import (
	"testing"
	"time"

	"hackmate/backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 256, cfg.Relay.SendBuffer)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HACKMATE_SERVER_ADDR", ":9999")
	t.Setenv("HACKMATE_SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("HACKMATE_DATABASE_DRIVER", "sqlite")
	t.Setenv("HACKMATE_DATABASE_DSN", "file::memory:")
	t.Setenv("HACKMATE_RELAY_SEND_BUFFER", "32")
	t.Setenv("HACKMATE_RELAY_PERSIST_TIMEOUT", "2s")
	t.Setenv("HACKMATE_SEARCH_REQUESTS_PER_MINUTE", "5")
	t.Setenv("HACKMATE_TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file::memory:", cfg.Database.DSN)
	assert.Equal(t, 32, cfg.Relay.SendBuffer)
	assert.Equal(t, 2*time.Second, cfg.Relay.PersistTimeout)
	assert.Equal(t, 5, cfg.Search.RequestsPerMinute)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	// Untouched values keep their defaults.
	assert.Equal(t, "sonar-pro", cfg.Search.Model)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{"empty addr", func(c *config.Config) { c.Server.Addr = "" }, "addr"},
		{"bad driver", func(c *config.Config) { c.Database.Driver = "mysql" }, "unsupported database driver"},
		{"zero buffer", func(c *config.Config) { c.Relay.SendBuffer = 0 }, "send buffer"},
		{"zero persist timeout", func(c *config.Config) { c.Relay.PersistTimeout = 0 }, "persist timeout"},
		{"default secret in production", func(c *config.Config) { c.Log.Format = "json" }, "default jwt secret"},
		{"zero search rate", func(c *config.Config) { c.Search.RequestsPerMinute = 0 }, "requests per minute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMatchWeightsSumTo100(t *testing.T) {
	total := config.RoleFitWeight + config.ReciprocalFitWeight + config.SkillsWeight + config.AvailabilityWeight
	assert.Equal(t, 100, total)
}
