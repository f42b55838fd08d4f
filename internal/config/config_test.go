package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := load(t)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, BackendPostgres, cfg.DedupBackend)
	assert.Equal(t, 7*24*time.Hour, cfg.DedupRetention)
	assert.Equal(t, PriceSourcePyth, cfg.PriceSource)
	assert.Equal(t, TransportTelegram, cfg.NotifyTransport)
	assert.True(t, cfg.MinAlertUSD.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 20, cfg.MaxConcurrentSends)
	assert.True(t, cfg.RPCWatch)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DEDUP_BACKEND", "Redis")
	t.Setenv("DEDUP_RETENTION", "3600")
	t.Setenv("PRICE_TTL", "90s")
	t.Setenv("MIN_ALERT_USD", "2500.5")
	t.Setenv("INGEST_WORKERS", "not-a-number")
	t.Setenv("RPC_WATCH", "false")
	t.Setenv("SEED_BINDINGS", "1:WhaLe:fund, 2:Other")

	cfg := load(t)

	assert.Equal(t, BackendRedis, cfg.DedupBackend)
	assert.Equal(t, time.Hour, cfg.DedupRetention)
	assert.Equal(t, 90*time.Second, cfg.PriceTTL)
	assert.Equal(t, "2500.5", cfg.MinAlertUSD.String())
	assert.Equal(t, 8, cfg.IngestWorkers, "bad ints fall back to the default")
	assert.False(t, cfg.RPCWatch)
	require.Len(t, cfg.SeedBindings, 2)
	assert.Equal(t, int64(1), cfg.SeedBindings[0].SubscriberID)
	assert.Equal(t, "fund", cfg.SeedBindings[0].Label)
	assert.Equal(t, "Other", cfg.SeedBindings[1].Address)
	assert.True(t, cfg.SeedBindings[1].Active)
}

func TestLoad_EnvFileDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LISTEN_ADDR=:9999\nLOG_FORMAT=json\n"), 0o600))
	t.Setenv("LISTEN_ADDR", ":7000")
	// Registered for cleanup, then unset so the file can provide it.
	t.Setenv("LOG_FORMAT", "")
	require.NoError(t, os.Unsetenv("LOG_FORMAT"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_BadSeedBindings(t *testing.T) {
	t.Setenv("SEED_BINDINGS", "abc:addr")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "SEED_BINDINGS")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := load(t)
		cfg.UseMemory()
		cfg.NotifyTransport = TransportLog
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"postgres without dsn", func(c *Config) { c.DedupBackend = BackendPostgres }, "POSTGRES_DSN"},
		{"redis without addr", func(c *Config) { c.DedupBackend = BackendRedis }, "REDIS_ADDR"},
		{"unknown backend", func(c *Config) { c.DedupBackend = "sqlite" }, "DEDUP_BACKEND"},
		{"telegram without token", func(c *Config) { c.NotifyTransport = TransportTelegram }, "TELEGRAM_BOT_TOKEN"},
		{"amqp without url", func(c *Config) { c.NotifyTransport = TransportAMQP }, "AMQP_URL"},
		{"unknown transport", func(c *Config) { c.NotifyTransport = "smtp" }, "NOTIFY_TRANSPORT"},
		{"unknown price source", func(c *Config) { c.PriceSource = "coingecko" }, "PRICE_SOURCE"},
		{"zero minimum", func(c *Config) { c.MinAlertUSD = decimal.Zero }, "MIN_ALERT_USD"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"no workers", func(c *Config) { c.IngestWorkers = 0 }, "INGEST_WORKERS"},
		{"no sends", func(c *Config) { c.MaxConcurrentSends = 0 }, "MAX_CONCURRENT_SENDS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := load(t)
	cfg.PostgresDSN = "postgres://alerts:hunter2@db:5432/alerts"
	cfg.TelegramBotToken = "123456:ABCDEFGHIJKLMNOP"
	cfg.WebhookAuthToken = "short"

	s := cfg.String()
	assert.NotContains(t, s, "hunter2")
	assert.NotContains(t, s, "ABCDEFGHIJKLMNOP")
	assert.Contains(t, s, "postgres://alerts:xxxxx@db:5432/alerts")
	assert.Contains(t, s, "1234****MNOP")
	assert.Contains(t, s, "webhook_token=****")
}
