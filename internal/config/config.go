// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"whale-alerts/internal/domain"
)

// Backend and transport names.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"

	TransportTelegram = "telegram"
	TransportAMQP     = "amqp"
	TransportLog      = "log"

	PriceSourcePyth        = "pyth"
	PriceSourceDexScreener = "dexscreener"
)

// Config holds every runtime setting of the server.
type Config struct {
	// HTTP
	ListenAddr       string
	WebhookAuthToken string

	// Logging
	LogLevel  string
	LogFormat string

	// Ingest
	IngestWorkers   int
	IngestQueueSize int

	// Storage
	PostgresDSN    string
	ClickhouseDSN  string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	DedupBackend   string
	DedupRetention time.Duration
	SeedBindings   []domain.SubscriberBinding

	// Solana
	SolanaRPCEndpoint string
	SolanaWSEndpoint  string
	// RPCWatch enables the logs subscription ingest when a WS endpoint is set.
	RPCWatch bool

	// Pricing and metadata
	PriceSource      string
	PriceTTL         time.Duration
	FallbackSOLPrice decimal.Decimal
	MetadataTTL      time.Duration
	HTTPTimeout      time.Duration
	MinAlertUSD      decimal.Decimal

	// Notification
	NotifyTransport    string
	TelegramBotToken   string
	TelegramAPIURL     string
	AMQPURL            string
	AMQPExchange       string
	MaxConcurrentSends int
}

// Load reads configuration from the environment, after loading envFiles
// (default ".env") without overriding variables that are already set.
// Missing files are ignored. Callers apply flag overrides and then Validate.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	seeds, err := parseBindings(getEnv("SEED_BINDINGS", ""))
	if err != nil {
		return nil, fmt.Errorf("SEED_BINDINGS: %w", err)
	}

	cfg := &Config{
		ListenAddr:       getEnv("LISTEN_ADDR", ":8080"),
		WebhookAuthToken: getEnv("WEBHOOK_AUTH_TOKEN", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		IngestWorkers:   getEnvInt("INGEST_WORKERS", 8),
		IngestQueueSize: getEnvInt("INGEST_QUEUE_SIZE", 1024),

		PostgresDSN:    getEnv("POSTGRES_DSN", ""),
		ClickhouseDSN:  getEnv("CLICKHOUSE_DSN", ""),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		DedupBackend:   strings.ToLower(getEnv("DEDUP_BACKEND", BackendPostgres)),
		DedupRetention: getEnvDuration("DEDUP_RETENTION", 7*24*time.Hour),
		SeedBindings:   seeds,

		SolanaRPCEndpoint: getEnv("SOLANA_RPC_ENDPOINT", "https://api.mainnet-beta.solana.com"),
		SolanaWSEndpoint:  getEnv("SOLANA_WS_ENDPOINT", ""),
		RPCWatch:          getEnvBool("RPC_WATCH", true),

		PriceSource:      strings.ToLower(getEnv("PRICE_SOURCE", PriceSourcePyth)),
		PriceTTL:         getEnvDuration("PRICE_TTL", time.Minute),
		FallbackSOLPrice: getEnvDecimal("FALLBACK_SOL_PRICE", decimal.NewFromInt(150)),
		MetadataTTL:      getEnvDuration("METADATA_TTL", 5*time.Minute),
		HTTPTimeout:      getEnvDuration("HTTP_TIMEOUT", 5*time.Second),
		MinAlertUSD:      getEnvDecimal("MIN_ALERT_USD", decimal.NewFromInt(10)),

		NotifyTransport:    strings.ToLower(getEnv("NOTIFY_TRANSPORT", TransportTelegram)),
		TelegramBotToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAPIURL:     getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		AMQPURL:            getEnv("AMQP_URL", ""),
		AMQPExchange:       getEnv("AMQP_EXCHANGE", "whale_alerts"),
		MaxConcurrentSends: getEnvInt("MAX_CONCURRENT_SENDS", 20),
	}
	return cfg, nil
}

// UseMemory switches every store to the in-process backend.
func (c *Config) UseMemory() {
	c.PostgresDSN = ""
	c.ClickhouseDSN = ""
	c.DedupBackend = BackendMemory
}

// Validate checks that the settings are consistent.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR is required")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	if c.IngestWorkers < 1 {
		return fmt.Errorf("INGEST_WORKERS must be at least 1")
	}
	if c.IngestQueueSize < 1 {
		return fmt.Errorf("INGEST_QUEUE_SIZE must be at least 1")
	}

	switch c.DedupBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("DEDUP_BACKEND=postgres requires POSTGRES_DSN")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("DEDUP_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("DEDUP_BACKEND must be memory, postgres or redis, got %q", c.DedupBackend)
	}
	if c.DedupRetention <= 0 {
		return fmt.Errorf("DEDUP_RETENTION must be positive")
	}

	if c.SolanaRPCEndpoint == "" {
		return fmt.Errorf("SOLANA_RPC_ENDPOINT is required")
	}
	switch c.PriceSource {
	case PriceSourcePyth, PriceSourceDexScreener:
	default:
		return fmt.Errorf("PRICE_SOURCE must be pyth or dexscreener, got %q", c.PriceSource)
	}
	if !c.FallbackSOLPrice.IsPositive() {
		return fmt.Errorf("FALLBACK_SOL_PRICE must be positive")
	}
	if !c.MinAlertUSD.IsPositive() {
		return fmt.Errorf("MIN_ALERT_USD must be positive")
	}

	switch c.NotifyTransport {
	case TransportTelegram:
		if c.TelegramBotToken == "" {
			return fmt.Errorf("NOTIFY_TRANSPORT=telegram requires TELEGRAM_BOT_TOKEN")
		}
	case TransportAMQP:
		if c.AMQPURL == "" {
			return fmt.Errorf("NOTIFY_TRANSPORT=amqp requires AMQP_URL")
		}
	case TransportLog:
	default:
		return fmt.Errorf("NOTIFY_TRANSPORT must be telegram, amqp or log, got %q", c.NotifyTransport)
	}
	if c.MaxConcurrentSends < 1 {
		return fmt.Errorf("MAX_CONCURRENT_SENDS must be at least 1")
	}
	return nil
}

// String renders the configuration for logging with secrets masked.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "listen=%s log=%s/%s workers=%d queue=%d ", c.ListenAddr, c.LogLevel, c.LogFormat, c.IngestWorkers, c.IngestQueueSize)
	fmt.Fprintf(&b, "postgres=%s clickhouse=%s redis=%s redis_password=%s ", redactDSN(c.PostgresDSN), redactDSN(c.ClickhouseDSN), c.RedisAddr, maskSecret(c.RedisPassword))
	fmt.Fprintf(&b, "dedup=%s retention=%s rpc=%s ws=%s ", c.DedupBackend, c.DedupRetention, c.SolanaRPCEndpoint, c.SolanaWSEndpoint)
	fmt.Fprintf(&b, "price=%s ttl=%s fallback=%s metadata_ttl=%s min_usd=%s ", c.PriceSource, c.PriceTTL, c.FallbackSOLPrice, c.MetadataTTL, c.MinAlertUSD)
	fmt.Fprintf(&b, "transport=%s telegram_token=%s amqp=%s webhook_token=%s", c.NotifyTransport, maskSecret(c.TelegramBotToken), redactDSN(c.AMQPURL), maskSecret(c.WebhookAuthToken))
	return b.String()
}

// redactDSN hides the password of a URL-shaped DSN.
func redactDSN(dsn string) string {
	if dsn == "" {
		return "(not set)"
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return maskSecret(dsn)
	}
	return u.Redacted()
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// parseBindings reads "id:address[:label]" entries separated by commas.
func parseBindings(s string) ([]domain.SubscriberBinding, error) {
	var out []domain.SubscriberBinding
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, ":", 3)
		if len(parts) < 2 || parts[1] == "" {
			return nil, fmt.Errorf("entry %q: want id:address[:label]", item)
		}
		id, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", item, err)
		}
		b := domain.SubscriberBinding{SubscriberID: id, Address: parts[1], Active: true}
		if len(parts) == 3 {
			b.Label = parts[2]
		}
		out = append(out, b)
	}
	return out, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
