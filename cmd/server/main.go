// Package main runs the whale alert service: webhook and RPC ingest,
// classification, subscriber fan-out and the trade journal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"whale-alerts/internal/classify"
	"whale-alerts/internal/config"
	"whale-alerts/internal/delivery"
	"whale-alerts/internal/dexscreener"
	"whale-alerts/internal/httpjson"
	"whale-alerts/internal/ingest"
	"whale-alerts/internal/metadata"
	"whale-alerts/internal/notify"
	"whale-alerts/internal/observability"
	"whale-alerts/internal/pipeline"
	"whale-alerts/internal/pricing"
	"whale-alerts/internal/solana"
	"whale-alerts/internal/storage"
	chstore "whale-alerts/internal/storage/clickhouse"
	"whale-alerts/internal/storage/memory"
	"whale-alerts/internal/storage/migrations"
	pgstore "whale-alerts/internal/storage/postgres"
	redisstore "whale-alerts/internal/storage/redis"
)

// pruneInterval is how often expired dedup markers are removed.
const pruneInterval = time.Hour

// Server holds the wired components.
type Server struct {
	cfg    *config.Config
	logger *logrus.Logger

	stores     *allStores
	rpc        *solana.HTTPClient
	oracle     *pricing.Oracle
	processor  *pipeline.Processor
	dispatcher *ingest.Dispatcher
	watcher    atomic.Pointer[ingest.RPCWatcher]
	started    time.Time
}

// allStores holds the storage implementations selected by config.
type allStores struct {
	registry storage.SubscriberRegistry
	dedup    storage.DedupStore
	journal  storage.TradeJournal
}

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides LISTEN_ADDR)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse/Redis")
	envFile := flag.String("env-file", ".env", "Environment file to load")
	flag.Parse()

	logger := logrus.New()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	if *useMemory {
		cfg.UseMemory()
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	configureLogger(logger, cfg)
	logger.WithField("config", cfg.String()).Info("configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer cleanup()

	sender, closeSender, err := createSender(cfg, logger)
	if err != nil {
		logger.Fatalf("create sender: %v", err)
	}
	defer closeSender()

	server := newServer(cfg, logger, stores, sender)

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Infof("received signal %v, initiating graceful shutdown", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Warnf("received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("server error: %v", err)
	}
	logger.Info("shutdown complete")
}

func configureLogger(logger *logrus.Logger, cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(logger.Formatter)
}

// createStores opens the configured backends. Without a Postgres DSN the
// registry is in memory and seeded from SEED_BINDINGS; without a ClickHouse
// DSN the journal is in memory.
func createStores(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*allStores, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*allStores, func(), error) {
		cleanup()
		return nil, nil, err
	}
	stores := &allStores{}

	var pool *pgstore.Pool
	if cfg.PostgresDSN != "" {
		p, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return fail(fmt.Errorf("connect to postgres: %w", err))
		}
		closers = append(closers, p.Close)
		if err := migrations.RunPostgresMigrations(ctx, p); err != nil {
			return fail(fmt.Errorf("postgres migrations: %w", err))
		}
		pool = p
		stores.registry = pgstore.NewSubscriberRegistry(pool)
	} else {
		reg := memory.NewSubscriberRegistry()
		for i := range cfg.SeedBindings {
			if err := reg.AddBinding(ctx, &cfg.SeedBindings[i]); err != nil {
				return fail(fmt.Errorf("seed binding %s: %w", cfg.SeedBindings[i].Address, err))
			}
		}
		stores.registry = reg
		logger.WithField("bindings", len(cfg.SeedBindings)).Info("using in-memory subscriber registry")
	}

	switch cfg.DedupBackend {
	case config.BackendPostgres:
		stores.dedup = pgstore.NewDedupStore(pool)
	case config.BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		closers = append(closers, func() { _ = client.Close() })
		store := redisstore.NewDedupStore(client, "", cfg.DedupRetention)
		if err := store.Ping(ctx); err != nil {
			return fail(err)
		}
		stores.dedup = store
	default:
		stores.dedup = memory.NewDedupStore()
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return fail(fmt.Errorf("clickhouse: %w", err))
		}
		closers = append(closers, func() { _ = conn.Close() })
		stores.journal = chstore.NewTradeJournal(conn)
	} else {
		stores.journal = memory.NewTradeJournal()
	}

	return stores, cleanup, nil
}

// createSender builds the configured notification transport.
func createSender(cfg *config.Config, logger *logrus.Logger) (notify.Sender, func(), error) {
	switch cfg.NotifyTransport {
	case config.TransportTelegram:
		return notify.NewTelegramSender(cfg.TelegramBotToken, cfg.TelegramAPIURL, httpjson.WithTimeout(cfg.HTTPTimeout)), func() {}, nil
	case config.TransportAMQP:
		conn, ch, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			_ = ch.Close()
			_ = conn.Close()
		}
		return notify.NewAMQPSender(ch, cfg.AMQPExchange), closeFn, nil
	default:
		return notify.NewLogSender(logger), func() {}, nil
	}
}

func newServer(cfg *config.Config, logger *logrus.Logger, stores *allStores, sender notify.Sender) *Server {
	rpc := solana.NewHTTPClient(cfg.SolanaRPCEndpoint, solana.WithTimeout(cfg.HTTPTimeout))
	dex := dexscreener.NewClient(dexscreener.DefaultBaseURL, httpjson.WithTimeout(cfg.HTTPTimeout))

	var priceSources []pricing.Source
	switch cfg.PriceSource {
	case config.PriceSourceDexScreener:
		priceSources = append(priceSources, pricing.NewDexScreenerSource(dex), pricing.NewPythSource("", httpjson.WithTimeout(cfg.HTTPTimeout)))
	default:
		priceSources = append(priceSources, pricing.NewPythSource("", httpjson.WithTimeout(cfg.HTTPTimeout)), pricing.NewDexScreenerSource(dex))
	}
	oracle := pricing.NewOracle(pricing.Options{
		TTL:      cfg.PriceTTL,
		Timeout:  cfg.HTTPTimeout,
		Fallback: cfg.FallbackSOLPrice,
		Logger:   logger,
	}, priceSources...)

	resolver := metadata.NewResolver(
		metadata.NewCache(cfg.MetadataTTL, metadata.DefaultMaxEntries),
		metadata.Options{Timeout: cfg.HTTPTimeout, Logger: logger},
		metadata.NewDexScreenerSource(dex),
		metadata.NewPumpFunSource("", httpjson.WithTimeout(cfg.HTTPTimeout)),
		metadata.NewOnChainSource(rpc),
	)

	classifier := classify.New(oracle, resolver, classify.Options{MinValueUSD: cfg.MinAlertUSD, Logger: logger})
	deliverer := delivery.New(stores.registry, stores.dedup, sender, delivery.Options{
		MaxConcurrentSends: int64(cfg.MaxConcurrentSends),
		Logger:             logger,
	})
	processor := pipeline.New(classifier, deliverer, pipeline.Options{Journal: stores.journal, Logger: logger})
	dispatcher := ingest.NewDispatcher(stores.registry, processor, ingest.DispatcherOptions{
		Workers:   cfg.IngestWorkers,
		QueueSize: cfg.IngestQueueSize,
		Logger:    logger,
	})

	return &Server{
		cfg:        cfg,
		logger:     logger,
		stores:     stores,
		rpc:        rpc,
		oracle:     oracle,
		processor:  processor,
		dispatcher: dispatcher,
	}
}

// Run starts every component and blocks until ctx is cancelled or one fails.
func (s *Server) Run(ctx context.Context) error {
	s.started = time.Now()
	s.logger.Info("starting whale alert server")

	// Warm the price cache so the first trade does not pay for it.
	s.oracle.CurrentPrice(ctx)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.dispatcher.Run(ctx) })
	g.Go(func() error { return s.runPruner(ctx) })
	g.Go(func() error { return s.runHTTPServer(ctx) })

	if s.cfg.SolanaWSEndpoint != "" && s.cfg.RPCWatch {
		g.Go(func() error { return s.runWatcher(ctx) })
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runWatcher subscribes to logs for every tracked address.
func (s *Server) runWatcher(ctx context.Context) error {
	ws, err := solana.NewWSClient(ctx, s.cfg.SolanaWSEndpoint, nil)
	if err != nil {
		return fmt.Errorf("create websocket client: %w", err)
	}
	defer ws.Close()

	watcher := ingest.NewRPCWatcher(ws, s.rpc, s.stores.registry, s.dispatcher, ingest.WatcherOptions{Logger: s.logger})
	s.watcher.Store(watcher)
	return watcher.Run(ctx)
}

// runPruner removes dedup markers older than the retention window.
func (s *Server) runPruner(ctx context.Context) error {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			cutoff := time.Now().Add(-s.cfg.DedupRetention)
			n, err := s.stores.dedup.PruneBefore(ctx, cutoff)
			if err != nil {
				s.logger.WithError(err).Warn("prune dedup markers failed")
				continue
			}
			observability.RecordDedupPruned(n)
			if n > 0 {
				s.logger.WithField("removed", n).Info("pruned dedup markers")
			}
		}
	}
}

// runHTTPServer serves the webhook, health, status and metrics endpoints.
func (s *Server) runHTTPServer(ctx context.Context) error {
	mux := http.NewServeMux()
	ingest.NewWebhookHandler(s.dispatcher, s.cfg.WebhookAuthToken, s.logger).Register(mux)
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)

	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.cfg.ListenAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string          `json:"status"`
	Uptime        string          `json:"uptime"`
	Started       time.Time       `json:"started"`
	SOLPrice      string          `json:"sol_price"`
	Pipeline      pipeline.Stats  `json:"pipeline"`
	DroppedEvents int64           `json:"dropped_events"`
	Subscriptions int             `json:"subscriptions"`
	Backends      map[string]bool `json:"backends"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		Started:       s.started,
		SOLPrice:      s.oracle.CurrentPrice(r.Context()).StringFixed(2),
		Pipeline:      s.processor.Stats(),
		DroppedEvents: s.dispatcher.Dropped(),
		Backends: map[string]bool{
			"postgres":   s.cfg.PostgresDSN != "",
			"clickhouse": s.cfg.ClickhouseDSN != "",
			"redis":      s.cfg.DedupBackend == config.BackendRedis,
		},
	}
	if watcher := s.watcher.Load(); watcher != nil {
		resp.Subscriptions = watcher.Subscribed()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
