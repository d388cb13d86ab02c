package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peterbourgon/ff"
	"go.uber.org/zap"

	"tripnav/internal/api"
	"tripnav/internal/buildinfo"
	"tripnav/internal/config"
	"tripnav/internal/draft"
	"tripnav/internal/events"
	"tripnav/internal/logging"
	"tripnav/internal/routing"
	"tripnav/internal/routing/ors"
	"tripnav/internal/store"
	"tripnav/internal/transport"
)

func main() {
	fs := flag.NewFlagSet("tripnav", flag.ExitOnError)
	var (
		configPath = fs.String("config", "", "path to YAML config file")
		port       = fs.Int("port", 0, "listen port (overrides config)")
		logLevel   = fs.String("log-level", "", "debug, info, warn or error")
		orsURL     = fs.String("ors-url", "", "routing provider base URL")
		simplify   = fs.Float64("simplify", 0, "polyline simplification tolerance in degrees for saved routes")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("TRIPNAV")); err != nil {
		log.Fatalf("flags: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *orsURL != "" {
		cfg.Provider.BaseURL = *orsURL
	}

	logger, err := logging.NewNamed(cfg.Logging.Env, cfg.Logging.Level, "tripnav")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, *simplify, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, simplify float64, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	table, err := cfg.ProfileTable()
	if err != nil {
		return err
	}

	builder, closeCache, err := newBuilder(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	stream, pub, closeEvents, err := newEvents(cfg, logger)
	if err != nil {
		return err
	}
	defer closeEvents()

	engine := draft.NewEngine(
		store.Registry{Store: st},
		builder,
		transport.NewEstimator(table),
		draft.WithRouteSaver(st),
		draft.WithPublisher(pub),
		draft.WithLogger(logger.Named("draft")),
		draft.WithSimplifyTolerance(simplify),
	)

	srv := &api.Server{
		Engine:      engine,
		Store:       st,
		Stream:      stream,
		Profiles:    table,
		Logger:      logger.Named("http"),
		CORSOrigins: cfg.Server.CORSOrigins,
		Settings: map[string]any{
			"provider":    cfg.Provider.BaseURL != "" || cfg.Provider.APIKey != "",
			"postgres":    cfg.Store.DatabaseURL != "",
			"redis":       cfg.Redis.URL != "",
			"kafka":       len(cfg.Kafka.Brokers) > 0,
			"cacheSize":   cfg.Cache.Size,
			"simplifyTol": simplify,
		},
	}

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		bi := buildinfo.Info()
		logger.Info("API listening",
			zap.String("addr", httpSrv.Addr),
			zap.String("version", bi["version"]),
			zap.String("commit", bi["commit"]))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Info("using in-memory store")
		return store.NewMemory(), func() {}, nil
	}
	pg, err := store.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	if cfg.Migrate {
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	logger.Info("using postgres store")
	return pg, func() { _ = pg.Close() }, nil
}

func newBuilder(cfg config.Config, logger *zap.Logger) (*routing.Builder, func(), error) {
	closer := func() {}
	opts := []routing.Option{
		routing.WithTimeout(cfg.Provider.Timeout),
		routing.WithLogger(logger.Named("routing")),
	}
	switch {
	case cfg.Redis.URL != "":
		rc, err := routing.NewRedisCache(cfg.Redis.URL, cfg.Cache.TTL, logger.Named("cache"))
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		opts = append(opts, routing.WithCache(rc))
		closer = func() { _ = rc.Close() }
	case cfg.Cache.Size > 0:
		opts = append(opts, routing.WithCache(routing.NewMemoryCache(cfg.Cache.Size)))
	}

	var provider routing.Provider
	if cfg.Provider.APIKey != "" || cfg.Provider.BaseURL != "" {
		provider = ors.New(cfg.Provider.BaseURL, cfg.Provider.APIKey,
			ors.WithRateLimit(cfg.Provider.Rate, cfg.Provider.Burst),
			ors.WithLogger(logger.Named("ors")))
	} else {
		logger.Warn("no routing provider configured, builds use straight fallback")
	}
	return routing.NewBuilder(provider, opts...), closer, nil
}

func newEvents(cfg config.Config, logger *zap.Logger) (events.Stream, events.Publisher, func(), error) {
	var (
		stream  events.Stream
		pubs    events.Fanout
		closers []func()
	)
	if cfg.Redis.URL != "" {
		rb, err := events.NewRedisBroker(cfg.Redis.URL, logger.Named("events"))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("redis broker: %w", err)
		}
		stream = rb
		pubs = append(pubs, rb)
		closers = append(closers, func() { _ = rb.Close() })
	} else {
		b := events.NewBroker()
		stream = b
		pubs = append(pubs, b)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger.Named("kafka"))
		pubs = append(pubs, kp)
		closers = append(closers, func() { _ = kp.Close() })
	}
	return stream, pubs, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}
