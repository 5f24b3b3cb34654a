package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/trogers1052/market-notifier/internal/api"
	"github.com/trogers1052/market-notifier/internal/config"
	"github.com/trogers1052/market-notifier/internal/database"
	"github.com/trogers1052/market-notifier/internal/kafka"
	"github.com/trogers1052/market-notifier/internal/metrics"
	"github.com/trogers1052/market-notifier/internal/monitor"
	"github.com/trogers1052/market-notifier/internal/pricing"
	"github.com/trogers1052/market-notifier/internal/pubsub"
)

// recordStore is satisfied by both the PostgreSQL and in-memory stores
type recordStore interface {
	monitor.NotificationStore
	monitor.SubscriberStore
	monitor.PriceSource
	api.Store
	pricing.PriceWriter
}

func serveCmd() *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the market monitor and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log, migrateFirst)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply migrations before starting")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger, migrateFirst bool) error {
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				log.Warn().Err(err).Msg("Close failed")
			}
		}
	}()

	store, err := openStore(cfg, log, migrateFirst)
	if err != nil {
		return err
	}
	if c, ok := store.(io.Closer); ok {
		closers = append(closers, c)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	listeners := monitor.NewListeners(monitor.ListenersConfig{
		MailboxSize:     cfg.Monitor.MailboxSize,
		DeliveryTimeout: cfg.Monitor.DeliveryTimeout,
	}, recorder, log)
	defer listeners.Close()

	registry := monitor.NewRegistry(store)
	listeners.Add(monitor.AllSubscribers, monitor.NewEmailListener(registry, log))

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewNotificationProducer(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic, log)
		closers = append(closers, producer)
		listeners.Add(monitor.AllSubscribers, producer)
	}

	if cfg.Redis.Addr != "" {
		client, err := pubsub.NewClient(ctx, pubsub.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		closers = append(closers, client)
		listeners.Add(monitor.AllSubscribers, pubsub.NewPublisher(client, cfg.Redis.ChannelPrefix, log))
	}

	source, err := priceSource(ctx, cfg, store, log)
	if err != nil {
		return err
	}

	dispatcher := monitor.NewDispatcher(store, listeners, monitor.DispatcherConfig{
		PersistTimeout: cfg.Monitor.PersistTimeout,
	}, recorder, log)
	detector := monitor.NewChangeDetector(significance(cfg.Monitor))
	mon := monitor.NewMonitor(source, detector, registry, dispatcher, monitor.Config{
		InitialDelay: cfg.Monitor.InitialDelay,
		Period:       cfg.Monitor.Period,
	}, recorder, log)

	if err := mon.Start(); err != nil {
		return err
	}
	defer mon.Shutdown()

	handler := api.NewHandler(store, registry, mon, listeners, log)
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.SetupRoutes(handler, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}
	return nil
}

func openStore(cfg *config.Config, log zerolog.Logger, migrateFirst bool) (recordStore, error) {
	if cfg.Database.Store == config.StoreMemory {
		log.Info().Msg("Using in-memory store with sample data")
		return database.NewSeededMemoryStore(), nil
	}

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	if migrateFirst {
		if err := db.Migrate(cfg.Database.MigrationsPath); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// priceSource builds the configured feed behind a circuit breaker
func priceSource(ctx context.Context, cfg *config.Config, store recordStore, log zerolog.Logger) (monitor.PriceSource, error) {
	base, err := store.CurrentPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load price catalogue: %w", err)
	}

	var src pricing.Source
	switch cfg.Monitor.PriceSource {
	case config.SourceSimulator:
		src = pricing.NewSimulator(base, nil, log).WithWriter(store)
	case config.SourceDatabase:
		src = store
	case config.SourceKafka:
		consumer := kafka.NewPriceConsumer(cfg.Kafka.Brokers, cfg.Kafka.PriceTopic, cfg.Kafka.GroupID, base, log)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("Price consumer stopped")
			}
		}()
		src = consumer
	default:
		return nil, fmt.Errorf("unknown price source %q", cfg.Monitor.PriceSource)
	}

	log.Info().Str("source", cfg.Monitor.PriceSource).Int("symbols", len(base)).Msg("Price source ready")
	return pricing.NewBreaker(src, pricing.BreakerConfig{
		Name:                cfg.Monitor.PriceSource,
		ConsecutiveFailures: uint32(cfg.Monitor.BreakerFailures),
		OpenTimeout:         cfg.Monitor.BreakerTimeout,
	}, log), nil
}

func significance(cfg config.MonitorConfig) monitor.Significance {
	switch cfg.Significance {
	case config.SignificanceAlways:
		return monitor.AlwaysSignificant
	case config.SignificanceRandom:
		seed := uint64(time.Now().UnixNano())
		return monitor.RandomSignificance(cfg.SignificanceProbability, rand.New(rand.NewPCG(seed, seed>>1)))
	default:
		return monitor.ThresholdSignificance(cfg.SignificanceThreshold)
	}
}
