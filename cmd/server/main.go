// Command server runs the payment-gated registration HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mihaimyh/paygate/internal/config"
	"github.com/mihaimyh/paygate/internal/httpapi"
	"github.com/mihaimyh/paygate/pkg/account"
	"github.com/mihaimyh/paygate/pkg/billing/mercadopago"
	prommetrics "github.com/mihaimyh/paygate/pkg/billing/metrics/prometheus"
	"github.com/mihaimyh/paygate/pkg/entitlement"
	zerologadapter "github.com/mihaimyh/paygate/pkg/entitlement/logger/zerolog"
	"github.com/mihaimyh/paygate/storage/memory"
	"github.com/mihaimyh/paygate/storage/postgres"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	store, cleanup, err := newStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	billingMetrics := prommetrics.NewMetrics(registry, "paygate")

	provider, err := mercadopago.NewProvider(mercadopago.Config{
		AccessToken: cfg.MercadoPagoAccessToken,
		Metrics:     billingMetrics,
	})
	if err != nil {
		return fmt.Errorf("payment provider init: %w", err)
	}

	coordinator, err := entitlement.NewCoordinator(entitlement.Config{
		Store:       store,
		Provider:    provider,
		FrontendURL: cfg.FrontendURL,
		BackendURL:  cfg.BackendURL,
		Logger:      zerologadapter.NewLogger(logger),
		Metrics:     billingMetrics,
	})
	if err != nil {
		return fmt.Errorf("coordinator init: %w", err)
	}

	api, err := httpapi.NewServer(httpapi.Config{
		Accounts:    account.NewService(store),
		Coordinator: coordinator,
		FrontendURL: cfg.FrontendURL,
		AdminToken:  cfg.AdminToken,
		Logger:      logger,
		Registry:    registry,
	})
	if err != nil {
		return fmt.Errorf("http server init: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Int("port", cfg.Port).
			Str("storage", cfg.Storage).
			Bool("admin_endpoint", cfg.AdminToken != "").
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (account.Store, func(), error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		if err := postgres.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		store, err := postgres.New(ctx, postgres.Config{ConnectionString: cfg.DatabaseURL})
		if err != nil {
			return nil, nil, fmt.Errorf("postgres init: %w", err)
		}
		logger.Info().Msg("using postgres storage")
		return store, store.Close, nil
	default:
		logger.Warn().Msg("using in-memory storage, data is lost on restart")
		return memory.New(), func() {}, nil
	}
}
