package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/spbu-ds-practicum-2025/banking-core/internal/api"
	"github.com/spbu-ds-practicum-2025/banking-core/internal/config"
	"github.com/spbu-ds-practicum-2025/banking-core/internal/db"
	"github.com/spbu-ds-practicum-2025/banking-core/internal/domain"
	"github.com/spbu-ds-practicum-2025/banking-core/internal/events"
	"github.com/spbu-ds-practicum-2025/banking-core/internal/interbank"
	"github.com/spbu-ds-practicum-2025/banking-core/internal/logging"
	"github.com/spbu-ds-practicum-2025/banking-core/internal/memory"
)

// storage bundles the three ports a driver provides.
type storage struct {
	accounts domain.AccountRepository
	ledger   domain.LedgerRepository
	tx       domain.TransactionManager
	seed     func(ctx context.Context, account domain.Account) error
	close    func()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "banking-core: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	for _, w := range cfg.Warnings {
		logger.Warn("config value ignored", zap.String("detail", w))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handlerChecks := map[string]api.HealthCheck{}

	store, err := openStorage(ctx, cfg, logger, handlerChecks)
	if err != nil {
		return err
	}
	defer store.close()

	seeds, err := cfg.Accounts()
	if err != nil {
		return err
	}
	for _, account := range seeds {
		if err := store.seed(ctx, account); err != nil {
			return fmt.Errorf("failed to seed account %d: %w", account.Number, err)
		}
	}
	if len(seeds) > 0 {
		logger.Info("seed accounts loaded", zap.Int("count", len(seeds)))
	}

	publisher, err := openPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	var gateway domain.InterbankGateway = interbank.DisabledGateway{}
	if cfg.InterbankGatewayURL != "" {
		client := interbank.NewClient(interbank.Config{
			BaseURL:     cfg.InterbankGatewayURL,
			Timeout:     cfg.InterbankTimeout(),
			MaxFailures: cfg.InterbankBreakerMaxFailures,
		}, logger)
		handlerChecks["interbank"] = func(context.Context) error {
			if client.State() == gobreaker.StateOpen {
				return errors.New("circuit breaker open")
			}
			return nil
		}
		gateway = client
		logger.Info("interbank gateway configured", zap.String("url", cfg.InterbankGatewayURL))
	} else {
		logger.Warn("INTERBANK_GATEWAY_URL not set, interbank transfers will be rejected")
	}

	service := domain.NewTransferService(store.accounts, store.ledger, store.tx, gateway,
		domain.WithPolicy(cfg.Policy),
		domain.WithEventPublisher(publisher),
		domain.WithLogger(logger),
	)
	logger.Info("domain services initialized")

	handler := api.NewHandler(service, logger)
	for name, check := range handlerChecks {
		handler.AddHealthCheck(name, check)
	}

	addr := ":" + cfg.ServerPort
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", addr), zap.String("storage", cfg.StorageDriver))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down http server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	logger.Info("http server stopped")
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger, checks map[string]api.HealthCheck) (*storage, error) {
	if cfg.StorageDriver == config.StorageMemory {
		store := memory.NewStore()
		logger.Warn("using in-memory storage, data is lost on restart")
		return &storage{
			accounts: store,
			ledger:   store,
			tx:       store,
			seed: func(ctx context.Context, account domain.Account) error {
				store.AddAccount(ctx, account)
				return nil
			},
			close: func() {},
		}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	logger.Info("database connection pool initialized")
	checks["database"] = func(ctx context.Context) error { return pool.Ping(ctx) }

	accounts := db.NewAccountRepository(pool.Pool)
	return &storage{
		accounts: accounts,
		ledger:   db.NewLedgerRepository(pool.Pool),
		tx:       db.NewTransactionManager(pool.Pool, logger),
		seed: func(ctx context.Context, account domain.Account) error {
			exists, err := accounts.Exists(ctx, account.Number)
			if err != nil || exists {
				return err
			}
			return accounts.Create(ctx, &account)
		},
		close: pool.Close,
	}, nil
}

type closablePublisher interface {
	domain.EventPublisher
	io.Closer
}

func openPublisher(cfg *config.Config, logger *zap.Logger) (closablePublisher, error) {
	if cfg.RabbitMQURL == "" {
		logger.Info("RABBITMQ_URL not set, operation events disabled")
		return events.NoopPublisher{}, nil
	}

	publisher, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create rabbitmq publisher: %w", err)
	}
	logger.Info("rabbitmq publisher initialized", zap.String("exchange", cfg.RabbitMQExchange))
	return publisher, nil
}
