package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/transaction-orchestrator/internal/audit"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/clients/account"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/clients/identity"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/config"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/events/kafka"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/fraud"
	interfaces "github.com/sheikh-saqib/transaction-orchestrator/internal/interfaces"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/ledger"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/logging"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/server"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/storage/memory"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/storage/redis"
	"github.com/sheikh-saqib/transaction-orchestrator/internal/storage/sqlstore"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the transaction HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.Logging)
	gin.SetMode(cfg.Server.Mode)

	// closers run in reverse order on the way out
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn().Err(err).Msg("shutdown cleanup failed")
			}
		}
	}()

	store, storeCloser, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	if storeCloser != nil {
		closers = append(closers, storeCloser)
	}

	var counter interfaces.RiskCounter
	if cfg.Redis.Addr != "" {
		rc := redis.Dial(redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, rc.Close)
		counter = rc
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis risk counter")
	} else {
		counter = memory.NewMemoryRiskCounter()
		logger.Warn().Msg("redis not configured, risk counters are per instance")
	}

	sinks := []audit.Sink{audit.NewHTTPSink(cfg.Services.AuditURL)}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		closers = append(closers, publisher.Close)
		sinks = append(sinks, audit.NewKafkaSink(publisher))
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("mirroring audit events to kafka")
	}
	emitter := audit.NewEmitter(logger, audit.Options{
		Workers:     cfg.Audit.Workers,
		QueueSize:   cfg.Audit.QueueSize,
		SinkTimeout: cfg.Services.AuditTimeout,
	}, sinks...)

	scorer := fraud.NewScorer(fraud.StoreHistory{Store: store}, counter, logger)
	accounts := account.NewClient(cfg.Services.AccountURL, cfg.Services.MutationTimeout)
	verifier := identity.NewClient(cfg.Services.AuthURL, cfg.Services.AuthTimeout)

	orchestrator := ledger.NewLedger(store, scorer, accounts, emitter, logger)

	handler := server.NewHandler(orchestrator, logger,
		server.Dependency{Name: "store", Pinger: store},
		server.Dependency{Name: "cache", Pinger: counter},
	)
	srv := server.New(logger, cfg.Server, server.NewRouter(logger, handler, verifier))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("http shutdown: %w", err))
	}
	if err := emitter.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("audit queue not drained before shutdown deadline")
	}

	logger.Info().Msg("server exited")
	return shutdownErr
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (interfaces.LedgerStore, func() error, error) {
	if cfg.Driver == "memory" {
		logger.Warn().Msg("using in-memory transaction store, records are lost on restart")
		return memory.NewMemoryLedgerStore(), nil, nil
	}

	store, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("migrate %s store: %w", cfg.Driver, err)
	}
	logger.Info().Str("driver", cfg.Driver).Msg("transaction store ready")
	return store, store.Close, nil
}
