package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"airdroptracker/internal/claim"
	"airdroptracker/internal/config"
	"airdroptracker/internal/ledger"
	"airdroptracker/internal/server"
	"airdroptracker/internal/store"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}

	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(lvl)
	}

	ctx := context.Background()

	var st store.Store
	var closeStore func()
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("record store error")
		}
		st = pg
		closeStore = pg.Close
	} else {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory record store")
		st = store.NewMemoryStore()
	}

	var led ledger.Client
	if cfg.FakeLedger {
		logger.Warn().Msg("LEDGER_FAKE enabled, transactions are emulated in memory")
		led = ledger.NewFakeClient()
	} else {
		led, err = ledger.NewEthClient(ctx, ledger.EthClientConfig{
			RPCURL:          cfg.RPCURL,
			PrivateKeyHex:   cfg.WalletPrivateKey,
			ContractAddress: cfg.ContractAddress,
			ConfirmTimeout:  cfg.ConfirmTimeout,
			Logger:          logger.With().Str("component", "ledger").Logger(),
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("ledger client error")
		}
	}

	orch := claim.NewOrchestrator(st, led, logger.With().Str("component", "claim").Logger())
	reconciler := claim.NewReconciler(st, led, logger.With().Str("component", "reconcile").Logger())

	apiServer := server.NewServer(cfg, orch, reconciler, st, led, logger)

	sched, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler error")
	}
	_, err = sched.NewJob(
		gocron.DurationJob(cfg.ReconcileInterval),
		gocron.NewTask(func() {
			sweepCtx, cancel := context.WithTimeout(context.Background(), cfg.ReconcileInterval)
			defer cancel()
			apiServer.RunSweep(sweepCtx)
		}),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("sweep job error")
	}
	sched.Start()

	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server stopped")
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	_ = sched.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = apiServer.Shutdown(shutdownCtx)

	if closeStore != nil {
		closeStore()
	}
}
