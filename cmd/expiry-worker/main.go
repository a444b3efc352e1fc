package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/pointhub/pointhub-api/internal/config"
	"github.com/pointhub/pointhub-api/internal/domain/account"
	"github.com/pointhub/pointhub-api/internal/domain/claim"
	"github.com/pointhub/pointhub-api/internal/domain/ledger"
	"github.com/pointhub/pointhub-api/internal/domain/notification"
	"github.com/pointhub/pointhub-api/internal/domain/redemption"
	"github.com/pointhub/pointhub-api/internal/domain/reward"
	"github.com/pointhub/pointhub-api/internal/pkg/database"
	"github.com/pointhub/pointhub-api/internal/pkg/logger"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, LogFile: cfg.LogFile}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().Msg("Starting expiry-worker")

	db, err := database.NewPostgres(cfg.DatabaseURL, database.PoolConfig{MaxOpenConns: 5})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	refundPolicy, err := redemption.ParseRefundPolicy(cfg.RedemptionExpiryRefund)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid REDEMPTION_EXPIRY_REFUND")
	}
	pointsPerCredit, err := decimal.NewFromString(cfg.PointsPerCredit)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid POINTS_PER_CREDIT")
	}

	runner := database.NewTxRunner(db, cfg.DBTxMaxAttempts)
	events := notification.NewPublisher(rdb, cfg.EventsChannel)
	ledgerService := ledger.NewService(runner, ledger.NewRepository(db), claim.NewGuard(runner, claim.NewRepository(db)), events, pointsPerCredit)
	rewardRepo := reward.NewRepository(db)

	// Sweeps never redeem, so no click guard
	redemptionService := redemption.NewService(
		runner,
		redemption.NewRepository(db),
		rewardRepo,
		account.NewRepository(db),
		ledgerService,
		nil,
		events,
		redemption.Config{
			TTL:          cfg.RedemptionTTL,
			RefundPolicy: refundPolicy,
			SweepBatch:   cfg.ExpirySweepBatch,
			Location:     cfg.StreakLocation(),
		},
	)

	worker := redemption.NewExpiryWorker(redemptionService, cfg.ExpirySweepInterval)
	if err := worker.Start(cfg.SweepOnStart()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start expiry worker")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("Shutting down expiry-worker...")
	if err := worker.Stop(); err != nil {
		log.Error().Err(err).Msg("Expiry worker did not stop cleanly")
	}
	log.Info().Msg("expiry-worker exited")
}
