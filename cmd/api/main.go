package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/pointhub/pointhub-api/internal/config"
	"github.com/pointhub/pointhub-api/internal/domain/account"
	"github.com/pointhub/pointhub-api/internal/domain/audit"
	"github.com/pointhub/pointhub-api/internal/domain/claim"
	"github.com/pointhub/pointhub-api/internal/domain/ledger"
	"github.com/pointhub/pointhub-api/internal/domain/notification"
	"github.com/pointhub/pointhub-api/internal/domain/progression"
	"github.com/pointhub/pointhub-api/internal/domain/redemption"
	"github.com/pointhub/pointhub-api/internal/domain/reward"
	"github.com/pointhub/pointhub-api/internal/domain/streak"
	"github.com/pointhub/pointhub-api/internal/middleware"
	"github.com/pointhub/pointhub-api/internal/pkg/database"
	"github.com/pointhub/pointhub-api/internal/pkg/jwt"
	"github.com/pointhub/pointhub-api/internal/pkg/logger"
	pkgresponse "github.com/pointhub/pointhub-api/internal/pkg/response"
)

// handlers groups everything the router serves
type handlers struct {
	provision   func(http.Handler) http.Handler
	account     *account.Handler
	ledger      *ledger.Handler
	reward      *reward.Handler
	redemption  *redemption.Handler
	streak      *streak.Handler
	progression *progression.Handler
	audit       *audit.Handler
}

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env, LogFile: cfg.LogFile}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting PointHub API")

	db, err := database.NewPostgres(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if cfg.AutoMigrate {
		if err := database.Migrate(context.Background(), db); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	h, err := buildHandlers(cfg, db, rdb)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	r := newRouter(cfg, jwtService, h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func buildHandlers(cfg *config.Config, db *sqlx.DB, rdb *redis.Client) (*handlers, error) {
	pointsPerCredit, err := decimal.NewFromString(cfg.PointsPerCredit)
	if err != nil {
		return nil, err
	}
	refundPolicy, err := redemption.ParseRefundPolicy(cfg.RedemptionExpiryRefund)
	if err != nil {
		return nil, err
	}
	loc := cfg.StreakLocation()

	runner := database.NewTxRunner(db, cfg.DBTxMaxAttempts)
	events := notification.NewPublisher(rdb, cfg.EventsChannel)

	// ---------- Repositories ----------
	accountRepo := account.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	claimRepo := claim.NewRepository(db)
	rewardRepo := reward.NewRepository(db)
	redemptionRepo := redemption.NewRepository(db)
	auditRepo := audit.NewRepository(db)
	xpRepo := progression.NewRepository(db)

	// ---------- Services ----------
	accountService := account.NewService(accountRepo)
	guard := claim.NewGuard(runner, claimRepo)
	ledgerService := ledger.NewService(runner, ledgerRepo, guard, events, pointsPerCredit)
	rewardService := reward.NewService(rewardRepo)
	redemptionService := redemption.NewService(
		runner,
		redemptionRepo,
		rewardRepo,
		accountRepo,
		ledgerService,
		claim.NewClickGuard(rdb, cfg.RedemptionClickWindow),
		events,
		redemption.Config{
			TTL:          cfg.RedemptionTTL,
			RefundPolicy: refundPolicy,
			SweepBatch:   cfg.ExpirySweepBatch,
			Location:     loc,
		},
	)
	streakService := streak.NewService(runner, accountRepo, guard, ledgerService, events, loc)
	auditService := audit.NewService(auditRepo)
	progressionService := progression.NewService(runner, accountRepo, xpRepo, auditService, events)

	return &handlers{
		provision:   account.Provision(accountService),
		account:     account.NewHandler(accountService),
		ledger:      ledger.NewHandler(ledgerService),
		reward:      reward.NewHandler(rewardService),
		redemption:  redemption.NewHandler(redemptionService),
		streak:      streak.NewHandler(streakService),
		progression: progression.NewHandler(progressionService),
		audit:       audit.NewHandler(auditService),
	}, nil
}

func newRouter(cfg *config.Config, jwtService *jwt.Service, h *handlers) chi.Router {
	// Every authenticated route also makes sure the caller has a ledger row
	verify := middleware.Auth(jwtService)
	authMiddleware := func(next http.Handler) http.Handler {
		return verify(h.provision(next))
	}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Mount("/accounts", h.account.Routes(authMiddleware))
		r.Mount("/points", h.ledger.Routes(authMiddleware))
		r.Mount("/streaks", h.streak.Routes(authMiddleware))

		r.Mount("/rewards", h.reward.Routes(authMiddleware))
		r.Route("/rewards/{id}/redeem", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/", h.redemption.Redeem)
		})
		r.With(authMiddleware).Get("/businesses/{id}/rewards", h.reward.ListByBusiness)

		r.Mount("/redemptions", h.redemption.Routes(authMiddleware))
		r.Mount("/business", h.progression.Routes(authMiddleware))

		r.Route("/admin", func(r chi.Router) {
			r.Mount("/points", h.ledger.AdminRoutes(authMiddleware))
			r.Mount("/businesses", h.progression.AdminRoutes(authMiddleware))
			r.Mount("/audit-logs", h.audit.Routes(authMiddleware))

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware)
				r.Use(middleware.RequireAdmin())
				r.Get("/upgrades", h.progression.PendingUpgrades)
				r.Post("/redemptions/expire", h.redemption.Expire)
			})
		})
	})

	return r
}
