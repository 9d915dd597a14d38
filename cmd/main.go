package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vestra-invest/ledger-service/internal/api/handlers"
	"github.com/vestra-invest/ledger-service/internal/api/routes"
	"github.com/vestra-invest/ledger-service/internal/domain/services/funding"
	"github.com/vestra-invest/ledger-service/internal/domain/services/investing"
	"github.com/vestra-invest/ledger-service/internal/domain/services/referral"
	"github.com/vestra-invest/ledger-service/internal/domain/services/tier"
	"github.com/vestra-invest/ledger-service/internal/domain/services/wallet"
	"github.com/vestra-invest/ledger-service/internal/domain/services/withdrawal"
	"github.com/vestra-invest/ledger-service/internal/infrastructure/config"
	"github.com/vestra-invest/ledger-service/internal/infrastructure/database"
	"github.com/vestra-invest/ledger-service/internal/infrastructure/notify"
	"github.com/vestra-invest/ledger-service/internal/infrastructure/repositories"
	"github.com/vestra-invest/ledger-service/internal/workers/accrual"
	"github.com/vestra-invest/ledger-service/pkg/graceful"
	"github.com/vestra-invest/ledger-service/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		return
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database connection", "error", err)
		}
	}()

	if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
		log.Error("Failed to run migrations", "error", err)
		return
	}

	txRunner := database.NewRunner(db)

	// repositories
	walletRepo := repositories.NewWalletRepository(db, log)
	ledgerRepo := repositories.NewLedgerRepository(db, log)
	depositRepo := repositories.NewDepositRepository(db, log)
	withdrawalRepo := repositories.NewWithdrawalRepository(db, log)
	investmentRepo := repositories.NewInvestmentRepository(db, log)
	referralRepo := repositories.NewReferralRepository(db, log)
	investorRepo := repositories.NewInvestorRepository(db, log)

	// event emitter; falls back to a no-op when Redis is not configured
	var depositNotifier funding.Notifier = notify.NoopNotifier{}
	var withdrawalNotifier withdrawal.Notifier = notify.NoopNotifier{}
	if cfg.Redis.Addr != "" {
		redisNotifier, err := notify.NewRedisNotifier(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Channel, log)
		if err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			return
		}
		defer redisNotifier.Close()
		depositNotifier = redisNotifier
		withdrawalNotifier = redisNotifier
		log.Info("Redis event emitter connected", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	}

	// config decimals are validated at load time
	minDeposit, _ := cfg.Referral.MinDepositDecimal()
	generationRates, _ := cfg.Referral.RateDecimals()
	baseDailyRate, _ := cfg.Investment.BaseDailyRateDecimal()
	firstThreshold, _ := cfg.Tier.FirstThresholdDecimal()

	// services
	walletSvc := wallet.NewService(walletRepo, ledgerRepo, txRunner, log)
	tierSvc := tier.NewService(investorRepo, walletRepo, txRunner, tier.Config{
		FirstThreshold: firstThreshold,
		UsePortfolio:   cfg.Tier.UsePortfolio,
	}, log)
	investingSvc := investing.NewService(investmentRepo, walletRepo, walletSvc, tierSvc, txRunner, investing.Config{
		LockDays:        cfg.Investment.LockDays,
		BaseDailyRate:   baseDailyRate,
		DefaultCurrency: cfg.Investment.DefaultCurrency,
	}, log)
	referralSvc := referral.NewService(referralRepo, walletRepo, walletSvc, referral.Config{
		MinDeposit:      minDeposit,
		GenerationRates: generationRates,
		Currency:        cfg.Investment.DefaultCurrency,
	}, log)
	fundingSvc := funding.NewService(depositRepo, walletRepo, walletSvc, referralSvc, tierSvc, depositNotifier, txRunner, log)
	withdrawalSvc := withdrawal.NewService(withdrawalRepo, walletRepo, walletSvc, withdrawalNotifier, txRunner, withdrawal.Config{
		Currency: cfg.Investment.DefaultCurrency,
	}, log)

	// accrual worker
	worker := accrual.NewWorker(investmentRepo, investingSvc, accrual.Config{
		Schedule:    cfg.Workers.AccrualSchedule,
		BatchSize:   cfg.Workers.BatchSize,
		EncashAfter: time.Duration(cfg.Investment.EncashAfterHours) * time.Hour,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := worker.Start(ctx); err != nil {
			log.Error("Accrual worker failed", "error", err)
		}
	}()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := routes.SetupRouter(routes.Handlers{
		Wallet:     handlers.NewWalletHandlers(walletSvc, log),
		Funding:    handlers.NewFundingHandlers(fundingSvc, log),
		Withdrawal: handlers.NewWithdrawalHandlers(withdrawalSvc, log),
		Investment: handlers.NewInvestmentHandlers(investingSvc, log),
		Referral:   handlers.NewReferralHandlers(referralSvc, tierSvc, log),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("Ledger service listening", "addr", server.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", "error", err)
		}
	}()

	shutdown := graceful.NewShutdownManager(log)
	shutdown.Register(graceful.ShutdownFunc(func(timeout time.Duration) error {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	}))
	shutdown.Register(graceful.ShutdownFunc(func(timeout time.Duration) error {
		worker.Stop()
		cancel()
		return nil
	}))
	shutdown.WaitForShutdown()
}
