package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"club-payment-service/internal/config"
	"club-payment-service/internal/domain/ports/adapter"
	captchaAdapters "club-payment-service/internal/infra/adapters/captcha"
	emailAdapters "club-payment-service/internal/infra/adapters/email"
	payAdapters "club-payment-service/internal/infra/adapters/payment"
	"club-payment-service/internal/infra/api/apiv1"
	pg "club-payment-service/internal/infra/db/postgres"
	"club-payment-service/internal/infra/logging"
	"club-payment-service/internal/infra/metrics"
	red "club-payment-service/internal/infra/redis"
	"club-payment-service/internal/infra/sched"
	"club-payment-service/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop payment/email adapters)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	identityRepo := pg.NewIdentityRepo(pool)
	planRepo := pg.NewPlanRepo(pool)
	membershipRepo := pg.NewMembershipRepo(pool)
	eventRepo := pg.NewEventRepo(pool)
	ticketRepo := pg.NewTicketRepo(pool)
	productRepo := pg.NewProductRepo(pool)
	orderRepo := pg.NewOrderRepo(pool)
	instrumentRepo := pg.NewInstrumentRepo(pool)
	txnRepo := pg.NewTransactionRepo(pool)
	renewalLogRepo := pg.NewRenewalLogRepo(pool)

	// ---- Adapters ----
	var gateway adapter.PaymentGateway
	var sender adapter.EmailSender
	var verifier adapter.CaptchaVerifier
	if cfg.Runtime.Dev {
		gateway = payAdapters.NewNoopGateway()
		sender = emailAdapters.NewNoopSender(logger)
		verifier = captchaAdapters.NoopVerifier{}
	} else {
		gateway, err = payAdapters.NewSumUpGateway(cfg.Payment.SumUp.APIKey, cfg.Payment.SumUp.MerchantCode, cfg.Payment.SumUp.BaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("sumup gateway")
		}
		sender, err = emailAdapters.NewPostmarkSender(cfg.Email.PostmarkToken, cfg.Email.From)
		if err != nil {
			logger.Fatal().Err(err).Msg("postmark sender")
		}
		verifier, err = captchaAdapters.NewTurnstileVerifier(cfg.Captcha.Secret)
		if err != nil {
			logger.Fatal().Err(err).Msg("turnstile verifier")
		}
	}

	// ---- Use cases ----
	mailer := usecase.NewMailer(sender, logger)
	planUC := usecase.NewPlanUseCase(planRepo)
	catalogUC := usecase.NewCatalogUseCase(eventRepo, productRepo)
	checkoutUC := usecase.NewCheckoutUseCase(
		identityRepo, planRepo, membershipRepo, eventRepo, ticketRepo,
		productRepo, orderRepo, txnRepo, gateway, verifier,
		cfg.Shop.ShippingCents, cfg.Shop.Currency, logger,
	)
	confirmUC := usecase.NewConfirmUseCase(
		identityRepo, planRepo, membershipRepo, eventRepo, ticketRepo,
		productRepo, orderRepo, instrumentRepo, txnRepo, tm, gateway, mailer, logger,
	)
	renewUC := usecase.NewRenewalUseCase(
		identityRepo, planRepo, membershipRepo, instrumentRepo,
		txnRepo, renewalLogRepo, tm, gateway, mailer, logger,
	)

	// ---- HTTP server ----
	srv := apiv1.NewServer(checkoutUC, confirmUC, planUC, catalogUC, rateLimiter, cfg.Server.AdminAPIKey, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Background workers ----
	renewalWorker := sched.NewRenewalWorker(
		cfg.Scheduler.Interval, cfg.Scheduler.ItemDelay,
		cfg.Scheduler.RenewalLookahead, cfg.Scheduler.WarningWindow,
		cfg.Scheduler.BatchLimit, renewUC, locker, logger,
	)
	go func() { _ = renewalWorker.Run(ctx) }()

	sweeper := sched.NewPendingSweeper(
		cfg.Scheduler.Interval, cfg.Scheduler.SweepAge, cfg.Scheduler.BatchLimit,
		membershipRepo, ticketRepo, orderRepo, logger,
	)
	go func() { _ = sweeper.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
