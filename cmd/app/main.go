// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"learnhub-checkout/internal/config"
	"learnhub-checkout/internal/domain/ports/adapter"
	"learnhub-checkout/internal/infra/adapters/backend"
	"learnhub-checkout/internal/infra/api"
	"learnhub-checkout/internal/infra/api/apiv1"
	pg "learnhub-checkout/internal/infra/db/postgres"
	"learnhub-checkout/internal/infra/events"
	"learnhub-checkout/internal/infra/i18n"
	"learnhub-checkout/internal/infra/logging"
	"learnhub-checkout/internal/infra/metrics"
	"learnhub-checkout/internal/infra/receipt"
	red "learnhub-checkout/internal/infra/redis"
	"learnhub-checkout/internal/infra/sched"
	"learnhub-checkout/internal/infra/scheduler"
	"learnhub-checkout/internal/infra/telegram"
	"learnhub-checkout/internal/infra/worker"
	"learnhub-checkout/internal/usecase"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("checkout service stopped")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Str("commit", commit).Bool("dev", cfg.Runtime.Dev).Msg("starting checkout service")

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	if cfg.Database.Migrate {
		if err := pg.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Msg("database migrations applied")
	}
	go pg.ReportPoolStats(ctx, pool, 15*time.Second, logger)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)
	sessions := red.NewSessionStore(redisClient, 24*time.Hour)

	// ---- Backend ----
	be, err := backend.New(&cfg.Backend, logger)
	if err != nil {
		return fmt.Errorf("backend client: %w", err)
	}
	plans := red.NewPlanCacheDecorator(be, redisClient, cfg.Redis.TTL, logger)

	// ---- Repositories ----
	ledger := pg.NewCheckoutLedgerRepo(pool)
	receiptRepo := pg.NewReceiptRepo(pool)

	// ---- Events & background work ----
	bus := events.NewBus(logger)
	views := usecase.NewViewStore()
	events.SubscribeMetrics(bus)
	events.SubscribeViewInvalidation(bus, views)

	jobs := worker.NewPool(cfg.Receipt.Workers, logger)
	// queued receipt jobs are drained by Stop, not dropped on the signal
	jobs.Start(context.WithoutCancel(ctx))
	defer jobs.Stop()

	var notifier adapter.Notifier
	if cfg.Telegram.Token != "" {
		bn, err := telegram.NewBotNotifier(&cfg.Telegram, logger)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		notifier = bn
	} else {
		notifier = telegram.NewNoopNotifier(logger)
	}
	telegram.Subscribe(bus, notifier, jobs)

	// ---- Receipts ----
	var mailer adapter.ReceiptMailer
	if m := receipt.NewSendGridMailer(&cfg.Receipt, logger); m != nil {
		mailer = m
	} else {
		logger.Warn().Msg("sendgrid not configured; receipts will not be emailed")
	}

	// ---- Use cases ----
	resolver := usecase.NewPlanResolver(be, plans, be, logger)
	timeline := usecase.NewTimelineUseCase(resolver, be, plans, views, bus, logger)
	poller := usecase.NewAccessPoller(be, be, cfg.Checkout.PollAttempts, cfg.Checkout.PollInterval, logger)
	receipts := usecase.NewReceiptUseCase(receiptRepo, receipt.NewPDFRenderer(&cfg.Receipt), mailer, timeline, be, bus, logger)
	checkout := usecase.NewCheckoutUseCase(
		sessions, ledger, be, be, poller, timeline, views, bus, locker, jobs, receipts,
		usecase.CheckoutOptions{
			KeyID:          cfg.Payment.Razorpay.KeyID,
			CompanyName:    cfg.Payment.Razorpay.CompanyName,
			Currency:       cfg.Payment.Currency,
			LockTTL:        cfg.Checkout.LockTTL,
			ReconcileDelay: cfg.Checkout.ReconcileDelay,
		},
		logger,
	)

	// ---- Scheduler ----
	cron := scheduler.NewScheduler(time.Minute, logger)
	janitor := sched.NewSessionJanitor(checkout, cfg.Checkout.SessionTTL, logger)
	reconciler := sched.NewPaymentReconciler(checkout, cfg.Scheduler.StaleAfter, logger)
	if err := cron.Add("session_janitor", cfg.Scheduler.JanitorCron, func(ctx context.Context) error {
		_, err := janitor.Run(ctx)
		return err
	}); err != nil {
		return err
	}
	if err := cron.Add("payment_reconciler", cfg.Scheduler.ReconcilerCron, func(ctx context.Context) error {
		_, err := reconciler.Run(ctx)
		return err
	}); err != nil {
		return err
	}
	cron.Start(ctx)
	defer cron.Stop()

	// ---- HTTP ----
	msgs, err := i18n.NewCatalog(i18n.LocalesFS)
	if err != nil {
		return fmt.Errorf("locales: %w", err)
	}
	v1 := apiv1.NewServer(resolver, timeline, checkout, receipts, rateLimiter,
		apiv1.RateLimit{Limit: cfg.Checkout.RateLimit, Window: cfg.Checkout.RateWindow},
		apiv1.NewAuthManager(cfg.Auth.JWTSecret, time.Hour), msgs, logger)
	srv := api.NewServer(cfg.Server, api.NewRouter(v1, cfg.Server.RequestTimeout, logger), logger)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	return nil
}
