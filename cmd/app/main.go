package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"netaccess-billing/internal/config"
	"netaccess-billing/internal/domain/ports/adapter"
	"netaccess-billing/internal/domain/ports/repository"
	"netaccess-billing/internal/infra/adapters/directory"
	"netaccess-billing/internal/infra/adapters/mail"
	payAdapters "netaccess-billing/internal/infra/adapters/payment"
	tele "netaccess-billing/internal/infra/adapters/telegram"
	"netaccess-billing/internal/infra/api"
	pg "netaccess-billing/internal/infra/db/postgres"
	"netaccess-billing/internal/infra/i18n"
	"netaccess-billing/internal/infra/logging"
	"netaccess-billing/internal/infra/metrics"
	red "netaccess-billing/internal/infra/redis"
	"netaccess-billing/internal/infra/security"
	"netaccess-billing/internal/infra/worker"
	"netaccess-billing/internal/usecase"
)

// set with -ldflags
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "developer mode: console logs, emails written to disk")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	logger.Info().Str("version", version).Str("commit", commit).Bool("dev", cfg.Runtime.Dev).Msg("starting")

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	if cfg.Database.Migrate {
		if err := pg.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal().Err(err).Msg("migrations")
		}
	}
	go pg.ReportPoolStats(ctx, pool, 15*time.Second, logger)

	// ---- Redis (optional) ----
	var (
		locker  adapter.Locker
		limiter api.RateLimiter
		cache   red.RedisClient
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
		limiter = red.NewRateLimiter(redisClient)
		cache = redisClient
	} else {
		logger.Warn().Msg("redis not configured: no notification rate limit, no catalog cache")
	}

	encSvc, err := security.NewEncryptionService(cfg.Security.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption")
	}

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	userRepo := pg.NewUserRepo(pool)
	invoiceRepo := pg.NewInvoiceRepo(pool)
	purchaseRepo := pg.NewPurchaseRepo(pool)
	intervalRepo := pg.NewIntervalRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	methodRepo := pg.NewPaymentMethodRepo(pool, encSvc)
	var articleRepo repository.ArticleRepository = pg.NewArticleRepo(pool)
	if cache != nil {
		articleRepo = pg.NewArticleRepoCacheDecorator(articleRepo, cache, logger)
	}

	// ---- Side-effect adapters ----
	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Email.Language)
	if err != nil {
		logger.Fatal().Err(err).Msg("translations")
	}
	renderer, err := mail.NewRenderer(tr)
	if err != nil {
		logger.Fatal().Err(err).Msg("mail templates")
	}
	var mailer adapter.Mailer
	if cfg.Runtime.Dev || cfg.Email.ServerToken == "" {
		mailer = mail.NewDevMailer(cfg.Email.DevDir, renderer, logger)
	} else {
		pm, err := mail.NewPostmarkMailer(cfg.Email, renderer)
		if err != nil {
			logger.Fatal().Err(err).Msg("postmark")
		}
		mailer = pm
	}

	var dir adapter.DirectorySync
	if cfg.Directory.URL != "" {
		dir = directory.NewWebhookSync(cfg.Directory, logger)
	} else {
		dir = directory.NewNoopSync(logger)
	}

	var alerter adapter.AdminAlerter
	if cfg.Telegram.Token != "" {
		bot, err := tele.NewBotAlerter(cfg.Telegram, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		alerter = bot
	} else {
		alerter = tele.NewNoopAlerter(logger)
	}

	workers := worker.NewPool(cfg.Billing.Workers, cfg.Billing.Queue, 30*time.Second, logger)
	workers.Start(ctx)

	fx := usecase.Effects{Directory: dir, Mailer: mailer, Alerter: alerter, Pool: workers}

	// ---- Use cases ----
	engine := usecase.NewSubscriptionEngine(intervalRepo, userRepo, tm, logger)
	gateway := payAdapters.NewHMACGateway(cfg.HTTP.PublicURL)
	payUC := usecase.NewPaymentUseCase(usecase.PaymentDeps{
		Invoices:  invoiceRepo,
		Purchases: purchaseRepo,
		Users:     userRepo,
		Methods:   methodRepo,
		Locker:    tm,
		Engine:    engine,
		TM:        tm,
		Gateway:   gateway,
		Ledger:    payAdapters.NewLedgerHTTPClient(15 * time.Second),
		Effects:   fx,
	}, logger)
	invUC := usecase.NewInvoiceUseCase(usecase.InvoiceDeps{
		Invoices:  invoiceRepo,
		Purchases: purchaseRepo,
		Intervals: intervalRepo,
		Articles:  articleRepo,
		Payments:  paymentRepo,
		Methods:   methodRepo,
		Users:     userRepo,
		Engine:    engine,
		TM:        tm,
		Effects:   fx,
	}, logger)
	purchaseUC := usecase.NewPurchaseUseCase(invoiceRepo, purchaseRepo, intervalRepo, engine, tm, fx, logger)
	notifUC := usecase.NewNotificationUseCase(methodRepo, invoiceRepo, purchaseRepo, payUC, gateway, locker, fx, logger)
	methodUC := usecase.NewPaymentMethodUseCase(paymentRepo, methodRepo, tm, logger)
	balanceUC := usecase.NewBalanceUseCase(userRepo, methodRepo, tm, tm, logger)
	articleUC := usecase.NewArticleUseCase(articleRepo, logger)

	// ---- HTTP ----
	srv := api.NewServer(api.Deps{
		Invoices:      invUC,
		Purchases:     purchaseUC,
		Payments:      payUC,
		Notifications: notifUC,
		Methods:       methodUC,
		Balances:      balanceUC,
		Articles:      articleUC,
		Auth:          api.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL),
		Translator:    tr,
		Limiter:       limiter,
		LimitKey:      red.NotifyKey,
		NotifyLimit:   cfg.Redis.NotifyRateLimit,
		Timeout:       cfg.HTTP.Timeout,
	}, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	shutdown(server, workers, logger)
	cancel()
}

// shutdown stops intake first, then lets queued effects finish.
func shutdown(server *http.Server, workers *worker.Pool, logger *zerolog.Logger) {
	logger.Info().Msg("shutdown requested")
	sctx, scancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer scancel()
	if err := server.Shutdown(sctx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	workers.Stop()
	logger.Info().Msg("stopped")
}
