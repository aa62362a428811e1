package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"telegram-p2p-trading/internal/application"
	"telegram-p2p-trading/internal/config"
	"telegram-p2p-trading/internal/domain/ports/repository"
	"telegram-p2p-trading/internal/infra/adapters/lightning"
	tele "telegram-p2p-trading/internal/infra/adapters/telegram"
	"telegram-p2p-trading/internal/infra/currency"
	pg "telegram-p2p-trading/internal/infra/db/postgres"
	"telegram-p2p-trading/internal/infra/i18n"
	"telegram-p2p-trading/internal/infra/logging"
	"telegram-p2p-trading/internal/infra/metrics"
	red "telegram-p2p-trading/internal/infra/redis"
	"telegram-p2p-trading/internal/infra/sched"
	"telegram-p2p-trading/internal/infra/security"
	"telegram-p2p-trading/internal/infra/web"
	"telegram-p2p-trading/internal/infra/worker"
	"telegram-p2p-trading/internal/usecase"
	"telegram-p2p-trading/internal/wizard"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("bot stopped")
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis (optional) ----
	var redisClient *red.Client
	if cfg.Redis.URL != "" {
		redisClient, err = red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	// ---- Repositories ----
	var userRepo repository.UserRepository = pg.NewUserRepo(pool)
	if redisClient != nil {
		userRepo = pg.NewUserRepoCacheDecorator(userRepo, redisClient, logger)
	}
	var orderOpts []pg.OrderRepoOption
	if cfg.Security.SecretKey != "" {
		box, err := security.NewSecretBox(cfg.Security.SecretKey)
		if err != nil {
			return err
		}
		orderOpts = append(orderOpts, pg.WithSecretCipher(box))
	} else {
		logger.Warn().Msg("security.secret_key not set; preimages are stored in clear")
	}
	orderRepo := pg.NewOrderRepo(pool, orderOpts...)
	communityRepo := pg.NewCommunityRepo(pool)
	pendingRepo := pg.NewPendingPaymentRepo(pool)

	// ---- Adapters ----
	catalog, err := currency.NewCatalog()
	if err != nil {
		return err
	}
	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Wizard.Language)
	if err != nil {
		return err
	}
	botAPI, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return err
	}
	botAPI.Debug = cfg.Runtime.Dev
	messenger := tele.NewMessenger(botAPI, tr, logger)
	invoices := lightning.NewInvoiceDecoder(cfg.Lightning.Network)
	node := lightning.NewNoopNode()

	// ---- Wizard engine ----
	registry := wizard.NewRegistry()
	var store wizard.Store = wizard.NewMemoryStore(registry)
	if cfg.Wizard.SessionBackend == "redis" {
		store = red.NewSessionStore(redisClient, registry, cfg.Wizard.SessionTTL)
	}
	engine := wizard.NewEngine(registry, store, messenger, logging.Component(logger, "WizardEngine"),
		wizard.WithObserver(metrics.WizardObserver{}))

	// ---- Use cases ----
	userUC := usecase.NewUserUseCase(userRepo, tm, logging.Component(logger, "UserUC"))
	communityUC := usecase.NewCommunityUseCase(communityRepo, logging.Component(logger, "CommunityUC"))
	orderUC := usecase.NewOrderUseCase(orderRepo, userRepo, node, messenger, engine, logging.Component(logger, "OrderUC"))
	wizardUC, err := usecase.NewWizardUseCase(usecase.WizardDeps{
		Users:       userRepo,
		Orders:      orderRepo,
		Pending:     pendingRepo,
		Communities: communityUC,
		Tx:          tm,
		Invoices:    invoices,
		Admins:      messenger,
		Node:        node,
		Currencies:  catalog,
		Sender:      messenger,
		Actions:     orderUC,
	}, usecase.WizardSettings{
		HoldInvoiceExpiration: cfg.Wizard.HoldInvoiceExpiration,
		PaymentAttempts:       cfg.Wizard.PaymentAttempts,
	}, engine, logging.Component(logger, "WizardUC"))
	if err != nil {
		return err
	}
	logger.Info().Strs("wizards", registry.IDs()).Msg("wizards registered")

	// ---- Telegram ----
	facade := application.NewBotFacade(userUC, wizardUC, engine, logger)
	var botOpts []tele.BotOption
	if redisClient != nil {
		botOpts = append(botOpts,
			tele.WithUserLock(red.NewLocker(redisClient)),
			tele.WithRateLimit(red.NewRateLimiter(redisClient), cfg.Bot.RatePerMinute),
		)
	}
	bot, err := tele.NewBot(botAPI, messenger, facade, worker.NewKeyedPool(cfg.Bot.Workers, 0, logger), logger, botOpts...)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Run(gctx) })

	expiry := sched.NewOrderExpiryWorker(cfg.Scheduler.ExpiryInterval, cfg.Wizard.HoldInvoiceExpiration,
		cfg.Scheduler.ExpiryBatch, orderUC, logger)
	g.Go(func() error { return expiry.Run(gctx) })

	g.Go(func() error { return reportPoolStats(gctx, pool) })

	if cfg.Admin.Port > 0 {
		var auth *web.AuthManager
		if cfg.Security.JWTSecret != "" {
			auth = web.NewAuthManager(cfg.Security.JWTSecret, time.Hour)
		} else {
			logger.Warn().Msg("security.jwt_secret not set; admin API rejects every request")
		}
		admin := web.NewServer(engine, orderUC, auth, cfg.Admin.RatePerMinute, logger)
		g.Go(func() error { return admin.Run(gctx, cfg.Admin.Port) })
	}

	logger.Info().Str("version", version).Str("session_backend", cfg.Wizard.SessionBackend).
		Str("network", cfg.Lightning.Network).Msg("bot started")
	return g.Wait()
}

func reportPoolStats(ctx context.Context, pool *pgxpool.Pool) error {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			st := pool.Stat()
			metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
		}
	}
}
