package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-bot/internal/api/http"
	"github.com/spec-kit/ticket-bot/internal/api/http/handlers"
	"github.com/spec-kit/ticket-bot/internal/api/interaction"
	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/lock"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/persistence"
	"github.com/spec-kit/ticket-bot/internal/platform/discord"
	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/internal/service"
	"github.com/spec-kit/ticket-bot/internal/worker"
)

const (
	auditDepth      = 100
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Discord.Token == "" {
		logger.Fatal("DISCORD_TOKEN is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := map[string]handlers.Check{}

	store, history, settings, closeStore := openStore(ctx, cfg, logger, checks)
	defer closeStore()

	locker, closeLocker := openLocker(ctx, cfg, logger, checks)
	defer closeLocker()

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.Fatal("failed to create discord session", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	audit := service.NewAuditService(dispatcher, logger, auditDepth)
	if history != nil {
		audit.PersistTo(history)
	}
	audit.RegisterHandlers()

	catalog := domain.DefaultCatalog().WithQuestions(settings.Questions)
	client := discord.NewClient(session, cfg.Discord.GuildID)
	presenter := service.NewPresenter(catalog, settings)

	refresher := service.NewRefreshService(service.RefreshDependencies{
		Store:     store,
		Platform:  client,
		Presenter: presenter,
		Locker:    locker,
		Metrics:   metrics,
		Logger:    logger,
	})
	intake := service.NewIntakeCollector(client, presenter, cfg.Tickets.IntakeTimeout(), logger)
	archiver, err := service.NewArchiveService(service.ArchiveDependencies{
		Platform:  client,
		Presenter: presenter,
		Settings:  settings,
		Dir:       cfg.Archive.Dir,
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("failed to init archiver", zap.Error(err))
	}

	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{
		Store:      store,
		Platform:   client,
		Presenter:  presenter,
		Refresher:  refresher,
		Intake:     intake,
		Archiver:   archiver,
		Dispatcher: dispatcher,
		Locker:     locker,
		Catalog:    catalog,
		Settings:   settings,
		Limits: service.Limits{
			MaxPerUser:  cfg.Tickets.MaxPerUser,
			MaxPerGroup: cfg.Tickets.MaxPerGroup,
		},
		InitialRefreshDelay: cfg.Tickets.InitialRefreshDelay(),
		Metrics:             metrics,
		Logger:              logger,
	})

	router := interaction.NewRouter(lifecycle, intake, presenter, metrics, logger)
	gateway := discord.NewGateway(ctx, session, router, func(ctx context.Context) {
		reopened, err := lifecycle.Recover(ctx)
		if err != nil {
			logger.Error("startup recovery failed", zap.Error(err))
			return
		}
		logger.Info("startup recovery finished", zap.Int("reopened", reopened))
	}, logger)
	gateway.Register()

	if err := session.Open(); err != nil {
		logger.Fatal("failed to open discord session", zap.Error(err))
	}
	defer session.Close() //nolint:errcheck

	if cfg.Discord.AppID != "" {
		if err := gateway.RegisterCommands(cfg.Discord.AppID, cfg.Discord.GuildID); err != nil {
			logger.Error("failed to register commands", zap.Error(err))
		}
	}

	workerDone := worker.StartRefreshWorker(ctx, refresher, cfg.Tickets.RefreshInterval(), logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks, metrics),
		Tickets:        handlers.NewTicketsHandler(lifecycle, audit),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	_ = app.ShutdownWithContext(shutdownCtx)
	if err := lifecycle.Shutdown(shutdownCtx); err != nil {
		logger.Warn("intakes did not stop in time", zap.Error(err))
	}
	<-workerDone
}

// openStore selects the ticket store backend. Static settings always come
// from the document file; history is only persisted with postgres.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger, checks map[string]handlers.Check) (repository.TicketStore, repository.TicketHistoryRepository, domain.Settings, func()) {
	if cfg.Store.Backend != config.StoreBackendPostgres {
		fs := repository.NewFileStore(cfg.Store.DocumentPath, logger)
		checks["store"] = func(context.Context) error {
			if fs.Pending() {
				return errPendingSave
			}
			return nil
		}
		return fs, nil, fs.Settings(), func() {
			if err := fs.Flush(context.Background()); err != nil {
				logger.Error("final ticket document save failed", zap.Error(err))
			}
		}
	}

	settings := repository.ReadDocument(cfg.Store.DocumentPath, logger).Settings
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	checks["postgres"] = pg.Ping
	pool := pg.PoolHandle()
	return repository.NewPostgresStore(pool), repository.NewTicketHistoryRepository(pool), settings, pg.Close
}

// openLocker selects where ticket and user locks are held.
func openLocker(ctx context.Context, cfg *config.Config, logger *zap.Logger, checks map[string]handlers.Check) (lock.Locker, func()) {
	if cfg.Lock.Backend != config.LockBackendRedis {
		return lock.NewKeyedMutex(), func() {}
	}
	rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	checks["redis"] = rdb.Ping
	return lock.NewRedisLocker(rdb.Client, cfg.Lock.TTL(), logger), rdb.Close
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
