package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bitscreen/internal/config"
	"github.com/MrSnakeDoc/bitscreen/internal/filters"
	"github.com/MrSnakeDoc/bitscreen/internal/httpserver"
	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bitscreen/internal/index"
	"github.com/MrSnakeDoc/bitscreen/internal/logger"
	"github.com/MrSnakeDoc/bitscreen/internal/redis"
	"github.com/MrSnakeDoc/bitscreen/internal/scheduler"
	"github.com/MrSnakeDoc/bitscreen/internal/settings"
	"github.com/MrSnakeDoc/bitscreen/internal/sources/origin"
	"github.com/MrSnakeDoc/bitscreen/internal/store"
	redisstore "github.com/MrSnakeDoc/bitscreen/internal/store/redis"
	"github.com/MrSnakeDoc/bitscreen/internal/utils"
	"github.com/MrSnakeDoc/bitscreen/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	syncer      *scheduler.ImportSyncer
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	backend, redisClient, storePing, storeRevision := openBackend(cfg, loggerClient)

	db, err := store.Open(context.Background(), backend, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open store: %v", err)
		os.Exit(1)
	}

	filterStore := store.NewFilterStore(db)
	filterService := filters.New(filterStore, loggerClient)
	settingsService := settings.New(store.NewConfigStore(db), cfg.NodeConfigFile, loggerClient)

	syncIndex := index.NewSyncIndex()
	syncTrigger := make(chan struct{}, 1)
	syncer := scheduler.NewImportSyncer(
		filterStore,
		origin.NewClient(cfg.OriginTimeout),
		syncIndex,
		loggerClient,
		cfg.SyncInterval,
		cfg.SyncConcurrency,
		syncTrigger,
	)

	d := deps.Deps{
		Logger:           loggerClient,
		StartTime:        time.Now(),
		Version:          version.Version,
		Commit:           version.Commit,
		BuildDate:        version.BuildDate,
		GoVersion:        version.GoVersion,
		TimeNow:          time.Now,
		AllowedHosts:     cfg.AllowedHosts,
		AllowedCIDRS:     cfg.AllowedCIDRS,
		TrustProxy:       cfg.TrustProxy,
		CORSOrigins:      cfg.CORSOrigins,
		SharedRateBurst:  cfg.SharedRateBurst,
		SharedRatePerMin: cfg.SharedRatePerMin,
		Filters:          filterService,
		Settings:         settingsService,
		Database:         db,
		StorePing:        storePing,
		StoreRevision:    storeRevision,
		SyncIndex:        syncIndex,
		Syncer:           syncer,
		SyncInterval:     cfg.SyncInterval,
		SyncTrigger:      syncTrigger,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		syncer:      syncer,
	}
}

// openBackend selects where the store document lives. Redis is dialed
// early so a bad address fails the process at boot. The ping and revision
// funcs are nil for the file backend.
func openBackend(cfg *config.Config, log logger.Logger) (
	store.Backend, *goredis.Client, func(context.Context) error, func(context.Context) (int64, error),
) {
	if cfg.StoreDriver != config.StoreDriverRedis {
		fb := store.NewFileBackend(cfg.DatabaseFile)
		log.Info("using file store", logger.String("path", fb.Path()))
		return fb, nil, nil, nil
	}

	log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	client, err := redis.Connect(context.Background(), redis.OptionsFromConfig(cfg), log)
	if err != nil {
		log.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Info("Redis initialized successfully")

	backend := redisstore.NewBackend(client, cfg.RedisKey)
	return backend, client, backend.Ping, backend.Revision
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting BitScreen v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("BitScreen %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.syncer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start import syncer: %w", err)
	}
	a.logger.Info("import syncer started",
		logger.Duration("interval", a.cfg.SyncInterval),
		logger.Int("concurrency", a.cfg.SyncConcurrency))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.syncer.Stop()
		return err
	}

	a.syncer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		utils.CloseLogged(a.redisClient, "redis", a.logger)
	}

	a.logger.Info("✅ BitScreen stopped cleanly")
	return nil
}
