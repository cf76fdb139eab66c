package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hackmate/backend/internal/api/handler"
	"hackmate/backend/internal/api/middleware"
	"hackmate/backend/internal/chathub"
	"hackmate/backend/internal/config"
	"hackmate/backend/internal/hackathon"
	"hackmate/backend/internal/localization"
	"hackmate/backend/internal/logging"
	"hackmate/backend/internal/metrics"
	"hackmate/backend/internal/storage"
	"hackmate/backend/internal/teammatch"
	"hackmate/backend/internal/telegram"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func setupDependencies(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage.Service, error) {
	db, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	// Redis only backs the hackathon cache, so the server runs without it.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, hackathon cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = rdb.Close()
			rdb = nil
		}
	}

	s := storage.NewStorageService(db, rdb)
	if cfg.Database.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
		log.Info("database migrations complete")
	}

	log.Info("storage ready", zap.String("driver", cfg.Database.Driver), zap.Bool("redis", rdb != nil))
	return s, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.Auth.JWTSecret == config.DefaultJWTSecret {
		log.Warn("using the development JWT secret; set HACKMATE_AUTH_JWT_SECRET")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting hackmate backend", zap.String("addr", cfg.Server.Addr))

	// 1. Dependencies
	s, err := setupDependencies(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to set up storage", zap.Error(err))
	}
	m := metrics.New()

	// 2. Relay hub and the services around it
	hub := chathub.NewManagerService(s,
		chathub.WithLogger(log.Named("hub")),
		chathub.WithMetrics(m),
		chathub.WithPersistTimeout(cfg.Relay.PersistTimeout),
	)
	go hub.Run(ctx)

	var cache hackathon.Cache
	if s.Redis != nil {
		cache = s
	}
	finder := hackathon.NewFinder(cfg.Search, cache, cfg.Redis.CacheTTL, log.Named("hackathon"))
	if !finder.Enabled() {
		log.Warn("search API key not set, hackathon finder disabled")
	}

	if cfg.Telegram.BotToken != "" {
		loc, err := localization.Default()
		if err != nil {
			log.Fatal("failed to load locales", zap.Error(err))
		}
		bot, err := telegram.NewBotService(cfg.Telegram.BotToken, hub, loc, cfg.Relay.SendBuffer, log.Named("telegram"))
		if err != nil {
			log.Error("failed to start telegram bridge", zap.Error(err))
		} else {
			go bot.Run(ctx)
		}
	}

	// 3. HTTP
	h := handler.NewHandler(handler.Deps{
		Hub:     hub,
		Storage: s,
		Matcher: teammatch.NewMatcherService(s, log.Named("teammatch")),
		Finder:  finder,
		Tokens:  middleware.NewTokenIssuer(cfg.Auth),
		Config:  cfg,
		Log:     log,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.NewRouter(h, m),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", zap.Error(err))
	}

	select {
	case <-hub.Done():
	case <-shutdownCtx.Done():
		log.Warn("relay did not stop in time")
	}

	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
