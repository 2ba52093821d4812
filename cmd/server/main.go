package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/oggyb/ffm-club/internal/app"
	"github.com/oggyb/ffm-club/internal/cache"
	"github.com/oggyb/ffm-club/internal/config"
	"github.com/oggyb/ffm-club/internal/db"
	"github.com/oggyb/ffm-club/internal/logger"
	"github.com/oggyb/ffm-club/internal/mail"
	"github.com/oggyb/ffm-club/internal/server"
	"github.com/oggyb/ffm-club/internal/service/account"
	"github.com/oggyb/ffm-club/internal/service/conversation"
	"github.com/oggyb/ffm-club/internal/service/interaction"
	"github.com/oggyb/ffm-club/internal/service/profile"
	"github.com/oggyb/ffm-club/internal/storage"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.L().Error("failed to load config", "err", err)
		os.Exit(1)
	}

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}

	store, err := storage.New(cfg)
	if err != nil {
		log.Error("failed to init object storage", "err", err)
		os.Exit(1)
	}
	mailer, err := mail.New(cfg, log)
	if err != nil {
		log.Error("failed to init mailer", "err", err)
		os.Exit(1)
	}

	appCtx := app.New(cfg, database, redisCache, store, mailer, log)

	if cfg.App.ENV == "development" && os.Getenv("SEED_ON_START") != "" {
		if err := db.SeedTestData(database, cfg.Auth.BCryptCost); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	accounts := account.NewRegistrar(appCtx)
	registrars := []server.Registrar{
		accounts,
		profile.NewRegistrar(appCtx),
		interaction.NewRegistrar(appCtx),
		conversation.NewRegistrar(appCtx),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.StartGRPCServer(gctx, cfg, log, accounts.Service(), registrars...)
	})
	g.Go(func() error {
		return server.StartHTTPServer(gctx, cfg.HTTP.Addr, server.NewHTTPHandler(appCtx), log)
	})
	if err := g.Wait(); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
