package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/ffm-club/internal/auth"
	"github.com/oggyb/ffm-club/internal/cache"
	"github.com/oggyb/ffm-club/internal/config"
	"github.com/oggyb/ffm-club/internal/mail"
	"github.com/oggyb/ffm-club/internal/realtime"
	"github.com/oggyb/ffm-club/internal/storage"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
// and is handed to every service constructor.
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Broker     *realtime.Broker
	Store      storage.ObjectStore
	Mailer     mail.Mailer
	Tokens     *auth.Tokens
	Logger     *slog.Logger
}

// New creates a new AppContext. The broker rides the cache's Redis client and
// tokens are built from cfg.Auth.
func New(
	cfg *config.Config,
	db *gorm.DB,
	rdb *cache.RedisCache,
	store storage.ObjectStore,
	mailer mail.Mailer,
	logger *slog.Logger,
) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Broker:     realtime.NewBroker(rdb.Client, logger),
		Store:      store,
		Mailer:     mailer,
		Tokens:     auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Logger:     logger,
	}
}
