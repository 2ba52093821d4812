// Package testutil wires in-memory collaborators for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/ffm-club/internal/app"
	"github.com/oggyb/ffm-club/internal/cache"
	"github.com/oggyb/ffm-club/internal/config"
	"github.com/oggyb/ffm-club/internal/db"
	"github.com/oggyb/ffm-club/internal/logger"
	"github.com/oggyb/ffm-club/internal/mail"
	"github.com/oggyb/ffm-club/internal/storage"
)

// Env is a fully wired AppContext backed by SQLite, miniredis, a temp-dir
// object store and the mock mailer.
type Env struct {
	App    *app.AppContext
	Redis  *miniredis.Miniredis
	Mailer *mail.Mock
}

// NewDB opens an isolated in-memory SQLite database with the full schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	// one connection keeps the shared in-memory database alive and
	// serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db.All()...))
	return database
}

// NewEnv builds an Env. mutate may adjust the config before wiring.
func NewEnv(t *testing.T, mutate ...func(*config.Config)) *Env {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.BCryptCost = 4
	cfg.Storage.LocalDir = t.TempDir()
	cfg.Storage.BaseURL = "http://files.test"
	for _, m := range mutate {
		m(cfg)
	}

	redisCache := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = redisCache.Close() })

	log := logger.Discard()
	mailer := mail.NewMock(log)
	store := storage.NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.BaseURL)

	return &Env{
		App:    app.New(cfg, NewDB(t), redisCache, store, mailer, log),
		Redis:  mr,
		Mailer: mailer,
	}
}

// SeedProfiles inserts bare profiles with the given ids.
func SeedProfiles(t *testing.T, database *gorm.DB, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, database.Create(&db.Profile{
			ID:          id,
			Username:    id,
			Email:       id + "@ffm.test",
			AccountType: "single",
		}).Error)
	}
}
