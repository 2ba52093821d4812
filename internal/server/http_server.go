package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oggyb/ffm-club/internal/app"
)

// NewHTTPHandler serves the ops endpoints: health, metrics and, with the
// local object store, uploaded files.
func NewHTTPHandler(appCtx *app.AppContext) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler(appCtx))
	r.Handle("/metrics", promhttp.Handler())

	if appCtx.Config.Storage.Provider == "local" {
		files := http.FileServer(http.Dir(appCtx.Config.Storage.LocalDir))
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", files))
	}
	return r
}

func healthHandler(appCtx *app.AppContext) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()

		if err := pingDB(ctx, appCtx); err != nil {
			appCtx.Logger.Warn("health: db unreachable", "err", err)
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := appCtx.RedisCache.Ping(ctx); err != nil {
			appCtx.Logger.Warn("health: redis unreachable", "err", err)
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

func pingDB(ctx context.Context, appCtx *app.AppContext) error {
	sqlDB, err := appCtx.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// StartHTTPServer serves handler on addr until ctx is done.
func StartHTTPServer(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("starting ops HTTP server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
