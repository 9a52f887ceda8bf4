package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/emberleaf/backoffice/internal/api"
	"github.com/emberleaf/backoffice/internal/config"
	"github.com/emberleaf/backoffice/internal/mail"
	"github.com/emberleaf/backoffice/internal/ratelimit"
	"github.com/emberleaf/backoffice/internal/square"
	"github.com/emberleaf/backoffice/pkg/db"
)

func main() {
	// best-effort: a missing .env is fine, real env vars win
	_ = godotenv.Load()

	cfg := config.Load()

	logger := newLogger(cfg)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	dbCfg, err := db.LoadPostgresConfig()
	if err != nil {
		zap.L().Fatal("db config", zap.Error(err))
	}
	conn, err := db.NewPostgresConnection(dbCfg)
	if err != nil {
		zap.L().Fatal("db connect", zap.Error(err))
	}
	defer conn.Close()

	if err := db.InitSchema(context.Background(), conn); err != nil {
		zap.L().Fatal("schema init", zap.Error(err))
	}

	var squareClient square.Client
	if cfg.Square.Enabled() {
		squareClient = square.NewHTTPClient(cfg.Square)
		zap.L().Info("square sync enabled", zap.String("location_id", cfg.Square.LocationID))
	} else {
		zap.L().Info("square sync disabled, coupons are local-only")
	}

	var sender mail.Sender
	if cfg.SMTP.Enabled() {
		sender = mail.NewSMTPSender(cfg.SMTP)
	} else {
		zap.L().Info("smtp not configured, contact mail disabled")
	}

	store := ratelimit.NewMemoryStore()
	limiter := ratelimit.New(store)
	pruneTicker := time.NewTicker(15 * time.Minute)
	defer pruneTicker.Stop()
	go func() {
		// an hour is the longest preset window, so an hour of history is
		// all any limiter can need
		for now := range pruneTicker.C {
			store.Prune(now, time.Hour)
		}
	}()

	handler := api.NewRouter(conn, cfg, limiter, squareClient, sender)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			zap.L().Error("http server shutdown", zap.Error(err))
		}
		close(idleConnsClosed)
	}()

	zap.L().Info("starting backoffice", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		zap.L().Fatal("listen", zap.Error(err))
	}

	<-idleConnsClosed
	zap.L().Info("server stopped")
}

func newLogger(cfg config.Config) *zap.Logger {
	if cfg.IsProduction() {
		logger, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return logger
}
