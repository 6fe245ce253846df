// Command platform runs the RegenFi investment platform API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/regenfi/platform/internal/app"
	"github.com/regenfi/platform/internal/app/config"
	"github.com/regenfi/platform/internal/app/httpapi"
	"github.com/regenfi/platform/internal/app/storage/blob"
	"github.com/regenfi/platform/internal/app/storage/postgres"
	"github.com/regenfi/platform/internal/platform/migrations"
	"github.com/regenfi/platform/pkg/logger"
)

func main() {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	log := logger.NewDefault("platform")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("loading configuration failed")
		os.Exit(1)
	}
	schedule, err := config.LoadFeeSchedule(cfg.FeeScheduleFile)
	if err != nil {
		log.WithError(err).Error("loading fee schedule failed")
		os.Exit(1)
	}

	if err := run(cfg, schedule, log); err != nil {
		log.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, schedule *config.FeeSchedule, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores := app.Stores{}
	if cfg.DatabaseURL != "" {
		db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrations.Apply(ctx, db.DB); err != nil {
			return err
		}
		pg := postgres.New(db)
		stores = app.Stores{
			Accounts:      pg,
			Deposits:      pg,
			Contributions: pg,
			Wallets:       pg,
			Holdings:      pg,
			Settings:      pg,
		}
		log.Info("using postgres storage")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	proofs, err := blob.New(cfg.BlobDir)
	if err != nil {
		return err
	}
	stores.Proofs = proofs

	application, err := app.New(cfg, schedule, stores, nil, nil, log)
	if err != nil {
		return err
	}
	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
		defer cancel()
		if err := application.Stop(shutdownCtx); err != nil {
			log.WithError(err).Warn("stopping background services failed")
		}
	}()

	audit, err := httpapi.NewAuditLog(cfg.AuditLogFile)
	if err != nil {
		return err
	}
	defer audit.Close()

	handler := httpapi.NewHandler(application, []byte(cfg.JWTSecret), audit, log.WithField("component", "httpapi"))
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("http server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
