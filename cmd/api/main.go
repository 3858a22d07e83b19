package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoSim-25-26J-441/promptlab-backend/config"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/auth"
	authmw "github.com/GoSim-25-26J-441/promptlab-backend/internal/auth/middleware"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/bootstrap"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/autosave"
	cronjob "github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/cron"
)

const serviceName = "promptlab-backend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := bootstrap.NewLogger(os.Stdout, cfg.App.LogLevel, cfg.App.Environment)
	slog.SetDefault(logger)
	bootstrap.SetGinMode(cfg.App.Environment)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := bootstrap.OpenBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backends.Close()

	var verifier authmw.TokenVerifier
	if cfg.Firebase.CredentialsPath != "" {
		client, err := auth.InitializeFirebase(ctx, &cfg.Firebase)
		if err != nil {
			return err
		}
		verifier = client
	} else {
		logger.Warn("firebase not configured, trusting X-User-Id header")
	}

	sched := bootstrap.NewAutoSave(cfg, backends.Drafts, logger)

	purger := autosave.NewPurger(backends.Drafts, cfg.AutoSave.MaxDrafts, logger)
	purgeCron := cronjob.NewScheduler(purger, logger)
	if err := purgeCron.Start(cfg.AutoSave.PurgeSchedule); err != nil {
		return err
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Config:      cfg,
		Backends:    backends,
		AutoSave:    sched,
		Verifier:    verifier,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "env", cfg.App.Environment, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	// Pending drafts get one last save before storage closes.
	if err := sched.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := purgeCron.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
