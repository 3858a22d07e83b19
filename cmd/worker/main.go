package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/GoSim-25-26J-441/promptlab-backend/config"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/bootstrap"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/autosave"
	cronjob "github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/cron"
)

var errUsage = errors.New("usage: worker <purge|cron>")

func main() {
	if len(os.Args) < 2 {
		slog.Error(errUsage.Error())
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := bootstrap.NewLogger(os.Stdout, cfg.App.LogLevel, cfg.App.Environment)
	slog.SetDefault(logger)

	if err := run(os.Args[1], cfg, logger); err != nil {
		logger.Error("worker exited", "command", os.Args[1], "error", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// run executes one worker command. Storage is closed before it returns.
func run(command string, cfg *config.Config, logger *slog.Logger) error {
	if command != "purge" && command != "cron" {
		return fmt.Errorf("unknown command %q: %w", command, errUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := bootstrap.OpenBackends(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer backends.Close()

	purger := autosave.NewPurger(backends.Drafts, cfg.AutoSave.MaxDrafts, logger)

	if command == "purge" {
		n, err := purger.PurgeAll(ctx)
		if err != nil {
			return fmt.Errorf("purge: %w", err)
		}
		logger.Info("purge done", "deleted", n)
		return nil
	}

	c := cronjob.NewScheduler(purger, logger)
	if err := c.Start(cfg.AutoSave.PurgeSchedule); err != nil {
		return err
	}
	<-ctx.Done()
	return c.Stop(context.Background())
}
