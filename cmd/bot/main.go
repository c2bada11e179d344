// Package main contains the entrypoint for the task delegation bot.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okonst/taskmate/internal/bot"
	"github.com/okonst/taskmate/internal/config"
	"github.com/okonst/taskmate/internal/database"
	"github.com/okonst/taskmate/internal/httpapi"
	"github.com/okonst/taskmate/internal/logger"
	"github.com/okonst/taskmate/internal/observability"
	"github.com/okonst/taskmate/internal/session"
	"github.com/okonst/taskmate/internal/vkteams"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger, db,
// gateway client, sessions, engine, dispatcher, scheduler, http surface),
// handles graceful shutdown, and returns an exit code.
func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	gateway := vkteams.NewClient(cfg.API.BaseURL, cfg.API.Token, log)

	info, err := gateway.SelfGet(ctx)
	if err != nil {
		log.Error("Failed to fetch bot info from gateway", "error", err)
		return 1
	}
	log.Info("Gateway reachable", "bot_id", info.UserID, "bot_nick", info.Nick)

	sessions := session.NewStore(cfg.Bot.SessionTTL)
	sessions.Flush() // all chats start in idle mode
	sessions.StartJanitor(ctx, time.Minute)

	metrics := observability.NewMetrics("taskmate", sessions.Len)

	engine := bot.NewEngine(log, cfg, store, sessions, gateway, metrics)
	dispatcher := bot.NewDispatcher(log, gateway, engine, cfg.Bot.PollInterval, cfg.Bot.PollTimeout, metrics)
	sweep := bot.NewReminderSweep(log, cfg, store, gateway, metrics)

	sched, err := bot.NewScheduler(log, map[string]bot.TaskSpec{
		"reminder_sweep": {Every: cfg.Bot.ReminderInterval, Run: sweep.Run},
	})
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	httpSrv := httpapi.New(log, cfg.HTTP.Addr, gateway, gateway, store)

	app := bot.NewBot(log, dispatcher, sched, httpSrv)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
