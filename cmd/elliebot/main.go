// Package main contains the entrypoint for the Ellie backend service.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/edgard/elliebot/internal/ai"
	"github.com/edgard/elliebot/internal/api"
	"github.com/edgard/elliebot/internal/chat"
	"github.com/edgard/elliebot/internal/config"
	"github.com/edgard/elliebot/internal/database"
	"github.com/edgard/elliebot/internal/logger"
	"github.com/edgard/elliebot/internal/scheduler"
	"github.com/edgard/elliebot/internal/server"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes all components (config, logger, db, upstream client, chat
// service, scheduler, HTTP server), blocks until shutdown, and returns an
// exit code.
func run(ctx context.Context) int {
	// A .env file is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	aiClient := ai.New(cfg.AI, log)
	if !aiClient.Configured() {
		log.Warn("No upstream API key configured; chat requests will fail until one is set")
	}

	chatSvc := chat.NewService(store, aiClient, log, cfg.Chat.HistoryLimit)
	handlers := api.NewHandlers(chatSvc, store, aiClient, log)
	router := api.NewRouter(handlers, log)

	sched, err := scheduler.New(log, &cfg.Scheduler, map[string]scheduler.TaskFunc{
		"db_maintenance": store.Maintain,
	})
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	srv := server.New(log, cfg, router, sched)

	log.Info("Starting Ellie backend...")
	runErr := srv.Run(ctx)
	if runErr != nil {
		log.Error("Service stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Service stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
