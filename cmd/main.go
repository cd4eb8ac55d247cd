/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/theguy000/QuillScribe/internal/config"
	"github.com/theguy000/QuillScribe/internal/logging"
	"github.com/theguy000/QuillScribe/internal/messaging"
	"github.com/theguy000/QuillScribe/internal/models"
	"github.com/theguy000/QuillScribe/internal/output"
	"github.com/theguy000/QuillScribe/internal/pipeline"
	"github.com/theguy000/QuillScribe/internal/server"
	"github.com/theguy000/QuillScribe/internal/settings"
	"github.com/theguy000/QuillScribe/internal/storage"
	"github.com/theguy000/QuillScribe/internal/transcribe"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	// Local .env is optional
	_ = godotenv.Load()

	if err := logging.Initialize(); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	cfg, err := config.LoadWithFile(*configPath)
	if err != nil {
		logging.LogError(err, "Invalid configuration")
		os.Exit(1)
	}

	// Re-init logging once the config file has had its say
	if err := logging.InitializeWithConfig(logging.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}); err != nil {
		logging.LogError(err, "Failed to reconfigure logging")
		os.Exit(1)
	}

	settingsStore, err := settings.NewStore("")
	if err != nil {
		logging.LogError(err, "Failed to open settings store")
		os.Exit(1)
	}

	modelManager, err := models.NewManager(cfg.Transcribe.ModelDir)
	if err != nil {
		logging.LogError(err, "Failed to prepare model directory")
		os.Exit(1)
	}

	transcriber, err := transcribe.New(cfg.Transcribe)
	if err != nil {
		logging.LogError(err, "Failed to create transcription engine",
			zap.String("engine", cfg.Transcribe.Engine))
		os.Exit(1)
	}

	clipboard, err := output.NewSystemClipboard()
	if err != nil {
		logging.LogError(err, "Failed to find clipboard utility")
		os.Exit(1)
	}
	dispatcher := output.NewDispatcher(cfg.Output, clipboard, output.NewSystemPaster())
	defer dispatcher.Close()

	db, err := storage.NewDatabase(cfg.Storage.DBPath)
	if err != nil {
		logging.LogError(err, "Failed to open database")
		os.Exit(1)
	}
	defer db.Close()
	store := storage.NewTranscriptionStore(db)

	// NATS is optional; the pipeline runs standalone without it
	var publisher pipeline.Publisher
	nats := messaging.NewNATSService(cfg.NATS)
	if err := nats.Connect(); err != nil {
		logging.LogWarn("NATS unavailable, running without messaging", zap.Error(err))
	} else {
		defer nats.Close()
		publisher = nats
	}

	// Redis is optional; enabled only when an address is configured
	var cache pipeline.Cache
	redisCache, err := messaging.NewRedisCache(context.Background(), cfg.Redis)
	if err != nil {
		logging.LogWarn("Redis unavailable, running without cache", zap.Error(err))
	} else if redisCache != nil {
		defer redisCache.Close()
		cache = redisCache
	}

	manager := pipeline.NewManager(cfg, transcribe.NewWorker(transcriber), dispatcher, store, publisher, cache)
	defer manager.Close()

	if publisher != nil {
		if _, err := nats.SubscribeToControl(func(cmd *messaging.ControlCommand) {
			handleControl(manager, cmd)
		}); err != nil {
			logging.LogWarn("Failed to subscribe to control commands", zap.Error(err))
		}
	}

	srv := server.New(cfg, manager, store, settingsStore, modelManager)

	// Shut down cleanly on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Sugar.Infow("Received shutdown signal", "signal", sig.String())
		if err := srv.Stop(); err != nil {
			logging.LogError(err, "Server shutdown failed")
		}
	}()

	if err := srv.Start(); err != nil {
		logging.LogError(err, "Server failed")
		os.Exit(1)
	}
}

// handleControl maps remote control commands onto the session manager
func handleControl(manager *pipeline.Manager, cmd *messaging.ControlCommand) {
	var err error
	switch cmd.Action {
	case "start":
		_, err = manager.Start()
	case "stop":
		err = manager.Stop()
	case "toggle":
		_, err = manager.Toggle()
	default:
		logging.LogWarn("Unknown control action", zap.String("action", cmd.Action))
		return
	}
	if err != nil {
		logging.LogWarn("Control command failed",
			zap.String("action", cmd.Action), zap.Error(err))
	}
}
