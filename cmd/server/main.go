package main

import (
	"context"
	"log"

	"github.com/alkime/journal/internal/config"
	"github.com/alkime/journal/internal/entry"
	"github.com/alkime/journal/internal/keyring"
	"github.com/alkime/journal/internal/logger"
	"github.com/alkime/journal/internal/refine"
	"github.com/alkime/journal/internal/server"
	"github.com/alkime/journal/internal/transcription"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	logger := logger.SetupLogger(cfg)

	repo, err := entry.Open(context.Background(), cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open entry database: %v", err)
	}
	defer repo.Close()

	deps := server.Deps{Entries: repo}

	if key := keyring.Resolve(keyring.OpenAI, cfg.OpenAIAPIKey); key != "" {
		deps.Transcriber = transcription.NewWhisper(key)
	} else {
		logger.Warn("OpenAI key not set, /transcribe is disabled")
	}

	if key := keyring.Resolve(keyring.Anthropic, cfg.AnthropicAPIKey); key != "" {
		deps.Corrector = refine.NewCorrector(key)
	} else {
		logger.Warn("Anthropic key not set, /transcript/process is disabled")
	}

	if cfg.StorageBackend == config.StorageLocal {
		deps.MediaDir = cfg.StorageDir
	}

	// Log startup information
	logger.Info("Starting journal server",
		"env", cfg.Env,
		"port", cfg.Port,
		"database", cfg.DatabasePath,
		"storage", cfg.StorageBackend,
	)

	srv := server.New(cfg, deps, logger)
	if err := server.Run(srv); err != nil {
		logger.Error("Failed to start server", "error", err)
		log.Fatalf("Fatal: %v", err)
	}
}
