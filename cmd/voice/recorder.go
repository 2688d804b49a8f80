package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alkime/journal/internal/apiclient"
	"github.com/alkime/journal/internal/audio"
	"github.com/alkime/journal/internal/config"
	"github.com/alkime/journal/internal/entry"
	"github.com/alkime/journal/internal/keyring"
	"github.com/alkime/journal/internal/recognition"
	"github.com/alkime/journal/internal/recognition/deepgram"
	"github.com/alkime/journal/internal/refine"
	"github.com/alkime/journal/internal/session"
	"github.com/alkime/journal/internal/storage"
	"github.com/alkime/journal/internal/transcription"
)

// recorder holds the long-lived collaborators behind recording sessions.
type recorder struct {
	sessions *session.Manager
	store    *entry.Store
}

func newRecorder(cfg *config.Config, logger *slog.Logger) (*recorder, error) {
	objects, err := newObjectStore(cfg)
	if err != nil {
		return nil, err
	}

	assembler, err := audio.NewAssembler(audio.EncoderConfig{SampleRate: cfg.SampleRate})
	if err != nil {
		return nil, fmt.Errorf("failed to create audio assembler: %w", err)
	}

	opts := clientOptions(cfg, logger)
	store := entry.NewStore(opts, objects, logger)

	deviceConf := audio.DefaultDeviceConfig()
	deviceConf.SampleRate = cfg.SampleRate

	engine := deepgram.New(deepgram.Config{
		APIKey:      keyring.Resolve(keyring.Deepgram, cfg.DeepgramAPIKey),
		Model:       cfg.DeepgramModel,
		Language:    cfg.DeepgramLanguage,
		SmartFormat: true,
		SampleRate:  cfg.SampleRate,
	})
	liveOpts := recognition.Options{
		RestartDelay: cfg.RecognitionRestartDelay,
		StopGrace:    cfg.RecognitionStopGrace,
	}

	manager := session.NewManager(session.Deps{
		NewDevice: func() session.CaptureDevice {
			return audio.NewDevice(deviceConf)
		},
		NewLive: func() session.LiveTranscriber {
			return recognition.NewTranscriber(engine, liveOpts, logger)
		},
		Fallback:  transcription.NewClient(opts, objects, logger),
		Refiner:   refine.NewRefiner(refine.NewDeepClient(opts), logger),
		Store:     store,
		Assembler: assembler,
		Logger:    logger,
	})

	return &recorder{sessions: manager, store: store}, nil
}

// Close discards any unsaved session and waits for background cleanup.
func (r *recorder) Close(ctx context.Context) {
	r.sessions.Shutdown(ctx)
	r.store.Wait()
}

// clientOptions configures collaborator clients. The entry store ignores
// Retries.
func clientOptions(cfg *config.Config, logger *slog.Logger) apiclient.Options {
	return apiclient.Options{
		BaseURL: cfg.APIBaseURL,
		UserID:  cfg.JournalUser,
		Timeout: cfg.APITimeout,
		Retries: cfg.APIRetries,
		Logger:  logger,
	}
}

func newObjectStore(cfg *config.Config) (storage.ObjectStore, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		s3, err := storage.NewS3(storage.S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 storage: %w", err)
		}

		return s3, nil
	default:
		local, err := storage.NewLocal(cfg.StorageDir, cfg.StorageBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create local storage: %w", err)
		}

		return local, nil
	}
}
