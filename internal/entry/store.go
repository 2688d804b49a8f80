// Package entry persists journal entries: the client-side store used by a
// recording session and the SQLite repository behind the collaborator service.
package entry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/alkime/journal/internal/apiclient"
	"github.com/alkime/journal/internal/journal"
	"github.com/alkime/journal/internal/storage"
	"github.com/go-resty/resty/v2"
)

var (
	// ErrUploadFailed indicates the recording could not be stored.
	ErrUploadFailed = errors.New("audio upload failed")
	// ErrPersistFailed indicates the entry record could not be created or updated.
	ErrPersistFailed = errors.New("entry persist failed")
	// ErrNotFound indicates no entry exists with the given id.
	ErrNotFound = errors.New("entry not found")
	// ErrLocked indicates a locked entry's transcript cannot be changed.
	ErrLocked = errors.New("entry is locked")
)

// cleanupTimeout bounds background deletion of an entry's audio.
const cleanupTimeout = 30 * time.Second

// VoiceEntryInput is what a session hands over when saving.
type VoiceEntryInput struct {
	Artifact   journal.AudioArtifact
	Duration   time.Duration
	Transcript *string
	Locked     bool
}

// CreateVoiceRequest is the body of POST /entries/voice.
type CreateVoiceRequest struct {
	AudioRef   string  `json:"audioRef"`
	Duration   float64 `json:"duration"`
	Transcript *string `json:"transcript,omitempty"`
	Locked     bool    `json:"locked"`
}

// UpdateRequest is the body of PATCH /entries/:id. Nil fields are left unchanged.
type UpdateRequest struct {
	Locked     *bool   `json:"locked,omitempty"`
	Notes      *string `json:"notes,omitempty"`
	Transcript *string `json:"transcript,omitempty"`
}

// Envelope wraps an entry in collaborator responses.
type Envelope struct {
	Entry journal.Entry `json:"entry"`
}

// Store saves voice entries: audio to object storage, the record to the
// collaborator service.
type Store struct {
	http    *resty.Client
	objects storage.ObjectStore
	logger  *slog.Logger

	wg sync.WaitGroup
}

// NewStore creates an entry store. Its requests are never retried, because
// creating an entry is not idempotent.
func NewStore(opts apiclient.Options, objects storage.ObjectStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	opts.Retries = 0
	if opts.Logger == nil {
		opts.Logger = logger
	}

	return &Store{
		http:    apiclient.New(opts),
		objects: objects,
		logger:  logger,
	}
}

// SaveVoiceEntry uploads the recording and creates the entry. The audio
// reference stored on the entry is the object key.
func (s *Store) SaveVoiceEntry(ctx context.Context, in VoiceEntryInput) (journal.Entry, error) {
	key := storage.NewKey(storage.AudioPrefix, in.Artifact.Extension)

	if _, err := s.objects.Upload(ctx, key, in.Artifact.Data, in.Artifact.ContentType); err != nil {
		return journal.Entry{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	var out Envelope

	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(CreateVoiceRequest{
			AudioRef:   key,
			Duration:   in.Duration.Seconds(),
			Transcript: in.Transcript,
			Locked:     in.Locked,
		}).
		SetResult(&out).
		SetError(&apiclient.ErrorBody{}).
		Post("/entries/voice")
	if err != nil {
		s.logger.Warn("entry not created, audio left in storage", "audioRef", key, "error", err)
		return journal.Entry{}, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	if resp.IsError() {
		s.logger.Warn("entry not created, audio left in storage", "audioRef", key, "status", resp.StatusCode())
		return journal.Entry{}, fmt.Errorf("%w: %s", ErrPersistFailed, apiclient.Describe(resp))
	}

	return out.Entry, nil
}

// Lock marks an entry read-only to the refinement pipeline. Locking a locked entry is a no-op.
func (s *Store) Lock(ctx context.Context, id string) (journal.Entry, error) {
	return s.setLocked(ctx, id, true)
}

// Unlock reverses Lock.
func (s *Store) Unlock(ctx context.Context, id string) (journal.Entry, error) {
	return s.setLocked(ctx, id, false)
}

func (s *Store) setLocked(ctx context.Context, id string, locked bool) (journal.Entry, error) {
	return s.Update(ctx, id, UpdateRequest{Locked: &locked})
}

// Update patches an entry.
func (s *Store) Update(ctx context.Context, id string, patch UpdateRequest) (journal.Entry, error) {
	var out Envelope

	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(patch).
		SetResult(&out).
		SetError(&apiclient.ErrorBody{}).
		Patch("/entries/" + url.PathEscape(id))
	if err != nil {
		return journal.Entry{}, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	if err := statusError(resp); err != nil {
		return journal.Entry{}, err
	}

	return out.Entry, nil
}

// Delete removes an entry and schedules deletion of its audio in the background.
func (s *Store) Delete(ctx context.Context, id string) error {
	var out Envelope

	resp, err := s.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiclient.ErrorBody{}).
		Delete("/entries/" + url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	if err := statusError(resp); err != nil {
		return err
	}

	if ref := out.Entry.AudioRef; ref != nil && *ref != "" {
		s.wg.Go(func() {
			s.deleteAudio(context.WithoutCancel(ctx), *ref)
		})
	}

	return nil
}

// Wait blocks until background audio cleanups have finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) deleteAudio(ctx context.Context, ref string) {
	ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	if err := s.objects.Delete(ctx, ref); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("failed to delete entry audio", "audioRef", ref, "error", err)
	}
}

func statusError(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}

	switch resp.StatusCode() {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, apiclient.Describe(resp))
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrLocked, apiclient.Describe(resp))
	default:
		return fmt.Errorf("%w: %s", ErrPersistFailed, apiclient.Describe(resp))
	}
}
