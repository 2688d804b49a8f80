package entry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alkime/journal/internal/journal"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrInvalidEntry indicates a create request that violates the entry invariants.
var ErrInvalidEntry = errors.New("invalid entry")

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	type TEXT NOT NULL,
	content TEXT,
	audio_ref TEXT,
	transcript TEXT,
	duration REAL,
	locked INTEGER NOT NULL DEFAULT 0,
	notes TEXT,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS entries_user_created ON entries (user_id, created_at DESC);
`

const entryColumns = `id, type, content, audio_ref, transcript, duration, locked, notes, created_at`

// Repository stores entry records in SQLite.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the SQLite database at path and applies the schema.
func Open(ctx context.Context, path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite serialises writers; one connection also keeps :memory: databases whole.
	db.SetMaxOpenConns(1)

	repo := NewRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// NewRepository wraps an existing database handle.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Migrate creates the entries table if it does not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// CreateVoice inserts a voice entry. The audio reference is required.
func (r *Repository) CreateVoice(ctx context.Context, userID string, req CreateVoiceRequest) (journal.Entry, error) {
	if strings.TrimSpace(req.AudioRef) == "" {
		return journal.Entry{}, fmt.Errorf("%w: audioRef is required", ErrInvalidEntry)
	}

	if req.Duration < 0 {
		return journal.Entry{}, fmt.Errorf("%w: duration must not be negative", ErrInvalidEntry)
	}

	audioRef := req.AudioRef
	duration := req.Duration
	e := journal.Entry{
		ID:         uuid.NewString(),
		Type:       journal.EntryTypeVoice,
		AudioRef:   &audioRef,
		Transcript: nonEmpty(req.Transcript),
		Duration:   &duration,
		Locked:     req.Locked,
		CreatedAt:  r.now().UTC().Truncate(time.Millisecond),
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entries (id, user_id, type, audio_ref, transcript, duration, locked, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, userID, string(e.Type), audioRef, nullString(e.Transcript), duration, e.Locked, e.CreatedAt.UnixMilli())
	if err != nil {
		return journal.Entry{}, fmt.Errorf("insert entry: %w", err)
	}

	return e, nil
}

// Get returns one of the user's entries.
func (r *Repository) Get(ctx context.Context, userID, id string) (journal.Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE user_id = ? AND id = ?`, userID, id)

	return scanEntry(row)
}

// List returns the user's entries, newest first.
func (r *Repository) List(ctx context.Context, userID string, limit int) ([]journal.Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []journal.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Update applies a patch. Changing the transcript of a locked entry fails with ErrLocked.
func (r *Repository) Update(ctx context.Context, userID, id string, patch UpdateRequest) (journal.Entry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE user_id = ? AND id = ?`, userID, id)

	e, err := scanEntry(row)
	if err != nil {
		return journal.Entry{}, err
	}

	if patch.Transcript != nil && e.Locked {
		return journal.Entry{}, fmt.Errorf("%w: %s", ErrLocked, id)
	}

	if patch.Locked != nil {
		e.Locked = *patch.Locked
	}

	if patch.Notes != nil {
		e.Notes = nonEmpty(patch.Notes)
	}

	if patch.Transcript != nil {
		e.Transcript = nonEmpty(patch.Transcript)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE entries SET locked = ?, notes = ?, transcript = ? WHERE user_id = ? AND id = ?`,
		e.Locked, nullString(e.Notes), nullString(e.Transcript), userID, id)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("update entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return journal.Entry{}, fmt.Errorf("commit update: %w", err)
	}

	return e, nil
}

// Delete removes an entry and returns the removed record.
func (r *Repository) Delete(ctx context.Context, userID, id string) (journal.Entry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return journal.Entry{}, fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	row := tx.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE user_id = ? AND id = ?`, userID, id)

	e, err := scanEntry(row)
	if err != nil {
		return journal.Entry{}, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return journal.Entry{}, fmt.Errorf("delete entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return journal.Entry{}, fmt.Errorf("commit delete: %w", err)
	}

	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (journal.Entry, error) {
	var e journal.Entry
	var entryType string
	var content, audioRef, transcript, notes sql.NullString
	var duration sql.NullFloat64
	var createdAt int64

	err := row.Scan(&e.ID, &entryType, &content, &audioRef, &transcript, &duration, &e.Locked, &notes, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return journal.Entry{}, ErrNotFound
	}

	if err != nil {
		return journal.Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	e.Type = journal.EntryType(entryType)
	e.Content = stringPtr(content)
	e.AudioRef = stringPtr(audioRef)
	e.Transcript = stringPtr(transcript)
	e.Notes = stringPtr(notes)
	e.CreatedAt = time.UnixMilli(createdAt).UTC()

	if duration.Valid {
		d := duration.Float64
		e.Duration = &d
	}

	return e, nil
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}

	s := ns.String

	return &s
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *s, Valid: true}
}

// nonEmpty treats a blank string as absent.
func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}

	v := *s

	return &v
}
