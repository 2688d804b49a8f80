// Package journal defines the shared domain types of the voice journal:
// entries, transcripts, refinement results, and recorded audio artifacts.
package journal

import (
	"time"
)

// EntryType distinguishes typed entries from recorded ones.
type EntryType string

const (
	EntryTypeText  EntryType = "text"
	EntryTypeVoice EntryType = "voice"
)

// Entry is a persisted journal record.
//
// Voice entries always carry an AudioRef; the transcript is optional.
// A locked entry is read-only to the refinement pipeline.
type Entry struct {
	ID         string    `json:"id"`
	Type       EntryType `json:"type"`
	Content    *string   `json:"content,omitempty"`
	AudioRef   *string   `json:"audioRef,omitempty"`
	Transcript *string   `json:"transcript,omitempty"`
	Duration   *float64  `json:"duration,omitempty"`
	Locked     bool      `json:"locked"`
	Notes      *string   `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TranscriptSource records where a raw transcript came from.
type TranscriptSource string

const (
	SourceLive     TranscriptSource = "live"
	SourceFallback TranscriptSource = "fallback"
	SourceNone     TranscriptSource = "none"
)

// TranscriptResult is the raw transcript resolved after recording stops.
type TranscriptResult struct {
	RawText     string
	Source      TranscriptSource
	FinalizedAt time.Time
}

// Empty reports whether there is no usable transcript text.
func (r TranscriptResult) Empty() bool {
	return r.Source == SourceNone || r.RawText == ""
}

// Correction is a single change made by the grammar-correction service.
type Correction struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	Reason    string `json:"reason,omitempty"`
}

// ProcessingResult is the outcome of refining a raw transcript.
//
// Processed equals Original whenever Changed is false, and Corrections is
// empty unless the deep pass succeeded.
type ProcessingResult struct {
	Original    string       `json:"original"`
	Processed   string       `json:"processed"`
	Corrections []Correction `json:"corrections"`
	Changed     bool         `json:"changed"`
}

const (
	// ContentTypeMP3 is the content type of assembled recordings.
	ContentTypeMP3 = "audio/mpeg"
	// ExtensionMP3 is the object key suffix for assembled recordings.
	ExtensionMP3 = ".mp3"
)

// AudioArtifact is a playable recording assembled from captured chunks.
type AudioArtifact struct {
	Data        []byte
	ContentType string
	Extension   string
	Duration    time.Duration
}

// Clone returns a copy whose Data does not alias the receiver's.
func (a AudioArtifact) Clone() AudioArtifact {
	a.Data = append([]byte(nil), a.Data...)

	return a
}

// Seconds returns the recording duration in seconds.
func (a AudioArtifact) Seconds() float64 {
	return a.Duration.Seconds()
}
