// Package msg defines shared message types for recorder phase transitions.
package msg

import "github.com/alkime/journal/internal/journal"

// StopMsg asks the recorder to stop capturing.
type StopMsg struct{}

// DiscardMsg asks the recorder to throw the current recording away.
type DiscardMsg struct{}

// RecordAgainMsg discards the current recording and starts a new one.
type RecordAgainMsg struct{}

// SaveMsg asks the recorder to persist the draft.
type SaveMsg struct {
	Draft  string
	Locked bool
}

// ProcessedMsg signals the transcript pipeline finished.
type ProcessedMsg struct {
	Err error
}

// SavedMsg reports the outcome of saving.
type SavedMsg struct {
	Entry journal.Entry
	Err   error
}
