// Package phase defines the recorder UI phases.
package phase

// Phase represents the current state of the recorder UI.
type Phase int

const (
	// PhaseStarting is while the microphone is being opened.
	PhaseStarting Phase = iota
	// PhaseRecording is while audio is captured and live text streams in.
	PhaseRecording
	// PhaseProcessing is while the transcript is resolved and refined.
	PhaseProcessing
	// PhaseReview lets the user edit the draft and choose what to do with it.
	PhaseReview
	// PhaseSaving is while the entry is uploaded and persisted.
	PhaseSaving
	// PhaseSaved confirms the entry was stored.
	PhaseSaved
	// PhaseDiscarded confirms the recording was thrown away.
	PhaseDiscarded
	// PhaseError shows a failure the user has to act on.
	PhaseError
)

// String returns the human-readable name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "Starting"
	case PhaseRecording:
		return "Recording"
	case PhaseProcessing:
		return "Processing"
	case PhaseReview:
		return "Review"
	case PhaseSaving:
		return "Saving"
	case PhaseSaved:
		return "Saved"
	case PhaseDiscarded:
		return "Discarded"
	case PhaseError:
		return "Error"
	default:
		return "Unknown"
	}
}
