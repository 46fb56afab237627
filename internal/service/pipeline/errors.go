package pipeline

import "errors"

// Stage failures. Each is wrapped around the provider's own error so callers
// can use errors.Is on the kind and still see the cause.
var (
	ErrStaging        = errors.New("audio staging failed")
	ErrTranscription  = errors.New("transcription failed")
	ErrClassification = errors.New("classification failed")
	ErrTimeout        = errors.New("stage timed out")
)

// Outcome is the terminal result of one run.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeTransactionSaved
	OutcomeNoteSaved
	OutcomeStorageUnavailable
	OutcomeStructuringFailed
	OutcomeEmptyTranscript
)

// String returns the label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeFailed:
		return "failed"
	case OutcomeTransactionSaved:
		return "transaction_saved"
	case OutcomeNoteSaved:
		return "note_saved"
	case OutcomeStorageUnavailable:
		return "storage_unavailable"
	case OutcomeStructuringFailed:
		return "structuring_failed"
	case OutcomeEmptyTranscript:
		return "empty_transcript"
	default:
		return "unknown"
	}
}

// Saved reports whether a row was stored.
func (o Outcome) Saved() bool {
	return o == OutcomeTransactionSaved || o == OutcomeNoteSaved
}
