package models

// Event types published after a row has been stored.
const (
	EventTransactionRecorded = "ledger.transaction.recorded"
	EventNoteRecorded        = "ledger.note.recorded"
)

// RecordStored is published once a row has been appended to the store.
type RecordStored struct {
	EventType   string   `json:"eventType"`
	RunID       string   `json:"runId"`
	SubmitterID string   `json:"submitterId"`
	Tab         string   `json:"tab"`
	Values      []string `json:"values"`
	Timestamp   int64    `json:"timestamp"`
}
