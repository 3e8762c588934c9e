package models

import "time"

// Event types published to the lifecycle topic.
const (
	EventSignalActivated    = "signal.activated"
	EventSignalExpired      = "signal.expired"
	EventFeedbackRecorded   = "feedback.recorded"
	EventGenerationDispatch = "generation.dispatched"
	EventBatchReplaced      = "batch.replaced"
)

// Event is a lifecycle notification keyed by signal id (empty for batch-level
// events).
type Event struct {
	Type      string    `json:"type"`
	SignalID  string    `json:"signal_id,omitempty"`
	Asset     string    `json:"asset,omitempty"`
	Phase     Phase     `json:"phase,omitempty"`
	Verdict   Verdict   `json:"verdict,omitempty"`
	Language  string    `json:"language,omitempty"`
	Epoch     uint64    `json:"epoch,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
