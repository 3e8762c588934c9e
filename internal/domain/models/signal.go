package models

import "time"

// Direction is the predicted price direction of a signal.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// Valid reports whether the direction is one of the known values.
func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionDown
}

// Phase is the lifecycle state of a signal relative to current time.
type Phase string

const (
	PhasePending  Phase = "pending"
	PhaseWaiting  Phase = "waiting"
	PhaseActive   Phase = "active"
	PhaseExpired  Phase = "expired"
	PhaseAnswered Phase = "answered"
)

// Signal is a single trade recommendation from the feed.
// EntryTime is a wall-clock "HH:MM" in the configured timezone; the concrete
// instant is resolved against "now" by the lifecycle engine.
type Signal struct {
	ID              string    `json:"id"`
	Asset           string    `json:"asset"`
	Direction       Direction `json:"direction"`
	Confidence      float64   `json:"confidence"`
	EntryTime       string    `json:"entry_time"`
	DurationMinutes int       `json:"duration"`
	GeneratedAt     time.Time `json:"generated_at"`
	Reason          string    `json:"reason,omitempty"`
}

// Classification is the lifecycle engine output for one signal at one instant.
type Classification struct {
	Phase     Phase
	EntryAt   time.Time
	EndAt     time.Time
	Remaining time.Duration
}

// EligibleSignal pairs a signal with its current classification, ready for
// presentation.
type EligibleSignal struct {
	Signal Signal
	Class  Classification
}

// FeedDocument is the shape of the remote signals feed.
type FeedDocument struct {
	LastUpdate    string   `json:"last_update"`
	Timezone      string   `json:"timezone"`
	ActiveSignals int      `json:"active_signals"`
	TotalSignals  int      `json:"total_signals"`
	Signals       []Signal `json:"signals"`
	// Stale marks a document served from the last-good cache after a fetch
	// failure.
	Stale bool `json:"-"`
}

// Verdict is a user's answer about a finished signal.
type Verdict string

const (
	VerdictYes  Verdict = "yes"
	VerdictNo   Verdict = "no"
	VerdictSkip Verdict = "skip"
)

// Valid reports whether the verdict is one of the known values.
func (v Verdict) Valid() bool {
	return v == VerdictYes || v == VerdictNo || v == VerdictSkip
}

// FeedbackRecord is one append-only entry in the feedback log. AutoSkipped
// distinguishes the grace-window timeout policy from a user action.
type FeedbackRecord struct {
	SignalID    string    `json:"signal_id"`
	Verdict     Verdict   `json:"verdict"`
	Timestamp   time.Time `json:"timestamp"`
	Language    string    `json:"language"`
	AutoSkipped bool      `json:"auto_skipped,omitempty"`
}

// CooldownStatus describes whether a new generation may be requested.
type CooldownStatus struct {
	Allowed        bool
	Remaining      time.Duration
	LastGeneration time.Time
}

// AnsweredSignal is the archive row written when a signal reaches its
// terminal phase.
type AnsweredSignal struct {
	SignalID   string
	Asset      string
	Direction  Direction
	Confidence float64
	EntryAt    time.Time
	EndAt      time.Time
	Verdict    Verdict
	Language   string
	AnsweredAt time.Time
}
