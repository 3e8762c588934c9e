package models

// Requests for the dashboard HTTP endpoints. Defined in domain for consistency
// and reuse.

type FeedbackRequest struct {
	SignalID string `json:"signal_id" validate:"required"`
	Verdict  string `json:"verdict" validate:"required,oneof=yes no skip"`
	Language string `json:"language" default:"uk" validate:"oneof=uk ru en"`
}

type GenerateRequest struct {
	Language      string `json:"language" default:"uk" validate:"oneof=uk ru en"`
	TriggerSource string `json:"trigger_source" default:"dashboard" validate:"oneof=dashboard schedule manual"`
}

type LanguageRequest struct {
	Language string `json:"language" validate:"required,oneof=uk ru en"`
}

// SignalView is the presentation form of one eligible signal.
type SignalView struct {
	ID               string  `json:"id"`
	Asset            string  `json:"asset"`
	Direction        string  `json:"direction"`
	Confidence       float64 `json:"confidence"`
	EntryTime        string  `json:"entry_time"`
	DurationMinutes  int     `json:"duration"`
	Phase            string  `json:"phase"`
	RemainingSeconds int     `json:"remaining_seconds"`
	Reason           string  `json:"reason,omitempty"`
}

// SignalsView is the response body of GET /api/signals.
type SignalsView struct {
	Signals    []SignalView `json:"signals"`
	LastUpdate string       `json:"last_update,omitempty"`
	ServerTime string       `json:"server_time"`
	Stale      bool         `json:"stale,omitempty"`
}

// CooldownView is the response body of GET /api/cooldown.
type CooldownView struct {
	Allowed          bool   `json:"allowed"`
	RemainingSeconds int    `json:"remaining_seconds"`
	LastGeneration   string `json:"last_generation,omitempty"`
}
