package repository

import (
	"context"
	"time"

	"SignalDeck/internal/domain/models"
)

// FeedSource fetches the remote signal feed. Implementations must defeat
// intermediary caches and report stale copies rather than failing hard.
type FeedSource interface {
	Fetch(ctx context.Context) (*models.FeedDocument, error)
}

// StateStore is the durable key-value state surviving restarts: preferred
// language, last-generation instant, and the append-only feedback log.
type StateStore interface {
	Language(ctx context.Context) (string, error)
	SetLanguage(ctx context.Context, lang string) error

	LastGeneration(ctx context.Context) (time.Time, error)
	SetLastGeneration(ctx context.Context, t time.Time) error

	FeedbackLog(ctx context.Context) ([]models.FeedbackRecord, error)
	AppendFeedback(ctx context.Context, rec models.FeedbackRecord) error

	Health(ctx context.Context) error
}

// Dispatcher triggers the remote signal-generation job. Trigger must only
// return nil on a confirmed accepted dispatch.
type Dispatcher interface {
	Trigger(ctx context.Context, language, source string) error
}

// EventPublisher emits lifecycle events to the event backend.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.Event) error
	Close() error
}

// HistoryArchive stores answered signals for offline accuracy analysis.
type HistoryArchive interface {
	Init(ctx context.Context) error
	Archive(ctx context.Context, row models.AnsweredSignal) error
	Health(ctx context.Context) error
	Close() error
}

// PresentationSink receives eligible-set snapshots and phase transitions.
// The WebSocket hub implements it; the scheduler only knows this interface.
type PresentationSink interface {
	Snapshot(epoch uint64, signals []models.EligibleSignal)
	Transition(epoch uint64, sig models.Signal, from, to models.Phase)
}

// Metrics is the recording interface implemented by pkg/metrics.
type Metrics interface {
	RecordFetch(outcome string)
	RecordIngest(eligible int)
	RecordTransition(from, to string)
	RecordDispatch(outcome string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
