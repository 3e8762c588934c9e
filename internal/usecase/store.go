package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"SignalDeck/internal/domain/models"
	"SignalDeck/internal/domain/repository"
	applogger "SignalDeck/pkg/logger"
)

// StoreConfig holds the filtering pipeline constants.
type StoreConfig struct {
	MinConfidence      float64
	MaxDisplay         int
	MaxDurationMinutes int
	GraceWindow        time.Duration
}

// SignalStore owns the current signal batch and derives the eligible set.
// The batch is replaced wholesale on every ingest; nothing else mutates it.
type SignalStore struct {
	engine  *LifecycleEngine
	state   repository.StateStore
	metrics repository.Metrics
	logger  *applogger.Logger
	cfg     StoreConfig

	mu         sync.RWMutex
	batch      []models.Signal
	lastUpdate string
	stale      bool

	// onAnswered is invoked after an auto-skip feedback record has been
	// durably appended. Wiring uses it to archive and publish events.
	onAnswered func(models.AnsweredSignal)
}

// NewSignalStore creates a store with the given pipeline constants.
func NewSignalStore(engine *LifecycleEngine, state repository.StateStore, metrics repository.Metrics, logger *applogger.Logger, cfg StoreConfig) *SignalStore {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.70
	}
	if cfg.MaxDisplay <= 0 {
		cfg.MaxDisplay = 3
	}
	if cfg.MaxDurationMinutes <= 0 {
		cfg.MaxDurationMinutes = 5
	}
	if cfg.GraceWindow <= 0 {
		cfg.GraceWindow = time.Minute
	}
	return &SignalStore{engine: engine, state: state, metrics: metrics, logger: logger, cfg: cfg}
}

// SetOnAnswered registers the auto-skip completion hook.
func (s *SignalStore) SetOnAnswered(fn func(models.AnsweredSignal)) {
	s.onAnswered = fn
}

// Replace installs a freshly fetched batch.
func (s *SignalStore) Replace(doc *models.FeedDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc == nil {
		s.batch = nil
		s.lastUpdate = ""
		s.stale = false
		return
	}
	s.batch = doc.Signals
	s.lastUpdate = doc.LastUpdate
	s.stale = doc.Stale
}

// LastUpdate returns the feed's last_update stamp and whether the batch came
// from the stale cache.
func (s *SignalStore) LastUpdate() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate, s.stale
}

// Ingest runs the filtering pipeline over the current batch at now and
// returns the eligible set, soonest entry first.
//
// Order matters: confidence, answered exclusion, grace-window auto-skip,
// per-signal validation, then sort and cap. The auto-skip append happens
// before the signal is dropped; the timeout itself is re-derived from
// entry+duration+grace rather than a stored flag, so a restart mid-window
// reaches the same verdict.
func (s *SignalStore) Ingest(ctx context.Context, now time.Time) []models.EligibleSignal {
	s.mu.RLock()
	batch := s.batch
	s.mu.RUnlock()

	answered := s.answeredIDs(ctx)
	lang := s.language(ctx)

	eligible := make([]models.EligibleSignal, 0, len(batch))
	for _, sig := range batch {
		if sig.Confidence < s.cfg.MinConfidence {
			continue
		}
		if _, done := answered[sig.ID]; done {
			continue
		}

		duration := sig.DurationMinutes
		if duration > s.cfg.MaxDurationMinutes {
			// Oversized durations are clamped, not dropped.
			duration = s.cfg.MaxDurationMinutes
			sig.DurationMinutes = duration
		}

		class, err := s.engine.Classify(now, sig.EntryTime, duration)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("signal excluded",
					applogger.String("signal_id", sig.ID),
					applogger.Error(err),
				)
			}
			if s.metrics != nil {
				s.metrics.RecordError("signal_invalid")
			}
			continue
		}

		if class.Phase == models.PhaseExpired && now.Sub(class.EndAt) > s.cfg.GraceWindow {
			s.autoSkip(ctx, sig, class, lang, now)
			continue
		}

		eligible = append(eligible, models.EligibleSignal{Signal: sig, Class: class})
	}

	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].Class.EntryAt.Before(eligible[j].Class.EntryAt)
	})
	if len(eligible) > s.cfg.MaxDisplay {
		eligible = eligible[:s.cfg.MaxDisplay]
	}

	if s.metrics != nil {
		s.metrics.RecordIngest(len(eligible))
	}
	return eligible
}

// autoSkip records the timeout verdict before the signal leaves the eligible
// set. Append failure keeps the signal out of this ingest but it will be
// retried on the next one (at-least-once).
func (s *SignalStore) autoSkip(ctx context.Context, sig models.Signal, class models.Classification, lang string, now time.Time) {
	rec := models.FeedbackRecord{
		SignalID:    sig.ID,
		Verdict:     models.VerdictSkip,
		Timestamp:   now,
		Language:    lang,
		AutoSkipped: true,
	}
	if err := s.state.AppendFeedback(ctx, rec); err != nil {
		if s.logger != nil {
			s.logger.Error("auto-skip append failed", applogger.String("signal_id", sig.ID), applogger.Error(err))
		}
		if s.metrics != nil {
			s.metrics.RecordError("feedback_append")
		}
		return
	}
	if s.logger != nil {
		s.logger.Info("signal auto-skipped",
			applogger.String("signal_id", sig.ID),
			applogger.String("asset", sig.Asset),
		)
	}
	if s.onAnswered != nil {
		s.onAnswered(models.AnsweredSignal{
			SignalID:   sig.ID,
			Asset:      sig.Asset,
			Direction:  sig.Direction,
			Confidence: sig.Confidence,
			EntryAt:    class.EntryAt,
			EndAt:      class.EndAt,
			Verdict:    models.VerdictSkip,
			Language:   lang,
			AnsweredAt: now,
		})
	}
}

// Find returns the signal with the given id from the current batch, with its
// classification at now.
func (s *SignalStore) Find(now time.Time, id string) (models.EligibleSignal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sig := range s.batch {
		if sig.ID != id {
			continue
		}
		class, err := s.engine.Classify(now, sig.EntryTime, sig.DurationMinutes)
		if err != nil {
			return models.EligibleSignal{}, false
		}
		return models.EligibleSignal{Signal: sig, Class: class}, true
	}
	return models.EligibleSignal{}, false
}

func (s *SignalStore) answeredIDs(ctx context.Context) map[string]struct{} {
	log, err := s.state.FeedbackLog(ctx)
	if err != nil {
		// Corrupt log fails open to "nothing answered".
		if s.logger != nil {
			s.logger.Warn("feedback log unreadable", applogger.Error(err))
		}
		return map[string]struct{}{}
	}
	ids := make(map[string]struct{}, len(log))
	for _, rec := range log {
		ids[rec.SignalID] = struct{}{}
	}
	return ids
}

func (s *SignalStore) language(ctx context.Context) string {
	lang, err := s.state.Language(ctx)
	if err != nil || lang == "" {
		return "uk"
	}
	return lang
}
