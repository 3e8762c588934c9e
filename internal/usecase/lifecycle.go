package usecase

import (
	"fmt"
	"time"

	"SignalDeck/internal/domain/models"
	"SignalDeck/pkg/util"
)

// DefaultRolloverThreshold is how far in the past a candidate entry instant
// must be before it is treated as tomorrow's entry. A smaller gap is assumed
// to be clock skew on an in-flight signal and must not roll over.
const DefaultRolloverThreshold = 12 * time.Hour

// LifecycleEngine resolves a signal's "HH:MM" entry time against the current
// instant and classifies the signal into a lifecycle phase.
type LifecycleEngine struct {
	loc      *time.Location
	rollover time.Duration
}

// NewLifecycleEngine creates an engine for the given timezone. A zero
// rollover threshold selects the default of 12 hours.
func NewLifecycleEngine(loc *time.Location, rollover time.Duration) *LifecycleEngine {
	if loc == nil {
		loc = time.UTC
	}
	if rollover <= 0 {
		rollover = DefaultRolloverThreshold
	}
	return &LifecycleEngine{loc: loc, rollover: rollover}
}

// Location returns the engine's timezone.
func (e *LifecycleEngine) Location() *time.Location { return e.loc }

// Classify computes the signal's phase and remaining duration at now.
// It is a pure function of (now, entryTime, durationMinutes): no state is kept
// between calls, so a restarted process reconstructs identical phases.
func (e *LifecycleEngine) Classify(now time.Time, entryTime string, durationMinutes int) (models.Classification, error) {
	if durationMinutes <= 0 {
		return models.Classification{}, fmt.Errorf("duration %d: must be positive", durationMinutes)
	}

	hour, minute, err := util.ParseClockTime(entryTime)
	if err != nil {
		return models.Classification{}, fmt.Errorf("entry time: %w", err)
	}

	local := now.In(e.loc)
	entry := util.OnDay(local, hour, minute)

	// Entry already past today by more than the threshold means the signal is
	// intended for tomorrow. Within the threshold it stays on today so that a
	// signal a few seconds in the past does not vanish into a next-day phase.
	if entry.Before(local) && local.Sub(entry) > e.rollover {
		entry = entry.AddDate(0, 0, 1)
	}

	end := entry.Add(time.Duration(durationMinutes) * time.Minute)

	c := models.Classification{EntryAt: entry, EndAt: end}
	switch {
	case local.Before(entry):
		c.Phase = models.PhaseWaiting
		c.Remaining = entry.Sub(local)
	case local.Before(end):
		c.Phase = models.PhaseActive
		c.Remaining = end.Sub(local)
	default:
		c.Phase = models.PhaseExpired
		c.Remaining = 0
	}
	return c, nil
}
