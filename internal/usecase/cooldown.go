package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalDeck/internal/domain/models"
	"SignalDeck/internal/domain/repository"
	applogger "SignalDeck/pkg/logger"
)

// DefaultCooldownDuration is the minimum interval between accepted generation
// requests.
const DefaultCooldownDuration = 5 * time.Minute

// ErrCooldownActive is returned when a generation is requested while the
// cooldown window from the previous accepted request is still open.
var ErrCooldownActive = errors.New("cooldown active")

// CooldownGate derives generation permission from the persisted
// last-generation instant. The window is never cached in memory as the source
// of truth; every decision re-reads storage so a restarted process keeps the
// same answer.
type CooldownGate struct {
	state    repository.StateStore
	duration time.Duration
	logger   *applogger.Logger
}

// NewCooldownGate creates a gate. A non-positive duration selects the
// 5-minute default.
func NewCooldownGate(state repository.StateStore, duration time.Duration, logger *applogger.Logger) *CooldownGate {
	if duration <= 0 {
		duration = DefaultCooldownDuration
	}
	return &CooldownGate{state: state, duration: duration, logger: logger}
}

// Status reports whether a new generation may be requested at now, and the
// time remaining until it may. A corrupt or missing persisted timestamp fails
// open: this is a soft rate-limit, not a security control.
func (g *CooldownGate) Status(ctx context.Context, now time.Time) models.CooldownStatus {
	last, err := g.state.LastGeneration(ctx)
	if err != nil {
		if g.logger != nil {
			g.logger.Warn("cooldown state unreadable, failing open", applogger.Error(err))
		}
		return models.CooldownStatus{Allowed: true}
	}
	if last.IsZero() {
		return models.CooldownStatus{Allowed: true}
	}

	elapsed := now.Sub(last)
	if elapsed >= g.duration {
		return models.CooldownStatus{Allowed: true, LastGeneration: last}
	}
	return models.CooldownStatus{
		Allowed:        false,
		Remaining:      g.duration - elapsed,
		LastGeneration: last,
	}
}

// RecordGeneration persists now as the new last-generation instant. It is
// rejected with ErrCooldownActive while the previous window is open, so a
// duplicate call cannot shorten the effective cooldown below one full
// duration from the first accepted call.
func (g *CooldownGate) RecordGeneration(ctx context.Context, now time.Time) error {
	if st := g.Status(ctx, now); !st.Allowed {
		return fmt.Errorf("%w: %s remaining", ErrCooldownActive, st.Remaining.Round(time.Second))
	}
	if err := g.state.SetLastGeneration(ctx, now); err != nil {
		return fmt.Errorf("persist last generation: %w", err)
	}
	return nil
}

// Duration returns the configured cooldown window.
func (g *CooldownGate) Duration() time.Duration { return g.duration }
