package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"SignalDeck/internal/domain/models"
	"SignalDeck/internal/domain/repository"
	applogger "SignalDeck/pkg/logger"
)

// EventEmitter accepts lifecycle events without blocking the caller.
type EventEmitter interface {
	Emit(ev models.Event)
}

// Scheduler drives all signal lifecycles from a single ticker instead of one
// timer per signal. Each tick re-ingests the batch, diffs phases against the
// previous tick, and pushes the snapshot to the presentation sink.
//
// Cancellation is epoch-based: replacing the batch or switching language bumps
// the epoch, and sinks discard frames from stale epochs. Bumping twice is
// harmless.
type Scheduler struct {
	clock    Clock
	store    *SignalStore
	sink     repository.PresentationSink
	events   EventEmitter
	metrics  repository.Metrics
	logger   *applogger.Logger
	interval time.Duration

	epoch  atomic.Uint64
	mu     sync.Mutex
	phases map[string]models.Phase
	stopCh chan struct{}
	once   sync.Once
}

// NewScheduler creates a scheduler ticking at interval (default 1s).
func NewScheduler(clock Clock, store *SignalStore, sink repository.PresentationSink, events EventEmitter, metrics repository.Metrics, logger *applogger.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		clock:    clock,
		store:    store,
		sink:     sink,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		interval: interval,
		phases:   make(map[string]models.Phase),
		stopCh:   make(chan struct{}),
	}
}

// Start runs the tick loop until ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		s.Tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Stop halts the tick loop. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stopCh) })
}

// Epoch returns the current batch epoch.
func (s *Scheduler) Epoch() uint64 { return s.epoch.Load() }

// BumpEpoch invalidates all outstanding per-signal tracking. Called when the
// batch is replaced or the display language changes.
func (s *Scheduler) BumpEpoch() uint64 {
	n := s.epoch.Add(1)
	s.mu.Lock()
	s.phases = make(map[string]models.Phase)
	s.mu.Unlock()
	return n
}

// Tick re-evaluates every tracked signal once. Exported so HTTP handlers can
// force an immediate re-evaluation after feedback.
func (s *Scheduler) Tick(ctx context.Context) {
	start := time.Now()
	now := s.clock.Now()
	epoch := s.epoch.Load()

	eligible := s.store.Ingest(ctx, now)

	s.mu.Lock()
	if epoch != s.epoch.Load() {
		// Batch swapped mid-tick; this snapshot belongs to a dead epoch.
		s.mu.Unlock()
		return
	}
	next := make(map[string]models.Phase, len(eligible))
	type change struct {
		sig      models.Signal
		from, to models.Phase
	}
	var changes []change
	for _, es := range eligible {
		next[es.Signal.ID] = es.Class.Phase
		prev, seen := s.phases[es.Signal.ID]
		if !seen {
			prev = models.PhasePending
		}
		if prev != es.Class.Phase {
			changes = append(changes, change{sig: es.Signal, from: prev, to: es.Class.Phase})
		}
	}
	s.phases = next
	s.mu.Unlock()

	for _, ch := range changes {
		if s.metrics != nil {
			s.metrics.RecordTransition(string(ch.from), string(ch.to))
		}
		if s.sink != nil {
			s.sink.Transition(epoch, ch.sig, ch.from, ch.to)
		}
		if s.events != nil {
			switch ch.to {
			case models.PhaseActive:
				s.events.Emit(models.Event{
					Type: models.EventSignalActivated, SignalID: ch.sig.ID,
					Asset: ch.sig.Asset, Phase: ch.to, Epoch: epoch, Timestamp: now,
				})
			case models.PhaseExpired:
				s.events.Emit(models.Event{
					Type: models.EventSignalExpired, SignalID: ch.sig.ID,
					Asset: ch.sig.Asset, Phase: ch.to, Epoch: epoch, Timestamp: now,
				})
			}
		}
	}

	if s.sink != nil {
		s.sink.Snapshot(epoch, eligible)
	}
	if s.metrics != nil {
		s.metrics.RecordLatency("tick", time.Since(start).Seconds())
	}
}
