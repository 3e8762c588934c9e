package usecase

import (
	"context"
	"sync"
	"time"

	"SignalDeck/internal/domain/models"
	"SignalDeck/internal/domain/repository"
	applogger "SignalDeck/pkg/logger"
)

// FeedPoller refreshes the signal batch on a fixed cadence. Fetches run in
// the poller's own goroutine so a slow origin never stalls scheduler ticks.
type FeedPoller struct {
	source   repository.FeedSource
	store    *SignalStore
	sched    *Scheduler
	events   EventEmitter
	metrics  repository.Metrics
	logger   *applogger.Logger
	interval time.Duration
	timeout  time.Duration

	stopCh chan struct{}
	once   sync.Once
}

// NewFeedPoller creates a poller (default cadence 30s, fetch timeout 10s).
func NewFeedPoller(source repository.FeedSource, store *SignalStore, sched *Scheduler, events EventEmitter, metrics repository.Metrics, logger *applogger.Logger, interval, timeout time.Duration) *FeedPoller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FeedPoller{
		source:   source,
		store:    store,
		sched:    sched,
		events:   events,
		metrics:  metrics,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
		stopCh:   make(chan struct{}),
	}
}

// Start performs an initial fetch and then polls until ctx is done.
func (p *FeedPoller) Start(ctx context.Context) {
	go func() {
		p.Refresh(ctx)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.Refresh(ctx)
			}
		}
	}()
}

// Stop halts polling. Safe to call more than once.
func (p *FeedPoller) Stop() {
	p.once.Do(func() { close(p.stopCh) })
}

// Refresh fetches the feed once and installs the batch. A failed fetch keeps
// the previous batch; the error is recoverable and retried on the next tick.
func (p *FeedPoller) Refresh(ctx context.Context) {
	fctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	doc, err := p.source.Fetch(fctx)
	if p.metrics != nil {
		p.metrics.RecordLatency("feed_fetch", time.Since(start).Seconds())
	}
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordFetch("error")
		}
		if p.logger != nil {
			p.logger.Warn("feed fetch failed", applogger.Error(err))
		}
		return
	}

	outcome := "ok"
	if doc.Stale {
		outcome = "stale"
	}
	if p.metrics != nil {
		p.metrics.RecordFetch(outcome)
	}
	if len(doc.Signals) == 0 && p.logger != nil {
		// Empty feed means "no signals currently", not an error.
		p.logger.Debug("feed empty")
	}

	p.store.Replace(doc)
	epoch := p.sched.BumpEpoch()
	if p.events != nil {
		p.events.Emit(models.Event{
			Type:      models.EventBatchReplaced,
			Epoch:     epoch,
			Timestamp: time.Now(),
		})
	}
	p.sched.Tick(ctx)
}
