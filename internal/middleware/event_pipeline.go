package middleware

import (
	"context"
	"sync"
	"time"

	"SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"
)

// EventPipeline sits between the scheduler and the event backend. Emits are
// non-blocking; a background drainer delivers buffered events with backoff so
// a slow broker never stalls the tick loop.
type EventPipeline struct {
	pub     domrepo.EventPublisher
	metrics domrepo.Metrics
	bufSize int
	bufCh   chan models.Event
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
}

type PipelineOption func(*EventPipeline)

// WithBufferSize sets the buffer size for undelivered events.
func WithBufferSize(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewEventPipeline creates a new pipeline.
func NewEventPipeline(pub domrepo.EventPublisher, metrics domrepo.Metrics, opts ...PipelineOption) *EventPipeline {
	p := &EventPipeline{
		pub:     pub,
		metrics: metrics,
		bufSize: 1000,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.Event, p.bufSize)
	return p
}

// Start launches the background drainer.
func (p *EventPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case ev := <-p.bufCh:
				if err := p.pub.Publish(ctx, ev); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("event_publish")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- ev:
					default:
						p.metrics.RecordError("event_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background drainer. Buffered events are dropped.
func (p *EventPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Emit queues one event without blocking. Events beyond the buffer are
// dropped and counted.
func (p *EventPipeline) Emit(ev models.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	select {
	case p.bufCh <- ev:
	default:
		p.metrics.RecordError("event_buffer_full")
	}
}
