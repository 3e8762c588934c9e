package api

import (
	"errors"
	"time"

	models "SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"
	"SignalDeck/internal/service/ratelimit"
	"SignalDeck/internal/usecase"
	xhttp "SignalDeck/pkg/http"
	xlogger "SignalDeck/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DashboardHandler implements the dashboard HTTP API on Echo.
type DashboardHandler struct {
	logger     *xlogger.Logger
	clock      usecase.Clock
	store      *usecase.SignalStore
	gate       *usecase.CooldownGate
	sched      *usecase.Scheduler
	state      domrepo.StateStore
	dispatcher domrepo.Dispatcher
	archive    domrepo.HistoryArchive
	events     usecase.EventEmitter
	metrics    domrepo.Metrics
	rl         *ratelimit.Limiter
	stream     *StreamHub
	started    time.Time
}

func NewDashboardHandler(
	logger *xlogger.Logger,
	clock usecase.Clock,
	store *usecase.SignalStore,
	gate *usecase.CooldownGate,
	sched *usecase.Scheduler,
	state domrepo.StateStore,
	dispatcher domrepo.Dispatcher,
	archive domrepo.HistoryArchive,
	events usecase.EventEmitter,
	metrics domrepo.Metrics,
) *DashboardHandler {
	return &DashboardHandler{
		logger:     logger,
		clock:      clock,
		store:      store,
		gate:       gate,
		sched:      sched,
		state:      state,
		dispatcher: dispatcher,
		archive:    archive,
		events:     events,
		metrics:    metrics,
		rl:         ratelimit.New(),
		started:    time.Now(),
	}
}

// SetStream attaches the WebSocket hub.
func (h *DashboardHandler) SetStream(hub *StreamHub) { h.stream = hub }

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/signals", h.Signals)
	g.POST("/feedback", h.Feedback)
	g.POST("/generate", h.Generate)
	g.GET("/cooldown", h.Cooldown)
	g.GET("/language", h.GetLanguage)
	g.PUT("/language", h.SetLanguage)
	g.GET("/healthz", h.Healthz)
	if h.stream != nil {
		g.GET("/stream", h.stream.Serve)
	}
}

// Signals returns the currently displayable set, soonest entry first.
func (h *DashboardHandler) Signals(c echo.Context) error {
	now := h.clock.Now()
	eligible := h.store.Ingest(c.Request().Context(), now)

	views := make([]models.SignalView, 0, len(eligible))
	for _, es := range eligible {
		views = append(views, toSignalView(es))
	}

	lastUpdate, stale := h.store.LastUpdate()
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, models.SignalsView{
		Signals:    views,
		LastUpdate: lastUpdate,
		ServerTime: now.UTC().Format(time.RFC3339),
		Stale:      stale,
	})
}

// Feedback records a user verdict. Answering the same signal twice is a
// no-op, not an error.
func (h *DashboardHandler) Feedback(c echo.Context) error {
	req := &models.FeedbackRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	now := h.clock.Now()

	log, err := h.state.FeedbackLog(ctx)
	if err != nil {
		h.logger.Warn("feedback log unreadable", xlogger.Error(err))
	}
	for _, rec := range log {
		if rec.SignalID == req.SignalID {
			return xhttp.SuccessResponse(c, map[string]any{
				"recorded":  false,
				"duplicate": true,
			})
		}
	}

	rec := models.FeedbackRecord{
		SignalID:  req.SignalID,
		Verdict:   models.Verdict(req.Verdict),
		Timestamp: now,
		Language:  req.Language,
	}
	if err := h.state.AppendFeedback(ctx, rec); err != nil {
		h.logger.Error("feedback append failed", xlogger.String("signal_id", req.SignalID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("feedback could not be saved").WithError(err))
	}

	if es, ok := h.store.Find(now, req.SignalID); ok && h.archive != nil {
		if aerr := h.archive.Archive(ctx, models.AnsweredSignal{
			SignalID:   es.Signal.ID,
			Asset:      es.Signal.Asset,
			Direction:  es.Signal.Direction,
			Confidence: es.Signal.Confidence,
			EntryAt:    es.Class.EntryAt,
			EndAt:      es.Class.EndAt,
			Verdict:    rec.Verdict,
			Language:   rec.Language,
			AnsweredAt: now,
		}); aerr != nil {
			h.logger.Warn("feedback archive failed", xlogger.String("signal_id", req.SignalID), xlogger.Error(aerr))
		}
	}

	if h.events != nil {
		h.events.Emit(models.Event{
			Type:      models.EventFeedbackRecorded,
			SignalID:  req.SignalID,
			Verdict:   rec.Verdict,
			Language:  rec.Language,
			Timestamp: now,
		})
	}

	// Drop the answered signal from presentation right away instead of
	// waiting for the next tick.
	h.sched.Tick(ctx)

	return xhttp.SuccessResponse(c, map[string]any{"recorded": true})
}

// Generate triggers a remote generation run, gated by the cooldown window.
// The cooldown is recorded only after the dispatch is confirmed accepted.
func (h *DashboardHandler) Generate(c echo.Context) error {
	req := &models.GenerateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	now := h.clock.Now()

	if !h.rl.Allow(c.RealIP()+":generate", 3, 0.5) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many generation requests"))
	}

	if st := h.gate.Status(ctx, now); !st.Allowed {
		return xhttp.AppErrorResponse(c,
			xhttp.TooManyRequestsError("generation cooldown active").
				WithParam("remaining_seconds", int(st.Remaining.Seconds())))
	}

	if err := h.dispatcher.Trigger(ctx, req.Language, req.TriggerSource); err != nil {
		if h.metrics != nil {
			h.metrics.RecordDispatch("error")
		}
		h.logger.Error("generation dispatch failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadGatewayError("generation trigger failed").WithError(err))
	}

	if err := h.gate.RecordGeneration(ctx, now); err != nil {
		if errors.Is(err, usecase.ErrCooldownActive) {
			// Another request won the race between Status and Record.
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("generation cooldown active"))
		}
		h.logger.Error("cooldown persist failed", xlogger.Error(err))
	}

	if h.metrics != nil {
		h.metrics.RecordDispatch("ok")
	}
	if h.events != nil {
		h.events.Emit(models.Event{
			Type:      models.EventGenerationDispatch,
			Language:  req.Language,
			Timestamp: now,
		})
	}

	return xhttp.SuccessResponse(c, map[string]any{
		"dispatched":       true,
		"cooldown_seconds": int(h.gate.Duration().Seconds()),
	})
}

// Cooldown reports whether a new generation may be requested.
func (h *DashboardHandler) Cooldown(c echo.Context) error {
	st := h.gate.Status(c.Request().Context(), h.clock.Now())
	return xhttp.SuccessResponse(c, toCooldownView(st))
}

// GetLanguage returns the preferred display language.
func (h *DashboardHandler) GetLanguage(c echo.Context) error {
	lang, err := h.state.Language(c.Request().Context())
	if err != nil {
		h.logger.Warn("language read failed", xlogger.Error(err))
	}
	return xhttp.SuccessResponse(c, map[string]string{"language": lang})
}

// SetLanguage persists the preferred display language. Switching language
// restarts presentation tracking.
func (h *DashboardHandler) SetLanguage(c echo.Context) error {
	req := &models.LanguageRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.state.SetLanguage(c.Request().Context(), req.Language); err != nil {
		h.logger.Error("language persist failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("language could not be saved").WithError(err))
	}
	h.sched.BumpEpoch()
	h.sched.Tick(c.Request().Context())
	return xhttp.SuccessResponse(c, map[string]string{"language": req.Language})
}

// Healthz reports process and state-store health.
func (h *DashboardHandler) Healthz(c echo.Context) error {
	status := "ok"
	if err := h.state.Health(c.Request().Context()); err != nil {
		h.logger.Warn("state store unhealthy", xlogger.Error(err))
		status = "degraded"
	}
	if h.archive != nil {
		if err := h.archive.Health(c.Request().Context()); err != nil {
			h.logger.Warn("history archive unhealthy", xlogger.Error(err))
			status = "degraded"
		}
	}
	lastUpdate, stale := h.store.LastUpdate()
	return xhttp.SuccessResponse(c, map[string]any{
		"status":         status,
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"last_update":    lastUpdate,
		"feed_stale":     stale,
	})
}

func toSignalView(es models.EligibleSignal) models.SignalView {
	return models.SignalView{
		ID:               es.Signal.ID,
		Asset:            es.Signal.Asset,
		Direction:        string(es.Signal.Direction),
		Confidence:       es.Signal.Confidence,
		EntryTime:        es.Signal.EntryTime,
		DurationMinutes:  es.Signal.DurationMinutes,
		Phase:            string(es.Class.Phase),
		RemainingSeconds: int(es.Class.Remaining.Seconds()),
		Reason:           es.Signal.Reason,
	}
}

func toCooldownView(st models.CooldownStatus) models.CooldownView {
	v := models.CooldownView{
		Allowed:          st.Allowed,
		RemainingSeconds: int(st.Remaining.Seconds()),
	}
	if !st.LastGeneration.IsZero() {
		v.LastGeneration = st.LastGeneration.UTC().Format(time.RFC3339)
	}
	return v
}
