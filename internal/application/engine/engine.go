// Package engine runs the decision loop: one pass per market per cycle,
// from reference tick to journaled TRADE/SKIP verdict.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/metrics"
	"github.com/alejandrodnm/edgebot/internal/ports"
	"github.com/alejandrodnm/edgebot/internal/risk"
)

// Market binds a prediction market to its reference feed symbol.
type Market struct {
	ID     string
	Symbol string
}

// Config holds the engine's tunables.
type Config struct {
	Strategy    string
	Live        bool
	Venue       string
	Markets     []Market
	FeedTimeout time.Duration
	Estimator   domain.EstimatorConfig
	Sizing      domain.SizingConfig
}

// Engine owns one strategy's decision cycle. Collaborators come in as
// interfaces; the engine never talks to a venue or a file directly.
type Engine struct {
	cfg      Config
	feed     ports.TickSource
	quotes   ports.QuoteProvider
	executor ports.OrderExecutor
	journal  ports.Journal
	audit    ports.AuditStore
	notifier ports.Notifier
	gate     *risk.Gate
	state    *risk.State
	policy   domain.FairValuePolicy

	lastTick map[string]domain.Tick  // symbol → freshest tick seen
	pending  map[string]pendingOrder // order ID → awaiting venue confirmation
}

// pendingOrder is a SUBMITTED order whose fill the engine reconciles on
// a later cycle.
type pendingOrder struct {
	decisionID string
	positionID string
	req        domain.PlaceOrderRequest
}

// New wires an Engine.
func New(
	cfg Config,
	feed ports.TickSource,
	quotes ports.QuoteProvider,
	executor ports.OrderExecutor,
	journal ports.Journal,
	audit ports.AuditStore,
	notifier ports.Notifier,
	gate *risk.Gate,
	state *risk.State,
	policy domain.FairValuePolicy,
) *Engine {
	return &Engine{
		cfg:      cfg,
		feed:     feed,
		quotes:   quotes,
		executor: executor,
		journal:  journal,
		audit:    audit,
		notifier: notifier,
		gate:     gate,
		state:    state,
		policy:   policy,
		lastTick: make(map[string]domain.Tick),
		pending:  make(map[string]pendingOrder),
	}
}

// SetLimits swaps the gate limits (config hot reload).
func (e *Engine) SetLimits(l risk.Limits) {
	e.gate.SetLimits(l)
	slog.Info("risk limits reloaded",
		"max_position_usd", l.MaxPositionUSD,
		"max_concurrent", l.MaxConcurrent,
		"daily_loss_limit_usd", l.DailyLossLimitUSD)
}

// Run executes cycles at the given interval until the context ends.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	slog.Info("engine started",
		"strategy", e.cfg.Strategy, "live", e.cfg.Live,
		"markets", len(e.cfg.Markets), "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := e.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("cycle failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce executes a single cycle: refresh the feed, reconcile pending
// orders, then decide each market independently. A failure in one
// market never blocks the others.
func (e *Engine) RunOnce(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.CycleDuration.Observe(time.Since(start).Seconds()) }()

	e.pollFeed(ctx)
	e.reconcile(ctx)

	for _, m := range e.cfg.Markets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := e.runMarket(ctx, m); err != nil {
			slog.Error("market cycle failed", "market", m.ID, "error", err)
		}
	}

	now := time.Now().UTC()
	snap := e.state.Snapshot(now)
	metrics.OpenPositions.Set(float64(len(snap.OpenPositions)))
	metrics.DailyPnL.Set(snap.DailyPnL)
	return nil
}

// pollFeed reads ticks within the feed timeout budget. The first read
// gets the full budget; after one tick arrives, the remainder is drained
// with short waits so every symbol gets a chance to refresh.
func (e *Engine) pollFeed(ctx context.Context) {
	deadline := time.Now().Add(e.cfg.FeedTimeout)
	wait := e.cfg.FeedTimeout
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		if wait > remaining {
			wait = remaining
		}
		tick, err := e.feed.Next(ctx, wait)
		if err != nil {
			return
		}
		e.lastTick[tick.Symbol] = tick
		if err := e.audit.SaveTick(ctx, tick); err != nil {
			slog.Warn("tick not persisted", "symbol", tick.Symbol, "error", err)
		}
		wait = 50 * time.Millisecond
	}
}

// runMarket decides one market: estimate, size, gate, execute, journal.
// Every path ends in exactly one journaled decision.
func (e *Engine) runMarket(ctx context.Context, m Market) error {
	now := time.Now().UTC()
	d := domain.Decision{
		ID:        uuid.NewString(),
		Timestamp: now,
		Strategy:  e.cfg.Strategy,
		MarketID:  m.ID,
		Live:      e.cfg.Live,
	}

	tick, ok := e.lastTick[m.Symbol]
	if !ok {
		d.Action = domain.ActionSkip
		d.Reason = domain.ReasonFeedTimeout
		return e.record(ctx, d)
	}

	quote, err := e.quotes.FetchQuote(ctx, m.ID)
	if err != nil {
		slog.Warn("quote fetch failed", "market", m.ID, "error", err)
		d.Action = domain.ActionSkip
		d.Reason = domain.ReasonNoOpinion
		return e.record(ctx, d)
	}

	sample := domain.Estimate(tick, quote, e.policy, e.cfg.Estimator, now)
	if err := e.audit.SaveSpread(ctx, sample); err != nil {
		slog.Warn("spread not persisted", "market", m.ID, "error", err)
	}

	side, edge := sample.BestSide()
	d.EdgeBps = edge
	d.Confidence = sample.Confidence

	if !sample.Actionable() {
		d.Action = domain.ActionSkip
		d.Reason = sample.Reason
		return e.record(ctx, d)
	}

	price := sample.SidePrice(side)
	budget := e.state.RemainingDailyBudget(now, e.gate.Limits().DailyLossLimitUSD)
	size := domain.SizeUSD(edge, sample.Confidence, price, budget, e.cfg.Sizing)
	if size <= 0 {
		d.Action = domain.ActionSkip
		d.Reason = domain.ReasonMinOrderSize
		return e.record(ctx, d)
	}

	cand := domain.Candidate{
		MarketID:        m.ID,
		Side:            side,
		ProposedSizeUSD: size,
		EdgeBps:         edge,
		Confidence:      sample.Confidence,
		Price:           price,
		DepthUSD:        quote.DepthUSD,
	}
	res, reserved := e.gate.EvaluateAndReserve(ctx, cand, now)
	d.RiskChecks = res.Checks
	if !res.Accept {
		d.Action = domain.ActionSkip
		d.Reason = res.Reason
		return e.record(ctx, d)
	}

	req := domain.PlaceOrderRequest{
		MarketID: m.ID,
		Side:     side,
		SizeUSD:  res.AdjustedSizeUSD,
		Price:    price,
		ClientID: d.ID,
	}
	order, err := e.executor.PlaceOrder(ctx, req)
	if err != nil {
		e.state.Release(reserved.ID)
		d.Action = domain.ActionSkip
		d.Reason = domain.ReasonExecutionRejected
		if !errors.Is(err, domain.ErrExecutionRejected) {
			slog.Error("order placement failed", "market", m.ID, "error", err)
		}
		return e.record(ctx, d)
	}
	if err := e.audit.SaveOrder(ctx, e.cfg.Venue, order, req); err != nil {
		slog.Warn("order not persisted", "order_id", order.OrderID, "error", err)
	}

	d.Action = domain.ActionTrade
	d.Reason = "all_checks_passed"
	d.Side = side
	d.SizeUSD = res.AdjustedSizeUSD
	d.Price = price
	d.PositionID = reserved.ID
	d.OrderID = order.OrderID

	switch order.Status {
	case domain.OrderFilled, domain.OrderPartial:
		e.confirmFill(ctx, d, *reserved, order, now)
	case domain.OrderSubmitted:
		// Fill unknown yet; reconcile on a later cycle.
		e.pending[order.OrderID] = pendingOrder{decisionID: d.ID, positionID: reserved.ID, req: req}
	}
	return e.record(ctx, d)
}

// confirmFill settles the reservation against the actual fill and
// persists the position.
func (e *Engine) confirmFill(ctx context.Context, d domain.Decision, p domain.Position, order domain.PlacedOrder, now time.Time) {
	price := order.FilledPrice
	if price <= 0 {
		price = p.EntryPrice
	}
	size := order.FilledUSD
	if size <= 0 {
		size = p.SizeUSD
	}
	e.state.Confirm(p.ID, price, size)

	p.EntryPrice = price
	p.SizeUSD = size
	p.OpenedAt = now
	p.DecisionID = d.ID
	if err := e.audit.SavePosition(ctx, p); err != nil {
		slog.Warn("position not persisted", "position_id", p.ID, "error", err)
	}
}

// reconcile settles SUBMITTED orders from earlier cycles. The execution
// boundary is at-least-once and eventually consistent: the venue's view
// wins, and whatever changed is journaled as a correcting entry linked
// to the original decision, never an in-place edit.
func (e *Engine) reconcile(ctx context.Context) {
	for orderID, po := range e.pending {
		pos, err := e.executor.GetPosition(ctx, po.req.MarketID)
		if err != nil {
			slog.Warn("reconcile lookup failed", "order_id", orderID, "error", err)
			continue
		}

		now := time.Now().UTC()
		corr := domain.Decision{
			ID:        uuid.NewString(),
			Timestamp: now,
			Strategy:  e.cfg.Strategy,
			MarketID:  po.req.MarketID,
			Corrects:  po.decisionID,
			Live:      e.cfg.Live,
			OrderID:   orderID,
		}

		if pos == nil {
			// The venue dropped the order: free the reservation.
			e.state.Release(po.positionID)
			corr.Action = domain.ActionSkip
			corr.Reason = domain.ReasonExecutionRejected
		} else {
			e.state.Confirm(po.positionID, pos.EntryPrice, pos.SizeUSD)
			filled := domain.Position{
				ID:         po.positionID,
				MarketID:   po.req.MarketID,
				Side:       pos.Side,
				SizeUSD:    pos.SizeUSD,
				EntryPrice: pos.EntryPrice,
				OpenedAt:   pos.OpenedAt,
				Status:     domain.PositionOpen,
				DecisionID: po.decisionID,
			}
			if filled.OpenedAt.IsZero() {
				filled.OpenedAt = now
			}
			if err := e.audit.SavePosition(ctx, filled); err != nil {
				slog.Warn("position not persisted", "position_id", filled.ID, "error", err)
			}
			corr.Action = domain.ActionTrade
			corr.Reason = "fill_confirmed"
			corr.Side = pos.Side
			corr.SizeUSD = pos.SizeUSD
			corr.Price = pos.EntryPrice
			corr.PositionID = po.positionID
		}

		if err := e.record(ctx, corr); err != nil {
			slog.Error("correction not journaled", "order_id", orderID, "error", err)
			continue
		}
		delete(e.pending, orderID)
	}
}

// record journals the decision and fans it out to metrics and the
// notifier. The journal append is the one write that must not fail.
func (e *Engine) record(ctx context.Context, d domain.Decision) error {
	if _, err := e.journal.Append(ctx, d); err != nil {
		return fmt.Errorf("engine.record: %w", err)
	}
	metrics.DecisionsTotal.WithLabelValues(string(d.Action), d.Reason).Inc()
	if err := e.notifier.NotifyDecision(ctx, d); err != nil {
		slog.Warn("notify failed", "decision_id", d.ID, "error", err)
	}
	return nil
}
