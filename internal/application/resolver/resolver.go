// Package resolver settles open positions against market resolutions
// and attributes realized PnL to the day's risk state.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/ports"
	"github.com/alejandrodnm/edgebot/internal/risk"
)

// Resolver polls the resolution source for markets with open positions
// and closes them when the venue reports an outcome.
type Resolver struct {
	strategy string
	live     bool
	source   ports.ResolutionSource
	state    *risk.State
	journal  ports.Journal
	audit    ports.AuditStore

	// settled, if set, tells the executor a market is done. The paper
	// executor uses it to drop its simulated position.
	settled func(marketID string)
}

// New wires a Resolver.
func New(strategy string, live bool, source ports.ResolutionSource, state *risk.State, journal ports.Journal, audit ports.AuditStore, settled func(string)) *Resolver {
	return &Resolver{
		strategy: strategy,
		live:     live,
		source:   source,
		state:    state,
		journal:  journal,
		audit:    audit,
		settled:  settled,
	}
}

// Run polls at the given interval until the context ends.
func (r *Resolver) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce checks every market with open positions for a resolution.
func (r *Resolver) RunOnce(ctx context.Context) {
	for _, marketID := range r.state.OpenMarkets() {
		res, err := r.source.FetchResolution(ctx, marketID)
		if err != nil {
			slog.Warn("resolution fetch failed", "market", marketID, "error", err)
			continue
		}
		if !res.Resolved {
			continue
		}
		if err := r.Resolve(ctx, marketID, res.Outcome); err != nil {
			slog.Error("resolve failed", "market", marketID, "error", err)
		}
	}
}

// Resolve settles every open position in a market against the outcome.
// A resolution with no open position is a warning, not an error: the
// market may have been skipped every cycle.
//
// Realized PnL follows binary settlement: winners pay $1 per share,
// losers $0, so pnl = (outcome_value − entry) × size / entry. A VOID
// outcome closes the position as voided with zero PnL.
func (r *Resolver) Resolve(ctx context.Context, marketID string, outcome domain.Outcome) error {
	positions := r.state.OpenByMarket(marketID)
	if len(positions) == 0 {
		slog.Warn("resolution for market with no open position", "market", marketID, "outcome", outcome)
		return nil
	}

	now := time.Now().UTC()
	var errs []error
	for _, p := range positions {
		pnl := domain.SettlePnL(p, outcome)

		p.Status = domain.PositionClosed
		reason := domain.ReasonResolved
		if outcome == domain.OutcomeVoid {
			p.Status = domain.PositionVoided
			reason = domain.ReasonVoided
		}
		p.RealizedPnL = pnl
		closedAt := now
		p.ClosedAt = &closedAt

		// Persistir antes de tocar el estado: si el store falla, la
		// posición sigue abierta y el siguiente poll reintenta. Cerrar
		// primero en memoria dejaría la fila en 'open' y un reinicio
		// rehidrataría una posición ya liquidada.
		if err := r.audit.ClosePosition(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("resolver.Resolve %s: persist closure: %w", p.ID, err))
			continue
		}
		if !r.state.ClosePosition(now, p.ID, pnl) {
			// Already closed by a concurrent resolve.
			continue
		}

		d := domain.Decision{
			ID:          uuid.NewString(),
			Timestamp:   now,
			Strategy:    r.strategy,
			MarketID:    marketID,
			Action:      domain.ActionResolve,
			Reason:      reason,
			Side:        p.Side,
			SizeUSD:     p.SizeUSD,
			Price:       p.EntryPrice,
			Live:        r.live,
			PositionID:  p.ID,
			Corrects:    p.DecisionID,
			Outcome:     outcome,
			RealizedPnL: pnl,
		}
		if _, err := r.journal.Append(ctx, d); err != nil {
			errs = append(errs, fmt.Errorf("resolver.Resolve %s: journal: %w", p.ID, err))
			continue
		}

		slog.Info("position settled",
			"market", marketID, "position_id", p.ID,
			"outcome", outcome, "pnl_usd", fmt.Sprintf("%.2f", pnl))
	}

	// Con cierres pendientes de persistir el mercado no está liquidado:
	// el executor conserva la posición para el reintento.
	if r.settled != nil && len(errs) == 0 {
		r.settled(marketID)
	}
	return errors.Join(errs...)
}
