package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/ports"
)

// Check names, in evaluation order. Ordering matters for diagnosability:
// the first failure is the decision's reason.
const (
	CheckConfidenceMin  = "confidence_min"
	CheckEdgeMin        = "edge_min"
	CheckMaxConcurrent  = "max_concurrent"
	CheckDailyLossLimit = "daily_loss_limit"
	CheckPositionCap    = "position_cap"
	CheckLiquidityMin   = "liquidity_min"
	CheckCorrelation    = "correlation"
	CheckCooldown       = "cooldown"
)

// Limits son los parámetros de riesgo. Todos obligatorios en config —
// el sistema nunca tradea sin límites completamente especificados.
type Limits struct {
	ConfidenceMin        float64
	EdgeMinBps           float64
	MaxConcurrent        int
	DailyLossLimitUSD    float64
	MaxPositionUSD       float64
	LiquidityMinUSD      float64
	CorrelationThreshold float64
	Cooldown             time.Duration
	MaxEntriesPerMarket  int
}

// Gate evaluates candidate trades against the risk limits. Evaluate is
// pure given a Snapshot; EvaluateAndReserve closes the check-then-act
// race by committing the reservation under the State lock.
type Gate struct {
	mu     sync.RWMutex
	limits Limits
	corr   ports.CorrelationSource
	state  *State
}

// NewGate creates a Gate bound to one strategy's State.
func NewGate(limits Limits, state *State, corr ports.CorrelationSource) *Gate {
	return &Gate{limits: limits, corr: corr, state: state}
}

// SetLimits swaps the tunable limits (config hot reload).
func (g *Gate) SetLimits(l Limits) {
	g.mu.Lock()
	g.limits = l
	g.mu.Unlock()
}

// Limits returns the current limits.
func (g *Gate) Limits() Limits {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.limits
}

// Evaluate runs the ordered checks against a snapshot, short-circuiting
// on the first failure. Checks already evaluated are recorded in the
// trail even when a later one fails — the trail is partial by design:
// checks after the first failure never ran and are not recorded.
// Pure: no side effects on the state.
func (g *Gate) Evaluate(ctx context.Context, c domain.Candidate, snap Snapshot, now time.Time) domain.GateResult {
	l := g.Limits()
	res := domain.GateResult{AdjustedSizeUSD: c.ProposedSizeUSD}

	fail := func(name, detail string) domain.GateResult {
		res.Checks = append(res.Checks, domain.RiskCheck{Name: name, Passed: false, Detail: detail})
		res.Accept = false
		res.Reason = name
		res.AdjustedSizeUSD = 0
		return res
	}
	pass := func(name, detail string) {
		res.Checks = append(res.Checks, domain.RiskCheck{Name: name, Passed: true, Detail: detail})
	}

	// 1. Confidence
	if c.Confidence < l.ConfidenceMin {
		return fail(CheckConfidenceMin, fmt.Sprintf("confidence %.2f < min %.2f", c.Confidence, l.ConfidenceMin))
	}
	pass(CheckConfidenceMin, fmt.Sprintf("%.2f >= %.2f", c.Confidence, l.ConfidenceMin))

	// 2. Edge (magnitude, per side)
	if c.EdgeBps < l.EdgeMinBps {
		return fail(CheckEdgeMin, fmt.Sprintf("edge %.0fbps < min %.0fbps", c.EdgeBps, l.EdgeMinBps))
	}
	pass(CheckEdgeMin, fmt.Sprintf("%.0fbps >= %.0fbps", c.EdgeBps, l.EdgeMinBps))

	// 3. Concurrency
	if len(snap.OpenPositions) >= l.MaxConcurrent {
		return fail(CheckMaxConcurrent, fmt.Sprintf("%d open >= cap %d", len(snap.OpenPositions), l.MaxConcurrent))
	}
	pass(CheckMaxConcurrent, fmt.Sprintf("%d open < %d", len(snap.OpenPositions), l.MaxConcurrent))

	// 4. Daily loss — strict: exactly at the limit blocks new trades.
	if snap.DailyPnL <= -l.DailyLossLimitUSD {
		return fail(CheckDailyLossLimit, fmt.Sprintf("daily pnl $%.2f <= -$%.2f", snap.DailyPnL, l.DailyLossLimitUSD))
	}
	pass(CheckDailyLossLimit, fmt.Sprintf("daily pnl $%.2f", snap.DailyPnL))

	// 5. Position cap — clamps, never silently exceeds.
	if c.ProposedSizeUSD > l.MaxPositionUSD {
		res.AdjustedSizeUSD = l.MaxPositionUSD
		pass(CheckPositionCap, fmt.Sprintf("clamped $%.2f -> $%.2f", c.ProposedSizeUSD, l.MaxPositionUSD))
	} else {
		pass(CheckPositionCap, fmt.Sprintf("$%.2f <= $%.2f", c.ProposedSizeUSD, l.MaxPositionUSD))
	}

	// 6. Liquidity
	if c.DepthUSD < l.LiquidityMinUSD {
		return fail(CheckLiquidityMin, fmt.Sprintf("depth $%.0f < min $%.0f", c.DepthUSD, l.LiquidityMinUSD))
	}
	pass(CheckLiquidityMin, fmt.Sprintf("depth $%.0f", c.DepthUSD))

	// 7. Correlation against already-open positions. The lookup is an
	// injected capability; if it errors we reject — risk fails closed.
	for _, p := range snap.OpenPositions {
		if p.MarketID == c.MarketID {
			continue
		}
		corr, err := g.corr.Correlation(ctx, c.MarketID, p.MarketID)
		if err != nil {
			return fail(CheckCorrelation, fmt.Sprintf("lookup %s vs %s: %v", c.MarketID, p.MarketID, err))
		}
		if corr > l.CorrelationThreshold {
			return fail(CheckCorrelation, fmt.Sprintf("%.2f with open %s > %.2f", corr, p.MarketID, l.CorrelationThreshold))
		}
	}
	pass(CheckCorrelation, fmt.Sprintf("no open position above %.2f", l.CorrelationThreshold))

	// 8. Per-market cooldown and entry cap.
	if l.Cooldown > 0 {
		if last, ok := snap.LastTrade[c.MarketID]; ok && now.Sub(last) < l.Cooldown {
			return fail(CheckCooldown, fmt.Sprintf("last trade %s ago < cooldown %s", now.Sub(last).Truncate(time.Second), l.Cooldown))
		}
	}
	if l.MaxEntriesPerMarket > 0 && snap.Entries[c.MarketID] >= l.MaxEntriesPerMarket {
		return fail(CheckCooldown, fmt.Sprintf("%d entries today >= cap %d", snap.Entries[c.MarketID], l.MaxEntriesPerMarket))
	}
	pass(CheckCooldown, "ok")

	res.Accept = true
	res.Reason = "all_checks_passed"
	return res
}

// EvaluateAndReserve evaluates the candidate and, if accepted, commits a
// position reservation atomically under the State lock. Two concurrent
// calls can never both pass a concurrency-cap check only one satisfies.
// The caller must Confirm the reservation after the fill or Release it
// if execution fails.
func (g *Gate) EvaluateAndReserve(ctx context.Context, c domain.Candidate, now time.Time) (domain.GateResult, *domain.Position) {
	g.state.mu.Lock()
	defer g.state.mu.Unlock()

	g.state.resetIfNewDay(now)
	res := g.Evaluate(ctx, c, g.state.snapshotLocked(), now)
	if !res.Accept {
		return res, nil
	}

	p := domain.Position{
		ID:         uuid.New().String(),
		MarketID:   c.MarketID,
		Side:       c.Side,
		SizeUSD:    res.AdjustedSizeUSD,
		EntryPrice: c.Price,
		OpenedAt:   now,
		Status:     domain.PositionOpen,
	}
	g.state.commitLocked(p, now)
	return res, &p
}
