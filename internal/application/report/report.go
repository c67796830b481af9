// Package report aggregates the journal into a performance summary.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/ports"
)

// Build computes the summary for the trailing window from the journal
// and the audit store. feeBps prices the paid fees out of traded size.
func Build(ctx context.Context, journal ports.Journal, audit ports.AuditStore, window time.Duration, feeBps float64) (ports.Summary, error) {
	now := time.Now().UTC()
	s := ports.Summary{WindowHours: window.Hours()}

	decisions, err := journal.QueryByRange(ctx, now.Add(-window), now)
	if err != nil {
		return s, fmt.Errorf("report.Build: %w", err)
	}

	for _, d := range decisions {
		// Corrections refine earlier entries; they are not new decisions.
		if d.Corrects != "" || d.Action == domain.ActionResolve {
			continue
		}
		s.Decisions++
		switch d.Action {
		case domain.ActionTrade:
			s.Trades++
			s.FeesUSD += d.SizeUSD * feeBps / 10_000
		case domain.ActionSkip:
			s.Skips++
		}
	}

	// PnL comes from the positions table, which already reflects any
	// post-fill corrections.
	closed, err := audit.ClosedPositionsSince(ctx, now.Add(-window))
	if err != nil {
		return s, fmt.Errorf("report.Build: %w", err)
	}
	for _, p := range closed {
		s.Resolved++
		s.NetPnLUSD += p.RealizedPnL
		if p.RealizedPnL > 0 {
			s.Wins++
		}
	}
	if s.Resolved > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Resolved)
	}
	s.NetPnLUSD -= s.FeesUSD

	open, err := audit.GetOpenPositions(ctx)
	if err != nil {
		return s, fmt.Errorf("report.Build: %w", err)
	}
	s.OpenPositions = len(open)
	return s, nil
}
