// Package execution provides the order executors: a paper simulator
// that fills instantly at the quoted price, and a live executor that
// forwards to the venue client.
package execution

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// PaperExecutor simulates fills: every order fills immediately at the
// requested price, with no slippage and no partial fills.
type PaperExecutor struct {
	mu        sync.Mutex
	positions map[string]domain.Position // by market ID
	now       func() time.Time
}

// NewPaperExecutor creates a paper executor.
func NewPaperExecutor() *PaperExecutor {
	return &PaperExecutor{
		positions: make(map[string]domain.Position),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder fills the order at the requested price.
func (e *PaperExecutor) PlaceOrder(_ context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	order := domain.PlacedOrder{
		OrderID:     uuid.NewString(),
		Status:      domain.OrderFilled,
		FilledPrice: req.Price,
		FilledUSD:   req.SizeUSD,
		PlacedAt:    now,
	}
	e.positions[req.MarketID] = domain.Position{
		ID:         uuid.NewString(),
		MarketID:   req.MarketID,
		Side:       req.Side,
		SizeUSD:    req.SizeUSD,
		EntryPrice: req.Price,
		OpenedAt:   now,
		Status:     domain.PositionOpen,
	}
	return order, nil
}

// GetPosition returns the simulated position for a market, or nil.
func (e *PaperExecutor) GetPosition(_ context.Context, marketID string) (*domain.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.positions[marketID]
	if !ok {
		return nil, nil
	}
	cp := p
	return &cp, nil
}

// Settle removes the simulated position once the market resolves.
func (e *PaperExecutor) Settle(marketID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.positions, marketID)
}
