package ports

import (
	"context"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// OrderExecutor places orders on the venue. The core treats it as an
// at-least-once, eventually-consistent boundary: a submitted order may
// later report filled/partial/rejected; the engine reconciles on the
// next cycle instead of assuming synchronous confirmation.
type OrderExecutor interface {
	// PlaceOrder submits an order. A venue-side rejection surfaces as
	// domain.ErrExecutionRejected (wrapped).
	PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error)

	// GetPosition returns the venue's view of the position for a market,
	// or nil if there is none.
	GetPosition(ctx context.Context, marketID string) (*domain.Position, error)
}

// ResolutionSource reports market settlement state.
type ResolutionSource interface {
	FetchResolution(ctx context.Context, marketID string) (domain.Resolution, error)
}
