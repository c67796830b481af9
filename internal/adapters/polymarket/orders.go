package polymarket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// PlaceOrder envía una orden al venue. Un status REJECTED se traduce a
// domain.ErrExecutionRejected para que el engine lo distinga de un fallo
// de transporte: la orden fue evaluada y rechazada, no perdida.
func (c *Client) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	body := orderRequest{
		MarketID: req.MarketID,
		Side:     string(req.Side),
		SizeUSD:  req.SizeUSD,
		Price:    req.Price,
		ClientID: req.ClientID,
	}

	var resp orderResponse
	if err := c.post(ctx, c.ordersLimiter, "/orders", body, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
			return domain.PlacedOrder{}, fmt.Errorf("polymarket.PlaceOrder %s: %s: %w",
				req.MarketID, apiErr.Body, domain.ErrExecutionRejected)
		}
		return domain.PlacedOrder{}, fmt.Errorf("polymarket.PlaceOrder %s: %w", req.MarketID, err)
	}

	order := domain.PlacedOrder{
		OrderID:     resp.OrderID,
		Status:      domain.OrderStatus(resp.Status),
		FilledPrice: resp.FilledPrice,
		FilledUSD:   resp.FilledUSD,
		PlacedAt:    time.Now().UTC(),
	}
	if order.Status == domain.OrderRejected {
		return order, fmt.Errorf("polymarket.PlaceOrder %s: %s: %w",
			req.MarketID, resp.Reason, domain.ErrExecutionRejected)
	}
	return order, nil
}

// GetPosition devuelve la posición abierta en un mercado, o nil si no hay.
func (c *Client) GetPosition(ctx context.Context, marketID string) (*domain.Position, error) {
	var resp positionResponse
	err := c.get(ctx, c.quotesLimiter, "/positions/"+marketID, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("polymarket.GetPosition %s: %w", marketID, err)
	}
	if resp.Position == nil {
		return nil, nil
	}

	p := resp.Position
	pos := &domain.Position{
		MarketID:   p.MarketID,
		Side:       domain.Side(p.Side),
		SizeUSD:    p.SizeUSD,
		EntryPrice: p.EntryPrice,
		OpenedAt:   parseTS(p.OpenedAt),
		Status:     domain.PositionStatus(p.Status),
	}
	return pos, nil
}
