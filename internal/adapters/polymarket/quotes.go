package polymarket

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// FetchQuote implementa ports.QuoteProvider: precios YES/NO, profundidad
// y strike del mercado. Campos ausentes quedan como Price inválido.
func (c *Client) FetchQuote(ctx context.Context, marketID string) (domain.MarketQuote, error) {
	var resp marketResponse
	if err := c.get(ctx, c.quotesLimiter, "/markets/"+marketID, &resp); err != nil {
		return domain.MarketQuote{}, fmt.Errorf("polymarket.FetchQuote %s: %w", marketID, err)
	}

	mk := resp.Market
	quote := domain.MarketQuote{
		Timestamp: parseTS(mk.UpdatedAt),
		MarketID:  marketID,
		Question:  mk.Question,
		DepthUSD:  mk.DepthUSD,
		Strike:    mk.Strike,
		FeeBps:    mk.FeeRateBps,
	}
	if mk.BestYes != nil {
		quote.YesPrice = domain.Known(*mk.BestYes)
	}
	if mk.BestNo != nil {
		quote.NoPrice = domain.Known(*mk.BestNo)
	} else if mk.BestYes != nil {
		// Fallback de schemas viejos: NO implícito del complemento.
		quote.NoPrice = domain.Known(1.0 - *mk.BestYes)
	}
	return quote, nil
}

// FetchResolution implementa ports.ResolutionSource.
// Un mercado settled sin outcome interpretable es ambiguo: Resolved=true
// con Outcome=VOID — el resolver marca la posición voided.
func (c *Client) FetchResolution(ctx context.Context, marketID string) (domain.Resolution, error) {
	var resp marketResponse
	if err := c.get(ctx, c.quotesLimiter, "/markets/"+marketID, &resp); err != nil {
		return domain.Resolution{}, fmt.Errorf("polymarket.FetchResolution %s: %w", marketID, err)
	}

	mk := resp.Market
	res := domain.Resolution{MarketID: marketID, ResolvedAt: parseTS(mk.ResolvedAt)}

	switch strings.ToLower(mk.Status) {
	case "resolved", "closed", "settled":
		res.Resolved = true
	default:
		return res, nil
	}

	res.Outcome = parseOutcome(mk.Outcome, mk.OutcomeName)
	return res, nil
}

// parseOutcome interpreta el outcome de la API, que llega como string
// bool-like o como nombre ("Up"/"Down"). Sin interpretación → VOID.
func parseOutcome(outcome *string, outcomeName string) domain.Outcome {
	if outcome != nil {
		switch strings.ToLower(strings.TrimSpace(*outcome)) {
		case "yes", "up", "true", "1":
			return domain.OutcomeYes
		case "no", "down", "false", "0":
			return domain.OutcomeNo
		}
	}
	name := strings.ToLower(outcomeName)
	switch {
	case strings.Contains(name, "up"), strings.Contains(name, "yes"):
		return domain.OutcomeYes
	case strings.Contains(name, "down"), strings.Contains(name, "no"):
		return domain.OutcomeNo
	}
	return domain.OutcomeVoid
}

func parseTS(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
