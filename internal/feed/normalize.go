// Package feed normaliza observaciones heterogéneas de precio en Ticks
// canónicos. Sin I/O, sin estado: replayar la misma observación produce
// el mismo Tick.
package feed

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// RawObservation es una observación cruda tal como llega de un feed.
// Bid/Ask/Last son punteros porque los feeds last-trade-only no traen
// bid/ask — ausente ≠ cero.
type RawObservation struct {
	Timestamp time.Time
	Symbol    string // símbolo del venue, p.ej. "BTCUSDT"
	Bid       *float64
	Ask       *float64
	Last      *float64
	Extra     map[string]string
}

// Normalizer mapea símbolos de venue a canónicos y aplica el límite de
// staleness. Es puro: no tiene contadores ni side effects.
type Normalizer struct {
	source    string
	symbolMap map[string]string // venue symbol → canónico
	maxAge    time.Duration
}

// NewNormalizer crea un Normalizer para una fuente.
func NewNormalizer(source string, symbolMap map[string]string, maxAge time.Duration) *Normalizer {
	return &Normalizer{source: source, symbolMap: symbolMap, maxAge: maxAge}
}

// Normalize convierte una observación cruda en un Tick canónico.
// Observaciones más viejas que maxAge fallan con domain.ErrStaleData.
// Campos ausentes quedan como Price inválido, nunca como cero.
func (n *Normalizer) Normalize(raw RawObservation, now time.Time) (domain.Tick, error) {
	if raw.Timestamp.IsZero() {
		return domain.Tick{}, fmt.Errorf("feed.Normalize: observation without timestamp: %w", domain.ErrStaleData)
	}
	if n.maxAge > 0 && now.Sub(raw.Timestamp) > n.maxAge {
		return domain.Tick{}, fmt.Errorf("feed.Normalize: %s observation %s old (max %s): %w",
			raw.Symbol, now.Sub(raw.Timestamp).Truncate(time.Millisecond), n.maxAge, domain.ErrStaleData)
	}

	symbol := raw.Symbol
	if canonical, ok := n.symbolMap[raw.Symbol]; ok {
		symbol = canonical
	}

	return domain.Tick{
		Timestamp: raw.Timestamp,
		Source:    n.source,
		Symbol:    symbol,
		Bid:       asPrice(raw.Bid),
		Ask:       asPrice(raw.Ask),
		Last:      asPrice(raw.Last),
		Extra:     raw.Extra,
	}, nil
}

func asPrice(v *float64) domain.Price {
	if v == nil {
		return domain.Unknown()
	}
	return domain.Known(*v)
}
