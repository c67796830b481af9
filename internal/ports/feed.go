package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// TickSource entrega ticks normalizados de la fuente de referencia.
type TickSource interface {
	// Next devuelve el siguiente tick dentro del timeout dado.
	// Si no llega nada a tiempo devuelve domain.ErrFeedTimeout —
	// el ciclo se salta (SKIP reason=feed_timeout), sin retry inline.
	Next(ctx context.Context, timeout time.Duration) (domain.Tick, error)

	// Close libera la conexión subyacente.
	Close() error
}

// QuoteProvider obtiene la vista actual del mercado de predicción.
type QuoteProvider interface {
	// FetchQuote devuelve precios YES/NO, profundidad y strike del mercado.
	FetchQuote(ctx context.Context, marketID string) (domain.MarketQuote, error)
}
