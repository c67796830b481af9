package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// Journal es el registro append-only de decisiones. Una entrada escrita
// no se muta jamás: las correcciones son entradas nuevas con el campo
// Corrects apuntando a la original.
type Journal interface {
	// Append persiste la decisión de forma durable (fsync) y devuelve su ID.
	Append(ctx context.Context, d domain.Decision) (string, error)

	// QueryByMarket devuelve las decisiones de un mercado en orden de inserción.
	QueryByMarket(ctx context.Context, marketID string) ([]domain.Decision, error)

	// QueryByRange devuelve las decisiones del rango en orden de inserción,
	// byte-idénticas a lo que se escribió.
	QueryByRange(ctx context.Context, from, to time.Time) ([]domain.Decision, error)

	Close() error
}

// AuditStore persiste las filas de auditoría (ticks, spreads, orders,
// positions) que espejan los schemas relacionales del sistema.
type AuditStore interface {
	SaveTick(ctx context.Context, t domain.Tick) error
	SaveSpread(ctx context.Context, s domain.EdgeSample) error
	SaveOrder(ctx context.Context, venue string, order domain.PlacedOrder, req domain.PlaceOrderRequest) error

	SavePosition(ctx context.Context, p domain.Position) error
	ClosePosition(ctx context.Context, p domain.Position) error
	GetOpenPositions(ctx context.Context) ([]domain.Position, error)
	ClosedPositionsSince(ctx context.Context, since time.Time) ([]domain.Position, error)

	Close() error
}
