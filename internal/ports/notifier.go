package ports

import (
	"context"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

// Summary es el resumen de performance que el core expone bajo demanda.
// La entrega (Telegram, email, ...) es responsabilidad del collaborator.
type Summary struct {
	WindowHours   float64
	Decisions     int
	Trades        int
	Skips         int
	Resolved      int
	Wins          int
	WinRate       float64
	NetPnLUSD     float64
	FeesUSD       float64
	OpenPositions int
}

// Notifier presenta decisiones y resúmenes al usuario.
type Notifier interface {
	// NotifyDecision muestra el resultado de un ciclo.
	NotifyDecision(ctx context.Context, d domain.Decision) error

	// NotifySummary muestra el resumen de performance.
	NotifySummary(ctx context.Context, s Summary) error
}
