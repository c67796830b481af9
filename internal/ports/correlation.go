package ports

import "context"

// CorrelationSource expone la correlación entre dos instrumentos.
// El risk gate NO la calcula — es una capability inyectada; cómo se
// computa queda fuera del core.
type CorrelationSource interface {
	// Correlation devuelve la correlación en [-1, 1] entre dos mercados.
	Correlation(ctx context.Context, marketA, marketB string) (float64, error)
}
