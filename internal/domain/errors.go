package domain

import "errors"

// Taxonomía de errores del core. La falta de liquidez NO está aquí a
// propósito: es un check de riesgo fallido, nunca un error.
var (
	// ErrStaleData indica un input más viejo que el límite configurado.
	// El ciclo degrada a confidence 0 y journalea SKIP.
	ErrStaleData = errors.New("stale data")

	// ErrFeedTimeout indica que el feed no produjo datos dentro de la
	// ventana de poll. Se salta el ciclo, sin retry inline.
	ErrFeedTimeout = errors.New("feed timeout")

	// ErrExecutionRejected indica que el venue rechazó la orden.
	// Se journalea como SKIP-after-attempt; la posición no se abre.
	ErrExecutionRejected = errors.New("execution rejected")

	// ErrAmbiguousResolution indica que el resolver no pudo determinar
	// el outcome. La posición se marca voided con PnL cero.
	ErrAmbiguousResolution = errors.New("ambiguous resolution")
)
