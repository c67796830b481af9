package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

var sizingCfg = domain.SizingConfig{
	BankrollUSD:     10_000,
	KellyMultiplier: 0.5,
	MaxPositionUSD:  200,
	MinShares:       10,
	MaxBumpUSD:      5,
}

func TestKellyFraction(t *testing.T) {
	// 500bps de edge × conf 0.8 × multiplier 0.5 = 0.02
	assert.InDelta(t, 0.02, domain.KellyFraction(500, 0.8, 0.5), 0.0001)

	// Nunca negativa ni por encima de 1.
	assert.Zero(t, domain.KellyFraction(-100, 0.8, 0.5))
	assert.Zero(t, domain.KellyFraction(500, 0, 0.5))
	assert.Equal(t, 1.0, domain.KellyFraction(100_000, 1.0, 1.0))
}

func TestSizeUSD_CappedByMaxPosition(t *testing.T) {
	// raw = 0.05 × 10000 = $500, cap $200
	size := domain.SizeUSD(1000, 1.0, 0.50, 10_000, sizingCfg)
	assert.InDelta(t, 200, size, 0.001)
}

func TestSizeUSD_CappedByDailyBudget(t *testing.T) {
	size := domain.SizeUSD(1000, 1.0, 0.50, 75, sizingCfg)
	assert.InDelta(t, 75, size, 0.001)

	assert.Zero(t, domain.SizeUSD(1000, 1.0, 0.50, 0, sizingCfg))
}

// Por debajo del mínimo de shares el tamaño se sube hasta MinShares×price
// si el bump cabe en MaxBumpUSD; si no, la señal es SKIP (0).
func TestSizeUSD_MinSharesBump(t *testing.T) {
	cfg := sizingCfg
	cfg.MaxBumpUSD = 5

	// raw pequeño: 10bps × 0.5 conf × 0.5 mult = $2.50; 10 shares a $0.60
	// son $6 → bump de $3.50, permitido.
	size := domain.SizeUSD(10, 0.5, 0.60, 10_000, cfg)
	assert.InDelta(t, 6.0, size, 0.001)

	// Mismo raw con precio $0.90: mínimo $9 → bump $6.50 > $5 → SKIP.
	size = domain.SizeUSD(10, 0.5, 0.90, 10_000, cfg)
	assert.Zero(t, size)
}

func TestSizeUSD_BumpNeverExceedsPositionCap(t *testing.T) {
	cfg := sizingCfg
	cfg.MaxPositionUSD = 5
	cfg.MaxBumpUSD = 100

	// El mínimo del venue ($6) supera el cap de posición → SKIP.
	size := domain.SizeUSD(10, 0.5, 0.60, 10_000, cfg)
	assert.Zero(t, size)
}

func TestSizeUSD_ZeroOnBadInputs(t *testing.T) {
	assert.Zero(t, domain.SizeUSD(500, 0.8, 0, 1000, sizingCfg))
	assert.Zero(t, domain.SizeUSD(0, 0.8, 0.5, 1000, sizingCfg))
}
