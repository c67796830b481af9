package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/edgebot/internal/domain"
)

func TestSettlePnL(t *testing.T) {
	pos := domain.Position{Side: domain.SideYes, SizeUSD: 100, EntryPrice: 0.40}

	// Gana: (1 − 0.40) × 100 / 0.40 = $150
	assert.InDelta(t, 150, domain.SettlePnL(pos, domain.OutcomeYes), 0.001)

	// Pierde: (0 − 0.40) × 100 / 0.40 = −$100 (la prima completa)
	assert.InDelta(t, -100, domain.SettlePnL(pos, domain.OutcomeNo), 0.001)

	// VOID: PnL cero, pase lo que pase con el precio de entrada.
	assert.Zero(t, domain.SettlePnL(pos, domain.OutcomeVoid))

	no := domain.Position{Side: domain.SideNo, SizeUSD: 50, EntryPrice: 0.25}
	assert.InDelta(t, 150, domain.SettlePnL(no, domain.OutcomeNo), 0.001)
	assert.InDelta(t, -50, domain.SettlePnL(no, domain.OutcomeYes), 0.001)
}

func TestSettlePnL_ZeroEntryPrice(t *testing.T) {
	pos := domain.Position{Side: domain.SideYes, SizeUSD: 100, EntryPrice: 0}
	assert.Zero(t, domain.SettlePnL(pos, domain.OutcomeYes))
}

func TestSideOpposite(t *testing.T) {
	assert.Equal(t, domain.SideNo, domain.SideYes.Opposite())
	assert.Equal(t, domain.SideYes, domain.SideNo.Opposite())
}
