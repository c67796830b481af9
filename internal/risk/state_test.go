package risk_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/risk"
)

func TestState_DailyPnLResetsAtConfiguredBoundary(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	day1 := time.Date(2026, 3, 2, 15, 0, 0, 0, loc)
	state := risk.NewState(loc, day1)
	state.AddDailyPnL(day1, -120)
	assert.InDelta(t, -120, state.DailyPnL(day1), 0.001)

	// Misma fecha, más tarde: acumula.
	later := day1.Add(3 * time.Hour)
	state.AddDailyPnL(later, -30)
	assert.InDelta(t, -150, state.DailyPnL(later), 0.001)

	// Pasada la medianoche de la zona configurada: contador a cero.
	nextDay := time.Date(2026, 3, 3, 0, 5, 0, 0, loc)
	assert.Zero(t, state.DailyPnL(nextDay))
}

func TestState_RemainingDailyBudget(t *testing.T) {
	now := time.Now().UTC()
	state := risk.NewState(time.UTC, now)

	assert.InDelta(t, 500, state.RemainingDailyBudget(now, 500), 0.001)

	state.AddDailyPnL(now, -200)
	assert.InDelta(t, 300, state.RemainingDailyBudget(now, 500), 0.001)

	// Las ganancias no amplían el presupuesto.
	state.AddDailyPnL(now, 400) // pnl neto +200
	assert.InDelta(t, 500, state.RemainingDailyBudget(now, 500), 0.001)
}

func TestState_RemainingDailyBudgetFloorsAtZero(t *testing.T) {
	now := time.Now().UTC()
	state := risk.NewState(time.UTC, now)
	state.AddDailyPnL(now, -900)
	assert.Zero(t, state.RemainingDailyBudget(now, 500))
}

func TestState_ClosePosition(t *testing.T) {
	now := time.Now().UTC()
	state := risk.NewState(time.UTC, now)
	state.Rehydrate([]domain.Position{
		{ID: "p1", MarketID: "m1", Status: domain.PositionOpen},
		{ID: "p2", MarketID: "m1", Status: domain.PositionClosed}, // ignorada
	})

	require.Len(t, state.OpenByMarket("m1"), 1)

	ok := state.ClosePosition(now, "p1", -75)
	require.True(t, ok)
	assert.Empty(t, state.OpenByMarket("m1"))
	assert.InDelta(t, -75, state.DailyPnL(now), 0.001)

	// Cerrar dos veces no duplica el PnL.
	assert.False(t, state.ClosePosition(now, "p1", -75))
	assert.InDelta(t, -75, state.DailyPnL(now), 0.001)
}

func TestState_ConfirmUpdatesFill(t *testing.T) {
	now := time.Now().UTC()
	state := risk.NewState(time.UTC, now)
	state.Rehydrate([]domain.Position{
		{ID: "p1", MarketID: "m1", Status: domain.PositionOpen, EntryPrice: 0.40, SizeUSD: 100},
	})

	state.Confirm("p1", 0.42, 95)
	got := state.OpenByMarket("m1")
	require.Len(t, got, 1)
	assert.InDelta(t, 0.42, got[0].EntryPrice, 0.001)
	assert.InDelta(t, 95, got[0].SizeUSD, 0.001)
}

func TestState_OpenMarkets(t *testing.T) {
	now := time.Now().UTC()
	state := risk.NewState(time.UTC, now)
	state.Rehydrate([]domain.Position{
		{ID: "p1", MarketID: "m1", Status: domain.PositionOpen},
		{ID: "p2", MarketID: "m1", Status: domain.PositionOpen},
		{ID: "p3", MarketID: "m2", Status: domain.PositionOpen},
	})

	markets := state.OpenMarkets()
	assert.ElementsMatch(t, []string{"m1", "m2"}, markets)
}
