package resolver_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/internal/adapters/journal"
	"github.com/alejandrodnm/edgebot/internal/adapters/storage"
	"github.com/alejandrodnm/edgebot/internal/application/resolver"
	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/risk"
)

type fakeResolutions struct {
	byMarket map[string]domain.Resolution
}

func (f *fakeResolutions) FetchResolution(_ context.Context, marketID string) (domain.Resolution, error) {
	return f.byMarket[marketID], nil
}

type fixture struct {
	res     *resolver.Resolver
	state   *risk.State
	store   *storage.SQLiteStore
	journal *journal.Journal
	settled []string
}

func newFixture(t *testing.T, resolutions map[string]domain.Resolution) *fixture {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	jnl, err := journal.New(filepath.Join(t.TempDir(), "decisions.jsonl"), store)
	require.NoError(t, err)
	t.Cleanup(func() { jnl.Close() })

	f := &fixture{store: store, journal: jnl}
	f.state = risk.NewState(time.UTC, time.Now().UTC())
	f.res = resolver.New("edge-arb", false, &fakeResolutions{byMarket: resolutions}, f.state, jnl, store,
		func(marketID string) { f.settled = append(f.settled, marketID) })
	return f
}

func openPosition(t *testing.T, f *fixture, id, market string, side domain.Side, size, entry float64) domain.Position {
	t.Helper()
	p := domain.Position{
		ID: id, MarketID: market, Side: side,
		SizeUSD: size, EntryPrice: entry,
		OpenedAt: time.Now().UTC(), Status: domain.PositionOpen,
		DecisionID: "dec-" + id,
	}
	f.state.Rehydrate([]domain.Position{p})
	require.NoError(t, f.store.SavePosition(context.Background(), p))
	return p
}

func TestResolver_SettlesWinningPosition(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	openPosition(t, f, "p1", "mkt-1", domain.SideNo, 100, 0.40)

	require.NoError(t, f.res.Resolve(ctx, "mkt-1", domain.OutcomeNo))

	// (1 − 0.40) × 100 / 0.40 = $150 al día de hoy.
	now := time.Now().UTC()
	assert.InDelta(t, 150, f.state.DailyPnL(now), 0.001)
	assert.Empty(t, f.state.OpenByMarket("mkt-1"))
	assert.Equal(t, []string{"mkt-1"}, f.settled)

	closed, err := f.store.ClosedPositionsSince(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, domain.PositionClosed, closed[0].Status)
	assert.InDelta(t, 150, closed[0].RealizedPnL, 0.001)

	entries, err := f.journal.QueryByMarket(ctx, "mkt-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionResolve, entries[0].Action)
	assert.Equal(t, domain.ReasonResolved, entries[0].Reason)
	assert.Equal(t, domain.OutcomeNo, entries[0].Outcome)
	assert.Equal(t, "dec-p1", entries[0].Corrects)
	assert.InDelta(t, 150, entries[0].RealizedPnL, 0.001)
}

func TestResolver_LosingPositionCostsThePremium(t *testing.T) {
	f := newFixture(t, nil)
	openPosition(t, f, "p1", "mkt-1", domain.SideNo, 100, 0.40)

	require.NoError(t, f.res.Resolve(context.Background(), "mkt-1", domain.OutcomeYes))
	assert.InDelta(t, -100, f.state.DailyPnL(time.Now().UTC()), 0.001)
}

// VOID cierra como voided con PnL cero.
func TestResolver_VoidOutcome(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	openPosition(t, f, "p1", "mkt-1", domain.SideYes, 100, 0.40)

	require.NoError(t, f.res.Resolve(ctx, "mkt-1", domain.OutcomeVoid))
	assert.Zero(t, f.state.DailyPnL(time.Now().UTC()))

	closed, err := f.store.ClosedPositionsSince(ctx, time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, domain.PositionVoided, closed[0].Status)
	assert.Zero(t, closed[0].RealizedPnL)

	entries, err := f.journal.QueryByMarket(ctx, "mkt-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ReasonVoided, entries[0].Reason)
}

// Una resolución sin posición abierta es un warning, no un error.
func TestResolver_NoOpenPositionIsNotAnError(t *testing.T) {
	f := newFixture(t, nil)
	err := f.res.Resolve(context.Background(), "mkt-ghost", domain.OutcomeYes)
	assert.NoError(t, err)
	assert.Empty(t, f.settled)
}

type flakyStore struct {
	*storage.SQLiteStore
	failClose bool
}

func (s *flakyStore) ClosePosition(ctx context.Context, p domain.Position) error {
	if s.failClose {
		return fmt.Errorf("disk full")
	}
	return s.SQLiteStore.ClosePosition(ctx, p)
}

// Si el cierre no se puede persistir, la posición sigue abierta: nada de
// PnL en memoria con la fila aún en 'open'. El siguiente poll reintenta.
func TestResolver_RetriesWhenClosureNotPersisted(t *testing.T) {
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	jnl, err := journal.New(filepath.Join(t.TempDir(), "decisions.jsonl"), store)
	require.NoError(t, err)
	t.Cleanup(func() { jnl.Close() })

	flaky := &flakyStore{SQLiteStore: store, failClose: true}
	state := risk.NewState(time.UTC, time.Now().UTC())
	var settled []string
	res := resolver.New("edge-arb", false, &fakeResolutions{}, state, jnl, flaky,
		func(marketID string) { settled = append(settled, marketID) })

	ctx := context.Background()
	p := domain.Position{
		ID: "p1", MarketID: "mkt-1", Side: domain.SideNo,
		SizeUSD: 100, EntryPrice: 0.40,
		OpenedAt: time.Now().UTC(), Status: domain.PositionOpen,
		DecisionID: "dec-p1",
	}
	state.Rehydrate([]domain.Position{p})
	require.NoError(t, store.SavePosition(ctx, p))

	require.Error(t, res.Resolve(ctx, "mkt-1", domain.OutcomeNo))

	now := time.Now().UTC()
	assert.Len(t, state.OpenByMarket("mkt-1"), 1)
	assert.Zero(t, state.DailyPnL(now))
	assert.Empty(t, settled)

	open, err := store.GetOpenPositions(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	entries, err := jnl.QueryByMarket(ctx, "mkt-1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	// El store se recupera y el reintento liquida con normalidad.
	flaky.failClose = false
	require.NoError(t, res.Resolve(ctx, "mkt-1", domain.OutcomeNo))

	assert.Empty(t, state.OpenByMarket("mkt-1"))
	assert.InDelta(t, 150, state.DailyPnL(now), 0.001)
	assert.Equal(t, []string{"mkt-1"}, settled)

	entries, err = jnl.QueryByMarket(ctx, "mkt-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActionResolve, entries[0].Action)
}

func TestResolver_RunOncePollsOpenMarkets(t *testing.T) {
	f := newFixture(t, map[string]domain.Resolution{
		"mkt-1": {MarketID: "mkt-1", Resolved: true, Outcome: domain.OutcomeYes},
		"mkt-2": {MarketID: "mkt-2", Resolved: false},
	})
	openPosition(t, f, "p1", "mkt-1", domain.SideYes, 50, 0.50)
	openPosition(t, f, "p2", "mkt-2", domain.SideYes, 50, 0.50)

	f.res.RunOnce(context.Background())

	// mkt-1 resuelto y cerrado; mkt-2 sigue abierto.
	assert.Empty(t, f.state.OpenByMarket("mkt-1"))
	assert.Len(t, f.state.OpenByMarket("mkt-2"), 1)
	assert.InDelta(t, 50, f.state.DailyPnL(time.Now().UTC()), 0.001)
}
