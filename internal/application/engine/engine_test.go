package engine_test

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/internal/adapters/journal"
	"github.com/alejandrodnm/edgebot/internal/adapters/notify"
	"github.com/alejandrodnm/edgebot/internal/adapters/storage"
	"github.com/alejandrodnm/edgebot/internal/application/engine"
	"github.com/alejandrodnm/edgebot/internal/domain"
	"github.com/alejandrodnm/edgebot/internal/risk"
)

type fakeFeed struct {
	ticks []domain.Tick
}

func (f *fakeFeed) Next(_ context.Context, _ time.Duration) (domain.Tick, error) {
	if len(f.ticks) == 0 {
		return domain.Tick{}, domain.ErrFeedTimeout
	}
	t := f.ticks[0]
	f.ticks = f.ticks[1:]
	return t, nil
}

func (f *fakeFeed) Close() error { return nil }

type fakeQuotes struct {
	quote domain.MarketQuote
	err   error
}

func (f *fakeQuotes) FetchQuote(_ context.Context, marketID string) (domain.MarketQuote, error) {
	q := f.quote
	q.MarketID = marketID
	return q, f.err
}

type fakeExecutor struct {
	status   domain.OrderStatus
	err      error
	position *domain.Position
	placed   []domain.PlaceOrderRequest
}

func (f *fakeExecutor) PlaceOrder(_ context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	f.placed = append(f.placed, req)
	if f.err != nil {
		return domain.PlacedOrder{}, f.err
	}
	return domain.PlacedOrder{
		OrderID:     fmt.Sprintf("o-%d", len(f.placed)),
		Status:      f.status,
		FilledPrice: req.Price,
		FilledUSD:   req.SizeUSD,
		PlacedAt:    time.Now().UTC(),
	}, nil
}

func (f *fakeExecutor) GetPosition(_ context.Context, _ string) (*domain.Position, error) {
	return f.position, nil
}

type noCorr struct{}

func (noCorr) Correlation(_ context.Context, _, _ string) (float64, error) { return 0, nil }

type fixture struct {
	eng     *engine.Engine
	state   *risk.State
	store   *storage.SQLiteStore
	journal *journal.Journal
	feed    *fakeFeed
	quotes  *fakeQuotes
	exec    *fakeExecutor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	jnl, err := journal.New(filepath.Join(t.TempDir(), "decisions.jsonl"), store)
	require.NoError(t, err)
	t.Cleanup(func() { jnl.Close() })

	now := time.Now().UTC()
	state := risk.NewState(time.UTC, now)
	gate := risk.NewGate(risk.Limits{
		ConfidenceMin:        0.5,
		EdgeMinBps:           100,
		MaxConcurrent:        3,
		DailyLossLimitUSD:    500,
		MaxPositionUSD:       200,
		LiquidityMinUSD:      1000,
		CorrelationThreshold: 0.7,
	}, state, noCorr{})

	policy, err := domain.NewFairValuePolicy("linear", 100)
	require.NoError(t, err)

	f := &fixture{
		state:   state,
		store:   store,
		journal: jnl,
		feed:    &fakeFeed{},
		quotes:  &fakeQuotes{},
		exec:    &fakeExecutor{status: domain.OrderFilled},
	}
	f.eng = engine.New(engine.Config{
		Strategy:    "edge-arb",
		Venue:       "polymarket",
		Markets:     []engine.Market{{ID: "mkt-1", Symbol: "BTCUSD"}},
		FeedTimeout: 50 * time.Millisecond,
		Estimator: domain.EstimatorConfig{
			MaxTickAge:      5 * time.Second,
			MaxLag:          10 * time.Second,
			LiquidityMinUSD: 1000,
		},
		Sizing: domain.SizingConfig{
			BankrollUSD:     10_000,
			KellyMultiplier: 0.5,
			MaxPositionUSD:  200,
		},
	}, f.feed, f.quotes, f.exec, jnl, store, notify.NewConsoleWriter(&bytes.Buffer{}, false), gate, state, policy)
	return f
}

func (f *fixture) lastDecision(t *testing.T) domain.Decision {
	t.Helper()
	got, err := f.journal.QueryByMarket(context.Background(), "mkt-1")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	return got[len(got)-1]
}

func freshInputs(f *fixture) {
	now := time.Now().UTC()
	f.feed.ticks = []domain.Tick{{
		Timestamp: now,
		Source:    "binance",
		Symbol:    "BTCUSD",
		Bid:       domain.Known(99.5),
		Ask:       domain.Known(100.5),
	}}
	f.quotes.quote = domain.MarketQuote{
		Timestamp: now,
		YesPrice:  domain.Known(0.60),
		NoPrice:   domain.Known(0.40),
		DepthUSD:  5000,
		Strike:    100, // mid = strike → fair 0.50, NO infravalorado
	}
}

func TestEngine_TradesOnMispricedMarket(t *testing.T) {
	f := newFixture(t)
	freshInputs(f)

	require.NoError(t, f.eng.RunOnce(context.Background()))

	d := f.lastDecision(t)
	assert.Equal(t, domain.ActionTrade, d.Action)
	assert.Equal(t, domain.SideNo, d.Side)
	assert.InDelta(t, 1000, d.EdgeBps, 1)
	assert.Greater(t, d.SizeUSD, 0.0)
	assert.NotEmpty(t, d.PositionID)
	assert.NotEmpty(t, d.OrderID)

	require.Len(t, f.exec.placed, 1)
	assert.InDelta(t, 0.40, f.exec.placed[0].Price, 0.001)

	now := time.Now().UTC()
	require.Len(t, f.state.Snapshot(now).OpenPositions, 1)

	open, err := f.store.GetOpenPositions(context.Background())
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestEngine_SkipsOnFeedTimeout(t *testing.T) {
	f := newFixture(t)
	// Sin ticks: el feed agota el timeout.

	require.NoError(t, f.eng.RunOnce(context.Background()))

	d := f.lastDecision(t)
	assert.Equal(t, domain.ActionSkip, d.Action)
	assert.Equal(t, domain.ReasonFeedTimeout, d.Reason)
	assert.Empty(t, f.exec.placed)
}

func TestEngine_SkipsOnStaleTick(t *testing.T) {
	f := newFixture(t)
	freshInputs(f)
	f.feed.ticks[0].Timestamp = time.Now().UTC().Add(-time.Minute)

	require.NoError(t, f.eng.RunOnce(context.Background()))

	d := f.lastDecision(t)
	assert.Equal(t, domain.ActionSkip, d.Action)
	assert.Equal(t, domain.ReasonStaleData, d.Reason)
	assert.Zero(t, d.Confidence)
}

func TestEngine_SkipsOnThinLiquidity(t *testing.T) {
	f := newFixture(t)
	freshInputs(f)
	f.quotes.quote.DepthUSD = 500

	require.NoError(t, f.eng.RunOnce(context.Background()))

	d := f.lastDecision(t)
	assert.Equal(t, domain.ActionSkip, d.Action)
	assert.Equal(t, "liquidity_below_min", d.Reason)
}

// Una orden rechazada libera la reserva: el hueco de concurrencia vuelve
// y la decisión queda como SKIP tras el intento.
func TestEngine_ReleasesReservationOnRejection(t *testing.T) {
	f := newFixture(t)
	freshInputs(f)
	f.exec.err = fmt.Errorf("venue says no: %w", domain.ErrExecutionRejected)

	require.NoError(t, f.eng.RunOnce(context.Background()))

	d := f.lastDecision(t)
	assert.Equal(t, domain.ActionSkip, d.Action)
	assert.Equal(t, domain.ReasonExecutionRejected, d.Reason)
	// El trail registra que el gate sí aceptó antes del rechazo.
	assert.NotEmpty(t, d.RiskChecks)

	now := time.Now().UTC()
	assert.Empty(t, f.state.Snapshot(now).OpenPositions)
}

// Una orden SUBMITTED se reconcilia en el ciclo siguiente con una
// entrada de corrección enlazada a la decisión original.
func TestEngine_ReconcilesSubmittedOrder(t *testing.T) {
	f := newFixture(t)
	freshInputs(f)
	f.exec.status = domain.OrderSubmitted

	require.NoError(t, f.eng.RunOnce(context.Background()))
	first := f.lastDecision(t)
	require.Equal(t, domain.ActionTrade, first.Action)

	// El venue confirma el fill a un precio distinto.
	f.exec.position = &domain.Position{
		MarketID:   "mkt-1",
		Side:       domain.SideNo,
		SizeUSD:    50,
		EntryPrice: 0.42,
		OpenedAt:   time.Now().UTC(),
		Status:     domain.PositionOpen,
	}
	freshInputs(f)
	require.NoError(t, f.eng.RunOnce(context.Background()))

	got, err := f.journal.QueryByMarket(context.Background(), "mkt-1")
	require.NoError(t, err)

	var corr *domain.Decision
	for i := range got {
		if got[i].Corrects == first.ID {
			corr = &got[i]
			break
		}
	}
	require.NotNil(t, corr, "expected a correction entry for the submitted order")
	assert.Equal(t, domain.ActionTrade, corr.Action)
	assert.Equal(t, "fill_confirmed", corr.Reason)
	assert.InDelta(t, 0.42, corr.Price, 0.001)

	// La posición confirmada refleja el precio real del venue.
	now := time.Now().UTC()
	snap := f.state.Snapshot(now)
	require.NotEmpty(t, snap.OpenPositions)
	var found bool
	for _, p := range snap.OpenPositions {
		if p.ID == first.PositionID {
			assert.InDelta(t, 0.42, p.EntryPrice, 0.001)
			found = true
		}
	}
	assert.True(t, found)
}
