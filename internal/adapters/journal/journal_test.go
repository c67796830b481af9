package journal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/internal/adapters/journal"
	"github.com/alejandrodnm/edgebot/internal/adapters/storage"
	"github.com/alejandrodnm/edgebot/internal/domain"
)

func newJournal(t *testing.T) (*journal.Journal, string) {
	t.Helper()
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	j, err := journal.New(path, store)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j, path
}

func decision(market string, ts time.Time, action domain.Action, reason string) domain.Decision {
	return domain.Decision{
		Timestamp:  ts,
		Strategy:   "edge-arb",
		MarketID:   market,
		Action:     action,
		Reason:     reason,
		EdgeBps:    320,
		Confidence: 0.85,
		SizeUSD:    50,
		RiskChecks: []domain.RiskCheck{
			{Name: "confidence_min", Passed: true, Detail: "0.85 >= 0.50"},
		},
	}
}

// Lo que sale de una query es byte-idéntico (tras re-marshal) a lo que
// se escribió, en orden de inserción.
func TestJournal_RoundTripPreservesOrderAndBytes(t *testing.T) {
	j, path := newJournal(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	var ids []string
	for i := 0; i < 5; i++ {
		// Timestamps fuera de orden a propósito: manda el orden de
		// inserción, no el timestamp.
		d := decision("mkt-1", now.Add(time.Duration(5-i)*time.Second), domain.ActionSkip, "edge_min")
		id, err := j.Append(ctx, d)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	got, err := j.QueryByMarket(ctx, "mkt-1")
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, d := range got {
		assert.Equal(t, ids[i], d.ID)
	}

	// El archivo JSONL contiene exactamente las mismas líneas, byte a
	// byte: re-marshalear lo que devuelve la query reproduce cada línea.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(raw), []byte("\n"))
	require.Len(t, lines, 5)
	for i, d := range got {
		remarshaled, err := json.Marshal(d)
		require.NoError(t, err)
		assert.Equal(t, lines[i], remarshaled, "line %d", i)
	}
}

func TestJournal_QueryByRange(t *testing.T) {
	j, _ := newJournal(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		d := decision("mkt-1", base.Add(time.Duration(i)*time.Hour), domain.ActionSkip, "edge_min")
		_, err := j.Append(ctx, d)
		require.NoError(t, err)
	}

	got, err := j.QueryByRange(ctx, base.Add(30*time.Minute), base.Add(150*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, base.Add(time.Hour), got[0].Timestamp)
	assert.Equal(t, base.Add(2*time.Hour), got[1].Timestamp)
}

// Una corrección es una entrada nueva enlazada a la original; la
// original sigue intacta en el log.
func TestJournal_CorrectionsAreNewEntries(t *testing.T) {
	j, _ := newJournal(t)
	ctx := context.Background()
	now := time.Now().UTC()

	orig := decision("mkt-1", now, domain.ActionTrade, "all_checks_passed")
	origID, err := j.Append(ctx, orig)
	require.NoError(t, err)

	corr := decision("mkt-1", now.Add(time.Minute), domain.ActionTrade, "fill_confirmed")
	corr.Corrects = origID
	corrID, err := j.Append(ctx, corr)
	require.NoError(t, err)
	require.NotEqual(t, origID, corrID)

	got, err := j.QueryByMarket(ctx, "mkt-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Empty(t, got[0].Corrects)
	assert.Equal(t, origID, got[1].Corrects)
	assert.Equal(t, "all_checks_passed", got[0].Reason)
}

// Reabrir el journal sobre el mismo archivo añade, nunca trunca.
func TestJournal_ReopenAppends(t *testing.T) {
	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	ctx := context.Background()
	now := time.Now().UTC()

	j1, err := journal.New(path, store)
	require.NoError(t, err)
	_, err = j1.Append(ctx, decision("mkt-1", now, domain.ActionSkip, "stale_data"))
	require.NoError(t, err)
	require.NoError(t, j1.Close())

	j2, err := journal.New(path, store)
	require.NoError(t, err)
	defer j2.Close()
	_, err = j2.Append(ctx, decision("mkt-1", now.Add(time.Second), domain.ActionSkip, "edge_min"))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, bytes.Split(bytes.TrimSpace(raw), []byte("\n")), 2)
}
