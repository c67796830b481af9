package correlation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/edgebot/internal/adapters/correlation"
)

func TestStatic_SymmetricLookup(t *testing.T) {
	s, err := correlation.NewStatic([]correlation.Entry{
		{MarketA: "btc-up", MarketB: "eth-up", Value: 0.85},
	})
	require.NoError(t, err)
	ctx := context.Background()

	v, err := s.Correlation(ctx, "btc-up", "eth-up")
	require.NoError(t, err)
	assert.InDelta(t, 0.85, v, 0.001)

	v, err = s.Correlation(ctx, "eth-up", "btc-up")
	require.NoError(t, err)
	assert.InDelta(t, 0.85, v, 0.001)
}

func TestStatic_DefaultsAndIdentity(t *testing.T) {
	s, err := correlation.NewStatic(nil)
	require.NoError(t, err)
	ctx := context.Background()

	v, err := s.Correlation(ctx, "a", "b")
	require.NoError(t, err)
	assert.Zero(t, v)

	v, err = s.Correlation(ctx, "a", "a")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)
}

func TestStatic_RejectsOutOfRange(t *testing.T) {
	_, err := correlation.NewStatic([]correlation.Entry{
		{MarketA: "a", MarketB: "b", Value: 1.5},
	})
	assert.Error(t, err)
}
