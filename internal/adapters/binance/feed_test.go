package binance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamURL(t *testing.T) {
	want := "wss://stream.binance.com:9443/stream?streams=btcusdt@bookTicker/ethusdt@bookTicker"

	// Base desnuda, con slash final, o con el path /stream ya incluido:
	// todas producen la misma URL, nunca /stream/stream.
	for _, base := range []string{
		"",
		"wss://stream.binance.com:9443",
		"wss://stream.binance.com:9443/",
		"wss://stream.binance.com:9443/stream",
	} {
		got := streamURL(base, []string{"btcusdt", "ETHUSDT"})
		assert.Equal(t, want, got, "base %q", base)
	}
}
