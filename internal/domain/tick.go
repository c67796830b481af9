package domain

import "time"

// Price es un precio que puede estar ausente en el feed (feeds last-trade-only
// no traen bid/ask). Ausente ≠ cero: un bid de 0 es un dato, no un hueco.
type Price struct {
	Value float64
	Valid bool
}

// Known construye un Price presente.
func Known(v float64) Price { return Price{Value: v, Valid: true} }

// Unknown construye un Price ausente.
func Unknown() Price { return Price{} }

// Tick es una observación de precio normalizada de cualquier fuente.
// Inmutable una vez producido por el feed adapter.
type Tick struct {
	Timestamp time.Time
	Source    string // "binance", "polymarket", ...
	Symbol    string // símbolo canónico, no el del venue
	Bid       Price
	Ask       Price
	Last      Price
	Extra     map[string]string
}

// Mid devuelve el precio medio bid/ask, o Last si falta alguno de los dos.
func (t Tick) Mid() Price {
	if t.Bid.Valid && t.Ask.Valid {
		return Known((t.Bid.Value + t.Ask.Value) / 2)
	}
	return t.Last
}

// Age devuelve la antigüedad del tick respecto a now.
func (t Tick) Age(now time.Time) time.Duration {
	return now.Sub(t.Timestamp)
}

// IsStale devuelve true si el tick supera la antigüedad máxima permitida.
func (t Tick) IsStale(now time.Time, maxAge time.Duration) bool {
	return maxAge > 0 && t.Age(now) > maxAge
}

// MarketQuote es la vista del mercado de predicción en un instante:
// mejores precios YES/NO, profundidad disponible y el precio de referencia
// de apertura de ventana (strike) contra el que se calcula el fair value.
type MarketQuote struct {
	Timestamp time.Time
	MarketID  string
	Question  string
	YesPrice  Price
	NoPrice   Price
	DepthUSD  float64 // profundidad agregada del libro en USD
	Strike    float64 // precio de referencia al abrir la ventana
	FeeBps    float64 // fee del mercado en basis points (0 = usar default)
}

// HasBothSides devuelve true si la quote trae precio para YES y NO.
func (q MarketQuote) HasBothSides() bool {
	return q.YesPrice.Valid && q.NoPrice.Valid
}
