// Package correlation provides a CorrelationSource backed by a static
// matrix loaded from config. Markets on the same underlying tend to be
// declared correlated by hand; anything not in the matrix defaults to 0.
package correlation

import (
	"context"
	"fmt"
)

// Static es una matriz simétrica de correlaciones declarada en config.
type Static struct {
	pairs map[[2]string]float64
}

// NewStatic construye la matriz a partir de pares declarados. Los pares
// se normalizan para que (a,b) y (b,a) resuelvan igual. Valores fuera
// de [-1, 1] son un error de configuración.
func NewStatic(entries []Entry) (*Static, error) {
	pairs := make(map[[2]string]float64, len(entries))
	for _, e := range entries {
		if e.Value < -1 || e.Value > 1 {
			return nil, fmt.Errorf("correlation.NewStatic: %s/%s: value %.2f outside [-1, 1]", e.MarketA, e.MarketB, e.Value)
		}
		pairs[key(e.MarketA, e.MarketB)] = e.Value
	}
	return &Static{pairs: pairs}, nil
}

// Entry es un par de mercados con su correlación declarada.
type Entry struct {
	MarketA string  `yaml:"market_a"`
	MarketB string  `yaml:"market_b"`
	Value   float64 `yaml:"value"`
}

// Correlation devuelve la correlación declarada entre dos mercados,
// o 0 si el par no está en la matriz. Un mercado consigo mismo es 1.
func (s *Static) Correlation(_ context.Context, marketA, marketB string) (float64, error) {
	if marketA == marketB {
		return 1, nil
	}
	return s.pairs[key(marketA, marketB)], nil
}

func key(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}
