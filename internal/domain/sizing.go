package domain

import "math"

// SizingConfig son los parámetros del position sizer.
type SizingConfig struct {
	BankrollUSD     float64 // referencia de bankroll para el Kelly
	KellyMultiplier float64 // fracción del Kelly teórico (capped Kelly)
	MaxPositionUSD  float64
	MinShares       float64 // mínimo de shares del venue
	MaxBumpUSD      float64 // tope del bump para alcanzar MinShares
}

// KellyFraction devuelve la fracción de bankroll a apostar, acotada a
// [0, 1]: nunca negativa, nunca apalancada por encima de 1× bankroll.
//
//	f = multiplier × (edge en probabilidad) × confidence
func KellyFraction(edgeBps, confidence, multiplier float64) float64 {
	if edgeBps <= 0 || confidence <= 0 || multiplier <= 0 {
		return 0
	}
	f := multiplier * (edgeBps / 10_000.0) * confidence
	return clamp01(f)
}

// SizeUSD calcula el tamaño final de la posición:
//
//	raw   = KellyFraction × bankroll
//	final = min(raw, maxPosition, remainingDailyBudget)
//
// y aplica el mínimo de orden del venue: si las shares resultantes quedan
// por debajo de MinShares, se sube (bump) hasta MinShares×price — solo si
// el bump cabe en MaxBumpUSD y el tamaño resultante no supera el cap.
// Devuelve 0 para señalar SKIP.
func SizeUSD(edgeBps, confidence, price, remainingDailyBudget float64, cfg SizingConfig) float64 {
	if price <= 0 {
		return 0
	}
	raw := KellyFraction(edgeBps, confidence, cfg.KellyMultiplier) * cfg.BankrollUSD
	size := math.Min(raw, math.Min(cfg.MaxPositionUSD, remainingDailyBudget))
	if size <= 0 {
		return 0
	}

	if cfg.MinShares > 0 && size/price < cfg.MinShares {
		usdForMin := cfg.MinShares * price
		bump := usdForMin - size
		if bump > cfg.MaxBumpUSD || usdForMin > cfg.MaxPositionUSD {
			return 0
		}
		size = usdForMin
	}
	return size
}
