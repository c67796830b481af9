package domain

import (
	"math"
	"time"
)

// EdgeSample es la estimación de mispricing de un ciclo. Efímera: se
// recalcula cada ciclo y se persiste solo para auditoría (tabla spreads).
// Ambos edges salen del mismo pareo de timestamps; LagMs registra la
// diferencia de frescura entre los dos ticks usados.
type EdgeSample struct {
	Timestamp    time.Time
	MarketID     string
	ReferenceMid float64
	MarketYes    float64
	MarketNo     float64
	FairYes      float64
	EdgeYesBps   float64
	EdgeNoBps    float64
	Confidence   float64
	LagMs        int64
	Reason       string // por qué confidence es 0, si lo es
}

// Actionable devuelve true si el sample tiene opinión (confidence > 0).
// Confidence 0 es "sin opinión", no un error — el downstream la trata así.
func (s EdgeSample) Actionable() bool { return s.Confidence > 0 }

// BestSide devuelve el lado infravalorado (edge más negativo = el mercado
// lo vende más barato que el fair) y la magnitud del edge en bps.
func (s EdgeSample) BestSide() (Side, float64) {
	if s.EdgeYesBps <= s.EdgeNoBps {
		return SideYes, math.Abs(s.EdgeYesBps)
	}
	return SideNo, math.Abs(s.EdgeNoBps)
}

// SidePrice devuelve el precio de mercado del lado dado.
func (s EdgeSample) SidePrice(side Side) float64 {
	if side == SideYes {
		return s.MarketYes
	}
	return s.MarketNo
}

// EstimatorConfig son los parámetros del estimador.
type EstimatorConfig struct {
	MaxTickAge      time.Duration // ticks más viejos → confidence 0
	MaxLag          time.Duration // lag que lleva la frescura a 0
	LiquidityMinUSD float64       // profundidad mínima o confidence forzada a 0
	FeeBps          float64       // fee default si la quote no trae el suyo
}

// Estimate combina el tick de referencia y la quote del mercado en un
// EdgeSample. Falla cerrado: cualquier input ausente o stale produce un
// sample con confidence 0 en vez de un error.
//
// Edge = probabilidad implícita del mercado − probabilidad fair, en bps,
// por lado. No suman cero bajo fees: el fee encarece ambos lados.
func Estimate(ref Tick, quote MarketQuote, policy FairValuePolicy, cfg EstimatorConfig, now time.Time) EdgeSample {
	lag := ref.Timestamp.Sub(quote.Timestamp)
	if lag < 0 {
		lag = -lag
	}

	sample := EdgeSample{
		Timestamp: now,
		MarketID:  quote.MarketID,
		LagMs:     lag.Milliseconds(),
	}

	refMid := ref.Mid()
	if !refMid.Valid || !quote.HasBothSides() {
		sample.Reason = ReasonNoOpinion
		return sample
	}
	sample.ReferenceMid = refMid.Value
	sample.MarketYes = quote.YesPrice.Value
	sample.MarketNo = quote.NoPrice.Value

	feeBps := quote.FeeBps
	if feeBps <= 0 {
		feeBps = cfg.FeeBps
	}

	fairYes := policy.FairYes(refMid.Value, quote.Strike)
	sample.FairYes = fairYes
	// El fee resta magnitud al edge de cada lado por separado.
	sample.EdgeYesBps = shrinkTowardZero((quote.YesPrice.Value-fairYes)*10_000, feeBps)
	sample.EdgeNoBps = shrinkTowardZero((quote.NoPrice.Value-(1.0-fairYes))*10_000, feeBps)

	if ref.IsStale(now, cfg.MaxTickAge) || quote.Timestamp.Before(now.Add(-cfg.MaxTickAge)) {
		sample.Reason = ReasonStaleData
		return sample
	}
	if quote.DepthUSD < cfg.LiquidityMinUSD {
		sample.Reason = "liquidity_below_min"
		return sample
	}

	sample.Confidence = freshness(lag, cfg.MaxLag)
	if sample.Confidence == 0 {
		sample.Reason = ReasonStaleData
	}
	return sample
}

// freshness mapea el lag entre fuentes a [0, 1]: 1 = simultáneos,
// 0 = lag ≥ maxLag.
func freshness(lag, maxLag time.Duration) float64 {
	if maxLag <= 0 {
		return 0
	}
	return clamp01(1.0 - float64(lag)/float64(maxLag))
}

// shrinkTowardZero resta fee a la magnitud del edge sin cruzar el cero.
func shrinkTowardZero(edgeBps, feeBps float64) float64 {
	mag := math.Abs(edgeBps) - feeBps
	if mag < 0 {
		mag = 0
	}
	return math.Copysign(mag, edgeBps)
}
