package domain

import (
	"fmt"
	"math"
)

// FairValuePolicy traduce la distancia del precio de referencia al strike
// en una probabilidad implícita de YES. La policy se elige por nombre en
// la configuración — nunca se hardcodea en silencio.
type FairValuePolicy interface {
	// FairYes devuelve la probabilidad fair de YES en [0, 1].
	FairYes(referenceMid, strike float64) float64
	// Name devuelve el nombre con el que la policy aparece en config.
	Name() string
}

// LinearPolicy mapea la distancia al strike de forma lineal:
//
//	p = clamp(0.5 + (ref - strike) / scale, 0, 1)
//
// Scale es el movimiento (en unidades de precio) que lleva la
// probabilidad de 0.5 a 1.0 mitad arriba / mitad abajo.
type LinearPolicy struct {
	Scale float64
}

func (p LinearPolicy) FairYes(referenceMid, strike float64) float64 {
	if p.Scale <= 0 {
		return 0.5
	}
	return clamp01(0.5 + (referenceMid-strike)/p.Scale)
}

func (p LinearPolicy) Name() string { return "linear" }

// LogisticPolicy mapea la distancia con una sigmoide:
//
//	p = 1 / (1 + e^(-(ref - strike) / slope))
//
// Más suave en los extremos que la lineal; slope controla la pendiente.
type LogisticPolicy struct {
	Slope float64
}

func (p LogisticPolicy) FairYes(referenceMid, strike float64) float64 {
	if p.Slope <= 0 {
		return 0.5
	}
	return 1.0 / (1.0 + math.Exp(-(referenceMid-strike)/p.Slope))
}

func (p LogisticPolicy) Name() string { return "logistic" }

// NewFairValuePolicy construye la policy por nombre. Falla si el nombre
// no existe — la policy es un parámetro de riesgo, no se adivina.
func NewFairValuePolicy(name string, param float64) (FairValuePolicy, error) {
	switch name {
	case "linear":
		return LinearPolicy{Scale: param}, nil
	case "logistic":
		return LogisticPolicy{Slope: param}, nil
	default:
		return nil, fmt.Errorf("domain.NewFairValuePolicy: unknown policy %q", name)
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
