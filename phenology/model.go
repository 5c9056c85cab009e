// Package phenology fits seasonal curve models to vegetation-index time
// series and derives start, peak and end of season.
package phenology

import "math"

// Params describe a double-logistic seasonal curve over day-of-year t:
//
//	v(t) = base + amp * (sigmoid(rateUp*(t-sos)) + sigmoid(-rateDown*(t-eos)) - 1)
//
// The curve sits at base outside the season and at base+amp on the
// plateau between sos and eos.
type Params struct {
	Base     float64
	Amp      float64
	SOS      float64
	EOS      float64
	RateUp   float64
	RateDown float64
}

func (p Params) Value(t float64) float64 {
	return p.Base + p.Amp*(sigmoid(p.RateUp*(t-p.SOS))+sigmoid(-p.RateDown*(t-p.EOS))-1)
}

// Peak locates the day-of-year with the maximum modeled value.
func (p Params) Peak() float64 {
	best, bestV := 1.0, math.Inf(-1)
	for t := 1.0; t <= 366; t += 0.25 {
		if v := p.Value(t); v > bestV {
			best, bestV = t, v
		}
	}
	return best
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
