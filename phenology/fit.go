package phenology

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/verdantlab/phenosample/phenomodel"
)

var ErrTooFewObservations = errors.New("too few observations to fit a seasonal curve")

const minObservations = 8

// Fit estimates double-logistic parameters from day-of-year samples by
// Nelder-Mead on the sum of squared residuals.
func Fit(ts, vs []float64) (Params, float64, error) {
	if len(ts) != len(vs) {
		return Params{}, 0, fmt.Errorf("mismatched series lengths: %d vs %d", len(ts), len(vs))
	}
	if len(ts) < minObservations {
		return Params{}, 0, fmt.Errorf("%w: %d observations", ErrTooFewObservations, len(ts))
	}

	guess := initialGuess(ts, vs)

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			p := paramsFromVector(x)
			var sse float64
			for i, t := range ts {
				r := p.Value(t) - vs[i]
				sse += r * r
			}
			return sse
		},
	}

	result, err := optimize.Minimize(problem, guess.vector(), nil, &optimize.NelderMead{})
	if err != nil {
		return Params{}, 0, fmt.Errorf("curve fit did not converge: %w", err)
	}

	fitted := paramsFromVector(result.X)
	rmse := math.Sqrt(result.F / float64(len(ts)))
	return fitted, rmse, nil
}

// FitSeries fits one calendar year of a series and derives its seasonal
// metrics.
func FitSeries(ser phenomodel.Series, year int) (phenomodel.PhenoMetrics, Params, error) {
	var ts, vs []float64
	for _, o := range ser.Obs {
		if o.Date.Year() != year {
			continue
		}
		ts = append(ts, float64(o.Date.YearDay()))
		vs = append(vs, o.Value)
	}

	params, rmse, err := Fit(ts, vs)
	if err != nil {
		return phenomodel.PhenoMetrics{}, Params{}, fmt.Errorf("fitting plot %d year %d: %w", ser.PointID, year, err)
	}

	return phenomodel.PhenoMetrics{
		PointID:       ser.PointID,
		Index:         ser.Index,
		Year:          year,
		StartOfSeason: params.SOS,
		PeakOfSeason:  params.Peak(),
		EndOfSeason:   params.EOS,
		Baseline:      params.Base,
		Amplitude:     params.Amp,
		RMSE:          rmse,
	}, params, nil
}

func (p Params) vector() []float64 {
	return []float64{p.Base, p.Amp, p.SOS, p.EOS, p.RateUp, p.RateDown}
}

func paramsFromVector(x []float64) Params {
	return Params{Base: x[0], Amp: x[1], SOS: x[2], EOS: x[3], RateUp: x[4], RateDown: x[5]}
}

// initialGuess reads the baseline and season edges off the raw data: the
// season starts at the first upward crossing of the halfway level and
// ends at the last downward one.
func initialGuess(ts, vs []float64) Params {
	lo, hi := vs[0], vs[0]
	for _, v := range vs {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	mid := lo + (hi-lo)/2

	sos, eos := ts[0], ts[len(ts)-1]
	for i := 1; i < len(vs); i++ {
		if vs[i-1] < mid && vs[i] >= mid {
			sos = ts[i]
			break
		}
	}
	for i := len(vs) - 1; i > 0; i-- {
		if vs[i] < mid && vs[i-1] >= mid {
			eos = ts[i-1]
			break
		}
	}
	if eos <= sos {
		sos, eos = ts[0]+60, ts[len(ts)-1]-60
	}

	return Params{
		Base:     lo,
		Amp:      hi - lo,
		SOS:      sos,
		EOS:      eos,
		RateUp:   0.1,
		RateDown: 0.1,
	}
}
