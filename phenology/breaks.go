package phenology

import (
	"gonum.org/v1/gonum/stat"

	"github.com/verdantlab/phenosample/phenomodel"
)

type BreakConfig struct {
	// MinSegment is the minimum number of observations on each side of
	// a candidate break.
	MinSegment int
	// Threshold is the F statistic a candidate must reach.
	Threshold float64
}

func BreakConfigDefault() BreakConfig {
	return BreakConfig{
		MinSegment: 10,
		Threshold:  20,
	}
}

// DetectBreaks finds structural mean shifts in a series by binary
// segmentation with a Chow-style F test on each candidate split.
func DetectBreaks(obs []phenomodel.Observation, cfg BreakConfig) []phenomodel.Breakpoint {
	if cfg.MinSegment <= 0 {
		cfg.MinSegment = BreakConfigDefault().MinSegment
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = BreakConfigDefault().Threshold
	}

	values := make([]float64, len(obs))
	for i, o := range obs {
		values[i] = o.Value
	}

	var breaks []phenomodel.Breakpoint
	segment(obs, values, 0, len(values), cfg, &breaks)
	return breaks
}

func segment(obs []phenomodel.Observation, values []float64, lo, hi int, cfg BreakConfig, out *[]phenomodel.Breakpoint) {
	n := hi - lo
	if n < 2*cfg.MinSegment {
		return
	}

	window := values[lo:hi]
	total := rss(window)

	bestIdx, bestF := -1, 0.0
	for split := cfg.MinSegment; split <= n-cfg.MinSegment; split++ {
		left := rss(window[:split])
		right := rss(window[split:])

		pooled := left + right
		if pooled == 0 {
			continue
		}

		f := (total - pooled) / (pooled / float64(n-2))
		if f > bestF {
			bestF = f
			bestIdx = split
		}
	}

	if bestIdx < 0 || bestF < cfg.Threshold {
		return
	}

	*out = append(*out, phenomodel.Breakpoint{
		Date:      obs[lo+bestIdx].Date,
		Statistic: bestF,
	})

	segment(obs, values, lo, lo+bestIdx, cfg, out)
	segment(obs, values, lo+bestIdx, hi, cfg, out)
}

// rss is the residual sum of squares around the segment mean.
func rss(values []float64) float64 {
	mean := stat.Mean(values, nil)
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum
}
