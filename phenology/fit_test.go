package phenology

import (
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlab/phenosample/phenomodel"
)

func syntheticSeries(truth Params, year int, cadenceDays int, noise float64, seed int64) phenomodel.Series {
	rng := rand.New(rand.NewSource(seed))
	ser := phenomodel.Series{PointID: 1, Index: phenomodel.NDVI}

	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	for d := 0; d < 365; d += cadenceDays {
		date := start.AddDate(0, 0, d)
		v := truth.Value(float64(date.YearDay()))
		if noise > 0 {
			v += (rng.Float64()*2 - 1) * noise
		}
		ser.Obs = append(ser.Obs, phenomodel.Observation{Date: date, Value: v})
	}
	return ser
}

func TestFitRecoversKnownCurve(t *testing.T) {
	truth := Params{Base: 0.22, Amp: 0.55, SOS: 118, EOS: 282, RateUp: 0.08, RateDown: 0.06}
	ser := syntheticSeries(truth, 2024, 8, 0, 1)

	metrics, params, err := FitSeries(ser, 2024)
	require.NoError(t, err)

	assert.InDelta(t, truth.SOS, params.SOS, 10, "start of season")
	assert.InDelta(t, truth.EOS, params.EOS, 10, "end of season")
	assert.InDelta(t, truth.Base, params.Base, 0.05, "baseline")
	assert.InDelta(t, truth.Amp, params.Amp, 0.1, "amplitude")
	assert.Less(t, metrics.RMSE, 0.03)

	assert.Greater(t, metrics.PeakOfSeason, metrics.StartOfSeason)
	assert.Less(t, metrics.PeakOfSeason, metrics.EndOfSeason)
}

func TestFitNoisySeries(t *testing.T) {
	truth := Params{Base: 0.25, Amp: 0.5, SOS: 100, EOS: 260, RateUp: 0.1, RateDown: 0.08}
	ser := syntheticSeries(truth, 2023, 5, 0.02, 2)

	metrics, params, err := FitSeries(ser, 2023)
	require.NoError(t, err)

	assert.InDelta(t, truth.SOS, params.SOS, 15)
	assert.InDelta(t, truth.EOS, params.EOS, 15)
	assert.Less(t, metrics.RMSE, 0.05)
}

func TestFitTooFewObservations(t *testing.T) {
	ser := phenomodel.Series{PointID: 1, Index: phenomodel.NDVI, Obs: []phenomodel.Observation{
		{Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Value: 0.4},
		{Date: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Value: 0.6},
	}}

	_, _, err := FitSeries(ser, 2024)
	require.ErrorIs(t, err, ErrTooFewObservations)
}

func TestFitIgnoresOtherYears(t *testing.T) {
	truth := Params{Base: 0.2, Amp: 0.5, SOS: 120, EOS: 270, RateUp: 0.09, RateDown: 0.09}
	ser := syntheticSeries(truth, 2024, 10, 0, 3)

	// pollute with a flat neighbouring year
	for d := 0; d < 365; d += 10 {
		date := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
		ser.Obs = append(ser.Obs, phenomodel.Observation{Date: date, Value: 0.9})
	}

	_, params, err := FitSeries(ser, 2024)
	require.NoError(t, err)
	assert.InDelta(t, truth.SOS, params.SOS, 10)
}

func TestRenderFit(t *testing.T) {
	truth := Params{Base: 0.2, Amp: 0.5, SOS: 120, EOS: 270, RateUp: 0.09, RateDown: 0.09}
	ser := syntheticSeries(truth, 2024, 10, 0, 4)

	path := filepath.Join(t.TempDir(), "fit.png")
	require.NoError(t, RenderFit(path, ser, 2024, truth))
}
