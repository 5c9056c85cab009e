package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/urfave/cli/v3"

	"github.com/verdantlab/phenosample/phenology"
	"github.com/verdantlab/phenosample/phenomodel"
	"github.com/verdantlab/phenosample/series"
)

type fitRecord struct {
	PointID       int     `csv:"point_id"`
	Index         string  `csv:"index"`
	Year          int     `csv:"year"`
	StartOfSeason float64 `csv:"start_of_season"`
	PeakOfSeason  float64 `csv:"peak_of_season"`
	EndOfSeason   float64 `csv:"end_of_season"`
	Baseline      float64 `csv:"baseline"`
	Amplitude     float64 `csv:"amplitude"`
	RMSE          float64 `csv:"rmse"`
	Breaks        int     `csv:"breaks"`
}

func fit(ctx *cli.Context) error {
	log := slog.Default()

	index, ok := phenomodel.ParseVegIndex(ctx.String("index"))
	if !ok {
		return fmt.Errorf("unknown vegetation index %q", ctx.String("index"))
	}
	year := ctx.Int("year")

	store, err := series.OpenStore(ctx.String("db"))
	if err != nil {
		return err
	}
	defer store.Close()

	ids := []int{ctx.Int("point")}
	if ctx.Int("point") == 0 {
		ids, err = store.PointIDs(ctx.Context)
		if err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("no plots with stored observations, run extract first")
	}

	chartsDir := ctx.String("charts")
	if chartsDir != "" {
		if err := os.MkdirAll(chartsDir, 0755); err != nil {
			return err
		}
	}

	from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)

	var records []fitRecord
	skipped := 0
	for _, id := range ids {
		ser, err := store.GetSeries(ctx.Context, id, index, from, to)
		if err != nil {
			return err
		}

		metrics, params, err := phenology.FitSeries(ser, year)
		if errors.Is(err, phenology.ErrTooFewObservations) {
			log.Warn("skipping plot", "plot", id, "error", err.Error())
			skipped++
			continue
		}
		if err != nil {
			return err
		}

		rec := fitRecord{
			PointID:       metrics.PointID,
			Index:         string(metrics.Index),
			Year:          metrics.Year,
			StartOfSeason: metrics.StartOfSeason,
			PeakOfSeason:  metrics.PeakOfSeason,
			EndOfSeason:   metrics.EndOfSeason,
			Baseline:      metrics.Baseline,
			Amplitude:     metrics.Amplitude,
			RMSE:          metrics.RMSE,
		}

		if ctx.Bool("breaks") {
			breaks := phenology.DetectBreaks(ser.Obs, phenology.BreakConfigDefault())
			rec.Breaks = len(breaks)
			for _, b := range breaks {
				log.Info("structural break", "plot", id, "date", b.Date.Format(dateFlagLayout), "statistic", b.Statistic)
			}
		}

		if chartsDir != "" {
			chart := filepath.Join(chartsDir, fmt.Sprintf("plot_%d_%s_%d.png", id, index, year))
			if err := phenology.RenderFit(chart, ser, year, params); err != nil {
				return fmt.Errorf("rendering chart for plot %d: %w", id, err)
			}
		}

		records = append(records, rec)
	}

	if len(records) == 0 {
		return fmt.Errorf("no plot had enough observations in %d to fit", year)
	}

	output := ctx.String("output")
	file, err := os.Create(output)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := gocsv.MarshalFile(&records, file); err != nil {
		return err
	}

	fmt.Printf("Fitted %d plots (%d skipped)\n", len(records), skipped)
	fmt.Printf("Metrics written to: %s\n", output)

	return nil
}
