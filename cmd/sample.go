package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/verdantlab/phenosample/geoio"
	"github.com/verdantlab/phenosample/phenomodel"
	"github.com/verdantlab/phenosample/samplecache"
	"github.com/verdantlab/phenosample/sampler"
)

func sample(ctx *cli.Context) error {
	log := slog.Default()

	ix, err := geoio.LoadAOIFile(ctx.String("aoi"))
	if err != nil {
		return err
	}

	region := ctx.String("region")
	if region == "" {
		region = ix.Names()[0]
		log.Info("no region selected, using first", "region", region)
	}
	aoi, ok := ix.Region(region)
	if !ok {
		return fmt.Errorf("unknown region %q, available: %s", region, strings.Join(ix.Names(), ", "))
	}

	cfg := sampler.Config{
		TargetCount:      ctx.Int("target"),
		MinDistance:      ctx.Float64("min-distance"),
		OversampleFactor: ctx.Float64("oversample"),
		Seed:             ctx.Int64("seed"),
		Strategy:         sampler.Strategy(ctx.String("strategy")),
	}
	switch cfg.Strategy {
	case sampler.StrategyUniform, sampler.StrategyPoisson:
	default:
		return fmt.Errorf("unknown strategy %q", cfg.Strategy)
	}

	res, err := sampler.Generate(aoi, cfg)
	if err != nil {
		return err
	}
	if res.Shortfall > 0 {
		// the generator already warned; add the remedy
		log.Info("rerun with a lower min-distance or a higher oversample to close the shortfall",
			"shortfall", res.Shortfall)
	}

	set := phenomodel.SampleSet{
		Region:    region,
		EPSG:      geoio.WebMercatorEPSG,
		CreatedAt: time.Now().UTC(),
		Points:    res.Points,
	}

	saveFile := ctx.String("points")
	if !strings.HasSuffix(saveFile, ".pheno") {
		saveFile = saveFile + ".pheno"
	}

	fmt.Printf("Sampled %d plots in %s\n", len(set.Points), region)
	fmt.Printf("Saving to file: %s\n", saveFile)
	if err := samplecache.SaveFile(saveFile, set); err != nil {
		return fmt.Errorf("failed to save points to file: %s", err.Error())
	}

	if path := ctx.String("geojson"); path != "" {
		if err := geoio.WritePointsGeoJSON(path, set); err != nil {
			return err
		}
	}
	if path := ctx.String("csv"); path != "" {
		if err := geoio.WritePointsCSV(path, set); err != nil {
			return err
		}
	}

	fmt.Printf("Complete\n")

	return nil
}
