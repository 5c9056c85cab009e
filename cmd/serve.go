package main

import (
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/verdantlab/phenosample/plotindex"
	"github.com/verdantlab/phenosample/samplecache"
	"github.com/verdantlab/phenosample/series"
	"github.com/verdantlab/phenosample/server"
)

func serve(ctx *cli.Context) error {
	set, err := samplecache.LoadFile(ctx.String("points"))
	if err != nil {
		return err
	}
	slog.Info("Loaded sample set", "region", set.Region, "plots", len(set.Points))

	store, err := series.OpenStore(ctx.String("db"))
	if err != nil {
		return err
	}
	defer store.Close()

	return server.Run(ctx.Context, ctx.String("listen"), server.Deps{
		Set:   set,
		Plots: plotindex.New(set.Points),
		Store: store,
	})
}
