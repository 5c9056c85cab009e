package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	_ "github.com/KimMachineGun/automemlimit"
	_ "go.uber.org/automaxprocs"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:        "phenosample",
		Description: "Spatial plot sampling and vegetation phenology toolkit",
		Commands: []*cli.Command{
			{
				Name:    "sample",
				Aliases: []string{"s"},
				Usage:   "generates a random sample of plots inside an area of interest",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:      "aoi",
						Aliases:   []string{"a"},
						Required:  true,
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:    "region",
						Aliases: []string{"r"},
					},
					&cli.IntFlag{
						Name:    "target",
						Aliases: []string{"n"},
						Value:   100,
					},
					&cli.Float64Flag{
						Name:    "min-distance",
						Aliases: []string{"d"},
						Value:   100,
					},
					&cli.Float64Flag{
						Name:  "oversample",
						Value: 5,
					},
					&cli.Int64Flag{
						Name:  "seed",
						Value: 1,
					},
					&cli.StringFlag{
						Name:  "strategy",
						Value: "uniform",
					},
					&cli.StringFlag{
						Name:      "points",
						Aliases:   []string{"p"},
						Required:  true,
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:      "geojson",
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:      "csv",
						TakesFile: true,
					},
				},
				Action: sample,
			},
			{
				Name:    "extract",
				Aliases: []string{"e"},
				Usage:   "fetches vegetation index series for every sampled plot",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:      "points",
						Aliases:   []string{"p"},
						Required:  true,
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:      "db",
						Value:     "series.db",
						TakesFile: true,
					},
					&cli.StringSliceFlag{
						Name:        "index",
						Aliases:     []string{"i"},
						DefaultText: "all",
					},
					&cli.StringFlag{
						Name:     "from",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "to",
						Required: true,
					},
					&cli.IntFlag{
						Name:        "threads",
						Aliases:     []string{"t"},
						DefaultText: "max",
					},
					&cli.BoolFlag{
						Name: "stats",
					},
					&cli.StringFlag{
						Name:        "telemetry.endpoint",
						DefaultText: "",
					},
					&cli.StringFlag{
						Name:        "pprof.listen",
						DefaultText: "",
					},
					&cli.BoolFlag{
						Name:        "pprof.profile",
						DefaultText: "",
					},
					&cli.BoolFlag{
						Name:        "pprof.heap",
						DefaultText: "",
					},
				},
				Action: extract,
			},
			{
				Name:  "fit",
				Usage: "fits seasonal curves to stored series and derives phenology metrics",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:      "db",
						Value:     "series.db",
						TakesFile: true,
					},
					&cli.IntFlag{
						Name:     "year",
						Aliases:  []string{"y"},
						Required: true,
					},
					&cli.StringFlag{
						Name:    "index",
						Aliases: []string{"i"},
						Value:   "ndvi",
					},
					&cli.IntFlag{
						Name:        "point",
						DefaultText: "all",
					},
					&cli.BoolFlag{
						Name: "breaks",
					},
					&cli.StringFlag{
						Name:      "charts",
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:      "output",
						Aliases:   []string{"o"},
						Value:     "phenology.csv",
						TakesFile: true,
					},
				},
				Action: fit,
			},
			{
				Name:  "serve",
				Usage: "serve the sampling and phenology api",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:      "points",
						Aliases:   []string{"p"},
						Required:  true,
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:      "db",
						Value:     "series.db",
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
					},
				},
				Action: serve,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
