package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	_ "net/http/pprof"

	"github.com/urfave/cli/v3"

	"github.com/verdantlab/phenosample/internal/stats"
	"github.com/verdantlab/phenosample/internal/telemetry"
	"github.com/verdantlab/phenosample/phenomodel"
	"github.com/verdantlab/phenosample/samplecache"
	"github.com/verdantlab/phenosample/series"
)

const dateFlagLayout = "2006-01-02"

func extract(ctx *cli.Context) error {
	log := slog.Default()

	threads := ctx.Int("threads")
	if threads == 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	log = log.With("threads", threads)

	from, err := time.Parse(dateFlagLayout, ctx.String("from"))
	if err != nil {
		return fmt.Errorf("invalid from date: %w", err)
	}
	to, err := time.Parse(dateFlagLayout, ctx.String("to"))
	if err != nil {
		return fmt.Errorf("invalid to date: %w", err)
	}
	if to.Before(from) {
		return fmt.Errorf("to date %s is before from date %s", ctx.String("to"), ctx.String("from"))
	}

	indexes := phenomodel.AllIndexes()
	if names := ctx.StringSlice("index"); len(names) > 0 {
		indexes = indexes[:0]
		for _, name := range names {
			index, ok := phenomodel.ParseVegIndex(name)
			if !ok {
				return fmt.Errorf("unknown vegetation index %q", name)
			}
			indexes = append(indexes, index)
		}
	}

	if pprofListen := ctx.String("pprof.listen"); pprofListen != "" {
		go func() {
			log.Info("Starting pprof server")
			err := http.ListenAndServe(pprofListen, nil)
			if err != nil {
				log.Error("Error starting pprof server", "error", err)
			}
		}()
	}

	pprofHeap := ctx.Bool("pprof.heap")

	if ctx.Bool("pprof.profile") {
		f, err := os.OpenFile("profile.cpu.pprof", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("error creating pprof file: %w", err)
		}
		err = pprof.StartCPUProfile(f)
		if err != nil {
			return fmt.Errorf("error starting pprof: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	tel, err := telemetry.Setup(ctx.Context, "phenosample", ctx.String("telemetry.endpoint"))
	if err != nil {
		return fmt.Errorf("error initializing telemetry: %w", err)
	}
	if tel != nil {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := tel.Flush(flushCtx); err != nil {
				log.Error("error flushing telemetry", "error", err)
			}
			tel.Shutdown(flushCtx)
		}()
	}

	set, err := samplecache.LoadFile(ctx.String("points"))
	if err != nil {
		return fmt.Errorf("failed to load sample set: %w", err)
	}
	fmt.Printf("Loaded %d plots of region %s\n", len(set.Points), set.Region)

	store, err := series.OpenStore(ctx.String("db"))
	if err != nil {
		return err
	}
	defer store.Close()

	clientCfg := series.ClientConfigDefault()
	clientCfg.BaseURL = os.Getenv("PHENOSAMPLE_STATS_URL")
	clientCfg.Token = os.Getenv("PHENOSAMPLE_STATS_TOKEN")
	if clientCfg.BaseURL == "" {
		return fmt.Errorf("PHENOSAMPLE_STATS_URL is not set")
	}

	var collector *stats.Collector
	if ctx.Bool("stats") {
		collector, err = stats.NewCollector(10 * time.Second)
		if err != nil {
			return err
		}
		collector.Start()
	}

	extractor := series.NewExtractor(series.NewStatsClient(clientCfg), store)
	report, err := extractor.Run(ctx.Context, set, series.ExtractConfig{
		Indexes: indexes,
		From:    from,
		To:      to,
		Threads: threads,
	})

	if collector != nil {
		summary := collector.Stop()
		if werr := summary.WriteReport("extract.stats.txt"); werr != nil {
			log.Error("error writing stats report", "error", werr)
		}
	}
	if err != nil {
		return err
	}

	if pprofHeap {
		err := writeHeapProfile("profile")
		if err != nil {
			return fmt.Errorf("error writing heap profile: %s", err.Error())
		}
	}

	fmt.Printf("Extraction complete: %d series fetched, %d plots failed\n", report.Fetched, report.Failed)

	return nil
}

func writeHeapProfile(name string) error {
	f, err := os.Create(name + ".heap.prof")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	return pprof.WriteHeapProfile(f)
}
