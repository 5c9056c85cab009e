package series

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sourcegraph/conc/pool"

	"github.com/verdantlab/phenosample/phenomodel"
)

type ExtractConfig struct {
	Indexes []phenomodel.VegIndex
	From    time.Time
	To      time.Time
	Threads int
}

func ExtractConfigDefault() ExtractConfig {
	return ExtractConfig{
		Indexes: phenomodel.AllIndexes(),
		Threads: runtime.GOMAXPROCS(0),
	}
}

// Report summarizes one extraction run. Failed plots are skipped, not
// fatal; a rerun only refetches what is missing from the memo.
type Report struct {
	Fetched int
	Failed  int
}

type Extractor struct {
	provider Provider
	store    *Store

	memo *xsync.MapOf[string, []phenomodel.Observation]
	log  *slog.Logger
}

func NewExtractor(provider Provider, store *Store) *Extractor {
	return &Extractor{
		provider: provider,
		store:    store,
		memo:     xsync.NewMapOf[string, []phenomodel.Observation](),
		log:      slog.With("component", "extractor"),
	}
}

// Run fetches every plot and index combination of the sample set and
// persists the observations.
func (e *Extractor) Run(ctx context.Context, set phenomodel.SampleSet, cfg ExtractConfig) (Report, error) {
	if len(cfg.Indexes) == 0 {
		cfg.Indexes = phenomodel.AllIndexes()
	}
	if cfg.Threads <= 0 {
		cfg.Threads = runtime.GOMAXPROCS(0)
	}

	total := len(set.Points) * len(cfg.Indexes)
	e.log.Info("starting extraction",
		"plots", humanize.Comma(int64(len(set.Points))),
		"indexes", len(cfg.Indexes),
		"requests", humanize.Comma(int64(total)))

	bar := pb.StartNew(total)
	bar.SetRefreshRate(time.Second)
	defer bar.Finish()

	var mu sync.Mutex
	failed := map[int]error{}
	fetched := 0

	workers := pool.New().WithMaxGoroutines(cfg.Threads)
	for _, point := range set.Points {
		for _, index := range cfg.Indexes {
			workers.Go(func() {
				defer bar.Increment()

				obs, err := e.fetch(ctx, point, index, cfg.From, cfg.To)
				if err == nil {
					err = e.store.PutSeries(ctx, phenomodel.Series{
						PointID: point.ID,
						Index:   index,
						Obs:     obs,
					})
				}

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failed[point.ID] = err
					return
				}
				fetched++
			})
		}
	}
	workers.Wait()

	for _, id := range sortedKeys(failed) {
		e.log.Warn("plot extraction failed", "plot", id, "error", failed[id].Error())
	}

	report := Report{Fetched: fetched, Failed: len(failed)}
	if report.Fetched == 0 && report.Failed > 0 {
		return report, fmt.Errorf("all %d plots failed to extract", report.Failed)
	}

	e.log.Info("extraction complete",
		"fetched", humanize.Comma(int64(report.Fetched)),
		"failed_plots", report.Failed)
	return report, nil
}

func (e *Extractor) fetch(ctx context.Context, pt phenomodel.SamplePoint, index phenomodel.VegIndex, from, to time.Time) ([]phenomodel.Observation, error) {
	key := fmt.Sprintf("%d/%s/%s/%s", pt.ID, index, from.Format(dateLayout), to.Format(dateLayout))
	if obs, ok := e.memo.Load(key); ok {
		return obs, nil
	}

	obs, err := e.provider.Fetch(ctx, pt, index, from, to)
	if err != nil {
		return nil, err
	}
	e.memo.Store(key, obs)
	return obs, nil
}
