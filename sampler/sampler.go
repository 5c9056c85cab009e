// Package sampler generates random sampling plots inside an area of
// interest while keeping a minimum spacing between accepted points.
//
// Coordinates are expected in a projected, metric CRS; MinDistance is in
// the same unit. Candidates at exactly MinDistance from an accepted point
// are kept, only strictly closer ones are excluded.
package sampler

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/fogleman/poissondisc"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/verdantlab/phenosample/phenomodel"
)

var (
	ErrInvalidAOI    = errors.New("aoi is empty or has no area")
	ErrInvalidConfig = errors.New("invalid sampler config")
)

// rejection draws per requested candidate before giving up on a
// degenerate geometry
const maxDrawAttempts = 1000

// Result carries the accepted points and, when the candidate pool ran dry
// before TargetCount, the size of the shortfall. A shortfall is not an
// error: the points produced still satisfy every spacing guarantee.
type Result struct {
	Points    []phenomodel.SamplePoint
	Shortfall int
}

// Generate produces up to cfg.TargetCount points inside aoi, pairwise at
// least cfg.MinDistance apart. Runs with identical inputs produce
// identical output.
func Generate(aoi orb.MultiPolygon, cfg Config) (Result, error) {
	if err := validate(aoi, cfg); err != nil {
		return Result{}, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	pool, err := candidates(aoi, cfg, rng)
	if err != nil {
		return Result{}, err
	}

	accepted := make([]phenomodel.SamplePoint, 0, cfg.TargetCount)
	for len(accepted) < cfg.TargetCount {
		if len(pool) == 0 {
			break
		}

		pick := pool[rng.Intn(len(pool))]
		accepted = append(accepted, phenomodel.SamplePoint{
			ID: len(accepted) + 1,
			X:  pick[0],
			Y:  pick[1],
		})

		pool = excludeWithin(pool, pick, cfg.MinDistance)
	}

	res := Result{Points: accepted}
	if len(accepted) < cfg.TargetCount {
		res.Shortfall = cfg.TargetCount - len(accepted)
		slog.Warn("sampling shortfall",
			"produced", len(accepted),
			"requested", cfg.TargetCount,
			"min_distance", cfg.MinDistance)
	}
	return res, nil
}

func validate(aoi orb.MultiPolygon, cfg Config) error {
	if len(aoi) == 0 || planar.Area(aoi) <= 0 {
		return ErrInvalidAOI
	}
	if cfg.TargetCount <= 0 {
		return fmt.Errorf("%w: target count %d", ErrInvalidConfig, cfg.TargetCount)
	}
	if cfg.MinDistance < 0 {
		return fmt.Errorf("%w: min distance %f", ErrInvalidConfig, cfg.MinDistance)
	}
	if cfg.OversampleFactor < 1 {
		return fmt.Errorf("%w: oversample factor %f", ErrInvalidConfig, cfg.OversampleFactor)
	}
	return nil
}

func candidates(aoi orb.MultiPolygon, cfg Config, rng *rand.Rand) ([]orb.Point, error) {
	n := int(math.Ceil(float64(cfg.TargetCount) * cfg.OversampleFactor))

	switch cfg.Strategy {
	case StrategyPoisson:
		return poissonCandidates(aoi, cfg.MinDistance, rng), nil
	case StrategyUniform, "":
		return uniformCandidates(aoi, n, rng)
	}
	return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, cfg.Strategy)
}

func uniformCandidates(aoi orb.MultiPolygon, n int, rng *rand.Rand) ([]orb.Point, error) {
	bound := aoi.Bound()
	w := bound.Max[0] - bound.Min[0]
	h := bound.Max[1] - bound.Min[1]

	pool := make([]orb.Point, 0, n)
	for attempts := 0; len(pool) < n; attempts++ {
		if attempts > n*maxDrawAttempts {
			return nil, fmt.Errorf("%w: rejection sampling not converging", ErrInvalidAOI)
		}
		p := orb.Point{
			bound.Min[0] + rng.Float64()*w,
			bound.Min[1] + rng.Float64()*h,
		}
		if planar.MultiPolygonContains(aoi, p) {
			pool = append(pool, p)
		}
	}
	return pool, nil
}

func poissonCandidates(aoi orb.MultiPolygon, distance float64, rng *rand.Rand) []orb.Point {
	bound := aoi.Bound()
	points := poissondisc.Sample(bound.Min.X(), bound.Min.Y(), bound.Max.X(), bound.Max.Y(), distance, 10, rng)

	inside := make([]orb.Point, 0, len(points))
	for _, p := range points {
		point := orb.Point{p.X, p.Y}
		if planar.MultiPolygonContains(aoi, point) {
			inside = append(inside, point)
		}
	}
	return inside
}

// excludeWithin drops every candidate strictly closer than distance to
// center. The picked point itself is at distance zero, so it always goes.
func excludeWithin(pool []orb.Point, center orb.Point, distance float64) []orb.Point {
	kept := pool[:0]
	for _, p := range pool {
		if planar.Distance(center, p) >= distance && p != center {
			kept = append(kept, p)
		}
	}
	return kept
}
