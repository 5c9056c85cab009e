package sampler_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/thejerf/slogassert"

	"github.com/verdantlab/phenosample/phenomodel"
	"github.com/verdantlab/phenosample/sampler"
)

func squareAOI(minX, minY, maxX, maxY float64) orb.MultiPolygon {
	return orb.MultiPolygon{orb.Polygon{orb.Ring{
		orb.Point{minX, minY},
		orb.Point{maxX, minY},
		orb.Point{maxX, maxY},
		orb.Point{minX, maxY},
		orb.Point{minX, minY},
	}}}
}

func assertSpacing(t *testing.T, points []phenomodel.SamplePoint, minDistance float64) {
	t.Helper()
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			d := planar.Distance(points[i].Point(), points[j].Point())
			if d < minDistance {
				t.Fatalf("points %d and %d are %f apart, want >= %f", points[i].ID, points[j].ID, d, minDistance)
			}
		}
	}
}

func assertContained(t *testing.T, aoi orb.MultiPolygon, points []phenomodel.SamplePoint) {
	t.Helper()
	for _, p := range points {
		if !planar.MultiPolygonContains(aoi, p.Point()) {
			t.Fatalf("point %d (%f, %f) outside aoi", p.ID, p.X, p.Y)
		}
	}
}

func TestDeterminism(t *testing.T) {
	aoi := squareAOI(0, 0, 10000, 10000)
	cfg := sampler.Config{TargetCount: 25, MinDistance: 50, OversampleFactor: 5, Seed: 42}

	a, err := sampler.Generate(aoi, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	b, err := sampler.Generate(aoi, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	if len(a.Points) != len(b.Points) {
		t.Fatalf("runs produced %d and %d points", len(a.Points), len(b.Points))
	}
	for i := range a.Points {
		if a.Points[i] != b.Points[i] {
			t.Fatalf("point %d differs between runs: %v vs %v", i, a.Points[i], b.Points[i])
		}
	}
}

func TestSeedChangesOutput(t *testing.T) {
	aoi := squareAOI(0, 0, 10000, 10000)
	cfg := sampler.Config{TargetCount: 10, MinDistance: 1, OversampleFactor: 5, Seed: 42}

	a, err := sampler.Generate(aoi, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	cfg.Seed = 43
	b, err := sampler.Generate(aoi, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	same := len(a.Points) == len(b.Points)
	if same {
		for i := range a.Points {
			if a.Points[i] != b.Points[i] {
				same = false
				break
			}
		}
	}
	if same {
		t.Fatal("different seeds produced identical point sets")
	}
}

func TestFullDelivery(t *testing.T) {
	aoi := squareAOI(0, 0, 10000, 10000)
	cfg := sampler.Config{TargetCount: 10, MinDistance: 1, OversampleFactor: 5, Seed: 42}

	res, err := sampler.Generate(aoi, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	if len(res.Points) != 10 {
		t.Fatalf("expected 10 points, got %d", len(res.Points))
	}
	if res.Shortfall != 0 {
		t.Fatalf("expected no shortfall, got %d", res.Shortfall)
	}
	for i, p := range res.Points {
		if p.ID != i+1 {
			t.Fatalf("expected sequential ids, got %d at position %d", p.ID, i)
		}
	}
	assertSpacing(t, res.Points, 1)
	assertContained(t, aoi, res.Points)
}

func TestSpacingDominatesCount(t *testing.T) {
	handler := slogassert.New(t, slog.LevelWarn, nil)
	prev := slog.Default()
	slog.SetDefault(slog.New(handler))
	defer slog.SetDefault(prev)

	// A 1km square cannot hold anywhere near 100 points spaced 500m
	// apart; packing tops out at a handful.
	aoi := squareAOI(0, 0, 1000, 1000)
	cfg := sampler.Config{TargetCount: 100, MinDistance: 500, OversampleFactor: 5, Seed: 1234}

	res, err := sampler.Generate(aoi, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	if len(res.Points) < 1 {
		t.Fatal("expected at least one point")
	}
	if len(res.Points) > 8 {
		t.Fatalf("impossible packing: %d points spaced 500m in a 1km square", len(res.Points))
	}
	if res.Shortfall != cfg.TargetCount-len(res.Points) {
		t.Fatalf("shortfall %d inconsistent with %d produced", res.Shortfall, len(res.Points))
	}
	assertSpacing(t, res.Points, 500)
	assertContained(t, aoi, res.Points)

	// exactly one warning per run
	handler.AssertMessage("sampling shortfall")
	handler.AssertEmpty()
}

func TestPoissonStrategy(t *testing.T) {
	aoi := squareAOI(0, 0, 5000, 5000)
	cfg := sampler.Config{
		TargetCount:      30,
		MinDistance:      200,
		OversampleFactor: 5,
		Seed:             7,
		Strategy:         sampler.StrategyPoisson,
	}

	res, err := sampler.Generate(aoi, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	if len(res.Points) == 0 {
		t.Fatal("expected points from poisson strategy")
	}
	assertSpacing(t, res.Points, 200)
	assertContained(t, aoi, res.Points)
}

func TestInvalidInputs(t *testing.T) {
	valid := sampler.Config{TargetCount: 10, MinDistance: 1, OversampleFactor: 5, Seed: 1}

	_, err := sampler.Generate(orb.MultiPolygon{}, valid)
	if !errors.Is(err, sampler.ErrInvalidAOI) {
		t.Fatalf("expected ErrInvalidAOI, got %v", err)
	}

	// zero-area ring
	degenerate := orb.MultiPolygon{orb.Polygon{orb.Ring{
		orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{0, 0},
	}}}
	_, err = sampler.Generate(degenerate, valid)
	if !errors.Is(err, sampler.ErrInvalidAOI) {
		t.Fatalf("expected ErrInvalidAOI for zero area, got %v", err)
	}

	aoi := squareAOI(0, 0, 100, 100)
	for _, cfg := range []sampler.Config{
		{TargetCount: 0, MinDistance: 1, OversampleFactor: 5},
		{TargetCount: -3, MinDistance: 1, OversampleFactor: 5},
		{TargetCount: 10, MinDistance: -1, OversampleFactor: 5},
		{TargetCount: 10, MinDistance: 1, OversampleFactor: 0.5},
	} {
		if _, err := sampler.Generate(aoi, cfg); !errors.Is(err, sampler.ErrInvalidConfig) {
			t.Fatalf("expected ErrInvalidConfig for %+v, got %v", cfg, err)
		}
	}
}

func TestZeroMinDistance(t *testing.T) {
	aoi := squareAOI(0, 0, 100, 100)
	cfg := sampler.Config{TargetCount: 20, MinDistance: 0, OversampleFactor: 2, Seed: 5}

	res, err := sampler.Generate(aoi, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}
	if len(res.Points) != 20 {
		t.Fatalf("expected 20 points with zero spacing, got %d", len(res.Points))
	}
	assertContained(t, aoi, res.Points)
}

func FuzzSpacingInvariant(f *testing.F) {
	f.Add(1000.0, 50.0, int64(1))
	f.Add(1000.0, 500.0, int64(1234))
	f.Add(200.0, 0.0, int64(9))

	f.Fuzz(func(t *testing.T, side, minDistance float64, seed int64) {
		if side < 1 || side > 50000 || minDistance < 0 || minDistance > side*2 {
			t.Skip()
		}

		aoi := squareAOI(0, 0, side, side)
		cfg := sampler.Config{TargetCount: 20, MinDistance: minDistance, OversampleFactor: 3, Seed: seed}

		res, err := sampler.Generate(aoi, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %s", err.Error())
		}
		if len(res.Points) > cfg.TargetCount {
			t.Fatalf("produced %d points, requested %d", len(res.Points), cfg.TargetCount)
		}
		assertSpacing(t, res.Points, minDistance)
		assertContained(t, aoi, res.Points)
	})
}
