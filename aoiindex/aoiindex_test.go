package aoiindex_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/verdantlab/phenosample/aoiindex"
)

func regionFromBounds(minX, minY, maxX, maxY float64) orb.MultiPolygon {
	return orb.MultiPolygon{orb.Polygon{orb.Ring{
		orb.Point{minX, minY},
		orb.Point{maxX, minY},
		orb.Point{maxX, maxY},
		orb.Point{minX, maxY},
		orb.Point{minX, minY},
	}}}
}

func TestRegionLookup(t *testing.T) {
	ix := aoiindex.New()

	ix.Insert("north-stand", regionFromBounds(0, 0, 1, 1))
	ix.Insert("south-stand", regionFromBounds(-1, -1, 0, 0))

	mp, ok := ix.Region("north-stand")
	if !ok {
		t.Fatal("expected north-stand to be registered")
	}
	if !planar.MultiPolygonContains(mp, orb.Point{0.5, 0.5}) {
		t.Fatal("returned geometry does not cover its own region")
	}

	if _, ok := ix.Region("missing"); ok {
		t.Fatal("expected miss for unknown region")
	}
}

func TestQueryPoint(t *testing.T) {
	ix := aoiindex.New()

	ix.Insert("north-stand", regionFromBounds(0, 0, 1, 1))
	ix.Insert("south-stand", regionFromBounds(-1, -1, 0, 0))

	name, ok := ix.QueryPoint(orb.Point{0.5, 0.5})
	if !ok {
		t.Fatal("expected hit")
	}
	if name != "north-stand" {
		t.Fatalf("expected north-stand, got %s", name)
	}

	name, ok = ix.QueryPoint(orb.Point{-0.5, -0.5})
	if !ok {
		t.Fatal("expected hit")
	}
	if name != "south-stand" {
		t.Fatalf("expected south-stand, got %s", name)
	}

	if _, ok := ix.QueryPoint(orb.Point{5, 5}); ok {
		t.Fatal("expected miss outside every region")
	}
}

func FuzzQueryPoint(f *testing.F) {
	const testRegion = "stand"

	f.Add(0.0, 0.0, 1.0, 1.0, 0.5, 0.5)
	f.Add(0.0, 0.0, 1.0, 1.0, 1.5, 1.5)

	f.Fuzz(func(t *testing.T, minX, minY, maxX, maxY, pointX, pointY float64) {
		geometry := regionFromBounds(minX, minY, maxX, maxY)
		point := orb.Point{pointX, pointY}
		expectOk := planar.MultiPolygonContains(geometry, point)

		ix := aoiindex.New()
		ix.Insert(testRegion, geometry)

		name, ok := ix.QueryPoint(point)
		if expectOk != ok {
			t.Fatalf("expected %v, got %v", expectOk, ok)
		}
		if expectOk && name != testRegion {
			t.Fatalf("expected %s, got %s", testRegion, name)
		}
	})
}
