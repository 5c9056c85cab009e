package geoio_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/verdantlab/phenosample/geoio"
	"github.com/verdantlab/phenosample/phenomodel"
)

const aoiFixture = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"region": "east-block"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[30.0, -5.0], [30.1, -5.0], [30.1, -4.9], [30.0, -4.9], [30.0, -5.0]]]
      }
    },
    {
      "type": "Feature",
      "properties": {},
      "geometry": {"type": "Point", "coordinates": [0, 0]}
    }
  ]
}`

func TestParseAOI(t *testing.T) {
	ix, err := geoio.ParseAOI([]byte(aoiFixture))
	if err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	mp, ok := ix.Region("east-block")
	if !ok {
		t.Fatal("expected east-block region")
	}

	// reprojected geometry must be metric: a 0.1 degree block near the
	// equator spans roughly 11km in mercator metres
	bound := mp.Bound()
	width := bound.Max[0] - bound.Min[0]
	if width < 10000 || width > 13000 {
		t.Fatalf("expected ~11km wide region after projection, got %f", width)
	}
	if planar.Area(mp) <= 0 {
		t.Fatal("expected positive area")
	}
}

func TestParseAOIEmpty(t *testing.T) {
	_, err := geoio.ParseAOI([]byte(`{"type": "FeatureCollection", "features": []}`))
	if err == nil {
		t.Fatal("expected error for collection without polygons")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()

	set := phenomodel.SampleSet{
		Region:    "east-block",
		EPSG:      geoio.WebMercatorEPSG,
		CreatedAt: time.Now(),
		Points: []phenomodel.SamplePoint{
			{ID: 1, X: 3339584.7, Y: -557305.2},
			{ID: 2, X: 3340000.0, Y: -557000.0},
		},
	}

	geoPath := filepath.Join(dir, "points.geojson")
	if err := geoio.WritePointsGeoJSON(geoPath, set); err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	csvPath := filepath.Join(dir, "points.csv")
	if err := geoio.WritePointsCSV(csvPath, set); err != nil {
		t.Fatalf("unexpected error: %s", err.Error())
	}

	for _, p := range []string{geoPath, csvPath} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("missing output %s: %s", p, err.Error())
		}
		if info.Size() == 0 {
			t.Fatalf("empty output %s", p)
		}
	}

	lon, lat := set.Points[0].LonLat()
	back := orb.Point{lon, lat}
	if math.Abs(back[0]-30.0) > 0.01 || math.Abs(back[1]+5.0) > 0.01 {
		t.Fatalf("unprojection drifted: got (%f, %f)", back[0], back[1])
	}
}
