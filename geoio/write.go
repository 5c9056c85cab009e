package geoio

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	"github.com/verdantlab/phenosample/phenomodel"
)

// WritePointsGeoJSON stores a sample set as a FeatureCollection of WGS84
// points, one feature per plot.
func WritePointsGeoJSON(path string, set phenomodel.SampleSet) error {
	fc := geojson.NewFeatureCollection()
	for _, p := range set.Points {
		ll := project.Point(orb.Point{p.X, p.Y}, project.Mercator.ToWGS84)
		f := geojson.NewFeature(ll)
		f.Properties["id"] = p.ID
		f.Properties["region"] = set.Region
		fc.Append(f)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling feature collection: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

type csvRecord struct {
	ID  int     `csv:"id"`
	X   float64 `csv:"x"`
	Y   float64 `csv:"y"`
	Lon float64 `csv:"longitude"`
	Lat float64 `csv:"latitude"`
}

// WritePointsCSV stores a sample set as (id, x, y, longitude, latitude)
// records. X and Y stay in the projected CRS of the set.
func WritePointsCSV(path string, set phenomodel.SampleSet) error {
	records := make([]csvRecord, 0, len(set.Points))
	for _, p := range set.Points {
		lon, lat := p.LonLat()
		records = append(records, csvRecord{ID: p.ID, X: p.X, Y: p.Y, Lon: lon, Lat: lat})
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating csv file: %w", err)
	}
	defer file.Close()

	return gocsv.MarshalFile(&records, file)
}
