// Package geoio reads areas of interest and writes sample sets.
//
// GeoJSON input is WGS84 by convention; geometries are reprojected to
// WebMercator (EPSG:3857) on load so downstream distances are metric.
package geoio

import (
	"errors"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	"github.com/verdantlab/phenosample/aoiindex"
)

// WebMercatorEPSG is the CRS every loaded geometry is expressed in.
const WebMercatorEPSG = 3857

var ErrNoRegions = errors.New("no polygon features in aoi file")

// LoadAOIFile parses a GeoJSON FeatureCollection of polygons into a
// region index. The feature property "region" (falling back to "name")
// names each area; unnamed features get their ordinal.
func LoadAOIFile(path string) (*aoiindex.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading aoi file: %w", err)
	}
	return ParseAOI(data)
}

func ParseAOI(data []byte) (*aoiindex.Index, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing aoi geojson: %w", err)
	}

	ix := aoiindex.New()
	count := 0
	for i, f := range fc.Features {
		mp, ok := multiPolygonOf(f.Geometry)
		if !ok {
			continue
		}

		name := featureName(f, i)
		ix.Insert(name, project.MultiPolygon(mp, project.WGS84.ToMercator))
		count++
	}

	if count == 0 {
		return nil, ErrNoRegions
	}
	return ix, nil
}

func multiPolygonOf(g orb.Geometry) (orb.MultiPolygon, bool) {
	switch g := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{g}, true
	case orb.MultiPolygon:
		return g, true
	}
	return nil, false
}

func featureName(f *geojson.Feature, ordinal int) string {
	if v, ok := f.Properties["region"].(string); ok && v != "" {
		return v
	}
	if v, ok := f.Properties["name"].(string); ok && v != "" {
		return v
	}
	return fmt.Sprintf("region-%d", ordinal)
}
