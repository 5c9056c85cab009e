package phenomodel

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// SamplePoint is a single accepted sampling plot. X and Y are WebMercator
// metres, ID is the assignment order starting at 1.
type SamplePoint struct {
	ID int     `json:"id" csv:"id"`
	X  float64 `json:"x" csv:"x"`
	Y  float64 `json:"y" csv:"y"`
}

func (p SamplePoint) Point() orb.Point {
	return orb.Point{p.X, p.Y}
}

// LonLat converts the projected coordinates back to WGS84 degrees.
func (p SamplePoint) LonLat() (lon, lat float64) {
	ll := project.Point(orb.Point{p.X, p.Y}, project.Mercator.ToWGS84)
	return ll[0], ll[1]
}

// SampleSet is the output of one sampling run.
type SampleSet struct {
	Region    string        `json:"region"`
	EPSG      int           `json:"epsg"`
	CreatedAt time.Time     `json:"created_at"`
	Points    []SamplePoint `json:"points"`
}

// VegIndex names a normalized-difference vegetation index band combination.
type VegIndex string

const (
	NDVI VegIndex = "ndvi"
	NDRE VegIndex = "ndre"
	NDMI VegIndex = "ndmi"
	PSRI VegIndex = "psri"
)

// AllIndexes lists every index the extractor knows how to request.
func AllIndexes() []VegIndex {
	return []VegIndex{NDVI, NDRE, NDMI, PSRI}
}

func ParseVegIndex(s string) (VegIndex, bool) {
	switch VegIndex(s) {
	case NDVI, NDRE, NDMI, PSRI:
		return VegIndex(s), true
	}
	return "", false
}

type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a multi-year index time series for one sample point.
type Series struct {
	PointID int           `json:"point_id"`
	Index   VegIndex      `json:"index"`
	Obs     []Observation `json:"observations"`
}

// PhenoMetrics are the seasonal breakpoints derived from a fitted curve.
// Day-of-year values are fractional.
type PhenoMetrics struct {
	PointID       int      `json:"point_id"`
	Index         VegIndex `json:"index"`
	Year          int      `json:"year"`
	StartOfSeason float64  `json:"start_of_season"`
	PeakOfSeason  float64  `json:"peak_of_season"`
	EndOfSeason   float64  `json:"end_of_season"`
	Baseline      float64  `json:"baseline"`
	Amplitude     float64  `json:"amplitude"`
	RMSE          float64  `json:"rmse"`
}

// Breakpoint marks a structural change in a series.
type Breakpoint struct {
	Date      time.Time `json:"date"`
	Statistic float64   `json:"statistic"`
}
