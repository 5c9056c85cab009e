// Package aoiindex keeps the areas of interest of a study, addressable
// both by region name and by point lookup.
package aoiindex

import (
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/tidwall/qtree"
)

type Index struct {
	mu      sync.RWMutex
	byName  map[string]uint64
	regions []region
	qt      qtree.QTree
}

type region struct {
	Name     string
	Geometry orb.MultiPolygon
}

func New() *Index {
	return &Index{
		byName: map[string]uint64{},
	}
}

func (ix *Index) Insert(name string, mp orb.MultiPolygon) {
	bound := mp.Bound()

	ix.mu.Lock()
	defer ix.mu.Unlock()

	id := uint64(len(ix.regions))
	ix.regions = append(ix.regions, region{Name: name, Geometry: mp})
	ix.byName[name] = id
	ix.qt.Insert(bound.Min, bound.Max, id)
}

// Region returns the geometry registered under name.
func (ix *Index) Region(name string) (orb.MultiPolygon, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	id, ok := ix.byName[name]
	if !ok {
		return nil, false
	}
	return ix.regions[id].Geometry, true
}

// QueryPoint returns the name of the first region containing point.
func (ix *Index) QueryPoint(point orb.Point) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out string
	found := false

	ix.qt.Search(point, point, func(_, _ [2]float64, data interface{}) bool {
		id := data.(uint64)

		if planar.MultiPolygonContains(ix.regions[id].Geometry, point) {
			out = ix.regions[id].Name
			found = true
			return false
		}

		return true
	})

	return out, found
}

// Names lists every registered region.
func (ix *Index) Names() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	names := make([]string, 0, len(ix.regions))
	for _, r := range ix.regions {
		names = append(names, r.Name)
	}
	return names
}
