// Package plotindex answers nearest-plot queries over a finished sample
// set, backed by a static kd-layout over the point coordinates.
package plotindex

import (
	"math"
	"sort"

	"github.com/verdantlab/phenosample/phenomodel"
)

type Index struct {
	points []phenomodel.SamplePoint

	idxs   []int
	coords []float64
}

const leafSize = 16

func New(points []phenomodel.SamplePoint) *Index {
	ix := &Index{
		points: points,
		idxs:   make([]int, len(points)),
		coords: make([]float64, 2*len(points)),
	}
	for i, p := range points {
		ix.idxs[i] = i
		ix.coords[2*i] = p.X
		ix.coords[2*i+1] = p.Y
	}
	ix.build(0, len(points)-1, 0)
	return ix
}

func (ix *Index) build(left, right, axis int) {
	if right-left <= leafSize {
		return
	}

	ix.sortRange(left, right, axis)
	m := (left + right) / 2

	ix.build(left, m-1, (axis+1)%2)
	ix.build(m+1, right, (axis+1)%2)
}

// sortRange orders [left, right] by the given axis, which puts the
// median at the middle position for the split.
func (ix *Index) sortRange(left, right, axis int) {
	span := ix.idxs[left : right+1]
	sort.Slice(span, func(a, b int) bool {
		pa, pb := ix.points[span[a]], ix.points[span[b]]
		if axis == 0 {
			return pa.X < pb.X
		}
		return pa.Y < pb.Y
	})

	for i := left; i <= right; i++ {
		id := ix.idxs[i]
		ix.coords[2*i] = ix.points[id].X
		ix.coords[2*i+1] = ix.points[id].Y
	}
}

// Within calls handler for every point at most radius away from (qx, qy),
// stopping early when handler returns false.
func (ix *Index) Within(qx, qy, radius float64, handler func(p phenomodel.SamplePoint) bool) {
	if len(ix.idxs) == 0 {
		return
	}

	r2 := radius * radius
	stack := [][3]int{{0, len(ix.idxs) - 1, 0}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		left, right, axis := frame[0], frame[1], frame[2]

		if right-left <= leafSize {
			for i := left; i <= right; i++ {
				if distSquared(ix.coords[2*i], ix.coords[2*i+1], qx, qy) <= r2 {
					if !handler(ix.points[ix.idxs[i]]) {
						return
					}
				}
			}
			continue
		}

		m := (left + right) / 2
		x, y := ix.coords[2*m], ix.coords[2*m+1]
		if distSquared(x, y, qx, qy) <= r2 {
			if !handler(ix.points[ix.idxs[m]]) {
				return
			}
		}

		nextAxis := (axis + 1) % 2
		if (axis == 0 && qx-radius <= x) || (axis != 0 && qy-radius <= y) {
			stack = append(stack, [3]int{left, m - 1, nextAxis})
		}
		if (axis == 0 && qx+radius >= x) || (axis != 0 && qy+radius >= y) {
			stack = append(stack, [3]int{m + 1, right, nextAxis})
		}
	}
}

// Nearest returns the closest sample point within radius of (qx, qy).
func (ix *Index) Nearest(qx, qy, radius float64) (phenomodel.SamplePoint, bool) {
	var best phenomodel.SamplePoint
	bestDist := math.Inf(1)

	ix.Within(qx, qy, radius, func(p phenomodel.SamplePoint) bool {
		d := distSquared(p.X, p.Y, qx, qy)
		if d < bestDist {
			best = p
			bestDist = d
		}
		return true
	})

	if math.IsInf(bestDist, 1) {
		return phenomodel.SamplePoint{}, false
	}
	return best, true
}

func distSquared(x1, y1, x2, y2 float64) float64 {
	d0 := x1 - x2
	d1 := y1 - y2
	return d0*d0 + d1*d1
}
