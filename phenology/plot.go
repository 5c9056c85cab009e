package phenology

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/verdantlab/phenosample/phenomodel"
)

// RenderFit draws one year of observations together with the fitted
// curve and writes the chart to path (format from the extension).
func RenderFit(path string, ser phenomodel.Series, year int, params Params) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("plot %d %s %d", ser.PointID, ser.Index, year)
	p.X.Label.Text = "day of year"
	p.Y.Label.Text = string(ser.Index)

	var pts plotter.XYs
	for _, o := range ser.Obs {
		if o.Date.Year() != year {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(o.Date.YearDay()), Y: o.Value})
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("building scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(2)

	var curve plotter.XYs
	for t := 1.0; t <= 366; t++ {
		curve = append(curve, plotter.XY{X: t, Y: params.Value(t)})
	}
	line, err := plotter.NewLine(curve)
	if err != nil {
		return fmt.Errorf("building curve line: %w", err)
	}
	line.Color = color.RGBA{R: 20, G: 120, B: 40, A: 255}

	p.Add(plotter.NewGrid(), scatter, line)
	p.Legend.Add("observed", scatter)
	p.Legend.Add("fitted", line)

	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
