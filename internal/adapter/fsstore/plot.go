package fsstore

import (
	"fmt"
	"image/color"

	"github.com/couchcryptid/glof-hydrograph/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// renderPlot draws discharge against time and saves it; the format follows
// the file extension.
func renderPlot(h domain.Hydrograph, opts PlotOptions, path string) error {
	p := plot.New()
	p.Title.Text = h.Title()
	p.X.Label.Text = "Time (in seconds)"
	p.Y.Label.Text = "Discharge (in m³/s)"
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(h.Samples))
	for i, s := range h.Samples {
		xys[i].X = s.T
		xys[i].Y = s.Q
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("build hydrograph line: %w", err)
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(line)

	if err := p.Save(vg.Length(opts.Width)*vg.Inch, vg.Length(opts.Height)*vg.Inch, path); err != nil {
		return fmt.Errorf("save hydrograph plot: %w", err)
	}
	return nil
}
