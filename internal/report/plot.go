package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// signaturePalette cycles through distinguishable line colours.
var signaturePalette = []color.RGBA{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
	{R: 148, G: 103, B: 189, A: 255},
	{R: 140, G: 86, B: 75, A: 255},
}

// SaveSignaturePlot writes a PNG line plot of each class's mean value per
// band, the usual way to eyeball class separability before trusting a run.
func SaveSignaturePlot(path string, stats []ClassStats) error {
	if len(stats) == 0 {
		return fmt.Errorf("no class statistics to plot")
	}

	p := plot.New()
	p.Title.Text = "Class spectral signatures"
	p.X.Label.Text = "Band"
	p.Y.Label.Text = "Mean value"
	p.Legend.Top = true

	for i, cs := range stats {
		pts := make(plotter.XYs, len(cs.Bands))
		for b, bs := range cs.Bands {
			pts[b].X = float64(b)
			pts[b].Y = bs.Mean
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("line for class %d: %w", cs.Label, err)
		}
		line.Color = signaturePalette[i%len(signaturePalette)]
		p.Add(line)
		name := cs.Name
		if name == "" {
			name = fmt.Sprintf("class_%d", cs.Label)
		}
		p.Legend.Add(name, line)
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save signature plot %s: %w", path, err)
	}
	return nil
}
