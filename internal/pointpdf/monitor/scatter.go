// Package monitor renders particle clouds for visual inspection. It is
// pure visualization: nothing here mutates distribution state.
package monitor

import (
	"fmt"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/pointpdf/internal/pointpdf"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Plane selects which two coordinates a scatter plot projects onto.
type Plane int

const (
	PlaneXY Plane = iota
	PlaneXZ
)

// pointRadius bounds for weight-scaled glyphs.
const (
	minPointRadius = 1.0 // vg points
	maxPointRadius = 6.0
)

// ScatterPlotter renders weighted particle clouds to PNG files.
type ScatterPlotter struct {
	outputDir string
}

// NewScatterPlotter creates a plotter writing into outputDir, creating
// the directory if needed.
func NewScatterPlotter(outputDir string) (*ScatterPlotter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &ScatterPlotter{outputDir: outputDir}, nil
}

// weightedXYs projects the particles of d onto the requested plane and
// returns the points together with per-point radii scaled by normalized
// weight.
func weightedXYs(d *pointpdf.ParticleDist, plane Plane) (plotter.XYs, []vg.Length, error) {
	n := d.Size()
	if n == 0 {
		return nil, nil, pointpdf.ErrEmptyDistribution
	}

	// Max-shift the log-weights before exponentiating, same trick the
	// statistics paths use.
	maxLogW := math.Inf(-1)
	for i := 0; i < n; i++ {
		_, lw := d.Particle(i)
		if lw > maxLogW {
			maxLogW = lw
		}
	}
	if math.IsInf(maxLogW, -1) {
		return nil, nil, pointpdf.ErrDegenerateWeights
	}

	pts := make(plotter.XYs, n)
	radii := make([]vg.Length, n)
	sum := 0.0
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		pos, lw := d.Particle(i)
		switch plane {
		case PlaneXZ:
			pts[i] = plotter.XY{X: pos.X, Y: pos.Z}
		default:
			pts[i] = plotter.XY{X: pos.X, Y: pos.Y}
		}
		w[i] = math.Exp(lw - maxLogW)
		sum += w[i]
	}
	if sum <= 0 {
		return nil, nil, pointpdf.ErrDegenerateWeights
	}
	maxW := 0.0
	for i := range w {
		w[i] /= sum
		if w[i] > maxW {
			maxW = w[i]
		}
	}
	for i := range w {
		frac := w[i] / maxW
		radii[i] = vg.Points(minPointRadius + frac*(maxPointRadius-minPointRadius))
	}
	return pts, radii, nil
}

// Plot writes a scatter plot of d projected onto plane, returning the
// path of the written PNG.
func (sp *ScatterPlotter) Plot(d *pointpdf.ParticleDist, plane Plane, name string) (string, error) {
	pts, radii, err := weightedXYs(d, plane)
	if err != nil {
		return "", err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Particle cloud: %s", name)
	p.X.Label.Text = "X (m)"
	switch plane {
	case PlaneXZ:
		p.Y.Label.Text = "Z (m)"
	default:
		p.Y.Label.Text = "Y (m)"
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return "", fmt.Errorf("build scatter: %w", err)
	}
	scatter.GlyphStyleFunc = func(i int) (s draw.GlyphStyle) {
		s = scatter.GlyphStyle
		s.Radius = radii[i]
		return s
	}
	scatter.GlyphStyle.Color = color.RGBA{R: 30, G: 90, B: 200, A: 255}
	p.Add(scatter)

	suffix := "xy"
	if plane == PlaneXZ {
		suffix = "xz"
	}
	outFile := filepath.Join(sp.outputDir, fmt.Sprintf("%s_%s.png", name, suffix))
	if err := p.Save(8*vg.Inch, 8*vg.Inch, outFile); err != nil {
		return "", fmt.Errorf("save plot: %w", err)
	}
	log.Printf("monitor: wrote %d-particle scatter to %s", d.Size(), outFile)
	return outFile, nil
}
