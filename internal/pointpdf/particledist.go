package pointpdf

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/pointpdf/internal/bayes"
	"github.com/banshee-data/pointpdf/internal/fsutil"
	"github.com/banshee-data/pointpdf/internal/geom"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// DefaultSampleCount is the particle count used when an operation must
// materialize a particle set and the receiver is currently empty.
const DefaultSampleCount = 100

// textFilePerm is the mode for particle text files written by
// SaveToTextFile.
const textFilePerm os.FileMode = 0o644

// ParticleDist represents the distribution of a 3D point as an ordered
// set of log-weighted position hypotheses. The zero value is not
// usable; construct with NewParticleDist.
type ParticleDist struct {
	set bayes.ParticleSet[geom.Point3D]
	src rand.Source
}

var _ PointPDF = (*ParticleDist)(nil)

// NewParticleDist creates a distribution with n particles at the origin
// and log-weight 0. n = 1 mirrors the conventional default of a single
// particle at the origin; n = 0 yields an uninitialized distribution on
// which statistics fail explicitly. src feeds every sampling operation;
// nil selects a fixed-seed source.
func NewParticleDist(n int, src rand.Source) *ParticleDist {
	if src == nil {
		src = defaultSource()
	}
	d := &ParticleDist{src: src}
	d.SetSize(n, geom.Point3D{})
	return d
}

// TypeName returns the ParticleDist datatype tag.
func (d *ParticleDist) TypeName() string { return ParticleDistTypeName }

// Clear resets the distribution to zero particles, releasing storage.
func (d *ParticleDist) Clear() { d.set.Clear() }

// SetSize discards the current contents and installs n particles at
// position def with log-weight 0 (equal, unnormalized weight).
func (d *ParticleDist) SetSize(n int, def geom.Point3D) {
	d.set.SetSize(n, def)
}

// Size returns the number of particles.
func (d *ParticleDist) Size() int { return d.set.Len() }

// Particle returns the position and log-weight of particle i.
func (d *ParticleDist) Particle(i int) (geom.Point3D, float64) {
	p := d.set.Particles[i]
	return p.Data, p.LogW
}

// SetParticle overwrites the position and log-weight of particle i.
func (d *ParticleDist) SetParticle(i int, pos geom.Point3D, logW float64) {
	d.set.Particles[i] = bayes.Particle[geom.Point3D]{LogW: logW, Data: pos}
}

// ESS returns the effective sample size of the current weights.
func (d *ParticleDist) ESS() (float64, error) {
	ess, err := d.set.ESS()
	if err != nil {
		return 0, wrapWeightErr(err)
	}
	return ess, nil
}

// wrapWeightErr maps container-level weight errors onto the package
// error kinds.
func wrapWeightErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bayes.ErrEmptySet):
		return fmt.Errorf("no particles: %w", ErrEmptyDistribution)
	case errors.Is(err, bayes.ErrZeroWeights):
		return fmt.Errorf("normalization undefined: %w", ErrDegenerateWeights)
	default:
		return err
	}
}

// Mean returns the normalized-weight mean position
// Σ w_i·p_i with w_i derived via log-sum-exp normalization.
func (d *ParticleDist) Mean() (geom.Point3D, error) {
	w, _, err := d.set.NormalizedWeights()
	if err != nil {
		return geom.Point3D{}, wrapWeightErr(err)
	}
	var mean geom.Point3D
	for i, p := range d.set.Particles {
		mean = mean.Add(p.Data.Scale(w[i]))
	}
	return mean, nil
}

// CovarianceAndMean returns the weighted sample covariance
// Σ w_i·(p_i − mean)(p_i − mean)ᵗ together with the mean. The result is
// symmetrized (averaged with its transpose) to cancel accumulation
// round-off before it is returned.
func (d *ParticleDist) CovarianceAndMean() (*mat.SymDense, geom.Point3D, error) {
	w, _, err := d.set.NormalizedWeights()
	if err != nil {
		return nil, geom.Point3D{}, wrapWeightErr(err)
	}
	var mean geom.Point3D
	for i, p := range d.set.Particles {
		mean = mean.Add(p.Data.Scale(w[i]))
	}

	var c [3][3]float64
	for i, p := range d.set.Particles {
		dv := p.Data.Sub(mean)
		v := [3]float64{dv.X, dv.Y, dv.Z}
		for r := 0; r < 3; r++ {
			for q := 0; q < 3; q++ {
				c[r][q] += w[i] * v[r] * v[q]
			}
		}
	}

	cov := mat.NewSymDense(3, nil)
	for r := 0; r < 3; r++ {
		for q := r; q < 3; q++ {
			cov.SetSym(r, q, 0.5*(c[r][q]+c[q][r]))
		}
	}
	return cov, mean, nil
}

// Kurtosis returns the weighted radial excess kurtosis of the particle
// set: with r_i = ‖p_i − mean‖ and weighted central moments
// m_k = Σ w_i·(r_i − r̄)^k, the result is m4/m2² − 3. The convention is
// radial (one scalar for the whole cloud, not per-axis) and excess
// (zero for a Gaussian radius profile). Undefined, and reported as
// degenerate, for fewer than two particles or when the radial variance
// is zero.
func (d *ParticleDist) Kurtosis() (float64, error) {
	w, _, err := d.set.NormalizedWeights()
	if err != nil {
		return 0, wrapWeightErr(err)
	}
	if d.set.Len() < 2 {
		return 0, fmt.Errorf("kurtosis undefined for %d particle(s): %w", d.set.Len(), ErrDegenerateWeights)
	}

	var mean geom.Point3D
	for i, p := range d.set.Particles {
		mean = mean.Add(p.Data.Scale(w[i]))
	}

	radii := make([]float64, d.set.Len())
	rBar := 0.0
	for i, p := range d.set.Particles {
		radii[i] = p.Data.Sub(mean).Norm()
		rBar += w[i] * radii[i]
	}

	var m2, m4 float64
	for i, r := range radii {
		dr := r - rBar
		dr2 := dr * dr
		m2 += w[i] * dr2
		m4 += w[i] * dr2 * dr2
	}
	if m2 <= 0 {
		return 0, fmt.Errorf("kurtosis undefined for zero radial variance: %w", ErrDegenerateWeights)
	}
	return m4/(m2*m2) - 3, nil
}

// ChangeCoordinatesReference re-expresses every particle position under
// the new reference frame: this = base ⊕ this. The transform is exact
// (no resampling); particle count and log-weights are unchanged.
func (d *ParticleDist) ChangeCoordinatesReference(base geom.Pose3D) {
	for i := range d.set.Particles {
		d.set.Particles[i].Data = base.Apply(d.set.Particles[i].Data)
	}
}

// DrawSingleSample selects one particle index with probability
// proportional to its normalized weight and returns that particle's
// position exactly (a discrete draw; no jitter is added). Deterministic
// given a fixed source and particle set.
func (d *ParticleDist) DrawSingleSample() (geom.Point3D, error) {
	w, _, err := d.set.NormalizedWeights()
	if err != nil {
		return geom.Point3D{}, wrapWeightErr(err)
	}
	sampler := sampleuv.NewWeighted(w, d.src)
	idx, ok := sampler.Take()
	if !ok {
		return geom.Point3D{}, fmt.Errorf("weighted draw failed: %w", ErrDegenerateWeights)
	}
	return d.set.Particles[idx].Data, nil
}

// CopyFrom replaces the particle set with a conversion of other. A
// particle-form source is deep-copied (weights preserved); any other
// source is reduced to mean/covariance form and sampled N times at
// uniform log-weight 0, where N is the current size or
// DefaultSampleCount when empty. The receiver is unmodified on failure.
func (d *ParticleDist) CopyFrom(other PointPDF) error {
	if o, ok := other.(*ParticleDist); ok {
		next := make([]bayes.Particle[geom.Point3D], len(o.set.Particles))
		copy(next, o.set.Particles)
		d.set.Particles = next
		return nil
	}

	cov, mean, err := other.CovarianceAndMean()
	if err != nil {
		return fmt.Errorf("reduce %s for copy: %w", other.TypeName(), err)
	}
	n := d.Size()
	if n == 0 {
		n = DefaultSampleCount
	}
	next, err := sampleGaussianParticles(mean, cov, n, d.src)
	if err != nil {
		return err
	}
	d.set.Particles = next
	return nil
}

// SaveToTextFile writes one line per particle, "X Y Z LOG_W" with
// whitespace-separated fields, truncating any previous contents. The
// buffer is assembled fully before a single write, so on error no
// partial file is left behind by this layer.
func (d *ParticleDist) SaveToTextFile(fs fsutil.FileSystem, path string) error {
	var buf bytes.Buffer
	for _, p := range d.set.Particles {
		buf.WriteString(formatFloat(p.Data.X))
		buf.WriteByte(' ')
		buf.WriteString(formatFloat(p.Data.Y))
		buf.WriteByte(' ')
		buf.WriteString(formatFloat(p.Data.Z))
		buf.WriteByte(' ')
		buf.WriteString(formatFloat(p.LogW))
		buf.WriteByte('\n')
	}
	if err := fs.WriteFile(path, buf.Bytes(), textFilePerm); err != nil {
		return fmt.Errorf("save particles to %s: %w", path, err)
	}
	return nil
}

// LoadFromTextFile replaces the particle set with the contents of a
// text file in SaveToTextFile's format. Blank lines are skipped. The
// receiver is unmodified on failure.
func (d *ParticleDist) LoadFromTextFile(fs fsutil.FileSystem, path string) error {
	data, err := fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load particles from %s: %w", path, err)
	}

	var next []bayes.Particle[geom.Point3D]
	for lineNo, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 4 {
			return fmt.Errorf("%s:%d: expected 4 fields, got %d", path, lineNo+1, len(fields))
		}
		var vals [4]float64
		for i, f := range fields {
			vals[i], err = strconv.ParseFloat(f, 64)
			if err != nil {
				return fmt.Errorf("%s:%d: field %d: %w", path, lineNo+1, i+1, err)
			}
		}
		if math.IsNaN(vals[3]) || math.IsInf(vals[3], 1) {
			return fmt.Errorf("%s:%d: log-weight must be finite or -Inf, got %v", path, lineNo+1, vals[3])
		}
		pos := geom.Point3D{X: vals[0], Y: vals[1], Z: vals[2]}
		if !pos.IsFinite() {
			return fmt.Errorf("%s:%d: position must be finite, got %v %v %v", path, lineNo+1, pos.X, pos.Y, pos.Z)
		}
		next = append(next, bayes.Particle[geom.Point3D]{
			LogW: vals[3],
			Data: pos,
		})
	}
	d.set.Particles = next
	return nil
}

// formatFloat renders v with the shortest representation that
// round-trips exactly through ParseFloat.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
