package pointpdf

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/banshee-data/pointpdf/internal/fsutil"
	"github.com/banshee-data/pointpdf/internal/geom"
)

func TestNewParticleDistDefaults(t *testing.T) {
	d := NewParticleDist(1, nil)
	if d.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", d.Size())
	}
	pos, logW := d.Particle(0)
	if pos != (geom.Point3D{}) {
		t.Errorf("default particle at %+v, want origin", pos)
	}
	if logW != 0 {
		t.Errorf("default log-weight = %v, want 0", logW)
	}
}

func TestSetSizeReplacesContents(t *testing.T) {
	d := NewParticleDist(1, nil)
	v := geom.Point3D{X: 1, Y: 2, Z: 3}
	d.SetSize(7, v)

	if d.Size() != 7 {
		t.Fatalf("Size() = %d, want 7", d.Size())
	}
	for i := 0; i < d.Size(); i++ {
		pos, logW := d.Particle(i)
		if pos != v {
			t.Errorf("particle %d at %+v, want %+v", i, pos, v)
		}
		if logW != 0 {
			t.Errorf("particle %d log-weight = %v, want 0", i, logW)
		}
	}
}

func TestClear(t *testing.T) {
	d := NewParticleDist(5, nil)
	d.Clear()
	if d.Size() != 0 {
		t.Errorf("Size() after Clear = %d, want 0", d.Size())
	}
	if _, err := d.Mean(); !errors.Is(err, ErrEmptyDistribution) {
		t.Errorf("Mean on cleared dist: err = %v, want ErrEmptyDistribution", err)
	}
}

func TestMeanIgnoresWeightSkewWhenPositionsEqual(t *testing.T) {
	p := geom.Point3D{X: 4, Y: -2, Z: 9}
	d := NewParticleDist(3, nil)
	d.SetSize(3, p)
	d.SetParticle(0, p, -50)
	d.SetParticle(1, p, 0)
	d.SetParticle(2, p, 12)

	mean, err := d.Mean()
	if err != nil {
		t.Fatalf("Mean: %v", err)
	}
	if mean.Sub(p).Norm() > 1e-12 {
		t.Errorf("Mean = %+v, want %+v", mean, p)
	}
}

func TestMeanWeighted(t *testing.T) {
	d := NewParticleDist(2, nil)
	// Weight 3:1 between x=0 and x=4 puts the mean at x=1.
	d.SetParticle(0, geom.Point3D{X: 0}, math.Log(3))
	d.SetParticle(1, geom.Point3D{X: 4}, math.Log(1))

	mean, err := d.Mean()
	if err != nil {
		t.Fatalf("Mean: %v", err)
	}
	if math.Abs(mean.X-1) > 1e-12 || mean.Y != 0 || mean.Z != 0 {
		t.Errorf("Mean = %+v, want (1,0,0)", mean)
	}
}

func TestMeanErrors(t *testing.T) {
	empty := NewParticleDist(0, nil)
	if _, err := empty.Mean(); !errors.Is(err, ErrEmptyDistribution) {
		t.Errorf("empty: err = %v, want ErrEmptyDistribution", err)
	}

	degenerate := NewParticleDist(2, nil)
	degenerate.SetParticle(0, geom.Point3D{}, math.Inf(-1))
	degenerate.SetParticle(1, geom.Point3D{}, math.Inf(-1))
	if _, err := degenerate.Mean(); !errors.Is(err, ErrDegenerateWeights) {
		t.Errorf("all zero weights: err = %v, want ErrDegenerateWeights", err)
	}
}

func TestCovarianceIdenticalParticlesIsZero(t *testing.T) {
	d := NewParticleDist(4, nil)
	d.SetSize(4, geom.Point3D{X: 1, Y: 1, Z: 1})

	cov, _, err := d.CovarianceAndMean()
	if err != nil {
		t.Fatalf("CovarianceAndMean: %v", err)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if cov.At(i, j) != 0 {
				t.Errorf("cov[%d,%d] = %v, want 0", i, j, cov.At(i, j))
			}
		}
	}
}

func TestCovarianceTwoSymmetricParticles(t *testing.T) {
	d := NewParticleDist(2, nil)
	d.SetParticle(0, geom.Point3D{X: 1}, 0)
	d.SetParticle(1, geom.Point3D{X: -1}, 0)

	cov, mean, err := d.CovarianceAndMean()
	if err != nil {
		t.Fatalf("CovarianceAndMean: %v", err)
	}
	if mean.Norm() > 1e-12 {
		t.Errorf("mean = %+v, want origin", mean)
	}
	if math.Abs(cov.At(0, 0)-1) > 1e-12 {
		t.Errorf("cov[0,0] = %v, want 1", cov.At(0, 0))
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == 0 && j == 0 {
				continue
			}
			if cov.At(i, j) != 0 {
				t.Errorf("cov[%d,%d] = %v, want 0", i, j, cov.At(i, j))
			}
		}
	}
}

func TestKurtosisRadialConvention(t *testing.T) {
	// Radii about the mean (2,0,0) are {2,1,3}; weighted central
	// moments give m2=2/3, m4=2/3, so excess kurtosis is 1.5-3 = -1.5.
	d := NewParticleDist(3, nil)
	d.SetParticle(0, geom.Point3D{X: 0}, 0)
	d.SetParticle(1, geom.Point3D{X: 1}, 0)
	d.SetParticle(2, geom.Point3D{X: 5}, 0)

	k, err := d.Kurtosis()
	if err != nil {
		t.Fatalf("Kurtosis: %v", err)
	}
	if math.Abs(k-(-1.5)) > 1e-10 {
		t.Errorf("Kurtosis = %v, want -1.5", k)
	}
}

func TestKurtosisUndefinedCases(t *testing.T) {
	single := NewParticleDist(1, nil)
	if _, err := single.Kurtosis(); !errors.Is(err, ErrDegenerateWeights) {
		t.Errorf("single particle: err = %v, want ErrDegenerateWeights", err)
	}

	// All particles at the same radius from the mean: zero radial
	// variance.
	ring := NewParticleDist(2, nil)
	ring.SetParticle(0, geom.Point3D{X: 1}, 0)
	ring.SetParticle(1, geom.Point3D{X: -1}, 0)
	if _, err := ring.Kurtosis(); !errors.Is(err, ErrDegenerateWeights) {
		t.Errorf("zero radial variance: err = %v, want ErrDegenerateWeights", err)
	}

	empty := NewParticleDist(0, nil)
	if _, err := empty.Kurtosis(); !errors.Is(err, ErrEmptyDistribution) {
		t.Errorf("empty: err = %v, want ErrEmptyDistribution", err)
	}
}

func TestChangeCoordinatesReferenceRoundTrip(t *testing.T) {
	d := NewParticleDist(3, nil)
	original := []geom.Point3D{
		{X: 1, Y: 2, Z: 3},
		{X: -0.5, Y: 0, Z: 4},
		{X: 7, Y: -3, Z: 0.25},
	}
	logWs := []float64{0, -1.5, math.Inf(-1)}
	for i := range original {
		d.SetParticle(i, original[i], logWs[i])
	}

	base := geom.NewPose(2, -1, 0.5, 0.7, -0.2, 1.1)
	d.ChangeCoordinatesReference(base)
	d.ChangeCoordinatesReference(base.Inverse())

	if d.Size() != 3 {
		t.Fatalf("Size changed to %d", d.Size())
	}
	for i := range original {
		pos, logW := d.Particle(i)
		if pos.Sub(original[i]).Norm() > 1e-10 {
			t.Errorf("particle %d: got %+v, want %+v", i, pos, original[i])
		}
		if logW != logWs[i] && !(math.IsInf(logW, -1) && math.IsInf(logWs[i], -1)) {
			t.Errorf("particle %d log-weight changed: %v -> %v", i, logWs[i], logW)
		}
	}
}

func TestDrawSingleSampleDeterministic(t *testing.T) {
	build := func() *ParticleDist {
		d := NewParticleDist(4, rand.NewPCG(42, 7))
		d.SetParticle(0, geom.Point3D{X: 1}, 0)
		d.SetParticle(1, geom.Point3D{X: 2}, -0.3)
		d.SetParticle(2, geom.Point3D{X: 3}, -1)
		d.SetParticle(3, geom.Point3D{X: 4}, -2)
		return d
	}

	a, b := build(), build()
	for i := 0; i < 20; i++ {
		sa, err := a.DrawSingleSample()
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		sb, err := b.DrawSingleSample()
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		if sa != sb {
			t.Fatalf("draw %d diverged: %+v vs %+v", i, sa, sb)
		}
	}
}

func TestDrawSingleSampleDominantWeight(t *testing.T) {
	d := NewParticleDist(2, rand.NewPCG(1, 2))
	want := geom.Point3D{X: 10, Y: 20, Z: 30}
	d.SetParticle(0, want, 0)
	d.SetParticle(1, geom.Point3D{X: -99}, -200) // weight ~ e^-200

	for i := 0; i < 50; i++ {
		got, err := d.DrawSingleSample()
		if err != nil {
			t.Fatalf("DrawSingleSample: %v", err)
		}
		if got != want {
			t.Fatalf("draw %d selected negligible particle: %+v", i, got)
		}
	}
}

func TestDrawSingleSampleEmpty(t *testing.T) {
	d := NewParticleDist(0, nil)
	if _, err := d.DrawSingleSample(); !errors.Is(err, ErrEmptyDistribution) {
		t.Errorf("err = %v, want ErrEmptyDistribution", err)
	}
}

func TestCopyFromParticleDeepCopy(t *testing.T) {
	src := NewParticleDist(2, nil)
	src.SetParticle(0, geom.Point3D{X: 1}, -0.5)
	src.SetParticle(1, geom.Point3D{X: 2}, math.Inf(-1))

	dst := NewParticleDist(0, nil)
	if err := dst.CopyFrom(src); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if dst.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", dst.Size())
	}

	// Mutating the source must not affect the copy.
	src.SetParticle(0, geom.Point3D{X: 99}, 3)
	pos, logW := dst.Particle(0)
	if pos.X != 1 || logW != -0.5 {
		t.Errorf("copy aliased source: pos=%+v logW=%v", pos, logW)
	}
	_, logW = dst.Particle(1)
	if !math.IsInf(logW, -1) {
		t.Errorf("-Inf log-weight not preserved: %v", logW)
	}
}

func TestCopyFromGaussianSamples(t *testing.T) {
	mu := geom.Point3D{X: 5, Y: -3, Z: 2}
	g := NewGaussianDist(mu, nil, rand.NewPCG(3, 4))

	dst := NewParticleDist(0, rand.NewPCG(5, 6))
	if err := dst.CopyFrom(g); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	if dst.Size() != DefaultSampleCount {
		t.Fatalf("Size() = %d, want %d", dst.Size(), DefaultSampleCount)
	}
	for i := 0; i < dst.Size(); i++ {
		_, logW := dst.Particle(i)
		if logW != 0 {
			t.Fatalf("sampled particle %d log-weight = %v, want 0", i, logW)
		}
	}

	mean, err := dst.Mean()
	if err != nil {
		t.Fatalf("Mean: %v", err)
	}
	// Identity covariance, 100 samples: the sample mean should land
	// well within half a unit of the true mean.
	if mean.Sub(mu).Norm() > 0.5 {
		t.Errorf("sampled mean %+v too far from %+v", mean, mu)
	}
}

func TestSaveToTextFileFormat(t *testing.T) {
	d := NewParticleDist(3, nil)
	d.SetSize(3, geom.Point3D{})

	fs := fsutil.NewMemoryFileSystem()
	if err := d.SaveToTextFile(fs, "particles.txt"); err != nil {
		t.Fatalf("SaveToTextFile: %v", err)
	}
	data, err := fs.ReadFile("particles.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "0 0 0 0\n0 0 0 0\n0 0 0 0\n"
	if string(data) != want {
		t.Errorf("text file = %q, want %q", data, want)
	}
}

func TestTextFileRoundTrip(t *testing.T) {
	d := NewParticleDist(3, nil)
	d.SetParticle(0, geom.Point3D{X: 1.25, Y: -2.5, Z: 0.0625}, -0.75)
	d.SetParticle(1, geom.Point3D{X: 1e-12, Y: 3e8, Z: -42}, 0)
	d.SetParticle(2, geom.Point3D{X: 0, Y: 0, Z: 0}, math.Inf(-1))

	fs := fsutil.NewMemoryFileSystem()
	if err := d.SaveToTextFile(fs, "p.txt"); err != nil {
		t.Fatalf("SaveToTextFile: %v", err)
	}

	loaded := NewParticleDist(0, nil)
	if err := loaded.LoadFromTextFile(fs, "p.txt"); err != nil {
		t.Fatalf("LoadFromTextFile: %v", err)
	}
	if loaded.Size() != d.Size() {
		t.Fatalf("Size() = %d, want %d", loaded.Size(), d.Size())
	}
	for i := 0; i < d.Size(); i++ {
		wantPos, wantLogW := d.Particle(i)
		gotPos, gotLogW := loaded.Particle(i)
		if gotPos != wantPos {
			t.Errorf("particle %d position %+v, want %+v", i, gotPos, wantPos)
		}
		if gotLogW != wantLogW && !(math.IsInf(gotLogW, -1) && math.IsInf(wantLogW, -1)) {
			t.Errorf("particle %d log-weight %v, want %v", i, gotLogW, wantLogW)
		}
	}
}

func TestLoadFromTextFileRejectsMalformed(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	if err := fs.WriteFile("bad.txt", []byte("1 2 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	d := NewParticleDist(2, nil)
	if err := d.LoadFromTextFile(fs, "bad.txt"); err == nil {
		t.Fatal("expected error for 3-field line")
	}
	if d.Size() != 2 {
		t.Errorf("failed load modified receiver: Size() = %d, want 2", d.Size())
	}

	if err := fs.WriteFile("naninf.txt", []byte("0 0 0 +Inf\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := d.LoadFromTextFile(fs, "naninf.txt"); err == nil {
		t.Fatal("expected error for +Inf log-weight")
	}
}

func TestUniformEndToEnd(t *testing.T) {
	// setSize(3, origin) with uniform weights: mean is the origin and
	// the text rendering is exactly three "0 0 0 0" lines.
	d := NewParticleDist(0, nil)
	d.SetSize(3, geom.Point3D{})

	mean, err := d.Mean()
	if err != nil {
		t.Fatalf("Mean: %v", err)
	}
	if mean != (geom.Point3D{}) {
		t.Errorf("Mean = %+v, want origin", mean)
	}

	fs := fsutil.NewMemoryFileSystem()
	if err := d.SaveToTextFile(fs, "out.txt"); err != nil {
		t.Fatalf("SaveToTextFile: %v", err)
	}
	data, _ := fs.ReadFile("out.txt")
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	for i, line := range lines {
		if line != "0 0 0 0" {
			t.Errorf("line %d = %q, want %q", i, line, "0 0 0 0")
		}
	}
}

func TestESSUniform(t *testing.T) {
	d := NewParticleDist(8, nil)
	ess, err := d.ESS()
	if err != nil {
		t.Fatalf("ESS: %v", err)
	}
	if math.Abs(ess-8) > 1e-12 {
		t.Errorf("ESS = %v, want 8", ess)
	}
}
