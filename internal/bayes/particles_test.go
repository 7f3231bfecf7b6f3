package bayes

import (
	"errors"
	"math"
	"testing"
)

func TestSetSizeAssignsDefaultAndZeroLogWeight(t *testing.T) {
	var s ParticleSet[float64]
	s.SetSize(5, 3.5)

	if s.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", s.Len())
	}
	for i, p := range s.Particles {
		if p.Data != 3.5 {
			t.Errorf("particle %d data = %v, want 3.5", i, p.Data)
		}
		if p.LogW != 0 {
			t.Errorf("particle %d log-weight = %v, want 0", i, p.LogW)
		}
	}
}

func TestClearReleasesParticles(t *testing.T) {
	var s ParticleSet[int]
	s.SetSize(3, 0)
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", s.Len())
	}
}

func TestNormalizedWeightsUniform(t *testing.T) {
	var s ParticleSet[int]
	s.SetSize(4, 0)

	w, _, err := s.NormalizedWeights()
	if err != nil {
		t.Fatalf("NormalizedWeights: %v", err)
	}
	for i, wi := range w {
		if math.Abs(wi-0.25) > 1e-15 {
			t.Errorf("weight %d = %v, want 0.25", i, wi)
		}
	}
}

func TestNormalizedWeightsExtremeLogRange(t *testing.T) {
	// Log-weights this far apart overflow a naive exp() accumulation;
	// the max-shift normalization must keep them finite.
	var s ParticleSet[int]
	s.SetSize(3, 0)
	s.Particles[0].LogW = 1000
	s.Particles[1].LogW = 999
	s.Particles[2].LogW = -1000

	w, _, err := s.NormalizedWeights()
	if err != nil {
		t.Fatalf("NormalizedWeights: %v", err)
	}
	sum := 0.0
	for i, wi := range w {
		if math.IsNaN(wi) || math.IsInf(wi, 0) {
			t.Fatalf("weight %d is not finite: %v", i, wi)
		}
		sum += wi
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("weights sum to %v, want 1", sum)
	}
	if w[0] < w[1] || w[1] < w[2] {
		t.Errorf("weight ordering lost: %v", w)
	}
}

func TestNormalizedWeightsErrors(t *testing.T) {
	var empty ParticleSet[int]
	if _, _, err := empty.NormalizedWeights(); !errors.Is(err, ErrEmptySet) {
		t.Errorf("empty set: err = %v, want ErrEmptySet", err)
	}

	var degenerate ParticleSet[int]
	degenerate.SetSize(3, 0)
	for i := range degenerate.Particles {
		degenerate.Particles[i].LogW = math.Inf(-1)
	}
	if _, _, err := degenerate.NormalizedWeights(); !errors.Is(err, ErrZeroWeights) {
		t.Errorf("all -Inf: err = %v, want ErrZeroWeights", err)
	}
}

func TestNormalizeLogWeights(t *testing.T) {
	var s ParticleSet[int]
	s.SetSize(2, 0)
	s.Particles[0].LogW = math.Log(3)
	s.Particles[1].LogW = math.Log(1)

	if err := s.NormalizeLogWeights(); err != nil {
		t.Fatalf("NormalizeLogWeights: %v", err)
	}
	if got := math.Exp(s.Particles[0].LogW); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("weight 0 = %v, want 0.75", got)
	}
	if got := math.Exp(s.Particles[1].LogW); math.Abs(got-0.25) > 1e-12 {
		t.Errorf("weight 1 = %v, want 0.25", got)
	}
}

func TestESS(t *testing.T) {
	var s ParticleSet[int]
	s.SetSize(4, 0)
	ess, err := s.ESS()
	if err != nil {
		t.Fatalf("ESS: %v", err)
	}
	if math.Abs(ess-4) > 1e-12 {
		t.Errorf("uniform ESS = %v, want 4", ess)
	}

	// One dominant particle drives ESS toward 1.
	s.Particles[0].LogW = 100
	ess, err = s.ESS()
	if err != nil {
		t.Fatalf("ESS: %v", err)
	}
	if math.Abs(ess-1) > 1e-6 {
		t.Errorf("dominant-particle ESS = %v, want ~1", ess)
	}
}

func TestSubstitute(t *testing.T) {
	var s ParticleSet[string]
	s.Particles = []Particle[string]{
		{LogW: -1, Data: "a"},
		{LogW: -2, Data: "b"},
		{LogW: -3, Data: "c"},
	}
	s.Substitute([]int{2, 2, 0})

	want := []string{"c", "c", "a"}
	if s.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", s.Len(), len(want))
	}
	for i, p := range s.Particles {
		if p.Data != want[i] {
			t.Errorf("particle %d = %q, want %q", i, p.Data, want[i])
		}
		if p.LogW != 0 {
			t.Errorf("particle %d log-weight = %v, want 0", i, p.LogW)
		}
	}
}

func TestLogSumExp(t *testing.T) {
	cases := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, math.Inf(-1)},
		{"all minus inf", []float64{math.Inf(-1), math.Inf(-1)}, math.Inf(-1)},
		{"two equal", []float64{0, 0}, math.Log(2)},
		{"large values", []float64{1000, 1000}, 1000 + math.Log(2)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := LogSumExp(tc.in)
			if math.IsInf(tc.want, -1) {
				if !math.IsInf(got, -1) {
					t.Errorf("LogSumExp = %v, want -Inf", got)
				}
				return
			}
			if math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("LogSumExp = %v, want %v", got, tc.want)
			}
		})
	}
}
