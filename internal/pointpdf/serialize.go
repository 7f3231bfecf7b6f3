package pointpdf

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/banshee-data/pointpdf/internal/bayes"
	"github.com/banshee-data/pointpdf/internal/geom"
)

// logWeight is a float64 whose JSON form handles -Inf (zero probability
// mass), which plain JSON numbers cannot represent.
type logWeight float64

const logWeightNegInf = `"-inf"`

func (w logWeight) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(w), -1) {
		return []byte(logWeightNegInf), nil
	}
	return json.Marshal(float64(w))
}

func (w *logWeight) UnmarshalJSON(b []byte) error {
	if string(b) == logWeightNegInf {
		*w = logWeight(math.Inf(-1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*w = logWeight(f)
	return nil
}

// schemaParticle is the serialized form of one particle, addressed
// positionally by sequence index.
type schemaParticle struct {
	LogW logWeight `json:"log_w"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
	Z    float64   `json:"z"`
}

// schemaEnvelope is the versioned structured representation of a
// particle distribution. Datatype guards against applying data written
// by a different concrete distribution; Version selects the field
// layout (only SchemaVersion is defined).
type schemaEnvelope struct {
	Datatype  string           `json:"datatype"`
	Version   int              `json:"version"`
	N         uint32           `json:"N"`
	Particles []schemaParticle `json:"particles"`
}

// MarshalJSON serializes the distribution in the versioned structured
// format.
func (d *ParticleDist) MarshalJSON() ([]byte, error) {
	env := schemaEnvelope{
		Datatype:  d.TypeName(),
		Version:   SchemaVersion,
		N:         uint32(d.Size()),
		Particles: make([]schemaParticle, d.Size()),
	}
	for i, p := range d.set.Particles {
		env.Particles[i] = schemaParticle{
			LogW: logWeight(p.LogW),
			X:    p.Data.X,
			Y:    p.Data.Y,
			Z:    p.Data.Z,
		}
	}
	return json.Marshal(env)
}

// UnmarshalJSON replaces the particle set with the serialized contents.
// The incoming datatype must match the receiver's own tag
// (ErrTypeMismatch otherwise) and the version must be a known schema
// version (ErrUnsupportedSchemaVersion otherwise). The receiver is
// unmodified on any failure.
func (d *ParticleDist) UnmarshalJSON(data []byte) error {
	var env schemaEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode particle distribution: %w", err)
	}
	if env.Datatype != d.TypeName() {
		return fmt.Errorf("got datatype %q, want %q: %w", env.Datatype, d.TypeName(), ErrTypeMismatch)
	}

	switch env.Version {
	case 1:
		if int(env.N) != len(env.Particles) {
			return fmt.Errorf("N=%d but %d particles present", env.N, len(env.Particles))
		}
		next := make([]bayes.Particle[geom.Point3D], env.N)
		for i, p := range env.Particles {
			next[i] = bayes.Particle[geom.Point3D]{
				LogW: float64(p.LogW),
				Data: geom.Point3D{X: p.X, Y: p.Y, Z: p.Z},
			}
		}
		d.set.Particles = next
		return nil
	default:
		return fmt.Errorf("version %d: %w", env.Version, ErrUnsupportedSchemaVersion)
	}
}
