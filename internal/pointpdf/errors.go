package pointpdf

import "errors"

// Error kinds reported by distribution operations. All are returned
// synchronously at the point of detection and are matchable with
// errors.Is; callers decide whether to retry with corrected inputs.
var (
	// ErrEmptyDistribution is returned when statistics or sampling are
	// requested on a distribution with zero particles (or zero modes).
	ErrEmptyDistribution = errors.New("empty distribution")

	// ErrDegenerateWeights is returned when every weight is effectively
	// zero after normalization, or when a statistic is undefined for
	// the available support (e.g. kurtosis of a single particle).
	ErrDegenerateWeights = errors.New("degenerate weights")

	// ErrTypeMismatch is returned when deserialized data carries a
	// datatype tag that does not match the receiving distribution.
	ErrTypeMismatch = errors.New("datatype mismatch")

	// ErrUnsupportedSchemaVersion is returned when deserialized data
	// carries an unknown schema version.
	ErrUnsupportedSchemaVersion = errors.New("unsupported schema version")

	// ErrIncompatibleFusionOperands is returned when a fusion or
	// conversion operand cannot be reduced to a usable mean/covariance
	// form (including singular covariance matrices).
	ErrIncompatibleFusionOperands = errors.New("incompatible fusion operands")
)
