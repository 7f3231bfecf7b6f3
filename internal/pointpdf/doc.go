// Package pointpdf implements probability distributions over an unknown
// 3D point for use inside Bayesian estimation pipelines.
//
// Three concrete representations are provided: ParticleDist (a weighted
// set of sampled hypotheses), GaussianDist (mean plus 3x3 covariance)
// and SOGDist (a log-weighted sum of Gaussian modes). All three satisfy
// the PointPDF interface and can be mixed as operands to fusion and
// conversion operations.
//
// Key numerical invariant: particle and mode weights are stored as
// natural logarithms and every normalization goes through the
// log-sum-exp (max-shift) trick. Accumulating linear weights directly
// underflows when likelihoods span many orders of magnitude.
//
// No package-level random state exists: every sampling operation draws
// from a source injected at construction, so runs are reproducible.
package pointpdf
