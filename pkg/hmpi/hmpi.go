// Package hmpi computes the Heavy Metal Pollution Index of a water sample
// and classifies it into a risk band.
package hmpi

import "github.com/aquasafe/aquasafe/pkg/models"

// Weights per mg/L. They track the ratio of regulatory limits: cadmium's
// limit is roughly 100x lower than copper's, so it weighs 100x more.
// Existing classification bands depend on these exact values.
const (
	WeightCu = 10.0
	WeightPb = 100.0
	WeightCd = 1000.0
	WeightZn = 5.0
)

// Band edges. Each edge belongs to the higher band.
const (
	MarginalThreshold = 50.0
	HighThreshold     = 100.0
)

// ComputeIndex returns the weighted sum of the four metal concentrations.
// Inputs are expected to be non-negative; callers validate before calling.
func ComputeIndex(cu, pb, cd, zn float64) float64 {
	return cu*WeightCu + pb*WeightPb + cd*WeightCd + zn*WeightZn
}

// Classify maps an index value to its risk band
func Classify(index float64) models.Status {
	switch {
	case index < MarginalThreshold:
		return models.StatusSafe
	case index < HighThreshold:
		return models.StatusMarginal
	default:
		return models.StatusHigh
	}
}

// Score computes the index and band for a set of concentrations
func Score(m models.MetalConcentrations) (float64, models.Status) {
	index := ComputeIndex(m.Cu, m.Pb, m.Cd, m.Zn)
	return index, Classify(index)
}
