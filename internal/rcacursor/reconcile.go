package rcacursor

import "math"

// Reconciles independently recomputes the aggregate mismatch from the diff
// phase's own row-level classification and compares it against the
// reported mismatch within a precision-derived tolerance (spec.md §4.8):
//
//	Σ(missing_left.metric) − Σ(missing_right.metric) + Σ(left−right over mismatches)
//
// equal to the reported aggregate discrepancy proves the attribution
// explains it. precision is the tolerance exponent (10^-precision);
// precision <= 0 defaults to 6.
func Reconciles(summary Summary, diffs []GrainDifference, reportedMismatch float64, precision int) bool {
	if precision <= 0 {
		precision = 6
	}
	tolerance := math.Pow(10, float64(-precision))

	var computed float64
	for _, d := range diffs {
		switch d.Class {
		case ClassMissingLeft:
			computed += d.ValueB
		case ClassMissingRight:
			computed -= d.ValueA
		case ClassMismatch:
			computed += d.ValueA - d.ValueB
		}
	}

	return math.Abs(computed-reportedMismatch) <= tolerance
}
