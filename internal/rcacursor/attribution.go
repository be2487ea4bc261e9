package rcacursor

import "math"

// Attribute locates, for each top difference, the contributing row in
// whichever side carries the larger absolute value, and computes its share
// of the total impact (spec.md §4.7 step 6). Every difference gets exactly
// one contributor: for missing_right it is system A's row, for
// missing_left system B's row, and for a mismatch the side with the larger
// absolute value.
func Attribute(diffs []GrainDifference, sysAName, sysBName string, totalImpact float64) []Attribution {
	out := make([]Attribution, 0, len(diffs))
	for _, d := range diffs {
		pct := 0.0
		if totalImpact > 0 {
			pct = d.Impact / totalImpact
		}

		var contributors []RowRef
		switch {
		case d.Class == ClassMissingRight:
			contributors = append(contributors, RowRef{Table: sysAName, RowID: d.GrainValue, Contribution: d.ValueA})
		case d.Class == ClassMissingLeft:
			contributors = append(contributors, RowRef{Table: sysBName, RowID: d.GrainValue, Contribution: d.ValueB})
		case math.Abs(d.ValueB) > math.Abs(d.ValueA):
			contributors = append(contributors, RowRef{Table: sysBName, RowID: d.GrainValue, Contribution: d.ValueB})
		default:
			contributors = append(contributors, RowRef{Table: sysAName, RowID: d.GrainValue, Contribution: d.ValueA})
		}

		out = append(out, Attribution{
			GrainValue:      d.GrainValue,
			Impact:          d.Impact,
			ContributionPct: pct,
			Contributors:    contributors,
			ExplanationGraph: map[string]any{
				"class": string(d.Class),
				"delta": d.Delta,
			},
		})
	}
	return out
}

// TotalImpact sums the impact across diffs, used as Attribute's
// denominator.
func TotalImpact(diffs []GrainDifference) float64 {
	var total float64
	for _, d := range diffs {
		total += d.Impact
	}
	return total
}
