package rcacursor

import (
	"fmt"
	"strings"
)

// Narrative renders a short, deterministic human-readable summary of an
// RCAResult, attached to FormattedDisplay (supplemented from
// original_source's core/rca/narrative.rs; spec.md already declares the
// field, the original leaves it unpopulated at this layer).
func Narrative(r RCAResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Reconciliation of %s at grain %s: %d grain units compared, ",
		r.GrainEntity, r.GrainKeyColumn, r.Summary.TotalGrainUnits)
	fmt.Fprintf(&b, "%d missing on the left, %d missing on the right, %d mismatched, %d matched. ",
		r.Summary.MissingLeft, r.Summary.MissingRight, r.Summary.Mismatch, r.Summary.Match)
	fmt.Fprintf(&b, "Aggregate difference: %.4f.", r.Summary.AggregateDifference)

	if r.ReconciliationOK {
		b.WriteString(" Reconciliation passed: row-level attribution fully explains the aggregate discrepancy.")
	} else {
		b.WriteString(" Reconciliation did not pass: row-level attribution does not fully explain the aggregate discrepancy.")
	}

	if len(r.TopDifferences) > 0 {
		top := r.TopDifferences[0]
		fmt.Fprintf(&b, " Largest impact is grain %s (%s, delta %.4f, impact %.4f).",
			top.GrainValue, top.Class, top.Delta, top.Impact)
	}

	fmt.Fprintf(&b, " Confidence: %.2f.", r.Confidence)

	return b.String()
}
