// Package trust implements the reconciliation proof, evidence store,
// replay, and post-hoc verification layer around an RcaCursor result
// (spec.md §4.8, grounded on original_source's core/engine/
// aggregate_reconcile.rs and core/trust/{replay,verification}.rs).
package trust

import "github.com/veridata-labs/semquery/internal/rcacursor"

// Reconciliation is the outcome of independently recomputing the aggregate
// mismatch from an RCAResult's own diff classification and comparing it to
// the reported discrepancy (spec.md §4.8).
type Reconciliation struct {
	Passes           bool
	Computed         float64
	ReportedMismatch float64
	Tolerance        float64
}

// Reconcile recomputes the mismatch with the same formula as
// rcacursor.Reconciles and returns the computed value alongside the
// pass/fail outcome, so callers (evidence records, post-hoc verification)
// can report the discrepancy rather than only a boolean.
func Reconcile(result rcacursor.RCAResult, reportedMismatch float64, precision int) Reconciliation {
	if precision <= 0 {
		precision = 6
	}
	computed := computeMismatch(result.TopDifferences)
	tolerance := tolerance(precision)
	gap := computed - reportedMismatch
	if gap < 0 {
		gap = -gap
	}
	return Reconciliation{
		Passes:           gap <= tolerance,
		Computed:         computed,
		ReportedMismatch: reportedMismatch,
		Tolerance:        tolerance,
	}
}

func computeMismatch(diffs []rcacursor.GrainDifference) float64 {
	var total float64
	for _, d := range diffs {
		switch d.Class {
		case rcacursor.ClassMissingLeft:
			total += d.ValueB
		case rcacursor.ClassMissingRight:
			total -= d.ValueA
		case rcacursor.ClassMismatch:
			total += d.ValueA - d.ValueB
		}
	}
	return total
}

func tolerance(precision int) float64 {
	t := 1.0
	for i := 0; i < precision; i++ {
		t /= 10
	}
	return t
}
