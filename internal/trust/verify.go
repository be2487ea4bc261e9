package trust

import (
	"fmt"

	"github.com/veridata-labs/semquery/internal/rcacursor"
)

// Check is one named pass/fail verification check.
type Check struct {
	Name    string
	Passes  bool
	Message string
}

// VerificationResult is the outcome of a standalone post-hoc pass over an
// RCAResult (spec.md §4.8).
type VerificationResult struct {
	Passes  bool
	Checks  []Check
	Message string
}

// Verify runs the three checks spec.md §4.8 names over result: the
// reconciliation proof passes; diff counts equal summary counts; and
// component counts (missing_left + missing_right + mismatch + matches)
// equal the total grain units.
func Verify(result rcacursor.RCAResult) VerificationResult {
	checks := []Check{
		verifyReconciliation(result),
		verifyDiffCountsMatchSummary(result),
		verifyComponentCountsSumToTotal(result),
	}

	failed := 0
	for _, c := range checks {
		if !c.Passes {
			failed++
		}
	}

	message := "All verification checks passed"
	if failed > 0 {
		message = fmt.Sprintf("%d of %d checks failed", failed, len(checks))
	}

	return VerificationResult{Passes: failed == 0, Checks: checks, Message: message}
}

func verifyReconciliation(result rcacursor.RCAResult) Check {
	if result.ReconciliationOK {
		return Check{Name: "reconciliation", Passes: true, Message: "aggregate reconciliation proof holds"}
	}
	return Check{Name: "reconciliation", Passes: false, Message: "aggregate reconciliation proof does not hold"}
}

// verifyDiffCountsMatchSummary checks that the returned top-K differences'
// per-class counts equal what the summary reports. When the summary's
// total grain units exceed top_k the returned slice may be truncated, so
// the check passes without comparing.
func verifyDiffCountsMatchSummary(result rcacursor.RCAResult) Check {
	var missingLeft, missingRight, mismatch int
	for _, d := range result.TopDifferences {
		switch d.Class {
		case rcacursor.ClassMissingLeft:
			missingLeft++
		case rcacursor.ClassMissingRight:
			missingRight++
		case rcacursor.ClassMismatch:
			mismatch++
		}
	}

	if result.Summary.TotalGrainUnits > result.Summary.TopK {
		return Check{
			Name: "diff_counts_match_summary", Passes: true,
			Message: "differences truncated to top_k; per-class counts not directly comparable",
		}
	}

	if missingLeft != result.Summary.MissingLeft || missingRight != result.Summary.MissingRight || mismatch != result.Summary.Mismatch {
		return Check{
			Name: "diff_counts_match_summary", Passes: false,
			Message: fmt.Sprintf("summary reports missing_left=%d missing_right=%d mismatch=%d but differences contain %d/%d/%d",
				result.Summary.MissingLeft, result.Summary.MissingRight, result.Summary.Mismatch,
				missingLeft, missingRight, mismatch),
		}
	}
	return Check{Name: "diff_counts_match_summary", Passes: true, Message: "diff counts match summary"}
}

func verifyComponentCountsSumToTotal(result rcacursor.RCAResult) Check {
	sum := result.Summary.MissingLeft + result.Summary.MissingRight + result.Summary.Mismatch + result.Summary.Match
	if sum != result.Summary.TotalGrainUnits {
		return Check{
			Name: "component_counts_sum_to_total", Passes: false,
			Message: fmt.Sprintf("missing_left+missing_right+mismatch+match=%d, want total_grain_units=%d", sum, result.Summary.TotalGrainUnits),
		}
	}
	return Check{Name: "component_counts_sum_to_total", Passes: true, Message: "component counts sum to total"}
}
