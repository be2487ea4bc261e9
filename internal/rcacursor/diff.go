package rcacursor

import (
	"fmt"
	"math"
	"sort"

	"github.com/veridata-labs/semquery/internal/errtax"
)

// diffTolerance is the absolute tolerance below which two metric values are
// considered equal rather than a mismatch (spec.md §4.7 step 5).
const diffTolerance = 1e-10

// defaultTopK is the default cap on returned differences.
const defaultTopK = 100

// Diff indexes each side's "metric" column by grain value, takes the union
// of both sides' grain values (an outer join on the grain key), classifies
// every grain unit, and returns the top K non-matching differences by
// impact (spec.md §4.7 step 5). Both sides must carry the
// same grain-key column name; a mismatch is fatal.
func Diff(a, b *ExecutionResult, topK int) ([]GrainDifference, Summary, error) {
	if a.GrainKeyColumn != b.GrainKeyColumn {
		return nil, Summary{}, errtax.New(errtax.ExecutionError,
			"diff requires matching grain-key columns, got %q and %q", a.GrainKeyColumn, b.GrainKeyColumn)
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	valuesA := indexByGrain(a)
	valuesB := indexByGrain(b)

	seen := make(map[string]bool, len(valuesA)+len(valuesB))
	var diffs []GrainDifference
	var summary Summary

	classify := func(grain string) {
		if seen[grain] {
			return
		}
		seen[grain] = true

		va, okA := valuesA[grain]
		vb, okB := valuesB[grain]

		d := GrainDifference{GrainValue: grain}
		switch {
		case okA && !okB:
			d.Class = ClassMissingRight
			d.ValueA = va
			summary.MissingRight++
		case !okA && okB:
			d.Class = ClassMissingLeft
			d.ValueB = vb
			summary.MissingLeft++
		default:
			d.ValueA, d.ValueB = va, vb
			if math.Abs(vb-va) <= diffTolerance {
				d.Class = ClassMatch
				summary.Match++
			} else {
				d.Class = ClassMismatch
				summary.Mismatch++
			}
		}
		d.Delta = d.ValueB - d.ValueA
		d.Impact = math.Abs(d.Delta)
		summary.AggregateDifference += d.Delta
		diffs = append(diffs, d)
	}

	for grain := range valuesA {
		classify(grain)
	}
	for grain := range valuesB {
		classify(grain)
	}

	summary.TotalGrainUnits = len(diffs)
	summary.TopK = topK

	sort.Slice(diffs, func(i, j int) bool {
		if diffs[i].Impact != diffs[j].Impact {
			return diffs[i].Impact > diffs[j].Impact
		}
		return diffs[i].GrainValue < diffs[j].GrainValue
	})

	// only the top K are carried forward for attribution, but the summary
	// counts reflect every grain unit, not just the returned slice.
	nonMatches := diffs[:0:0]
	for _, d := range diffs {
		if d.Class != ClassMatch {
			nonMatches = append(nonMatches, d)
		}
	}
	if len(nonMatches) > topK {
		nonMatches = nonMatches[:topK]
	}

	return nonMatches, summary, nil
}

// indexByGrain extracts each row's grain value and "metric" value, keyed
// by the grain value; outer-join null grain keys (a row whose join
// produced a suffixed duplicate grain column rather than the canonical
// one) are recovered by falling back to that suffixed column.
func indexByGrain(r *ExecutionResult) map[string]float64 {
	out := make(map[string]float64, len(r.Rows))
	for _, row := range r.Rows {
		grain := grainValue(row, r.GrainKeyColumn)
		out[grain] = toFloat(row["metric"])
	}
	return out
}

func grainValue(row map[string]any, grainKeyColumn string) string {
	if v, ok := row[grainKeyColumn]; ok && v != nil {
		return fmt.Sprint(v)
	}
	// outer-join duplicate-column fallback
	if v, ok := row[grainKeyColumn+"_a"]; ok && v != nil {
		return fmt.Sprint(v)
	}
	if v, ok := row[grainKeyColumn+"_b"]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}
