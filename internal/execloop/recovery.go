package execloop

import (
	"fmt"
	"strings"

	"github.com/veridata-labs/semquery/internal/errtax"
	"github.com/veridata-labs/semquery/internal/intent"
	"github.com/veridata-labs/semquery/internal/semantic"
)

// buildRecoveryPrompt turns a taxonomy-classified failure into instructions
// the LLM can act on for its next attempt, grounded on the original
// engine's error_recovery.rs per-class prompt text.
func buildRecoveryPrompt(reg *semantic.Registry, class errtax.Class, prev intent.SemanticSQLIntent, attempt int) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("RETRY ATTEMPT %d: your previous intent failed with the following error.", attempt))

	switch class {
	case errtax.MetricNotFound:
		parts = append(parts, "The metric you referenced does not exist in the semantic registry.")
		parts = append(parts, fmt.Sprintf("Available metrics: %s", strings.Join(reg.ListMetrics(), ", ")))
		parts = append(parts, "Please regenerate the intent using only valid metric names.")
	case errtax.DimensionNotAllowed:
		parts = append(parts, "One or more dimensions you specified are not allowed for the selected metric(s).")
		if len(prev.Metrics) > 0 {
			if m, ok := reg.Metric(prev.Metrics[0]); ok {
				parts = append(parts, fmt.Sprintf("For metric %q, allowed dimensions are: %s", prev.Metrics[0], strings.Join(m.AllowedDimensions, ", ")))
			}
		}
		parts = append(parts, "Please adjust the dimensions in your intent.")
	case errtax.DimensionNotFound:
		parts = append(parts, "A dimension referenced in your intent does not exist.")
		parts = append(parts, fmt.Sprintf("Available dimensions: %s", strings.Join(reg.ListDimensions(), ", ")))
	case errtax.ColumnNotFound:
		parts = append(parts, "A column referenced in your intent does not exist. Please review the schema and use only valid column names.")
	case errtax.TableNotFound:
		parts = append(parts, "A table referenced in your intent does not exist. Please review the available tables and regenerate the intent.")
	case errtax.AmbiguousColumn:
		parts = append(parts, "A column reference is ambiguous. Please specify the table name along with the column name.")
	case errtax.InvalidAggregation:
		parts = append(parts, "The aggregation function you specified is invalid for this metric. Use the metric's defined aggregation type.")
	case errtax.TimeGrainMismatch:
		parts = append(parts, "The time grain you specified does not match the metric's required grain.")
		if len(prev.Metrics) > 0 {
			if m, ok := reg.Metric(prev.Metrics[0]); ok {
				parts = append(parts, fmt.Sprintf("Metric %q requires time grain: %s", prev.Metrics[0], m.Grain))
			}
		}
	case errtax.JoinPathFailure:
		parts = append(parts, "The join path from the metric's base table to the requested dimensions cannot be resolved.")
		parts = append(parts, "Use only dimensions that have valid join paths from the metric's base table.")
	default:
		parts = append(parts, "Please review your intent and fix any issues.")
	}

	parts = append(parts, "\nPrevious intent summary:")
	parts = append(parts, fmt.Sprintf("Metrics: %v", prev.Metrics))
	parts = append(parts, fmt.Sprintf("Dimensions: %v", prev.Dimensions))
	if len(prev.Filters) > 0 {
		parts = append(parts, fmt.Sprintf("Filters: %v", prev.Filters))
	}
	parts = append(parts, "\nPlease regenerate the intent with the corrections above.")

	return strings.Join(parts, "\n")
}
