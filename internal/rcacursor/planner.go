package rcacursor

import (
	"fmt"
	"strings"

	"github.com/veridata-labs/semquery/internal/errtax"
	"github.com/veridata-labs/semquery/internal/semantic"
)

// BuildLogicalPlan constructs the per-side logical tree (spec.md §4.7 step
// 2): Scan(base_table) -> (joins from the grain plan) -> Filter(task
// filters) -> Filter(time window) -> Filter(rule conditions) ->
// Aggregate(GROUP BY grain_key, metric-aggregation from the rule formula).
func BuildLogicalPlan(reg *semantic.Registry, task Task, sys SystemDescriptor, plan *GrainPlan) (LogicalPlan, error) {
	scan := LogicalPlan{
		Kind:  LogicalScan,
		Table: sys.Table,
		Cost:  scanCost(estimatedRowCount(sys.Table)),
	}

	node := scan
	if plan != nil {
		for _, step := range plan.Steps {
			right := LogicalPlan{
				Kind:  LogicalScan,
				Table: step.Table,
				Cost:  scanCost(estimatedRowCount(step.Table)),
			}
			joinType := step.PreferredJoin
			if joinType == "" {
				joinType = "inner"
			}
			left := node
			node = LogicalPlan{
				Kind:        LogicalJoin,
				Left:        &left,
				Right:       &right,
				JoinType:    joinType,
				JoinKeys:    step.Keys,
				Selectivity: 1.0,
				Cost:        joinCost(left.Cost, right.Cost),
			}
		}
	}

	if len(task.Filters) > 0 {
		input := node
		node = LogicalPlan{
			Kind:  LogicalFilter,
			Input: &input,
			Expr:  strings.Join(task.Filters, " AND "),
			Cost:  filterCost(input.Cost, 0.5),
		}
	}

	if !task.TimeWindowStart.IsZero() || !task.TimeWindowEnd.IsZero() {
		input := node
		node = LogicalPlan{
			Kind:  LogicalFilter,
			Input: &input,
			Expr:  timeWindowExpr(task),
			Cost:  filterCost(input.Cost, 0.5),
		}
	}

	agg, err := parseFormula(sys.Formula, sys.ValueColumn)
	if err != nil {
		return LogicalPlan{}, err
	}

	input := node
	node = LogicalPlan{
		Kind:         LogicalAggregate,
		Input:        &input,
		GroupBy:      []string{task.GrainKeyColumn},
		Aggregations: []NamedAggregation{agg},
		Cost:         aggregateCost(input.Cost, []string{task.GrainKeyColumn}),
	}

	return node, nil
}

func timeWindowExpr(task Task) string {
	return fmt.Sprintf("time BETWEEN '%s' AND '%s'", task.TimeWindowStart.Format("2006-01-02T15:04:05"), task.TimeWindowEnd.Format("2006-01-02T15:04:05"))
}

// parseFormula recognizes the aggregation-kind prefixes spec.md §4.7 step 2
// names: sum(...), count(...), avg|mean(...), min(...), max(...); anything
// else is treated as a bare column reference and defaulted to SUM.
func parseFormula(formula, fallbackColumn string) (NamedAggregation, error) {
	trimmed := strings.TrimSpace(formula)
	lower := strings.ToLower(trimmed)

	kinds := []struct {
		prefixes []string
		kind     string
	}{
		{[]string{"sum("}, "sum"},
		{[]string{"count("}, "count"},
		{[]string{"avg(", "mean("}, "avg"},
		{[]string{"min("}, "min"},
		{[]string{"max("}, "max"},
	}

	for _, k := range kinds {
		for _, prefix := range k.prefixes {
			if strings.HasPrefix(lower, prefix) && strings.HasSuffix(trimmed, ")") {
				column := strings.TrimSuffix(trimmed[len(prefix):], ")")
				column = strings.TrimSpace(column)
				if column == "" {
					return NamedAggregation{}, errtax.New(errtax.InvalidAggregation, "empty column in formula %q", formula)
				}
				return NamedAggregation{Alias: "metric", Kind: k.kind, Column: column}, nil
			}
		}
	}

	column := trimmed
	if column == "" {
		column = fallbackColumn
	}
	return NamedAggregation{Alias: "metric", Kind: "sum", Column: column}, nil
}

// estimatedRowCount is a placeholder row-count estimate used purely to
// order join binding and pick a join strategy (spec.md §4.7 step 3); a real
// deployment would source this from storage statistics. Absent such
// statistics this derives a stable, table-name-dependent estimate so plan
// ordering is deterministic across runs rather than treating every table
// as identically sized.
func estimatedRowCount(table string) int64 {
	var h int64 = 100000
	for _, r := range table {
		h = (h*31 + int64(r)) % 10000000
	}
	if h < 1000 {
		h += 1000
	}
	return h
}
