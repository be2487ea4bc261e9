package rcacursor

// LogicalPlan is the sum type spec.md §3 declares: Scan, Join, Filter,
// Aggregate, Project. Each variant carries its own cost estimate; Kind
// distinguishes which fields are meaningful, mirroring the original's enum
// (Go has no sum types, so this is a tagged struct rather than an
// interface — every consumer switches on Kind once, at plan-flattening
// time, instead of scattering type assertions).
type LogicalKind string

const (
	LogicalScan      LogicalKind = "scan"
	LogicalJoin      LogicalKind = "join"
	LogicalFilter    LogicalKind = "filter"
	LogicalAggregate LogicalKind = "aggregate"
	LogicalProject   LogicalKind = "project"
)

// NamedAggregation is one "alias: Kind(column)" aggregation spec.
type NamedAggregation struct {
	Alias  string
	Kind   string // sum, count, count_distinct, avg, min, max
	Column string
}

type LogicalPlan struct {
	Kind LogicalKind
	Cost CostEstimate

	// Scan
	Table           string
	PushdownFilters []string
	Projection      []string

	// Join
	Left        *LogicalPlan
	Right       *LogicalPlan
	JoinType    string // "inner" or "left"
	JoinKeys    []string
	Selectivity float64

	// Filter
	Input *LogicalPlan
	Expr  string

	// Aggregate
	GroupBy      []string
	Aggregations []NamedAggregation

	// Project
	Columns []string
}

// scanCost is a rough, deterministic cost model: larger tables cost more
// to scan, filters reduce estimated output rows by their selectivity, and
// a join estimates the larger of its two inputs' rows. It exists so the execution planner has something to sort
// joins and choose strategies by (spec.md §4.7 step 3), not to predict real
// runtime.
func scanCost(rows int64) CostEstimate {
	return CostEstimate{
		RowsScanned: rows,
		Selectivity: 1.0,
		Cost:        float64(rows),
		MemoryMB:    float64(rows) * 0.001,
		TimeMS:      float64(rows) * 0.01,
	}
}

func filterCost(input CostEstimate, selectivity float64) CostEstimate {
	rows := int64(float64(input.RowsScanned) * selectivity)
	return CostEstimate{
		RowsScanned: rows,
		Selectivity: selectivity,
		Cost:        input.Cost + float64(input.RowsScanned),
		MemoryMB:    input.MemoryMB,
		TimeMS:      input.TimeMS + float64(input.RowsScanned)*0.005,
	}
}

func joinCost(left, right CostEstimate) CostEstimate {
	rows := left.RowsScanned
	if right.RowsScanned > rows {
		rows = right.RowsScanned
	}
	return CostEstimate{
		RowsScanned: rows,
		Selectivity: 1.0,
		Cost:        left.Cost + right.Cost + float64(left.RowsScanned+right.RowsScanned),
		MemoryMB:    left.MemoryMB + right.MemoryMB,
		TimeMS:      left.TimeMS + right.TimeMS + float64(right.RowsScanned)*0.02,
	}
}

func aggregateCost(input CostEstimate, groupBy []string) CostEstimate {
	return CostEstimate{
		RowsScanned: input.RowsScanned,
		Selectivity: input.Selectivity,
		Cost:        input.Cost + float64(input.RowsScanned),
		MemoryMB:    input.MemoryMB,
		TimeMS:      input.TimeMS + float64(input.RowsScanned)*0.01,
	}
}
