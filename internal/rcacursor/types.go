// Package rcacursor implements the grain-driven root-cause engine: given a
// reconciliation task naming two systems and a metric, it builds and
// executes matching logical plans for each side, diffs the results at a
// declared grain, attributes impact to grain units, and scores its own
// confidence (spec.md §4.7, grounded on original_source's
// core/agent/rca_cursor/*.rs).
package rcacursor

import "time"

// Mode bounds how much work a cursor run is allowed to do.
type Mode string

const (
	ModeFast     Mode = "fast"
	ModeDeep     Mode = "deep"
	ModeForensic Mode = "forensic"
)

// GrainPlanStep is one join hop from a task's base entity toward the grain
// key, with the join kind the planner should prefer absent a better
// estimate.
type GrainPlanStep struct {
	Table         string
	Keys          []string
	PreferredJoin string // "inner", "left", or "" to let the planner decide
}

// GrainPlan is a per-side override of how to reach the declared grain from
// the task's base entity; nil means the planner derives the path from the
// semantic registry's join graph instead.
type GrainPlan struct {
	BaseEntity string
	Steps      []GrainPlanStep
}

// SystemDescriptor names one side of a reconciliation: the table to scan,
// the value column the metric reads, the rule(s) that produced the
// reported aggregate, and the formula string that determines the
// aggregation kind (spec.md §4.7 step 2: "sum(…), count(…), avg|mean(…),
// min(…), max(…); otherwise a column reference defaulted to SUM").
type SystemDescriptor struct {
	Name        string
	Table       string
	RuleIDs     []string
	ValueColumn string
	Formula     string
}

// Task is a reconciliation request: a metric compared across two systems
// at a declared grain.
type Task struct {
	MetricName       string
	GrainEntity      string
	GrainKeyColumn   string
	Mode             Mode
	SystemA          SystemDescriptor
	SystemB          SystemDescriptor
	TimeWindowStart  time.Time
	TimeWindowEnd    time.Time
	Filters          []string // raw filter clause text, ANDed in
	GrainPlanA       *GrainPlan
	GrainPlanB       *GrainPlan
	ReportedMismatch float64
	Precision        int // reconciliation tolerance exponent, default 6
}

// CostEstimate is the planner's estimate for one logical-plan node.
type CostEstimate struct {
	RowsScanned int64
	Selectivity float64
	Cost        float64
	MemoryMB    float64
	TimeMS      float64
}

// DiffClass classifies one grain-key row's relationship between the two
// sides' results.
type DiffClass string

const (
	ClassMissingLeft  DiffClass = "missing_left"
	ClassMissingRight DiffClass = "missing_right"
	ClassMismatch     DiffClass = "mismatch"
	ClassMatch        DiffClass = "match"
)

// GrainDifference is one grain unit's comparison between the two sides.
type GrainDifference struct {
	GrainValue string
	Class      DiffClass
	ValueA     float64
	ValueB     float64
	Delta      float64
	Impact     float64
}

// RowRef points at one row of evidence backing an attribution.
type RowRef struct {
	Table        string
	RowID        string
	Contribution float64
}

// Attribution explains one top difference: which row(s) in the
// larger-magnitude side contributed, and what share of the total impact
// this grain unit represents.
type Attribution struct {
	GrainValue       string
	Impact           float64
	ContributionPct  float64
	Contributors     []RowRef
	ExplanationGraph map[string]any
}

// Summary aggregates the diff phase's counts.
type Summary struct {
	TotalGrainUnits     int
	MissingLeft         int
	MissingRight        int
	Mismatch            int
	Match               int
	AggregateDifference float64
	TopK                int
}

// RCAResult is the cursor's final output.
type RCAResult struct {
	GrainEntity      string
	GrainKeyColumn   string
	Summary          Summary
	TopDifferences   []GrainDifference
	Attributions     []Attribution
	Confidence       float64
	LineageGraph     map[string]any
	FormattedDisplay string
	ReconciliationOK bool
	TraceRequestID   string
}
