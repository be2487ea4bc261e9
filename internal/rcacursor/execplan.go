package rcacursor

import "time"

// StrategyKind is the chosen physical join strategy.
type StrategyKind string

const (
	StrategyHash       StrategyKind = "hash"
	StrategyBroadcast  StrategyKind = "broadcast"
	StrategyNestedLoop StrategyKind = "nested_loop"
)

// NodeKind distinguishes an ExecutionPlan node's meaning, mirroring
// LogicalKind but flattened (no Project node survives flattening today —
// nothing in the pipeline requests column projection yet).
type NodeKind string

const (
	NodeScan      NodeKind = "scan"
	NodeJoin      NodeKind = "join"
	NodeFilter    NodeKind = "filter"
	NodeAggregate NodeKind = "aggregate"
)

// ExecNode is one flat execution step.
type ExecNode struct {
	Kind NodeKind

	// Scan
	Table           string
	PushdownFilters []string
	SampleFraction  float64 // 0 means no sampling

	// Join
	LeftTable  string
	RightTable string
	JoinKeys   []string
	JoinType   string
	Strategy   StrategyKind

	// Filter
	Expr     string
	Pushdown bool

	// Aggregate
	GroupBy      []string
	Aggregations []string // "alias: Kind(column)"
}

// StopConditions bound how much work an execution plan may perform,
// selected by mode (spec.md §4.7 step 3).
type StopConditions struct {
	MaxRows             int64
	MaxTime             time.Duration
	ConfidenceThreshold float64
	CostBudget          float64
}

func stopConditionsFor(mode Mode) StopConditions {
	switch mode {
	case ModeDeep:
		return StopConditions{MaxRows: 10_000_000, MaxTime: 300 * time.Second, ConfidenceThreshold: 0.95, CostBudget: 1000}
	case ModeForensic:
		return StopConditions{MaxRows: 0, MaxTime: 1800 * time.Second, ConfidenceThreshold: 0, CostBudget: 0}
	default: // Fast
		return StopConditions{MaxRows: 1_000_000, MaxTime: 60 * time.Second, ConfidenceThreshold: 0.8, CostBudget: 100}
	}
}

// smallTableThresholdRows is the row-count below which a join's right side
// is broadcast rather than hash-joined (spec.md §4.7 step 4: "default 10
// MB" translated into the same placeholder row-count model as the
// planner's cost estimates).
const smallTableThresholdRows = 20000

// ExecutionPlan is the flat, ordered sequence the executor interprets.
type ExecutionPlan struct {
	Nodes          []ExecNode
	StopConditions StopConditions
}

// PlanExecution flattens a logical plan into an ExecutionPlan: filters are
// pushed into the nearest scan whose table owns the referenced column,
// joins choose hash vs. broadcast from estimated right-side size
// (nested-loop is never auto-selected, only available when explicitly
// forced), and Fast mode samples 10% at every scan (spec.md §4.7 step 3).
func PlanExecution(logical LogicalPlan, mode Mode, forceNestedLoop bool) ExecutionPlan {
	var nodes []ExecNode
	flatten(&logical, mode, forceNestedLoop, &nodes)
	pushFiltersToScans(nodes)
	return ExecutionPlan{Nodes: nodes, StopConditions: stopConditionsFor(mode)}
}

func flatten(n *LogicalPlan, mode Mode, forceNestedLoop bool, out *[]ExecNode) {
	if n == nil {
		return
	}
	switch n.Kind {
	case LogicalScan:
		sample := 0.0
		if mode == ModeFast {
			sample = 0.10
		}
		*out = append(*out, ExecNode{
			Kind:            NodeScan,
			Table:           n.Table,
			PushdownFilters: append([]string(nil), n.PushdownFilters...),
			SampleFraction:  sample,
		})
	case LogicalJoin:
		flatten(n.Left, mode, forceNestedLoop, out)
		flatten(n.Right, mode, forceNestedLoop, out)
		strategy := StrategyHash
		if forceNestedLoop {
			strategy = StrategyNestedLoop
		} else if n.Right != nil && n.Right.Cost.RowsScanned < smallTableThresholdRows {
			strategy = StrategyBroadcast
		}
		*out = append(*out, ExecNode{
			Kind:       NodeJoin,
			LeftTable:  leafTable(n.Left),
			RightTable: leafTable(n.Right),
			JoinKeys:   n.JoinKeys,
			JoinType:   n.JoinType,
			Strategy:   strategy,
		})
	case LogicalFilter:
		flatten(n.Input, mode, forceNestedLoop, out)
		*out = append(*out, ExecNode{Kind: NodeFilter, Expr: n.Expr})
	case LogicalAggregate:
		flatten(n.Input, mode, forceNestedLoop, out)
		specs := make([]string, 0, len(n.Aggregations))
		for _, a := range n.Aggregations {
			specs = append(specs, a.Alias+": "+a.Kind+"("+a.Column+")")
		}
		*out = append(*out, ExecNode{Kind: NodeAggregate, GroupBy: n.GroupBy, Aggregations: specs})
	}
}

// leafTable returns the base table a join side descends from, used only to
// label the flattened join node for display/trace purposes.
func leafTable(n *LogicalPlan) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case LogicalScan:
		return n.Table
	case LogicalJoin:
		return leafTable(n.Right)
	default:
		return leafTable(n.Input)
	}
}

// pushFiltersToScans copies each filter node's predicate into the nearest
// preceding scan whose table owns the referenced column (spec.md §4.7 step
// 3), matched by a "table.column" prefix in the expression, and marks the
// filter node Pushdown; the Filter node itself stays in the plan and is
// still applied by the executor. Filters that reference no particular
// table's scan are left unmarked.
func pushFiltersToScans(nodes []ExecNode) {
	for i := range nodes {
		if nodes[i].Kind != NodeFilter {
			continue
		}
		table := leadingTable(nodes[i].Expr)
		if table == "" {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			if nodes[j].Kind == NodeScan && nodes[j].Table == table {
				nodes[j].PushdownFilters = append(nodes[j].PushdownFilters, nodes[i].Expr)
				nodes[i].Pushdown = true
				break
			}
		}
	}
}

func leadingTable(expr string) string {
	for i, r := range expr {
		if r == '.' {
			return expr[:i]
		}
		if r == ' ' || r == '(' {
			return ""
		}
	}
	return ""
}
