// Package semantic holds the semantic registry: metrics, dimensions, and
// the join graph implicit in dimension join paths. Entries are created at
// load and immutable thereafter (spec.md §3, lifecycle).
package semantic

import "strings"

// Aggregation is the kind of aggregation a metric applies to its rows.
type Aggregation string

const (
	AggSum            Aggregation = "sum"
	AggAvg            Aggregation = "avg"
	AggCount          Aggregation = "count"
	AggCountDistinct  Aggregation = "count_distinct"
	AggMin            Aggregation = "min"
	AggMax            Aggregation = "max"
)

// Additive reports whether the aggregation sums row contributions, and is
// therefore vulnerable to row duplication under 1:n / n:n joins (spec.md
// §3 invariant: aggregation ∈ {sum, count, count_distinct} ⇒ additive).
func (a Aggregation) Additive() bool {
	switch a {
	case AggSum, AggCount, AggCountDistinct:
		return true
	default:
		return false
	}
}

// TimeGrain is the required time grain a metric must be interpreted at.
type TimeGrain string

const (
	GrainNone    TimeGrain = "none"
	GrainDay     TimeGrain = "day"
	GrainWeek    TimeGrain = "week"
	GrainMonth   TimeGrain = "month"
	GrainQuarter TimeGrain = "quarter"
	GrainYear    TimeGrain = "year"
)

// Cardinality of a join edge.
type Cardinality string

const (
	OneToOne   Cardinality = "1:1"
	ManyToOne  Cardinality = "n:1"
	OneToMany  Cardinality = "1:n"
	ManyToMany Cardinality = "n:n"
)

// JoinEdge is one hop in a dimension's join path from a metric's base
// table toward the dimension's base table.
type JoinEdge struct {
	FromTable   string
	ToTable     string
	On          string // raw ON predicate text, e.g. "orders.customer_id = customers.id"
	Cardinality Cardinality
	Optional    bool
	FanOutSafe  bool
}

// key identifies an edge for deduplication: (from_table, to_table, ON).
func (e JoinEdge) key() string {
	return e.FromTable + "\x00" + e.ToTable + "\x00" + e.On
}

// NormalizeFanOutSafe fills in FanOutSafe's default: true iff cardinality
// is 1:1 or n:1 (spec.md §3 invariant).
func (e JoinEdge) NormalizeFanOutSafe(explicit *bool) JoinEdge {
	if explicit != nil {
		e.FanOutSafe = *explicit
		return e
	}
	e.FanOutSafe = e.Cardinality == OneToOne || e.Cardinality == ManyToOne
	return e
}

// AccessPolicy restricts who may query a metric and at what scale.
type AccessPolicy struct {
	AllowedRoles  []string
	MaxWindowDays int
	RowCap        int
	MaxDimensions int
}

// Metric is a stable, named, pre-declared quantity.
type Metric struct {
	Name              string
	Description       string
	BaseTable         string
	Aggregation       Aggregation
	Grain             TimeGrain
	SQLExpression     string
	AllowedDimensions []string
	RequiredFilters   []string // raw filter clause text, ANDed in unconditionally
	Policy            *AccessPolicy
}

// Additive reports whether this metric's aggregation is additive.
func (m Metric) Additive() bool { return m.Aggregation.Additive() }

// AllowsDimension reports whether name is in the metric's allow-list.
func (m Metric) AllowsDimension(name string) bool {
	for _, d := range m.AllowedDimensions {
		if strings.EqualFold(d, name) {
			return true
		}
	}
	return false
}

// DataType of a dimension's underlying column.
type DataType string

const (
	TypeString  DataType = "string"
	TypeInt     DataType = "int"
	TypeDecimal DataType = "decimal"
	TypeDate    DataType = "date"
	TypeBool    DataType = "bool"
	TypeEnum    DataType = "enum"
)

// Dimension is a stable, named attribute reachable from a metric's base
// table via an ordered join path.
type Dimension struct {
	Name          string
	Description   string
	BaseTable     string
	Column        string
	DataType      DataType
	JoinPath      []JoinEdge
	SQLExpression string // if set, replaces the bare table.column reference
}

// Expression returns the SQL fragment identifying this dimension's value:
// its SQL expression if present, otherwise "table.column".
func (d Dimension) Expression() string {
	if d.SQLExpression != "" {
		return d.SQLExpression
	}
	return d.BaseTable + "." + d.Column
}
