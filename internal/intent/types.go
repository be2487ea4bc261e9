// Package intent defines the typed semantic SQL intent and validates it
// against the semantic registry before compilation (spec.md §4.3).
package intent

// Usage governs join-type choice for a dimension within an intent
// (spec.md §3, Dimension intent).
type Usage string

const (
	UsageFilter Usage = "filter"
	UsageSelect Usage = "select"
	UsageBoth   Usage = "both"
)

// DimensionIntent declares how a dimension participates in a query.
type DimensionIntent struct {
	Name  string `json:"name"`
	Usage Usage  `json:"usage"`
}

// Operator is a supported filter operator (spec.md §4.4 step 5).
type Operator string

const (
	OpEq        Operator = "="
	OpNeq       Operator = "!="
	OpGt        Operator = ">"
	OpLt        Operator = "<"
	OpGte       Operator = ">="
	OpLte       Operator = "<="
	OpIn        Operator = "IN"
	OpNotIn     Operator = "NOT IN"
	OpLike      Operator = "LIKE"
	OpIsNull    Operator = "IS NULL"
	OpIsNotNull Operator = "IS NOT NULL"
)

// Filter is one WHERE clause: a dimension name, operator, and either a
// literal value/values or a relative-date token.
type Filter struct {
	Dimension string   `json:"dimension"`
	Operator  Operator `json:"operator"`
	Value     any      `json:"value,omitempty"`         // scalar value for =,!=,>,<,>=,<=,LIKE
	Values    []any    `json:"values,omitempty"`        // for IN / NOT IN
	RelDate   string   `json:"relative_date,omitempty"` // relative-date token, e.g. "today", "3_days_ago"
}

// TimeRange is an optional inclusive window.
type TimeRange struct {
	Start string `json:"start"` // ISO date/time or relative-date token
	End   string `json:"end"`
}

// SemanticSQLIntent is the ordered, typed structure the LLM is asked to
// produce via a function schema (spec.md §3).
type SemanticSQLIntent struct {
	Metrics    []string          `json:"metrics"`
	Dimensions []DimensionIntent `json:"dimensions"`
	Filters    []Filter          `json:"filters,omitempty"`
	TimeRange  *TimeRange        `json:"time_range,omitempty"`
	RowLimit   int               `json:"row_limit,omitempty"`
	Role       string            `json:"-"` // caller-supplied, never produced by the LLM
}
