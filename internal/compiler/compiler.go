// Package compiler deterministically renders a validated SemanticSQLIntent
// into SQL text. It never consults the LLM: every clause is built from the
// registry's metadata and the join planner's decisions (spec.md §4.4,
// grounded on the original engine's sql_compiler.rs compile_semantic path).
package compiler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/veridata-labs/semquery/internal/errtax"
	"github.com/veridata-labs/semquery/internal/intent"
	"github.com/veridata-labs/semquery/internal/joinplanner"
	"github.com/veridata-labs/semquery/internal/semantic"
)

// Compiler renders SQL against a fixed semantic registry.
type Compiler struct {
	reg *semantic.Registry
}

// New returns a compiler bound to reg.
func New(reg *semantic.Registry) *Compiler {
	return &Compiler{reg: reg}
}

// Compiled is the compiler's output: the SQL text plus the join plans that
// produced it, retained so the trust layer can explain fan-out decisions.
type Compiled struct {
	SQL   string
	Plans []joinplanner.JoinPlan
}

var relDaysAgoRe = regexp.MustCompile(`^(\d+)_days_ago$`)
var relDaysFromNowRe = regexp.MustCompile(`^(\d+)_days_from_now$`)

// Compile renders a single-metric SemanticSQLIntent to SQL. Multi-metric
// intents must be split by the caller into one Compile call per metric
// (spec.md §4.4: "supports a single metric per compilation unit").
func (c *Compiler) Compile(in intent.SemanticSQLIntent) (Compiled, error) {
	if len(in.Metrics) == 0 {
		return Compiled{}, errtax.New(errtax.CompilerError, "no metrics specified")
	}
	metricName := in.Metrics[0]

	metric, ok := c.reg.Metric(metricName)
	if !ok {
		return Compiled{}, errtax.New(errtax.MetricNotFound, "metric %q not found", metricName)
	}

	dimNames := make([]string, 0, len(in.Dimensions))
	for _, di := range in.Dimensions {
		dimNames = append(dimNames, di.Name)
	}
	edges, err := c.reg.ResolveJoins(metricName, dimNames)
	if err != nil {
		return Compiled{}, err
	}

	byToTable := make(map[string]intent.DimensionIntent)
	for _, di := range in.Dimensions {
		if d, ok := c.reg.Dimension(di.Name); ok {
			byToTable[d.BaseTable] = di
		}
	}

	var joinClauses []string
	var plans []joinplanner.JoinPlan
	needsDistinct := false

	for _, edge := range edges {
		di, ok := byToTable[edge.ToTable]
		if !ok {
			di = intent.DimensionIntent{Name: "unknown", Usage: intent.UsageSelect}
		}

		plan, err := joinplanner.Plan(di, edge, metric.Additive())
		if err != nil {
			return Compiled{}, err
		}
		plans = append(plans, plan)

		var clause string
		if plan.FanOutProtection != nil {
			switch joinplanner.ProtectionKind(plan.FanOutProtection.Kind) {
			case joinplanner.ProtectionPreAggregate:
				clause = fmt.Sprintf("LEFT JOIN (%s) AS %s_agg ON %s", plan.FanOutProtection.Subquery, edge.ToTable, edge.On)
			case joinplanner.ProtectionDistinct:
				needsDistinct = true
				clause = fmt.Sprintf("%s JOIN %s ON %s", sqlJoinType(plan.JoinType), edge.ToTable, edge.On)
			}
		} else {
			clause = fmt.Sprintf("%s JOIN %s ON %s", sqlJoinType(plan.JoinType), edge.ToTable, edge.On)
		}
		joinClauses = append(joinClauses, clause)
	}

	selectParts := make([]string, 0, len(in.Dimensions)+1)
	for _, di := range in.Dimensions {
		if di.Usage != intent.UsageSelect && di.Usage != intent.UsageBoth {
			continue
		}
		d, ok := c.reg.Dimension(di.Name)
		if !ok {
			return Compiled{}, errtax.New(errtax.DimensionNotFound, "dimension %q not found", di.Name)
		}
		selectParts = append(selectParts, d.Expression())
	}

	metricExpr := metric.SQLExpression
	if metricExpr == "" {
		metricExpr = fmt.Sprintf("%s(%s.%s)", strings.ToUpper(string(metric.Aggregation)), metric.BaseTable, metric.Name)
	}
	if needsDistinct {
		selectParts = append(selectParts, fmt.Sprintf("SUM(DISTINCT %s)", metricExpr))
	} else {
		selectParts = append(selectParts, metricExpr)
	}

	selectClause := "SELECT " + strings.Join(selectParts, ", ")
	fromClause := "FROM " + metric.BaseTable

	whereParts := make([]string, 0, len(in.Filters)+len(metric.RequiredFilters))
	whereParts = append(whereParts, metric.RequiredFilters...)
	for _, f := range in.Filters {
		d, ok := c.reg.Dimension(f.Dimension)
		if !ok {
			return Compiled{}, errtax.New(errtax.DimensionNotFound, "filter dimension %q not found", f.Dimension)
		}
		column := d.Expression()
		if f.RelDate != "" {
			column = expandRelativeDate(f.RelDate)
		}
		cond, err := renderCondition(column, f)
		if err != nil {
			return Compiled{}, err
		}
		whereParts = append(whereParts, cond)
	}
	if in.TimeRange != nil {
		timeCol := metric.BaseTable + ".date" // default time column convention
		whereParts = append(whereParts, fmt.Sprintf("%s >= %s AND %s <= %s",
			timeCol, dateExprFor(in.TimeRange.Start), timeCol, dateExprFor(in.TimeRange.End)))
	}
	var whereClause string
	if len(whereParts) > 0 {
		whereClause = "WHERE " + strings.Join(whereParts, " AND ")
	}

	groupCols := make([]string, 0, len(in.Dimensions))
	for _, di := range in.Dimensions {
		if di.Usage != intent.UsageSelect && di.Usage != intent.UsageBoth {
			continue
		}
		d, _ := c.reg.Dimension(di.Name)
		groupCols = append(groupCols, d.Expression())
	}
	var groupByClause string
	if len(groupCols) > 0 {
		groupByClause = "GROUP BY " + strings.Join(groupCols, ", ")
	}

	var limitClause string
	if in.RowLimit > 0 {
		limitClause = fmt.Sprintf("LIMIT %d", in.RowLimit)
	}

	// ORDER BY is intentionally never emitted: the compiler is deterministic
	// and result ordering is a presentation concern, not a compilation one
	// (Open Question decision, see DESIGN.md).

	parts := []string{selectClause, fromClause}
	parts = append(parts, joinClauses...)
	if whereClause != "" {
		parts = append(parts, whereClause)
	}
	if groupByClause != "" {
		parts = append(parts, groupByClause)
	}
	if limitClause != "" {
		parts = append(parts, limitClause)
	}

	return Compiled{SQL: strings.Join(parts, " "), Plans: plans}, nil
}

func sqlJoinType(jt joinplanner.JoinType) string {
	switch jt {
	case joinplanner.Left:
		return "LEFT"
	default:
		return "INNER"
	}
}

// renderCondition renders one filter as a WHERE fragment. String equality
// and LIKE are case-folded via UPPER() on both sides, matching the original
// engine's behavior.
func renderCondition(column string, f intent.Filter) (string, error) {
	switch f.Operator {
	case intent.OpIsNull:
		return column + " IS NULL", nil
	case intent.OpIsNotNull:
		return column + " IS NOT NULL", nil
	case intent.OpIn:
		return fmt.Sprintf("%s IN (%s)", column, formatValues(f.Values)), nil
	case intent.OpNotIn:
		return fmt.Sprintf("%s NOT IN (%s)", column, formatValues(f.Values)), nil
	case intent.OpLike:
		return fmt.Sprintf("UPPER(%s) LIKE UPPER(%s)", column, formatValue(f.Value)), nil
	case intent.OpEq:
		if _, isString := f.Value.(string); isString {
			return fmt.Sprintf("UPPER(%s) = UPPER(%s)", column, formatValue(f.Value)), nil
		}
		return fmt.Sprintf("%s = %s", column, formatValue(f.Value)), nil
	case intent.OpNeq, intent.OpGt, intent.OpLt, intent.OpGte, intent.OpLte:
		return fmt.Sprintf("%s %s %s", column, f.Operator, formatValue(f.Value)), nil
	default:
		return "", errtax.New(errtax.CompilerError, "unknown operator %q", f.Operator)
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case nil:
		return "NULL"
	default:
		return fmt.Sprintf("'%v'", val)
	}
}

func formatValues(vs []any) string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = formatValue(v)
	}
	return strings.Join(out, ", ")
}

// expandRelativeDate turns a relative-date token into a SQL date expression
// (spec.md §4.4 step 5), grounded on the original engine's token table.
func expandRelativeDate(token string) string {
	switch token {
	case "today":
		return "CURRENT_DATE"
	case "yesterday":
		return "date(dateadd(day, -1, current_date))"
	case "tomorrow":
		return "date(dateadd(day, 1, current_date))"
	}
	if m := relDaysAgoRe.FindStringSubmatch(token); m != nil {
		return fmt.Sprintf("date(dateadd(day, -%s, current_date))", m[1])
	}
	if m := relDaysFromNowRe.FindStringSubmatch(token); m != nil {
		return fmt.Sprintf("date(dateadd(day, %s, current_date))", m[1])
	}
	return "CURRENT_DATE"
}

func dateExprFor(v string) string {
	if strings.Contains(v, "_") || v == "today" || v == "yesterday" || v == "tomorrow" {
		return expandRelativeDate(v)
	}
	return "'" + v + "'"
}
