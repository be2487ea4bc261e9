package rcacursor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/veridata-labs/semquery/internal/errtax"
	"github.com/veridata-labs/semquery/internal/observability"
	"github.com/veridata-labs/semquery/internal/storage"
)

// ExecutionMetadata records the statistics spec.md §3 requires alongside an
// execution result.
type ExecutionMetadata struct {
	Duration          time.Duration
	RowsScanned       int
	MemoryMB          float64
	NodesExecuted     int
	FilterSelectivity float64
	JoinSelectivity   float64
}

// ExecutionResult is one side's materialized, grain-normalized table.
type ExecutionResult struct {
	Schema         []string
	RowCount       int
	Rows           []storage.Row
	GrainKeyColumn string
	Metadata       ExecutionMetadata
}

// Execute interprets plan's nodes in order against reader, maintaining a
// single working table, and verifies grain normalization on completion
// (spec.md §4.7 step 4). Row keys carry their owning table as a
// "table.column" prefix from the initial scan onward, so joins and
// aggregation can disambiguate same-named columns without a schema
// catalog.
func Execute(ctx context.Context, plan ExecutionPlan, reader storage.Reader, grainKeyColumn string, collector *observability.Collector) (*ExecutionResult, error) {
	start := time.Now()
	var working []storage.Row
	var filterSelectivities []float64
	var joinSelectivities []float64
	rowsScanned := 0

	for i, node := range plan.Nodes {
		nodeStart := time.Now()
		var err error

		switch node.Kind {
		case NodeScan:
			var scanned []storage.Row
			scanned, err = execScan(ctx, reader, node)
			rowsScanned += len(scanned)
			working = append(working, scanned...)
		case NodeJoin:
			before := len(working)
			working, err = execJoin(working, node)
			if before > 0 {
				joinSelectivities = append(joinSelectivities, float64(len(working))/float64(before))
			}
		case NodeFilter:
			before := len(working)
			working = execFilter(working, node.Expr)
			if before > 0 {
				filterSelectivities = append(filterSelectivities, float64(len(working))/float64(before))
			}
		case NodeAggregate:
			working, err = execAggregate(working, node, grainKeyColumn)
		}

		if collector != nil {
			collector.RecordNode(observability.NodeExecution{
				NodeID:        fmt.Sprintf("node-%d", i),
				NodeType:      string(node.Kind),
				Duration:      time.Since(nodeStart),
				RowsProcessed: len(working),
				Success:       err == nil,
				Error:         errString(err),
			})
		}
		if err != nil {
			return nil, errtax.Wrap(errtax.ExecutionError, err)
		}
	}

	if err := verifyGrainNormalization(working, grainKeyColumn); err != nil {
		return nil, err
	}

	sort.Slice(working, func(i, j int) bool {
		return fmt.Sprint(working[i][grainKeyColumn]) < fmt.Sprint(working[j][grainKeyColumn])
	})

	return &ExecutionResult{
		Schema:         schemaOf(working),
		RowCount:       len(working),
		Rows:           working,
		GrainKeyColumn: grainKeyColumn,
		Metadata: ExecutionMetadata{
			Duration:          time.Since(start),
			RowsScanned:       rowsScanned,
			NodesExecuted:     len(plan.Nodes),
			FilterSelectivity: avg(filterSelectivities),
			JoinSelectivity:   avg(joinSelectivities),
		},
	}, nil
}

func execScan(ctx context.Context, reader storage.Reader, node ExecNode) ([]storage.Row, error) {
	sql := "SELECT * FROM " + node.Table
	if len(node.PushdownFilters) > 0 {
		clauses := make([]string, len(node.PushdownFilters))
		for i, f := range node.PushdownFilters {
			clauses[i] = stripTablePrefix(f, node.Table)
		}
		sql += " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := reader.Query(ctx, sql)
	if err != nil {
		return nil, errtax.Wrap(errtax.ExecutionError, err)
	}

	if node.SampleFraction > 0 {
		rows = sampleRows(rows, node.SampleFraction)
	}

	out := make([]storage.Row, len(rows))
	for i, r := range rows {
		prefixed := make(storage.Row, len(r))
		for k, v := range r {
			prefixed[node.Table+"."+k] = v
		}
		out[i] = prefixed
	}
	return out, nil
}

func sampleRows(rows []storage.Row, fraction float64) []storage.Row {
	step := int(1 / fraction)
	if step < 1 {
		step = 1
	}
	var out []storage.Row
	for i := 0; i < len(rows); i += step {
		out = append(out, rows[i])
	}
	return out
}

// execJoin checks that a join key is declared and has the "left = right"
// form, logs null-key warnings, and joins by the declared kind (spec.md
// §4.7 step 4). It does not check that the key columns are present in the
// rows: a right row without the key counts as a null key and is skipped,
// a left row without it is dropped (kept unmatched for a left join). The
// node's Strategy is not consulted: hash, broadcast and nested-loop all run
// the same in-memory hash join, with the hash table built on the right side.
func execJoin(working []storage.Row, node ExecNode) ([]storage.Row, error) {
	if len(node.JoinKeys) == 0 {
		return nil, errtax.New(errtax.JoinPathFailure, "join node for %s has no keys", node.RightTable)
	}
	leftKey, rightKey, err := splitJoinKeys(node.JoinKeys[0])
	if err != nil {
		return nil, err
	}

	// working already contains both scanned tables' rows column-wise; a
	// true two-input join would keep them separate, but the executor
	// maintains one working table, so the "right" rows are the subset of
	// working carrying the right table's prefix and vice versa.
	var left, right []storage.Row
	for _, r := range working {
		if hasTablePrefix(r, node.LeftTable) {
			left = append(left, r)
		}
	}
	for _, r := range working {
		if hasTablePrefix(r, node.RightTable) {
			right = append(right, r)
		}
	}
	if len(left) == 0 {
		left = working
	}

	index := make(map[string][]storage.Row, len(right))
	nullKeys := 0
	for _, r := range right {
		v, ok := r[rightKey]
		if !ok || v == nil {
			nullKeys++
			continue
		}
		k := fmt.Sprint(v)
		index[k] = append(index[k], r)
	}
	if nullKeys > 0 {
		slog.Warn("rcacursor: join right side has null keys", "table", node.RightTable, "count", nullKeys)
	}

	var out []storage.Row
	for _, l := range left {
		v, ok := l[leftKey]
		if !ok || v == nil {
			if node.JoinType == "left" {
				out = append(out, l)
			}
			continue
		}
		matches := index[fmt.Sprint(v)]
		if len(matches) == 0 {
			if node.JoinType == "left" {
				out = append(out, l)
			}
			continue
		}
		for _, r := range matches {
			merged := make(storage.Row, len(l)+len(r))
			for k, v := range l {
				merged[k] = v
			}
			for k, v := range r {
				merged[k] = v
			}
			out = append(out, merged)
		}
	}
	return out, nil
}

func splitJoinKeys(on string) (string, string, error) {
	parts := strings.SplitN(on, "=", 2)
	if len(parts) != 2 {
		return "", "", errtax.New(errtax.JoinPathFailure, "malformed join key %q", on)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

func hasTablePrefix(r storage.Row, table string) bool {
	prefix := table + "."
	for k := range r {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// execFilter applies a single parsed predicate of the form
// "table.column OP value" (joined by AND when multiple conditions were
// combined upstream) over the working table.
func execFilter(working []storage.Row, expr string) []storage.Row {
	conds := splitAnd(expr)
	var out []storage.Row
	for _, r := range working {
		if matchesAll(r, conds) {
			out = append(out, r)
		}
	}
	return out
}

func splitAnd(expr string) []string {
	parts := strings.Split(expr, " AND ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func matchesAll(r storage.Row, conds []string) bool {
	for _, c := range conds {
		if !matchesOne(r, c) {
			return false
		}
	}
	return true
}

func matchesOne(r storage.Row, cond string) bool {
	ops := []string{"!=", ">=", "<=", "=", ">", "<"}
	for _, op := range ops {
		idx := strings.Index(cond, op)
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(cond[:idx])
		want := strings.Trim(strings.TrimSpace(cond[idx+len(op):]), "'\"")
		got := fmt.Sprint(r[key])
		return compare(got, want, op)
	}
	return true
}

func compare(got, want, op string) bool {
	gf, gerr := strconv.ParseFloat(got, 64)
	wf, werr := strconv.ParseFloat(want, 64)
	if gerr == nil && werr == nil {
		switch op {
		case "=":
			return gf == wf
		case "!=":
			return gf != wf
		case ">":
			return gf > wf
		case "<":
			return gf < wf
		case ">=":
			return gf >= wf
		case "<=":
			return gf <= wf
		}
	}
	switch op {
	case "=":
		return got == want
	case "!=":
		return got != want
	default:
		return got == want
	}
}

func stripTablePrefix(expr, table string) string {
	return strings.ReplaceAll(expr, table+".", "")
}

// execAggregate parses each "alias: Kind(column)" spec and emits grouped
// results (spec.md §4.7 step 4).
func execAggregate(working []storage.Row, node ExecNode, grainKeyColumn string) ([]storage.Row, error) {
	groups := make(map[string][]storage.Row)
	var order []string
	for _, r := range working {
		key := fmt.Sprint(lookup(r, grainKeyColumn))
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	aggs := make([]NamedAggregation, 0, len(node.Aggregations))
	for _, spec := range node.Aggregations {
		a, err := parseAggSpec(spec)
		if err != nil {
			return nil, err
		}
		aggs = append(aggs, a)
	}

	out := make([]storage.Row, 0, len(order))
	for _, key := range order {
		rows := groups[key]
		row := storage.Row{grainKeyColumn: key}
		for _, a := range aggs {
			row[a.Alias] = aggregate(rows, a)
		}
		out = append(out, row)
	}
	return out, nil
}

func parseAggSpec(spec string) (NamedAggregation, error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return NamedAggregation{}, errtax.New(errtax.InvalidAggregation, "malformed aggregation spec %q", spec)
	}
	alias := strings.TrimSpace(parts[0])
	rest := strings.TrimSpace(parts[1])
	open := strings.Index(rest, "(")
	if open < 0 || !strings.HasSuffix(rest, ")") {
		return NamedAggregation{}, errtax.New(errtax.InvalidAggregation, "malformed aggregation spec %q", spec)
	}
	kind := rest[:open]
	column := strings.TrimSuffix(rest[open+1:], ")")
	return NamedAggregation{Alias: alias, Kind: kind, Column: column}, nil
}

func aggregate(rows []storage.Row, a NamedAggregation) float64 {
	switch a.Kind {
	case "count":
		return float64(len(rows))
	case "count_distinct":
		seen := make(map[string]bool)
		for _, r := range rows {
			seen[fmt.Sprint(lookup(r, a.Column))] = true
		}
		return float64(len(seen))
	case "avg":
		if len(rows) == 0 {
			return 0
		}
		return sumColumn(rows, a.Column) / float64(len(rows))
	case "min":
		var m float64
		first := true
		for _, r := range rows {
			v := toFloat(lookup(r, a.Column))
			if first || v < m {
				m = v
				first = false
			}
		}
		return m
	case "max":
		var m float64
		first := true
		for _, r := range rows {
			v := toFloat(lookup(r, a.Column))
			if first || v > m {
				m = v
				first = false
			}
		}
		return m
	default: // sum
		return sumColumn(rows, a.Column)
	}
}

func sumColumn(rows []storage.Row, column string) float64 {
	var total float64
	for _, r := range rows {
		total += toFloat(lookup(r, column))
	}
	return total
}

// lookup finds a value by bare column name, tolerating the table-prefixed
// keys scans install: an exact match wins, otherwise the first key ending
// in ".column".
func lookup(r storage.Row, column string) any {
	if v, ok := r[column]; ok {
		return v
	}
	suffix := "." + column
	for k, v := range r {
		if strings.HasSuffix(k, suffix) {
			return v
		}
	}
	return nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

// verifyGrainNormalization enforces spec.md §3's Execution result
// invariant: exactly one output row per distinct grain-key value.
func verifyGrainNormalization(rows []storage.Row, grainKeyColumn string) error {
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		seen[fmt.Sprint(r[grainKeyColumn])] = true
	}
	if len(seen) != len(rows) {
		return errtax.New(errtax.ExecutionError,
			"Grain normalization failed: %d distinct grain keys but %d rows", len(seen), len(rows))
	}
	return nil
}

func schemaOf(rows []storage.Row) []string {
	if len(rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func avg(vs []float64) float64 {
	if len(vs) == 0 {
		return 1.0
	}
	var total float64
	for _, v := range vs {
		total += v
	}
	return total / float64(len(vs))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
