package semantic

import (
	"strings"
	"sync"

	"github.com/veridata-labs/semquery/internal/errtax"
)

// Registry is the in-memory, insert-only store of metrics and dimensions.
// It is safe for concurrent reads once loaded (spec.md §5: "read-mostly
// after initialization"); Register* calls are expected to happen once at
// startup before the registry is shared.
type Registry struct {
	mu         sync.RWMutex
	metrics    map[string]Metric
	dimensions map[string]Dimension
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		metrics:    make(map[string]Metric),
		dimensions: make(map[string]Dimension),
	}
}

// RegisterMetric inserts or overwrites a metric definition.
func (r *Registry) RegisterMetric(m Metric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics[m.Name] = m
}

// RegisterDimension inserts or overwrites a dimension definition.
func (r *Registry) RegisterDimension(d Dimension) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dimensions[d.Name] = d
}

// Metric resolves a metric by name, falling back to case-insensitive
// lookup (spec.md §4.1).
func (r *Registry) Metric(name string) (Metric, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.metrics[name]; ok {
		return m, true
	}
	for k, m := range r.metrics {
		if strings.EqualFold(k, name) {
			return m, true
		}
	}
	return Metric{}, false
}

// Dimension resolves a dimension by name, falling back to case-insensitive
// lookup.
func (r *Registry) Dimension(name string) (Dimension, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.dimensions[name]; ok {
		return d, true
	}
	for k, d := range r.dimensions {
		if strings.EqualFold(k, name) {
			return d, true
		}
	}
	return Dimension{}, false
}

// ListMetrics returns all registered metric names.
func (r *Registry) ListMetrics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.metrics))
	for k := range r.metrics {
		out = append(out, k)
	}
	return out
}

// ListDimensions returns all registered dimension names.
func (r *Registry) ListDimensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.dimensions))
	for k := range r.dimensions {
		out = append(out, k)
	}
	return out
}

// ResolveJoins returns the deduplicated, order-preserving union of the
// given dimensions' join paths, rooted at the metric's base table.
//
// Failures: MetricNotFound, DimensionNotFound, DimensionNotAllowed (any
// dimension outside the metric's allow-list), JoinPathFailure (cycle, or a
// table unreachable from the base table).
func (r *Registry) ResolveJoins(metricName string, dimNames []string) ([]JoinEdge, error) {
	metric, ok := r.Metric(metricName)
	if !ok {
		return nil, errtax.New(errtax.MetricNotFound, "metric %q not found", metricName)
	}

	dims := make([]Dimension, 0, len(dimNames))
	for _, name := range dimNames {
		d, ok := r.Dimension(name)
		if !ok {
			return nil, errtax.New(errtax.DimensionNotFound, "dimension %q not found", name)
		}
		if !metric.AllowsDimension(d.Name) {
			return nil, errtax.New(errtax.DimensionNotAllowed,
				"dimension %q is not allowed for metric %q (allowed: %s)",
				d.Name, metricName, strings.Join(metric.AllowedDimensions, ", "))
		}
		dims = append(dims, d)
	}

	edges := dedupeEdges(dims)
	if err := validateJoinGraph(metric.BaseTable, edges); err != nil {
		return nil, err
	}
	return edges, nil
}

// dedupeEdges collects the order-preserving union of all dimensions' join
// paths, collapsing duplicates on (from_table, to_table, ON predicate).
func dedupeEdges(dims []Dimension) []JoinEdge {
	seen := make(map[string]bool)
	out := make([]JoinEdge, 0)
	for _, d := range dims {
		for _, e := range d.JoinPath {
			k := e.key()
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, e)
		}
	}
	return out
}

// validateJoinGraph checks reachability from base and the absence of
// cycles, grounded on the original source's DFS reachability + 3-color
// cycle check.
func validateJoinGraph(base string, edges []JoinEdge) error {
	adj := make(map[string][]string)
	tables := map[string]bool{base: true}
	for _, e := range edges {
		tables[e.FromTable] = true
		tables[e.ToTable] = true
		adj[e.FromTable] = append(adj[e.FromTable], e.ToTable)
	}

	visited := make(map[string]bool)
	dfsReachable(base, adj, visited)

	var unreachable []string
	for t := range tables {
		if !visited[t] {
			unreachable = append(unreachable, t)
		}
	}
	if len(unreachable) > 0 {
		return errtax.New(errtax.JoinPathFailure,
			"tables unreachable from base table %q: %s", base, strings.Join(unreachable, ", "))
	}

	visiting := make(map[string]bool)
	done := make(map[string]bool)
	for t := range tables {
		if hasCycle(t, adj, visiting, done) {
			return errtax.New(errtax.JoinPathFailure, "cycle detected in join graph involving table %q", t)
		}
	}
	return nil
}

func dfsReachable(node string, adj map[string][]string, visited map[string]bool) {
	if visited[node] {
		return
	}
	visited[node] = true
	for _, n := range adj[node] {
		dfsReachable(n, adj, visited)
	}
}

func hasCycle(node string, adj map[string][]string, visiting, done map[string]bool) bool {
	if visiting[node] {
		return true
	}
	if done[node] {
		return false
	}
	visiting[node] = true
	for _, n := range adj[node] {
		if hasCycle(n, adj, visiting, done) {
			return true
		}
	}
	delete(visiting, node)
	done[node] = true
	return false
}
