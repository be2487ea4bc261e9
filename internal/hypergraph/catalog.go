// Package hypergraph is the in-memory concurrent catalog of schema/table/
// column nodes and join edges between them (spec.md §4.9). It is built
// once from the semantic registry's join graph and kept read-mostly
// thereafter; an optional Arango mirror (see mirror.go) persists writes
// for out-of-process rebuild/introspection but is never consulted on the
// read path (grounded on original_source's components/Hypergraph/graph.rs).
package hypergraph

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/veridata-labs/semquery/common/id"
)

// NodeID is an opaque node handle, a snowflake-generated u64-range value.
type NodeID int64

// EdgeID is an opaque edge handle.
type EdgeID int64

// NodeType distinguishes table nodes from column nodes.
type NodeType string

const (
	NodeTable  NodeType = "table"
	NodeColumn NodeType = "column"
)

// Node is one catalog entry: a table, or a column within a table.
type Node struct {
	ID       NodeID
	Type     NodeType
	Schema   string
	Table    string
	Column   string // empty for table nodes
	DataType string // empty for table nodes
}

// Edge is one join hop between two table nodes.
type Edge struct {
	ID          EdgeID
	Source      NodeID
	Target      NodeID
	FromTable   string
	ToTable     string
	On          string
	Cardinality string
	Optional    bool
}

type tableKey struct{ schema, table string }
type columnKey struct{ schema, table, column string }

// Catalog is the concurrent node/edge store with secondary indexes and a
// precomputed all-pairs shortest-path cache, invalidated on any structural
// mutation (spec.md §4.9).
type Catalog struct {
	mu sync.RWMutex

	nodes map[NodeID]Node
	edges map[EdgeID]Edge

	adjacency        map[NodeID][]EdgeID
	reverseAdjacency map[NodeID][]EdgeID

	tableIndex  map[tableKey]NodeID
	columnIndex map[columnKey]NodeID

	shortestPaths     map[[2]NodeID][]EdgeID
	shortestDistances map[[2]NodeID]int

	version atomic.Uint64

	mirror Mirror // optional write-behind mirror; nil disables it
}

// New returns an empty catalog. mirror may be nil.
func New(mirror Mirror) *Catalog {
	return &Catalog{
		nodes:             make(map[NodeID]Node),
		edges:             make(map[EdgeID]Edge),
		adjacency:         make(map[NodeID][]EdgeID),
		reverseAdjacency:  make(map[NodeID][]EdgeID),
		tableIndex:        make(map[tableKey]NodeID),
		columnIndex:       make(map[columnKey]NodeID),
		shortestPaths:     make(map[[2]NodeID][]EdgeID),
		shortestDistances: make(map[[2]NodeID]int),
		mirror:            mirror,
	}
}

// AddNode inserts a node, indexing it by (schema, table) or
// (schema, table, column) as appropriate, and returns its assigned id.
func (c *Catalog) AddNode(n Node) NodeID {
	n.ID = NodeID(id.New())

	c.mu.Lock()
	c.nodes[n.ID] = n
	if n.Type == NodeTable {
		c.tableIndex[tableKey{lower(n.Schema), lower(n.Table)}] = n.ID
	}
	if n.Type == NodeColumn {
		c.columnIndex[columnKey{lower(n.Schema), lower(n.Table), lower(n.Column)}] = n.ID
	}
	c.invalidateShortestPathsLocked()
	c.mu.Unlock()

	if c.mirror != nil {
		c.mirror.MirrorNode(n)
	}
	return n.ID
}

// AddEdge inserts a join edge, updates the adjacency lists, and
// invalidates the shortest-path cache (structure changed).
func (c *Catalog) AddEdge(e Edge) EdgeID {
	e.ID = EdgeID(id.New())

	c.mu.Lock()
	c.edges[e.ID] = e
	c.adjacency[e.Source] = append(c.adjacency[e.Source], e.ID)
	c.reverseAdjacency[e.Target] = append(c.reverseAdjacency[e.Target], e.ID)
	c.invalidateShortestPathsLocked()
	c.mu.Unlock()

	if c.mirror != nil {
		c.mirror.MirrorEdge(e)
	}
	return e.ID
}

// GetNode returns a node by id.
func (c *Catalog) GetNode(id NodeID) (Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.nodes[id]
	return n, ok
}

// GetEdge returns an edge by id.
func (c *Catalog) GetEdge(id EdgeID) (Edge, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.edges[id]
	return e, ok
}

// GetTableNode looks up a table node by (schema, table), case-insensitive.
func (c *Catalog) GetTableNode(schema, table string) (Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.tableIndex[tableKey{lower(schema), lower(table)}]
	if !ok {
		return Node{}, false
	}
	return c.nodes[id], true
}

// GetColumnNode looks up a column node by (schema, table, column).
func (c *Catalog) GetColumnNode(schema, table, column string) (Node, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.columnIndex[columnKey{lower(schema), lower(table), lower(column)}]
	if !ok {
		return Node{}, false
	}
	return c.nodes[id], true
}

// GetColumnNodes returns all column nodes registered for (schema, table).
func (c *Catalog) GetColumnNodes(schema, table string) []Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, t := lower(schema), lower(table)
	var out []Node
	for k, id := range c.columnIndex {
		if k.schema == s && k.table == t {
			out = append(out, c.nodes[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Column < out[j].Column })
	return out
}

// GetOutgoingEdges returns the edges leaving node.
func (c *Catalog) GetOutgoingEdges(node NodeID) []Edge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.adjacency[node]
	out := make([]Edge, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.edges[id])
	}
	return out
}

// GetIncomingEdges returns the edges arriving at node.
func (c *Catalog) GetIncomingEdges(node NodeID) []Edge {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := c.reverseAdjacency[node]
	out := make([]Edge, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.edges[id])
	}
	return out
}

// FindPath returns the edge sequence from start to end, preferring the
// precomputed cache and falling back to a live BFS when the cache hasn't
// been (re)computed since the last structural change.
func (c *Catalog) FindPath(start, end NodeID) ([]EdgeID, bool) {
	c.mu.RLock()
	if path, ok := c.shortestPaths[[2]NodeID{start, end}]; ok {
		c.mu.RUnlock()
		return path, true
	}
	c.mu.RUnlock()
	return c.findPathBFS(start, end)
}

// GetPathDistance returns the cached hop distance between from and to.
func (c *Catalog) GetPathDistance(from, to NodeID) (int, bool) {
	if from == to {
		return 0, true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.shortestDistances[[2]NodeID{from, to}]
	return d, ok
}

func (c *Catalog) findPathBFS(start, end NodeID) ([]EdgeID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	type step struct {
		node NodeID
		edge EdgeID
	}
	visited := map[NodeID]bool{start: true}
	parent := map[NodeID]step{}
	queue := []NodeID{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == end {
			var path []EdgeID
			node := end
			for node != start {
				s := parent[node]
				path = append([]EdgeID{s.edge}, path...)
				node = s.node
			}
			return path, true
		}
		for _, eid := range c.adjacency[cur] {
			e := c.edges[eid]
			if !visited[e.Target] {
				visited[e.Target] = true
				parent[e.Target] = step{node: cur, edge: eid}
				queue = append(queue, e.Target)
			}
		}
	}
	return nil, false
}

// ComputeAllShortestPaths rebuilds the all-pairs shortest-path cache via
// BFS from every node, enabling O(1) FindPath/GetPathDistance lookups
// until the next structural mutation.
func (c *Catalog) ComputeAllShortestPaths() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shortestPaths = make(map[[2]NodeID][]EdgeID)
	c.shortestDistances = make(map[[2]NodeID]int)

	nodeIDs := make([]NodeID, 0, len(c.nodes))
	for id := range c.nodes {
		nodeIDs = append(nodeIDs, id)
	}

	for _, start := range nodeIDs {
		type step struct {
			node NodeID
			edge EdgeID
		}
		visited := map[NodeID]bool{start: true}
		parent := map[NodeID]step{}
		distances := map[NodeID]int{start: 0}
		queue := []NodeID{start}

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, eid := range c.adjacency[cur] {
				e := c.edges[eid]
				if !visited[e.Target] {
					visited[e.Target] = true
					distances[e.Target] = distances[cur] + 1
					parent[e.Target] = step{node: cur, edge: eid}
					queue = append(queue, e.Target)
				}
			}
		}

		for target := range visited {
			if target == start {
				continue
			}
			var path []EdgeID
			node := target
			for node != start {
				s := parent[node]
				path = append([]EdgeID{s.edge}, path...)
				node = s.node
			}
			c.shortestPaths[[2]NodeID{start, target}] = path
			c.shortestDistances[[2]NodeID{start, target}] = distances[target]
		}
	}

	c.version.Add(1)
}

// InvalidateShortestPaths drops the cache; call after any structural
// mutation that doesn't go through AddEdge/AddNode (there are none today,
// but kept for symmetry with the original engine's invalidation points).
func (c *Catalog) InvalidateShortestPaths() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateShortestPathsLocked()
}

func (c *Catalog) invalidateShortestPathsLocked() {
	c.shortestPaths = make(map[[2]NodeID][]EdgeID)
	c.shortestDistances = make(map[[2]NodeID]int)
	c.version.Add(1)
}

// Version returns the current graph version, bumped on every structural
// mutation and every cache invalidation.
func (c *Catalog) Version() uint64 {
	return c.version.Load()
}

// NodeCount returns the number of nodes in the catalog.
func (c *Catalog) NodeCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.nodes)
}

// EdgeCount returns the number of edges in the catalog.
func (c *Catalog) EdgeCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.edges)
}

func lower(s string) string { return strings.ToLower(s) }
