package hypergraph

import "github.com/veridata-labs/semquery/internal/semantic"

// BuildFromRegistry materializes a Catalog from every metric's base table
// and every dimension's join path: one table node per distinct base table,
// one column node per dimension, and one edge per join hop. Schema is not
// modeled by the semantic registry, so all nodes use the "main" schema.
func BuildFromRegistry(reg *semantic.Registry, mirror Mirror) *Catalog {
	c := New(mirror)
	tableNodes := make(map[string]NodeID)

	ensureTable := func(table string) NodeID {
		if id, ok := tableNodes[table]; ok {
			return id
		}
		id := c.AddNode(Node{Type: NodeTable, Schema: "main", Table: table})
		tableNodes[table] = id
		return id
	}

	for _, name := range reg.ListMetrics() {
		m, ok := reg.Metric(name)
		if !ok {
			continue
		}
		ensureTable(m.BaseTable)
	}

	seenEdges := make(map[string]bool)
	for _, name := range reg.ListDimensions() {
		d, ok := reg.Dimension(name)
		if !ok {
			continue
		}
		ensureTable(d.BaseTable)
		c.AddNode(Node{
			Type:     NodeColumn,
			Schema:   "main",
			Table:    d.BaseTable,
			Column:   d.Column,
			DataType: string(d.DataType),
		})

		for _, edge := range d.JoinPath {
			key := edge.FromTable + "\x00" + edge.ToTable + "\x00" + edge.On
			if seenEdges[key] {
				continue
			}
			seenEdges[key] = true

			from := ensureTable(edge.FromTable)
			to := ensureTable(edge.ToTable)
			c.AddEdge(Edge{
				Source:      from,
				Target:      to,
				FromTable:   edge.FromTable,
				ToTable:     edge.ToTable,
				On:          edge.On,
				Cardinality: string(edge.Cardinality),
				Optional:    edge.Optional,
			})
		}
	}

	c.ComputeAllShortestPaths()
	return c
}
