package hypergraph

import "testing"

func TestAddNodeIndexesByTableAndColumn(t *testing.T) {
	c := New(nil)
	tableID := c.AddNode(Node{Type: NodeTable, Schema: "main", Table: "orders"})
	colID := c.AddNode(Node{Type: NodeColumn, Schema: "main", Table: "orders", Column: "amount", DataType: "decimal"})

	got, ok := c.GetTableNode("MAIN", "Orders")
	if !ok || got.ID != tableID {
		t.Fatalf("expected case-insensitive table lookup to find %v, got %v (ok=%v)", tableID, got, ok)
	}

	gotCol, ok := c.GetColumnNode("main", "orders", "AMOUNT")
	if !ok || gotCol.ID != colID {
		t.Fatalf("expected case-insensitive column lookup to find %v, got %v (ok=%v)", colID, gotCol, ok)
	}
}

func TestAddEdgeUpdatesAdjacency(t *testing.T) {
	c := New(nil)
	orders := c.AddNode(Node{Type: NodeTable, Schema: "main", Table: "orders"})
	customers := c.AddNode(Node{Type: NodeTable, Schema: "main", Table: "customers"})
	edgeID := c.AddEdge(Edge{Source: orders, Target: customers, FromTable: "orders", ToTable: "customers", On: "orders.customer_id = customers.id"})

	out := c.GetOutgoingEdges(orders)
	if len(out) != 1 || out[0].ID != edgeID {
		t.Fatalf("expected 1 outgoing edge %v, got %+v", edgeID, out)
	}

	in := c.GetIncomingEdges(customers)
	if len(in) != 1 || in[0].ID != edgeID {
		t.Fatalf("expected 1 incoming edge %v, got %+v", edgeID, in)
	}
}

func TestComputeAllShortestPathsAndDistance(t *testing.T) {
	c := New(nil)
	orders := c.AddNode(Node{Type: NodeTable, Table: "orders"})
	customers := c.AddNode(Node{Type: NodeTable, Table: "customers"})
	regions := c.AddNode(Node{Type: NodeTable, Table: "regions"})
	c.AddEdge(Edge{Source: orders, Target: customers})
	c.AddEdge(Edge{Source: customers, Target: regions})

	c.ComputeAllShortestPaths()

	path, ok := c.FindPath(orders, regions)
	if !ok || len(path) != 2 {
		t.Fatalf("expected 2-hop cached path orders->regions, got %+v (ok=%v)", path, ok)
	}

	dist, ok := c.GetPathDistance(orders, regions)
	if !ok || dist != 2 {
		t.Fatalf("expected cached distance 2, got %d (ok=%v)", dist, ok)
	}
}

func TestFindPathFallsBackToBFSWhenCacheStale(t *testing.T) {
	c := New(nil)
	a := c.AddNode(Node{Type: NodeTable, Table: "a"})
	b := c.AddNode(Node{Type: NodeTable, Table: "b"})
	c.AddEdge(Edge{Source: a, Target: b})

	// No ComputeAllShortestPaths call: cache is empty, must fall back to BFS.
	path, ok := c.FindPath(a, b)
	if !ok || len(path) != 1 {
		t.Fatalf("expected BFS fallback to find 1-hop path, got %+v (ok=%v)", path, ok)
	}
}

func TestAddEdgeInvalidatesShortestPathCache(t *testing.T) {
	c := New(nil)
	a := c.AddNode(Node{Type: NodeTable, Table: "a"})
	b := c.AddNode(Node{Type: NodeTable, Table: "b"})
	c.AddEdge(Edge{Source: a, Target: b})
	c.ComputeAllShortestPaths()

	v1 := c.Version()
	newNode := c.AddNode(Node{Type: NodeTable, Table: "c"})
	c.AddEdge(Edge{Source: b, Target: newNode})

	if c.Version() == v1 {
		t.Fatal("expected graph version to bump after structural mutation")
	}
}
