package hypergraph

import (
	"testing"

	"github.com/veridata-labs/semquery/internal/semantic"
)

func testRegistry() *semantic.Registry {
	reg := semantic.New()
	reg.RegisterMetric(semantic.Metric{
		Name:              "revenue",
		BaseTable:         "orders",
		Aggregation:       semantic.AggSum,
		AllowedDimensions: []string{"region"},
	})
	reg.RegisterDimension(semantic.Dimension{
		Name:      "region",
		BaseTable: "regions",
		Column:    "name",
		DataType:  semantic.TypeString,
		JoinPath: []semantic.JoinEdge{
			{FromTable: "orders", ToTable: "regions", On: "orders.region_id = regions.id", Cardinality: semantic.ManyToOne},
		},
	})
	return reg
}

func TestBuildFromRegistryCreatesTablesColumnsAndEdges(t *testing.T) {
	cat := BuildFromRegistry(testRegistry(), nil)

	if cat.NodeCount() != 3 {
		t.Fatalf("expected 3 nodes (orders, regions tables + region column), got %d", cat.NodeCount())
	}
	if cat.EdgeCount() != 1 {
		t.Fatalf("expected 1 edge, got %d", cat.EdgeCount())
	}

	ordersNode, ok := cat.GetTableNode("main", "orders")
	if !ok {
		t.Fatal("expected orders table node")
	}
	regionsNode, ok := cat.GetTableNode("main", "regions")
	if !ok {
		t.Fatal("expected regions table node")
	}

	dist, ok := cat.GetPathDistance(ordersNode.ID, regionsNode.ID)
	if !ok || dist != 1 {
		t.Fatalf("expected precomputed 1-hop distance, got %d (ok=%v)", dist, ok)
	}
}
