package semantic

import (
	"strings"
	"testing"

	"github.com/veridata-labs/semquery/internal/errtax"
)

func testRegistry() *Registry {
	reg := New()
	reg.RegisterMetric(Metric{
		Name:              "revenue",
		BaseTable:         "orders",
		Aggregation:       AggSum,
		Grain:             GrainDay,
		SQLExpression:     "orders.amount",
		AllowedDimensions: []string{"customer_category", "region"},
	})
	reg.RegisterDimension(Dimension{
		Name:      "customer_category",
		BaseTable: "customers",
		Column:    "category",
		DataType:  TypeString,
		JoinPath: []JoinEdge{
			{FromTable: "orders", ToTable: "customers", On: "orders.customer_id = customers.id", Cardinality: ManyToOne, Optional: true, FanOutSafe: true},
		},
	})
	reg.RegisterDimension(Dimension{
		Name:      "region",
		BaseTable: "regions",
		Column:    "name",
		DataType:  TypeString,
		JoinPath: []JoinEdge{
			{FromTable: "orders", ToTable: "regions", On: "orders.region_id = regions.id", Cardinality: ManyToOne, Optional: true, FanOutSafe: true},
		},
	})
	return reg
}

func TestRegistryResolveCaseInsensitive(t *testing.T) {
	reg := testRegistry()
	if _, ok := reg.Metric("REVENUE"); !ok {
		t.Fatal("expected case-insensitive metric resolution")
	}
	if _, ok := reg.Dimension("Region"); !ok {
		t.Fatal("expected case-insensitive dimension resolution")
	}
}

func TestResolveJoinsDedupesAndOrders(t *testing.T) {
	reg := testRegistry()
	edges, err := reg.ResolveJoins("revenue", []string{"customer_category", "region"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}
	if edges[0].ToTable != "customers" || edges[1].ToTable != "regions" {
		t.Fatalf("expected order-preserving union, got %+v", edges)
	}
}

func TestResolveJoinsMetricNotFound(t *testing.T) {
	reg := testRegistry()
	_, err := reg.ResolveJoins("unknown_metric", nil)
	if errtax.ClassOf(err) != errtax.MetricNotFound {
		t.Fatalf("expected MetricNotFound, got %v", err)
	}
}

func TestResolveJoinsDimensionNotAllowed(t *testing.T) {
	reg := testRegistry()
	reg.RegisterDimension(Dimension{Name: "off_limits", BaseTable: "other", Column: "x", DataType: TypeString})
	_, err := reg.ResolveJoins("revenue", []string{"off_limits"})
	if errtax.ClassOf(err) != errtax.DimensionNotAllowed {
		t.Fatalf("expected DimensionNotAllowed, got %v", err)
	}
}

func TestResolveJoinsCycleFails(t *testing.T) {
	reg := New()
	reg.RegisterMetric(Metric{
		Name:              "loops",
		BaseTable:         "a",
		Aggregation:       AggSum,
		AllowedDimensions: []string{"cyclic_dim"},
	})
	reg.RegisterDimension(Dimension{
		Name:      "cyclic_dim",
		BaseTable: "b",
		Column:    "x",
		DataType:  TypeString,
		JoinPath: []JoinEdge{
			{FromTable: "a", ToTable: "b", On: "a.id = b.a_id", Cardinality: ManyToOne},
			{FromTable: "b", ToTable: "a", On: "b.a_id = a.id", Cardinality: ManyToOne},
		},
	})
	_, err := reg.ResolveJoins("loops", []string{"cyclic_dim"})
	if errtax.ClassOf(err) != errtax.JoinPathFailure {
		t.Fatalf("expected JoinPathFailure for cycle, got %v", err)
	}
	if !strings.Contains(err.Error(), "Cycle") && !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected message to mention cycle, got %v", err)
	}
}

func TestResolveJoinsUnreachableFails(t *testing.T) {
	reg := New()
	reg.RegisterMetric(Metric{
		Name:              "m",
		BaseTable:         "orders",
		Aggregation:       AggSum,
		AllowedDimensions: []string{"stray"},
	})
	reg.RegisterDimension(Dimension{
		Name:      "stray",
		BaseTable: "other",
		Column:    "x",
		DataType:  TypeString,
		JoinPath: []JoinEdge{
			// Edge does not originate at the metric's base table.
			{FromTable: "unrelated", ToTable: "other", On: "unrelated.id = other.id", Cardinality: ManyToOne},
		},
	})
	_, err := reg.ResolveJoins("m", []string{"stray"})
	if errtax.ClassOf(err) != errtax.JoinPathFailure {
		t.Fatalf("expected JoinPathFailure for unreachable table, got %v", err)
	}
}

func TestFanOutSafeDefault(t *testing.T) {
	e := JoinEdge{Cardinality: OneToMany}.NormalizeFanOutSafe(nil)
	if e.FanOutSafe {
		t.Fatal("expected 1:n edge to default fan_out_safe=false")
	}
	e = JoinEdge{Cardinality: ManyToOne}.NormalizeFanOutSafe(nil)
	if !e.FanOutSafe {
		t.Fatal("expected n:1 edge to default fan_out_safe=true")
	}
}
