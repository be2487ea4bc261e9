package compiler

import (
	"strings"
	"testing"

	"github.com/veridata-labs/semquery/internal/intent"
	"github.com/veridata-labs/semquery/internal/semantic"
)

func testRegistry() *semantic.Registry {
	reg := semantic.New()
	reg.RegisterMetric(semantic.Metric{
		Name:              "revenue",
		BaseTable:         "orders",
		Aggregation:       semantic.AggSum,
		SQLExpression:     "orders.amount",
		AllowedDimensions: []string{"customer_category"},
	})
	reg.RegisterDimension(semantic.Dimension{
		Name:      "customer_category",
		BaseTable: "customers",
		Column:    "category",
		DataType:  semantic.TypeString,
		JoinPath: []semantic.JoinEdge{
			{FromTable: "orders", ToTable: "customers", On: "orders.customer_id = customers.id", Cardinality: semantic.ManyToOne, Optional: true},
		},
	})
	return reg
}

func TestCompileBasicSelect(t *testing.T) {
	c := New(testRegistry())
	out, err := c.Compile(intent.SemanticSQLIntent{
		Metrics:    []string{"revenue"},
		Dimensions: []intent.DimensionIntent{{Name: "customer_category", Usage: intent.UsageSelect}},
		RowLimit:   10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.SQL, "SELECT customers.category, orders.amount") {
		t.Fatalf("unexpected select clause: %s", out.SQL)
	}
	if !strings.Contains(out.SQL, "LEFT JOIN customers") {
		t.Fatalf("expected left join for optional select dimension, got: %s", out.SQL)
	}
	if !strings.Contains(out.SQL, "GROUP BY customers.category") {
		t.Fatalf("expected group by, got: %s", out.SQL)
	}
	if !strings.Contains(out.SQL, "LIMIT 10") {
		t.Fatalf("expected limit clause, got: %s", out.SQL)
	}
	if strings.Contains(out.SQL, "ORDER BY") {
		t.Fatalf("compiler must never emit ORDER BY, got: %s", out.SQL)
	}
}

func TestCompileFilterUsesInnerJoinAndCaseFold(t *testing.T) {
	c := New(testRegistry())
	out, err := c.Compile(intent.SemanticSQLIntent{
		Metrics: []string{"revenue"},
		Dimensions: []intent.DimensionIntent{
			{Name: "customer_category", Usage: intent.UsageFilter},
		},
		Filters: []intent.Filter{
			{Dimension: "customer_category", Operator: intent.OpEq, Value: "Enterprise"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.SQL, "INNER JOIN customers") {
		t.Fatalf("expected inner join for filter usage, got: %s", out.SQL)
	}
	if !strings.Contains(out.SQL, "UPPER(customers.category) = UPPER('Enterprise')") {
		t.Fatalf("expected case-folded equality, got: %s", out.SQL)
	}
}

func TestCompileRelativeDateFilter(t *testing.T) {
	c := New(testRegistry())
	out, err := c.Compile(intent.SemanticSQLIntent{
		Metrics: []string{"revenue"},
		Filters: []intent.Filter{
			{Dimension: "customer_category", Operator: intent.OpEq, RelDate: "3_days_ago"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.SQL, "dateadd(day, -3, current_date)") {
		t.Fatalf("expected relative-date expansion, got: %s", out.SQL)
	}
}

func TestCompileUnknownMetricFails(t *testing.T) {
	c := New(testRegistry())
	_, err := c.Compile(intent.SemanticSQLIntent{Metrics: []string{"nope"}})
	if err == nil {
		t.Fatal("expected error for unknown metric")
	}
}
