package joinplanner

import (
	"strings"
	"testing"

	"github.com/veridata-labs/semquery/internal/intent"
	"github.com/veridata-labs/semquery/internal/semantic"
)

func TestPlanFilterIsInner(t *testing.T) {
	edge := semantic.JoinEdge{FromTable: "orders", ToTable: "customers", On: "orders.customer_id = customers.id", Cardinality: semantic.ManyToOne, Optional: true}
	p, err := Plan(intent.DimensionIntent{Name: "customer_category", Usage: intent.UsageFilter}, edge, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.JoinType != Inner {
		t.Fatalf("expected Inner, got %s", p.JoinType)
	}
}

func TestPlanSelectOptionalIsLeft(t *testing.T) {
	edge := semantic.JoinEdge{FromTable: "orders", ToTable: "customers", On: "orders.customer_id = customers.id", Cardinality: semantic.ManyToOne, Optional: true}
	p, err := Plan(intent.DimensionIntent{Name: "customer_category", Usage: intent.UsageSelect}, edge, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.JoinType != Left {
		t.Fatalf("expected Left, got %s", p.JoinType)
	}
}

func TestPlanSelectMandatoryIsInner(t *testing.T) {
	edge := semantic.JoinEdge{FromTable: "orders", ToTable: "customers", On: "orders.customer_id = customers.id", Cardinality: semantic.ManyToOne, Optional: false}
	p, err := Plan(intent.DimensionIntent{Name: "customer_category", Usage: intent.UsageSelect}, edge, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.JoinType != Inner {
		t.Fatalf("expected Inner, got %s", p.JoinType)
	}
}

func TestPlanBothIsInner(t *testing.T) {
	edge := semantic.JoinEdge{FromTable: "orders", ToTable: "customers", On: "orders.customer_id = customers.id", Cardinality: semantic.ManyToOne, Optional: true}
	p, err := Plan(intent.DimensionIntent{Name: "customer_category", Usage: intent.UsageBoth}, edge, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.JoinType != Inner {
		t.Fatalf("expected Inner, got %s", p.JoinType)
	}
}

func TestPlanOneToManyAdditivePreAggregates(t *testing.T) {
	edge := semantic.JoinEdge{FromTable: "orders", ToTable: "line_items", On: "orders.id = line_items.order_id", Cardinality: semantic.OneToMany, Optional: true}
	p, err := Plan(intent.DimensionIntent{Name: "line_item_sku", Usage: intent.UsageSelect}, edge, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.FanOutProtection == nil || p.FanOutProtection.Kind != string(ProtectionPreAggregate) {
		t.Fatalf("expected pre-aggregate protection, got %+v", p.FanOutProtection)
	}
	if !strings.Contains(p.FanOutProtection.Subquery, "line_items.order_id") {
		t.Fatalf("expected subquery to group by right key, got %s", p.FanOutProtection.Subquery)
	}
}

func TestPlanUnextractableKeyFallsBackToDistinct(t *testing.T) {
	edge := semantic.JoinEdge{FromTable: "orders", ToTable: "line_items", On: "complex_expr_without_equals", Cardinality: semantic.OneToMany, Optional: true}
	p, err := Plan(intent.DimensionIntent{Name: "line_item_sku", Usage: intent.UsageSelect}, edge, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.FanOutProtection == nil || p.FanOutProtection.Kind != string(ProtectionDistinct) {
		t.Fatalf("expected distinct-metric fallback, got %+v", p.FanOutProtection)
	}
}

func TestPlanNonAdditiveUsesDistinct(t *testing.T) {
	edge := semantic.JoinEdge{FromTable: "orders", ToTable: "line_items", On: "orders.id = line_items.order_id", Cardinality: semantic.ManyToMany, Optional: true}
	p, err := Plan(intent.DimensionIntent{Name: "line_item_sku", Usage: intent.UsageSelect}, edge, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.FanOutProtection == nil || p.FanOutProtection.Kind != string(ProtectionDistinct) {
		t.Fatalf("expected distinct-metric protection, got %+v", p.FanOutProtection)
	}
}

func TestPlanManyToOneNoProtectionNeeded(t *testing.T) {
	edge := semantic.JoinEdge{FromTable: "orders", ToTable: "customers", On: "orders.customer_id = customers.id", Cardinality: semantic.ManyToOne, Optional: true}
	p, err := Plan(intent.DimensionIntent{Name: "customer_category", Usage: intent.UsageSelect}, edge, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.FanOutProtection != nil {
		t.Fatalf("expected no fan-out protection for n:1 edge, got %+v", p.FanOutProtection)
	}
}
