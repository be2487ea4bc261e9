package execloop

import (
	"context"
	"testing"

	"github.com/veridata-labs/semquery/common/llm"
	"github.com/veridata-labs/semquery/internal/errtax"
	"github.com/veridata-labs/semquery/internal/intent"
	"github.com/veridata-labs/semquery/internal/semantic"
)

func testRegistry() *semantic.Registry {
	reg := semantic.New()
	reg.RegisterMetric(semantic.Metric{
		Name:              "revenue",
		BaseTable:         "orders",
		Aggregation:       semantic.AggSum,
		Grain:             semantic.GrainDay,
		SQLExpression:     "orders.amount",
		AllowedDimensions: []string{"region"},
	})
	reg.RegisterDimension(semantic.Dimension{
		Name:      "region",
		BaseTable: "regions",
		Column:    "name",
		DataType:  semantic.TypeString,
		JoinPath: []semantic.JoinEdge{
			{FromTable: "orders", ToTable: "regions", On: "orders.region_id = regions.id", Cardinality: semantic.ManyToOne, Optional: true, FanOutSafe: true},
		},
	})
	return reg
}

// scriptedClient replays a fixed sequence of intents (or errors) to the
// execution loop, one per Chat call, so the loop's retry behavior can be
// exercised without a real LLM.
type scriptedClient struct {
	results []intent.SemanticSQLIntent
	errs    []error
	calls   int
}

func (c *scriptedClient) Chat(ctx context.Context, req llm.Request, result any) (*llm.Response, error) {
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	out := result.(*intent.SemanticSQLIntent)
	*out = c.results[i]
	return &llm.Response{}, nil
}

func (c *scriptedClient) Model() string { return "stub" }

func TestExecuteSucceedsFirstAttempt(t *testing.T) {
	reg := testRegistry()
	client := &scriptedClient{
		results: []intent.SemanticSQLIntent{
			{Metrics: []string{"revenue"}, Dimensions: []intent.DimensionIntent{{Name: "region", Usage: intent.UsageSelect}}},
		},
		errs: []error{nil},
	}
	loop := New(client, reg, intent.DefaultGuards())

	res, err := loop.Execute(context.Background(), "q1", "revenue by region", "analyst")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", res.Attempts)
	}
	if res.Compiled.SQL == "" {
		t.Fatal("expected non-empty compiled SQL")
	}
}

func TestExecuteRecoversAfterInvalidMetric(t *testing.T) {
	reg := testRegistry()
	client := &scriptedClient{
		results: []intent.SemanticSQLIntent{
			{Metrics: []string{"nope"}, Dimensions: nil},
			{Metrics: []string{"revenue"}, Dimensions: []intent.DimensionIntent{{Name: "region", Usage: intent.UsageSelect}}},
		},
		errs: []error{nil, nil},
	}
	loop := New(client, reg, intent.DefaultGuards())

	res, err := loop.Execute(context.Background(), "q2", "revenue by region", "analyst")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Attempts != 2 {
		t.Fatalf("expected recovery on attempt 2, got %d", res.Attempts)
	}

	entries := loop.Log.ByQuery("q2")
	if len(entries) != 2 {
		t.Fatalf("expected 2 logged attempts, got %d", len(entries))
	}
	if entries[0].ErrorClass != errtax.MetricNotFound {
		t.Fatalf("expected first attempt classified MetricNotFound, got %v", entries[0].ErrorClass)
	}
	if !entries[1].Success {
		t.Fatal("expected second attempt to succeed")
	}
}

func TestExecuteAbortsOnRepeatedErrorClass(t *testing.T) {
	reg := testRegistry()
	client := &scriptedClient{
		results: []intent.SemanticSQLIntent{
			{Metrics: []string{"nope"}},
			{Metrics: []string{"also_nope"}},
			{Metrics: []string{"revenue"}, Dimensions: []intent.DimensionIntent{{Name: "region", Usage: intent.UsageSelect}}},
		},
		errs: []error{nil, nil, nil},
	}
	loop := New(client, reg, intent.DefaultGuards())

	_, err := loop.Execute(context.Background(), "q3", "revenue by region", "analyst")
	if err == nil {
		t.Fatal("expected abort error")
	}
	if errtax.ClassOf(err) != errtax.MetricNotFound {
		t.Fatalf("expected MetricNotFound abort, got %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("expected loop to abort after 2 attempts, made %d calls", client.calls)
	}
}

func TestExecuteExhaustsRetries(t *testing.T) {
	reg := testRegistry()
	client := &scriptedClient{
		results: []intent.SemanticSQLIntent{
			{Metrics: []string{"nope1"}},
			{Metrics: []string{"nope2"}},
			{Metrics: []string{"nope3"}},
		},
		errs: []error{nil, nil, nil},
	}
	loop := New(client, reg, intent.DefaultGuards())
	loop.AbortOnRepeat = false

	_, err := loop.Execute(context.Background(), "q4", "revenue by region", "analyst")
	if err == nil {
		t.Fatal("expected max-retries error")
	}
	if errtax.ClassOf(err) != errtax.ExecutionError {
		t.Fatalf("expected ExecutionError for exhausted retries, got %v", err)
	}
	if client.calls != loop.MaxAttempts {
		t.Fatalf("expected %d calls, got %d", loop.MaxAttempts, client.calls)
	}
}
