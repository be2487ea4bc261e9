package rcacursor

import (
	"context"

	"github.com/google/uuid"

	"github.com/veridata-labs/semquery/internal/errtax"
	"github.com/veridata-labs/semquery/internal/observability"
	"github.com/veridata-labs/semquery/internal/semantic"
	"github.com/veridata-labs/semquery/internal/storage"
)

// Cursor orchestrates the eight-phase reconciliation pipeline (spec.md
// §4.7), grounded on original_source's core/agent/rca_cursor/cursor.rs.
type Cursor struct {
	Registry        *semantic.Registry
	TraceStore      *observability.Store
	TopK            int
	ForceNestedLoop bool
}

// New returns a Cursor wired to reg and a trace store. traceStore may be
// nil to disable trace collection.
func New(reg *semantic.Registry, traceStore *observability.Store) *Cursor {
	return &Cursor{Registry: reg, TraceStore: traceStore, TopK: defaultTopK}
}

// Run executes all eight phases for task, reading system A's rows via
// readerA and system B's via readerB.
func (c *Cursor) Run(ctx context.Context, task Task, readerA, readerB storage.Reader) (*RCAResult, error) {
	requestID := uuid.NewString()
	var collector *observability.Collector
	if c.TraceStore != nil {
		collector = observability.NewCollector(requestID)
	}

	phase := func(name string, fn func() error) error {
		if collector != nil {
			collector.StartPhase(name)
			defer collector.EndPhase(name)
		}
		return fn()
	}

	// Phase 1: validate.
	if err := phase("validate", func() error { return c.validate(task) }); err != nil {
		return nil, err
	}

	// Phase 2: build logical plans.
	var logicalA, logicalB LogicalPlan
	if err := phase("build_logical_plans", func() error {
		var err error
		logicalA, err = BuildLogicalPlan(c.Registry, task, task.SystemA, task.GrainPlanA)
		if err != nil {
			return err
		}
		logicalB, err = BuildLogicalPlan(c.Registry, task, task.SystemB, task.GrainPlanB)
		return err
	}); err != nil {
		return nil, err
	}

	// Phase 3: plan execution.
	var execA, execB ExecutionPlan
	_ = phase("plan_execution", func() error {
		execA = PlanExecution(logicalA, task.Mode, c.ForceNestedLoop)
		execB = PlanExecution(logicalB, task.Mode, c.ForceNestedLoop)
		return nil
	})
	if collector != nil {
		collector.SetGrainResolutionPath([]string{task.SystemA.Table, task.SystemB.Table})
	}

	// Phase 4: execute both sides in parallel.
	var resultA, resultB *ExecutionResult
	if err := phase("execute", func() error {
		type outcome struct {
			result *ExecutionResult
			err    error
		}
		chA := make(chan outcome, 1)
		chB := make(chan outcome, 1)

		go func() {
			r, err := Execute(ctx, execA, readerA, task.GrainKeyColumn, collector)
			chA <- outcome{r, err}
		}()
		go func() {
			r, err := Execute(ctx, execB, readerB, task.GrainKeyColumn, collector)
			chB <- outcome{r, err}
		}()

		oa, ob := <-chA, <-chB
		if oa.err != nil {
			return oa.err
		}
		if ob.err != nil {
			return ob.err
		}
		resultA, resultB = oa.result, ob.result
		return nil
	}); err != nil {
		return nil, err
	}
	if collector != nil {
		collector.RecordRowCount(task.SystemA.Name, resultA.RowCount)
		collector.RecordRowCount(task.SystemB.Name, resultB.RowCount)
		collector.RecordFilterSelectivity(task.SystemA.Name, resultA.Metadata.FilterSelectivity)
		collector.RecordFilterSelectivity(task.SystemB.Name, resultB.Metadata.FilterSelectivity)
	}

	// Phase 5: grain-level diff.
	var diffs []GrainDifference
	var summary Summary
	if err := phase("diff", func() error {
		var err error
		diffs, summary, err = Diff(resultA, resultB, c.topK())
		return err
	}); err != nil {
		return nil, err
	}

	// Phase 6: attribution.
	var attributions []Attribution
	_ = phase("attribution", func() error {
		attributions = Attribute(diffs, task.SystemA.Name, task.SystemB.Name, TotalImpact(diffs))
		return nil
	})

	// Phase 7: confidence.
	var confidence float64
	_ = phase("confidence", func() error {
		confidence = Score(ConfidenceInputs{
			JoinCompleteness: 1.0,
			NullRate:         0,
			FilterCoverage:   filterCoverage(task),
			KnownFreshness:   false,
			SamplingRatio:    samplingRatio(task.Mode),
		})
		if collector != nil {
			collector.RecordConfidence(confidence)
		}
		return nil
	})

	// Phase 8: assemble.
	result := RCAResult{
		GrainEntity:    task.GrainEntity,
		GrainKeyColumn: task.GrainKeyColumn,
		Summary:        summary,
		TopDifferences: diffs,
		Attributions:   attributions,
		Confidence:     confidence,
		LineageGraph: map[string]any{
			"system_a": task.SystemA.Name,
			"system_b": task.SystemB.Name,
			"metric":   task.MetricName,
		},
		ReconciliationOK: Reconciles(summary, diffs, task.ReportedMismatch, task.Precision),
		TraceRequestID:   requestID,
	}
	result.FormattedDisplay = Narrative(result)

	if collector != nil {
		c.TraceStore.Put(collector.Build())
	}

	return &result, nil
}

func (c *Cursor) topK() int {
	if c.TopK <= 0 {
		return defaultTopK
	}
	return c.TopK
}

// validate confirms the metric exists, the grain-key column is named, and
// both systems are fully described (spec.md §4.7 step 1).
func (c *Cursor) validate(task Task) error {
	if task.MetricName == "" {
		return errtax.New(errtax.MetricNotFound, "task has no metric name")
	}
	if c.Registry != nil {
		if _, ok := c.Registry.Metric(task.MetricName); !ok {
			return errtax.New(errtax.MetricNotFound, "metric %q not found", task.MetricName)
		}
	}
	if task.GrainEntity == "" {
		return errtax.New(errtax.ExecutionError, "task has no grain entity")
	}
	if task.GrainKeyColumn == "" {
		return errtax.New(errtax.ExecutionError, "task has no grain key column")
	}
	for _, sys := range []SystemDescriptor{task.SystemA, task.SystemB} {
		if sys.Table == "" {
			return errtax.New(errtax.TableNotFound, "system %q has no base table", sys.Name)
		}
		if sys.ValueColumn == "" {
			return errtax.New(errtax.ColumnNotFound, "system %q has no value column", sys.Name)
		}
	}
	for _, plan := range []*GrainPlan{task.GrainPlanA, task.GrainPlanB} {
		if plan == nil {
			continue
		}
		for _, step := range plan.Steps {
			if len(step.Keys) == 0 {
				return errtax.New(errtax.JoinPathFailure, "grain plan step for %q has no join keys", step.Table)
			}
		}
	}
	return nil
}

func filterCoverage(task Task) float64 {
	if len(task.Filters) == 0 {
		return 1.0
	}
	return 1.0 // every declared filter is applied by a Filter node in the execution plan
}

func samplingRatio(mode Mode) float64 {
	if mode == ModeFast {
		return 0.10
	}
	return 1.0
}
