package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/veridata-labs/semquery/internal/errtax"
	"github.com/veridata-labs/semquery/internal/observability"
	"github.com/veridata-labs/semquery/internal/rcacursor"
	"github.com/veridata-labs/semquery/internal/semantic"
	"github.com/veridata-labs/semquery/internal/storage"
	"github.com/veridata-labs/semquery/internal/trust"
)

var runFlags struct {
	taskID           string
	metric           string
	grainEntity      string
	grainKeyColumn   string
	mode             string
	windowStart      string
	windowEnd        string
	reportedMismatch float64
	precision        int

	systemAName    string
	systemATable   string
	systemAColumn  string
	systemAFormula string

	systemBName    string
	systemBTable   string
	systemBColumn  string
	systemBFormula string

	writeEvidence bool
	problem       string
}

var reconcileRunCmd = &cobra.Command{
	Use:   "run",
	Short: "run a reconciliation task (mode flag, task id, metric, window)",
	RunE:  runReconcile,
}

func init() {
	f := reconcileRunCmd.Flags()
	f.StringVar(&runFlags.taskID, "task-id", "", "caller-supplied identifier for this task, recorded in the evidence record's input parameters")
	f.StringVar(&runFlags.metric, "metric", "", "metric name to reconcile (required)")
	f.StringVar(&runFlags.grainEntity, "grain-entity", "", "entity the grain key belongs to (required)")
	f.StringVar(&runFlags.grainKeyColumn, "grain-key-column", "", "grain key column name (required)")
	f.StringVar(&runFlags.mode, "mode", "fast", "cursor mode: fast, deep, or forensic")
	f.StringVar(&runFlags.windowStart, "window-start", "", "RFC3339 time window start")
	f.StringVar(&runFlags.windowEnd, "window-end", "", "RFC3339 time window end")
	f.Float64Var(&runFlags.reportedMismatch, "reported-mismatch", 0, "externally reported aggregate mismatch to reconcile against")
	f.IntVar(&runFlags.precision, "precision", 6, "reconciliation tolerance exponent")

	f.StringVar(&runFlags.systemAName, "system-a-name", "system_a", "system A display name")
	f.StringVar(&runFlags.systemATable, "system-a-table", "", "system A table name (required, also used as CSV fixture name)")
	f.StringVar(&runFlags.systemAColumn, "system-a-value-column", "", "system A value column (required)")
	f.StringVar(&runFlags.systemAFormula, "system-a-formula", "", "system A aggregation formula, e.g. sum(amount)")

	f.StringVar(&runFlags.systemBName, "system-b-name", "system_b", "system B display name")
	f.StringVar(&runFlags.systemBTable, "system-b-table", "", "system B table name (required, also used as CSV fixture name)")
	f.StringVar(&runFlags.systemBColumn, "system-b-value-column", "", "system B value column (required)")
	f.StringVar(&runFlags.systemBFormula, "system-b-formula", "", "system B aggregation formula, e.g. sum(amount)")

	f.BoolVar(&runFlags.writeEvidence, "evidence", true, "persist an evidence record for this run")
	f.StringVar(&runFlags.problem, "problem", "", "free-text description of why this reconciliation was run")

	reconcileCmd.AddCommand(reconcileRunCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if runFlags.metric == "" || runFlags.grainEntity == "" || runFlags.grainKeyColumn == "" {
		return errtax.New(errtax.CompilerError, "metric, grain-entity, and grain-key-column are required")
	}
	if runFlags.systemATable == "" || runFlags.systemBTable == "" {
		return errtax.New(errtax.CompilerError, "system-a-table and system-b-table are required")
	}

	mode := rcacursor.Mode(runFlags.mode)
	switch mode {
	case rcacursor.ModeFast, rcacursor.ModeDeep, rcacursor.ModeForensic:
	default:
		return errtax.New(errtax.CompilerError, "mode must be fast, deep, or forensic, got %q", runFlags.mode)
	}

	task := rcacursor.Task{
		MetricName:       runFlags.metric,
		GrainEntity:      runFlags.grainEntity,
		GrainKeyColumn:   runFlags.grainKeyColumn,
		Mode:             mode,
		ReportedMismatch: runFlags.reportedMismatch,
		Precision:        runFlags.precision,
		SystemA: rcacursor.SystemDescriptor{
			Name: runFlags.systemAName, Table: runFlags.systemATable,
			ValueColumn: runFlags.systemAColumn, Formula: runFlags.systemAFormula,
		},
		SystemB: rcacursor.SystemDescriptor{
			Name: runFlags.systemBName, Table: runFlags.systemBTable,
			ValueColumn: runFlags.systemBColumn, Formula: runFlags.systemBFormula,
		},
	}
	var err error
	if task.TimeWindowStart, err = parseOptionalTime(runFlags.windowStart); err != nil {
		return errtax.Wrap(errtax.CompilerError, err)
	}
	if task.TimeWindowEnd, err = parseOptionalTime(runFlags.windowEnd); err != nil {
		return errtax.Wrap(errtax.CompilerError, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	readerA, err := csvReaderFor(task.SystemA.Table)
	if err != nil {
		return err
	}
	defer readerA.Close()

	readerB, err := csvReaderFor(task.SystemB.Table)
	if err != nil {
		return err
	}
	defer readerB.Close()

	traceStore := observability.NewStore()
	cursor := rcacursor.New(reg, traceStore)

	result, err := cursor.Run(ctx, task, readerA, readerB)
	if err != nil {
		return err
	}

	fmt.Println(rcacursor.Narrative(*result))

	if runFlags.writeEvidence {
		store, err := trust.NewEvidenceStore(cfg.Evidence.Root)
		if err != nil {
			return errtax.Wrap(errtax.ExecutionError, err)
		}
		id, err := store.Write(task, *result, trust.EvidenceInputs{
			SystemA:          task.SystemA.Name,
			SystemB:          task.SystemB.Name,
			Metric:           task.MetricName,
			ReportedMismatch: task.ReportedMismatch,
			Parameters:       map[string]any{"task_id": runFlags.taskID},
		}, runFlags.problem)
		if err != nil {
			return errtax.Wrap(errtax.ExecutionError, err)
		}
		fmt.Printf("execution_id: %s\n", id)
	}

	return nil
}

func parseOptionalTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func loadRegistry() (*semantic.Registry, error) {
	reg, err := semantic.LoadFile(cfg.Registry.Path)
	if err != nil {
		return nil, errtax.Wrap(errtax.MetricNotFound, err)
	}
	return reg, nil
}

func csvReaderFor(table string) (storage.Reader, error) {
	path := filepath.Join(cfg.Storage.CSVRoot, table+".csv")
	r, err := storage.New(context.Background(), storage.Source{Kind: storage.KindCSV, Path: path})
	if err != nil {
		return nil, errtax.Wrap(errtax.TableNotFound, err)
	}
	return r, nil
}
