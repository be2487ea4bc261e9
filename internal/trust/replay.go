package trust

import (
	"context"
	"fmt"

	"github.com/veridata-labs/semquery/internal/observability"
	"github.com/veridata-labs/semquery/internal/rcacursor"
	"github.com/veridata-labs/semquery/internal/semantic"
	"github.com/veridata-labs/semquery/internal/storage"
)

// ReplayVerification compares a replay's summary counts and reconciliation
// flag against the original evidence record (spec.md §4.8).
type ReplayVerification struct {
	Matches     bool
	Differences []string
}

// ReplayResult is the outcome of replaying one execution id.
type ReplayResult struct {
	ExecutionID  string
	Result       rcacursor.RCAResult
	Verification *ReplayVerification
}

// ReaderFactory resolves a SystemDescriptor to a live storage.Reader at
// replay time; readers are not persisted in evidence records (only table
// names and parameters are), so replay needs a way to reconnect to the
// same backends.
type ReaderFactory func(ctx context.Context, sys rcacursor.SystemDescriptor) (storage.Reader, error)

// Replay loads the evidence record for executionID, rebuilds its Task, and
// re-executes the full pipeline. If verify is true the replay is verified
// against the original record's outputs, comparing the aggregate
// difference within tolerance; reported differences are
// returned, never raised (spec.md §4.8).
func Replay(ctx context.Context, store *EvidenceStore, reg *semantic.Registry, traceStore *observability.Store, readers ReaderFactory, executionID string, verify bool, tolerance float64) (*ReplayResult, error) {
	record, err := store.Load(executionID)
	if err != nil {
		return nil, err
	}

	readerA, err := readers(ctx, record.Task.SystemA)
	if err != nil {
		return nil, fmt.Errorf("reconnect system A reader for replay of %s: %w", executionID, err)
	}
	defer readerA.Close()

	readerB, err := readers(ctx, record.Task.SystemB)
	if err != nil {
		return nil, fmt.Errorf("reconnect system B reader for replay of %s: %w", executionID, err)
	}
	defer readerB.Close()

	cursor := rcacursor.New(reg, traceStore)
	result, err := cursor.Run(ctx, record.Task, readerA, readerB)
	if err != nil {
		return nil, fmt.Errorf("replay execution of %s: %w", executionID, err)
	}

	out := &ReplayResult{ExecutionID: executionID, Result: *result}
	if verify {
		out.Verification = verifyReplay(record, *result, tolerance)
	}
	return out, nil
}

// verifyReplay compares total rows, missing-left, missing-right, mismatch
// counts, aggregate mismatch (within tolerance), and the reconciliation
// flag between the original record and the replayed result (spec.md §4.8,
// grounded on original_source's core/trust/replay.rs verify_outputs).
func verifyReplay(original EvidenceRecord, replay rcacursor.RCAResult, tolerance float64) *ReplayVerification {
	v := &ReplayVerification{Matches: true}

	check := func(name string, orig, got int) {
		if orig != got {
			v.Matches = false
			v.Differences = append(v.Differences, fmt.Sprintf("%s: original=%d, replay=%d", name, orig, got))
		}
	}

	origSummary := original.Outputs.Summary
	check("total grain units", origSummary.TotalGrainUnits, replay.Summary.TotalGrainUnits)
	check("missing left", origSummary.MissingLeft, replay.Summary.MissingLeft)
	check("missing right", origSummary.MissingRight, replay.Summary.MissingRight)
	check("mismatch", origSummary.Mismatch, replay.Summary.Mismatch)

	diff := origSummary.AggregateDifference - replay.Summary.AggregateDifference
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		v.Matches = false
		v.Differences = append(v.Differences, fmt.Sprintf(
			"aggregate difference: original=%.4f, replay=%.4f, diff=%.4f",
			origSummary.AggregateDifference, replay.Summary.AggregateDifference, diff))
	}

	if original.Outputs.ReconciliationPasses != replay.ReconciliationOK {
		v.Matches = false
		v.Differences = append(v.Differences, fmt.Sprintf(
			"reconciliation: original=%v, replay=%v", original.Outputs.ReconciliationPasses, replay.ReconciliationOK))
	}

	return v
}
