package trust

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/veridata-labs/semquery/internal/rcacursor"
)

// EvidenceInputs is the set of parameters that fully determine a
// reconciliation run, preserved so Replay can reconstruct the same Task
// (spec.md §3 Evidence record).
type EvidenceInputs struct {
	SystemA          string
	SystemB          string
	Metric           string
	RuleIDs          []string
	ValueColumns     []string
	ReportedMismatch float64
	Parameters       map[string]any
}

// EvidenceOutputs is the summarized result of a run, kept alongside the
// full RCAResult for quick inspection without re-parsing it.
type EvidenceOutputs struct {
	Summary              rcacursor.Summary
	ReconciliationPasses bool
	RootCauseCount       int
	OutputFiles          []string
}

// EvidenceRecord is the persisted record of one Forensic-mode cursor run
// (spec.md §4.8).
type EvidenceRecord struct {
	ExecutionID         string
	Timestamp           time.Time // millisecond precision
	ProblemDescription  string
	Inputs              EvidenceInputs
	Outputs             EvidenceOutputs
	Intermediates       map[string]any
	Metadata            map[string]any
	Task                rcacursor.Task
	Result              rcacursor.RCAResult
}

// EvidenceStore persists evidence records to disk, one directory per
// execution id containing a JSON record (spec.md §6: "Evidence store
// layout"), grounded on original_source's core/trust/evidence.rs
// directory-per-execution layout.
type EvidenceStore struct {
	baseDir string
}

// NewEvidenceStore returns a store rooted at baseDir, creating it if
// necessary.
func NewEvidenceStore(baseDir string) (*EvidenceStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create evidence store directory: %w", err)
	}
	return &EvidenceStore{baseDir: baseDir}, nil
}

// Write assigns a fresh execution id, stamps the record, and persists it
// under its own directory. The id is returned to the caller (spec.md §6:
// "The id is a UUID generated at write time and returned to the caller").
func (s *EvidenceStore) Write(task rcacursor.Task, result rcacursor.RCAResult, inputs EvidenceInputs, problemDescription string) (string, error) {
	id := uuid.NewString()
	record := EvidenceRecord{
		ExecutionID:        id,
		Timestamp:          time.Now(),
		ProblemDescription: problemDescription,
		Inputs:             inputs,
		Outputs: EvidenceOutputs{
			Summary:              result.Summary,
			ReconciliationPasses: result.ReconciliationOK,
			RootCauseCount:       len(result.TopDifferences),
		},
		Intermediates: map[string]any{},
		Metadata:      map[string]any{},
		Task:          task,
		Result:        result,
	}

	dir := s.dirFor(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create evidence directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal evidence record: %w", err)
	}
	if err := os.WriteFile(s.recordPath(id), data, 0o644); err != nil {
		return "", fmt.Errorf("write evidence record: %w", err)
	}

	return id, nil
}

// Load reads a previously written record by execution id.
func (s *EvidenceStore) Load(executionID string) (EvidenceRecord, error) {
	data, err := os.ReadFile(s.recordPath(executionID))
	if err != nil {
		return EvidenceRecord{}, fmt.Errorf("read evidence record %s: %w", executionID, err)
	}
	var record EvidenceRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return EvidenceRecord{}, fmt.Errorf("unmarshal evidence record %s: %w", executionID, err)
	}
	return record, nil
}

func (s *EvidenceStore) dirFor(executionID string) string {
	return filepath.Join(s.baseDir, executionID)
}

func (s *EvidenceStore) recordPath(executionID string) string {
	return filepath.Join(s.dirFor(executionID), "record.json")
}
