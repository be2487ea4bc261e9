package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
)

// CSVReader reads a single CSV file into memory. It is meant for fixture
// and reconciliation-comparison use (RcaCursor comparing two pipeline
// snapshots captured as CSV), not as a general SQL engine: Query ignores
// the sql argument and returns every row, since CSV has no query planner
// to push a WHERE/GROUP BY into.
type CSVReader struct {
	path string
}

// NewCSVReader opens path eagerly to fail fast on a missing file.
func NewCSVReader(path string) (*CSVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: open csv %s: %w", path, err)
	}
	f.Close()
	return &CSVReader{path: path}, nil
}

func (r *CSVReader) Query(_ context.Context, _ string) ([]Row, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("storage: open csv %s: %w", r.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage: read csv %s: %w", r.path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r *CSVReader) Close() {}
