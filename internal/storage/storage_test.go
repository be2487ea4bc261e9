package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCSVReaderQuery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.csv")
	content := "id,amount\n1,100\n2,200\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	r, err := NewCSVReader(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer r.Close()

	rows, err := r.Query(context.Background(), "ignored")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["amount"] != "100" {
		t.Fatalf("expected amount=100, got %v", rows[0]["amount"])
	}
}

func TestNewUnimplementedBackends(t *testing.T) {
	for _, k := range []Kind{KindParquet, KindDelta, KindS3} {
		_, err := New(context.Background(), Source{Kind: k})
		if err != ErrBackendNotImplemented {
			t.Fatalf("expected ErrBackendNotImplemented for %s, got %v", k, err)
		}
	}
}
