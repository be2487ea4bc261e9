// Package storage abstracts over the data sources a compiled query can run
// against: CSV fixtures, a live Postgres warehouse, and stubbed Delta/S3
// backends reserved for future wiring (spec.md §5, grounded on the
// original engine's storage.rs DataSource/TableReader abstraction).
package storage

import (
	"context"
	"errors"
)

// ErrBackendNotImplemented is returned by backends reserved for a future
// release (Delta Lake, S3) rather than silently falling back to a
// different source.
var ErrBackendNotImplemented = errors.New("storage: backend not implemented")

// Row is one result row, column name to value.
type Row map[string]any

// Reader executes a compiled SQL statement against a concrete backend and
// returns its rows. Backends never see the semantic intent, only SQL text
// — the compiler is the only component that builds queries.
type Reader interface {
	Query(ctx context.Context, sql string) ([]Row, error)
	Close()
}

// Kind identifies a backend type, mirroring the original engine's
// DataSource enum.
type Kind string

const (
	KindCSV      Kind = "csv"
	KindParquet  Kind = "parquet"
	KindPostgres Kind = "postgres"
	KindDelta    Kind = "delta"
	KindS3       Kind = "s3"
)

// Source names a concrete backend instance.
type Source struct {
	Kind Kind
	Path string // file path for CSV/Parquet/Delta
	DSN  string // connection string for Postgres
}

// New builds a Reader for source. Delta and S3 are not yet implemented and
// return ErrBackendNotImplemented rather than a usable Reader, so callers
// can distinguish "this backend isn't real yet" from a connection failure.
func New(ctx context.Context, src Source) (Reader, error) {
	switch src.Kind {
	case KindCSV:
		return NewCSVReader(src.Path)
	case KindPostgres:
		return NewPostgresReader(ctx, src.DSN)
	case KindParquet, KindDelta, KindS3:
		return nil, ErrBackendNotImplemented
	default:
		return nil, ErrBackendNotImplemented
	}
}
