package contracts

import (
	"context"
	"errors"
	"time"
)

// ErrTableNotFound is returned by a TableStore when a (table, symbol) partition is absent
var ErrTableNotFound = errors.New("table not found")

// ErrNoRuns is returned by a RunStore that has not saved any report yet
var ErrNoRuns = errors.New("no pipeline runs recorded")

// RawSource fetches one raw table from the upstream API
// ⭐ SSOT: acquisition collaborator interface
type RawSource interface {
	Fetch(ctx context.Context, table, symbol string) (FetchResult, error)
}

// TableStore is a key-value table store keyed by (table name, symbol).
// A write replaces the whole partition; partitions of different symbols
// never affect each other.
// ⭐ SSOT: storage collaborator interface
type TableStore interface {
	Exists(ctx context.Context, table, symbol string) (bool, error)
	Read(ctx context.Context, table, symbol string) (*RawTable, error)
	Write(ctx context.Context, t *RawTable) error
}

// TableIndex is implemented by stores that can enumerate partitions
type TableIndex interface {
	Symbols(ctx context.Context, table string) ([]string, error)
	LastUpdate(ctx context.Context, table, symbol string) (time.Time, error)
}

// RunStore keeps run reports
type RunStore interface {
	SaveRun(ctx context.Context, report *RunReport) error
	LatestRun(ctx context.Context) (*RunReport, error)
}

// QualityGate checks a finished fact table
type QualityGate interface {
	Check(ctx context.Context, facts *RawTable) (*QualitySnapshot, error)
}
