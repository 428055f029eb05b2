package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/strawberry/internal/contracts"
)

// Multi reads from the primary store and writes to every store in order.
// A failed secondary write is reported but does not undo the primary one.
type Multi struct {
	primary     contracts.TableStore
	secondaries []contracts.TableStore
}

// NewMulti creates a fan-out store; nil secondaries are ignored
func NewMulti(primary contracts.TableStore, secondaries ...contracts.TableStore) *Multi {
	m := &Multi{primary: primary}
	for _, s := range secondaries {
		if s != nil {
			m.secondaries = append(m.secondaries, s)
		}
	}
	return m
}

// Exists asks the primary store
func (m *Multi) Exists(ctx context.Context, table, symbol string) (bool, error) {
	return m.primary.Exists(ctx, table, symbol)
}

// Read reads from the primary store
func (m *Multi) Read(ctx context.Context, table, symbol string) (*contracts.RawTable, error) {
	return m.primary.Read(ctx, table, symbol)
}

// Write writes to the primary store, then to each secondary
func (m *Multi) Write(ctx context.Context, t *contracts.RawTable) error {
	if err := m.primary.Write(ctx, t); err != nil {
		return err
	}

	var errs []error
	for _, s := range m.secondaries {
		if err := s.Write(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

// Symbols lists partitions of the primary store
func (m *Multi) Symbols(ctx context.Context, table string) ([]string, error) {
	idx, err := index(m.primary)
	if err != nil {
		return nil, err
	}
	return idx.Symbols(ctx, table)
}

// LastUpdate reports the primary store's write time
func (m *Multi) LastUpdate(ctx context.Context, table, symbol string) (time.Time, error) {
	idx, err := index(m.primary)
	if err != nil {
		return time.Time{}, err
	}
	return idx.LastUpdate(ctx, table, symbol)
}

// SaveRun saves the report in every store that keeps runs
func (m *Multi) SaveRun(ctx context.Context, report *contracts.RunReport) error {
	var errs []error
	for _, s := range append([]contracts.TableStore{m.primary}, m.secondaries...) {
		rs, ok := s.(contracts.RunStore)
		if !ok {
			continue
		}
		if err := rs.SaveRun(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", s, err))
		}
	}
	return errors.Join(errs...)
}

// LatestRun reads the last report from the primary store
func (m *Multi) LatestRun(ctx context.Context) (*contracts.RunReport, error) {
	rs, ok := m.primary.(contracts.RunStore)
	if !ok {
		return nil, contracts.ErrNoRuns
	}
	return rs.LatestRun(ctx)
}

func index(s contracts.TableStore) (contracts.TableIndex, error) {
	idx, ok := s.(contracts.TableIndex)
	if !ok {
		return nil, fmt.Errorf("%T cannot list partitions", s)
	}
	return idx, nil
}
