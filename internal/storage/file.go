// Package storage persists raw and fact tables keyed by (table name, symbol).
//
// Three stores implement contracts.TableStore:
//   - FileStore: partitioned JSON files under a root folder
//   - PostgresStore: generic JSONB rows in PostgreSQL
//   - CachedStore: a read-through Redis cache in front of another store
//
// Multi fans a write out to several stores.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wonny/strawberry/internal/contracts"
)

const (
	partitionPrefix = "symbol="
	fileExt         = ".json"
	runsDir         = "_runs"
	latestRunFile   = "latest.json"
)

// FileStore keeps each (table, symbol) partition in its own file:
// <root>/<TABLE>/symbol=<SYMBOL>/<TABLE>.json
// ⭐ SSOT: partition layout on disk
type FileStore struct {
	root string
}

// NewFileStore creates a store rooted at root. The folder is created on first write.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Root returns the store folder
func (s *FileStore) Root() string {
	return s.root
}

// Path returns the file that holds the partition
func (s *FileStore) Path(table, symbol string) string {
	return filepath.Join(s.root, table, partitionPrefix+strings.ToUpper(symbol), table+fileExt)
}

// Exists reports whether the partition has been written
func (s *FileStore) Exists(ctx context.Context, table, symbol string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(s.Path(table, symbol))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s/%s: %w", table, symbol, err)
	}
	return true, nil
}

// AllExist checks every table for the symbol and returns the absent ones
func (s *FileStore) AllExist(ctx context.Context, tables []string, symbol string) (bool, []string, error) {
	var missing []string
	for _, table := range tables {
		ok, err := s.Exists(ctx, table, symbol)
		if err != nil {
			return false, nil, err
		}
		if !ok {
			missing = append(missing, table)
		}
	}
	return len(missing) == 0, missing, nil
}

// Read loads a partition; an absent one yields contracts.ErrTableNotFound
func (s *FileStore) Read(ctx context.Context, table, symbol string) (*contracts.RawTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(table, symbol))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s/%s: %w", table, symbol, contracts.ErrTableNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", table, symbol, err)
	}

	var t contracts.RawTable
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", table, symbol, err)
	}
	return &t, nil
}

// Write replaces the partition. The file is written next to its target
// and renamed into place, so a concurrent reader sees the old or the new
// table and never a partial one.
func (s *FileStore) Write(ctx context.Context, t *contracts.RawTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t == nil || t.Name == "" || t.Symbol == "" {
		return errors.New("write: table name and symbol are required")
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", t.Name, t.Symbol, err)
	}
	return writeAtomic(s.Path(t.Name, t.Symbol), data)
}

// Delete removes a partition; deleting an absent one is not an error
func (s *FileStore) Delete(ctx context.Context, table, symbol string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.RemoveAll(filepath.Dir(s.Path(table, symbol)))
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", table, symbol, err)
	}
	return nil
}

// Symbols lists the symbols that have a partition of the table, sorted
func (s *FileStore) Symbols(ctx context.Context, table string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, table))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}

	var symbols []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), partitionPrefix) {
			continue
		}
		symbol := strings.TrimPrefix(e.Name(), partitionPrefix)
		if _, err := os.Stat(s.Path(table, symbol)); err == nil {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// LastUpdate returns the modification time of the partition file
func (s *FileStore) LastUpdate(ctx context.Context, table, symbol string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(s.Path(table, symbol))
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, fmt.Errorf("%s/%s: %w", table, symbol, contracts.ErrTableNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s/%s: %w", table, symbol, err)
	}
	return info.ModTime(), nil
}

// SaveRun writes the report under _runs/ and points latest.json at it
func (s *FileStore) SaveRun(ctx context.Context, report *contracts.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}

	dir := filepath.Join(s.root, runsDir)
	name := fmt.Sprintf("%s_%s%s", report.StartedAt.UTC().Format("20060102T150405"), report.RunID, fileExt)
	if err := writeAtomic(filepath.Join(dir, name), data); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, latestRunFile), data)
}

// LatestRun reads the most recently saved report
func (s *FileStore) LatestRun(ctx context.Context) (*contracts.RunReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.root, runsDir, latestRunFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, contracts.ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("read latest run: %w", err)
	}

	var report contracts.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode latest run: %w", err)
	}
	return &report, nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
