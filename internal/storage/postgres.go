package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/internal/frame"
)

// schema statements, applied in order by EnsureSchema
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS fact_partitions (
		table_name  TEXT        NOT NULL,
		symbol      TEXT        NOT NULL,
		row_count   INTEGER     NOT NULL,
		fetched_at  TIMESTAMPTZ,
		config_hash TEXT,
		written_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (table_name, symbol)
	)`,
	`ALTER TABLE fact_partitions ADD COLUMN IF NOT EXISTS config_hash TEXT`,
	`CREATE TABLE IF NOT EXISTS fact_rows (
		table_name   TEXT    NOT NULL,
		symbol       TEXT    NOT NULL,
		row_no       INTEGER NOT NULL,
		qtr_end_date DATE,
		data         JSONB   NOT NULL,
		PRIMARY KEY (table_name, symbol, row_no),
		FOREIGN KEY (table_name, symbol) REFERENCES fact_partitions (table_name, symbol) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS fact_rows_date_idx ON fact_rows (table_name, qtr_end_date)`,
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		run_id      TEXT        PRIMARY KEY,
		config_hash TEXT        NOT NULL,
		status      TEXT        NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		report      JSONB       NOT NULL
	)`,
}

// PostgresStore keeps every table in two generic tables: one row per
// partition in fact_partitions and one JSONB row per record in fact_rows.
// ⭐ SSOT: relational sink of fact tables and run reports
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store on an open pool
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the tables when they do not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Exists reports whether the partition has been written
func (s *PostgresStore) Exists(ctx context.Context, table, symbol string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM fact_partitions WHERE table_name = $1 AND symbol = $2)`

	var ok bool
	if err := s.pool.QueryRow(ctx, query, table, symbol).Scan(&ok); err != nil {
		return false, fmt.Errorf("query partition %s/%s: %w", table, symbol, err)
	}
	return ok, nil
}

// Read loads a partition with its records in written order
func (s *PostgresStore) Read(ctx context.Context, table, symbol string) (*contracts.RawTable, error) {
	t := &contracts.RawTable{Name: table, Symbol: symbol}

	var (
		fetchedAt  *time.Time
		configHash *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT fetched_at, config_hash FROM fact_partitions WHERE table_name = $1 AND symbol = $2`,
		table, symbol,
	).Scan(&fetchedAt, &configHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", table, symbol, contracts.ErrTableNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query partition %s/%s: %w", table, symbol, err)
	}
	if fetchedAt != nil {
		t.FetchedAt = fetchedAt.UTC()
	}
	if configHash != nil {
		t.ConfigHash = *configHash
	}

	rows, err := s.pool.Query(ctx, `
		SELECT data
		FROM fact_rows
		WHERE table_name = $1 AND symbol = $2
		ORDER BY row_no ASC
	`, table, symbol)
	if err != nil {
		return nil, fmt.Errorf("query rows %s/%s: %w", table, symbol, err)
	}
	defer rows.Close()

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var rec contracts.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		t.Records = append(t.Records, rec)
	}
	return t, rows.Err()
}

// Write replaces the partition in one transaction
func (s *PostgresStore) Write(ctx context.Context, t *contracts.RawTable) error {
	if t == nil || t.Name == "" || t.Symbol == "" {
		return errors.New("write: table name and symbol are required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var fetchedAt *time.Time
	if !t.FetchedAt.IsZero() {
		fetchedAt = &t.FetchedAt
	}
	var configHash *string
	if t.ConfigHash != "" {
		configHash = &t.ConfigHash
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO fact_partitions (table_name, symbol, row_count, fetched_at, config_hash, written_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (table_name, symbol) DO UPDATE SET
			row_count = EXCLUDED.row_count,
			fetched_at = EXCLUDED.fetched_at,
			config_hash = EXCLUDED.config_hash,
			written_at = NOW()
	`, t.Name, t.Symbol, t.Len(), fetchedAt, configHash)
	if err != nil {
		return fmt.Errorf("upsert partition %s/%s: %w", t.Name, t.Symbol, err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM fact_rows WHERE table_name = $1 AND symbol = $2`,
		t.Name, t.Symbol,
	); err != nil {
		return fmt.Errorf("clear rows %s/%s: %w", t.Name, t.Symbol, err)
	}

	if t.Len() > 0 {
		batch := &pgx.Batch{}
		query := `
			INSERT INTO fact_rows (table_name, symbol, row_no, qtr_end_date, data)
			VALUES ($1, $2, $3, $4, $5)`

		for i, rec := range t.Records {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("encode row %d: %w", i, err)
			}
			batch.Queue(query, t.Name, t.Symbol, i, recordDate(rec), string(data))
		}

		br := tx.SendBatch(ctx, batch)
		for i := range t.Records {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("insert row %d of %s/%s: %w", i, t.Name, t.Symbol, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Symbols lists the symbols that have a partition of the table
func (s *PostgresStore) Symbols(ctx context.Context, table string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT symbol FROM fact_partitions WHERE table_name = $1 ORDER BY symbol`,
		table,
	)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, err
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// LastUpdate returns when the partition was last written
func (s *PostgresStore) LastUpdate(ctx context.Context, table, symbol string) (time.Time, error) {
	var written time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT written_at FROM fact_partitions WHERE table_name = $1 AND symbol = $2`,
		table, symbol,
	).Scan(&written)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%s/%s: %w", table, symbol, contracts.ErrTableNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query last update: %w", err)
	}
	return written, nil
}

// SaveRun upserts a run report
func (s *PostgresStore) SaveRun(ctx context.Context, report *contracts.RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}

	var finished *time.Time
	if !report.FinishedAt.IsZero() {
		finished = &report.FinishedAt
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO pipeline_runs (run_id, config_hash, status, started_at, finished_at, report)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			finished_at = EXCLUDED.finished_at,
			report = EXCLUDED.report
	`, report.RunID, report.ConfigHash, report.Status(), report.StartedAt, finished, string(data))
	if err != nil {
		return fmt.Errorf("save run %s: %w", report.RunID, err)
	}
	return nil
}

// LatestRun returns the most recently started run
func (s *PostgresStore) LatestRun(ctx context.Context) (*contracts.RunReport, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT report FROM pipeline_runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}

	var report contracts.RunReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("decode run report: %w", err)
	}
	return &report, nil
}

// recordDate extracts the quarter-end date of a fact record, nil when absent
func recordDate(rec contracts.Record) *time.Time {
	raw, ok := rec[frame.DateColumn].(string)
	if !ok {
		return nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil
	}
	return &d
}
