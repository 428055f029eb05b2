package pipelineconfig

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNoTickers is returned when a ticker list has no symbols
var ErrNoTickers = errors.New("ticker list is empty")

// LoadTickers reads the ticker CSV at path
func LoadTickers(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tickers: %w", err)
	}
	defer f.Close()

	return ReadTickers(f)
}

// ReadTickers parses a ticker CSV. The symbol column is found by its
// header, or the first column is used when there is no header. Comment
// lines and blanks are skipped; symbols are upper-cased and deduplicated
// in first-seen order.
func ReadTickers(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read tickers: %w", err)
	}

	idx := 0
	if len(records) > 0 {
		for i, h := range records[0] {
			if strings.EqualFold(strings.TrimSpace(h), "symbol") {
				idx = i
				records = records[1:]
				break
			}
		}
	}

	column := make([]string, 0, len(records))
	for _, rec := range records {
		if idx < len(rec) {
			column = append(column, rec[idx])
		}
	}

	symbols := NormalizeTickers(column)
	if len(symbols) == 0 {
		return nil, ErrNoTickers
	}
	return symbols, nil
}

// NormalizeTickers upper-cases and trims symbols, dropping blanks and
// repeats while keeping first-seen order
func NormalizeTickers(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
