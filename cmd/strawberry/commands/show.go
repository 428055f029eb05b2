package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/strawberry/internal/contracts"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show SYMBOL",
	Short: "Print the fact table of one ticker",
	Long: `Prints the latest quarters of a stored fact table, one column per line.

Example:
  go run ./cmd/strawberry show KO
  go run ./cmd/strawberry show KO --rows 8
  go run ./cmd/strawberry show KO --columns`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var (
	showRows    int
	showColumns bool
)

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().IntVar(&showRows, "rows", 4, "number of latest quarters to print")
	showCmd.Flags().BoolVar(&showColumns, "columns", false, "print the column names only")
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	symbol := strings.ToUpper(strings.TrimSpace(args[0]))
	facts, err := a.facts.Read(ctx, contracts.TableFacts, symbol)
	if errors.Is(err, contracts.ErrTableNotFound) {
		return fmt.Errorf("no fact table for %s, run the pipeline first", symbol)
	}
	if err != nil {
		return fmt.Errorf("read facts: %w", err)
	}

	columns := facts.Columns()
	if showColumns {
		PrintList(columns)
		return nil
	}

	rows := facts.Records
	if showRows > 0 && len(rows) > showRows {
		rows = rows[len(rows)-showRows:]
	}

	PrintHeader(symbol, [][2]string{
		{"Quarters", fmt.Sprintf("%d", facts.Len())},
		{"Columns", fmt.Sprintf("%d", len(columns))},
		{"Written", timestamp(facts.FetchedAt)},
	})

	width := 0
	for _, c := range columns {
		if len(c) > width {
			width = len(c)
		}
	}
	widths := make([]int, len(rows)+1)
	widths[0] = width
	for i := 1; i < len(widths); i++ {
		widths[i] = 12
	}

	header := []string{"column"}
	for _, rec := range rows {
		header = append(header, FormatValue(rec["qtr_end_date"]))
	}
	PrintTableHeader(header, widths)

	for _, c := range columns {
		if c == "qtr_end_date" {
			continue
		}
		line := []string{c}
		for _, rec := range rows {
			line = append(line, FormatValue(rec[c]))
		}
		PrintTableRow(line, widths)
	}
	return nil
}
