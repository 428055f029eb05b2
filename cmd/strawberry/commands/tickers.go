package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/strawberry/internal/contracts"
)

// tickersCmd represents the tickers command
var tickersCmd = &cobra.Command{
	Use:   "tickers",
	Short: "List tickers with their acquisition and fact status",
	Long: `Lists the configured tickers, the acquired tables still missing
for each and when its fact table was last written.

Example:
  go run ./cmd/strawberry tickers
  go run ./cmd/strawberry tickers --tickers ./config/watchlist.csv`,
	RunE: runTickers,
}

func init() {
	rootCmd.AddCommand(tickersCmd)
}

func runTickers(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tickers, err := a.tickers(nil)
	if err != nil {
		return err
	}
	tables := a.pipeline.AcquisitionNames()

	widths := []int{8, 10, 20, 30}
	PrintTableHeader([]string{"SYMBOL", "ACQUIRED", "FACTS", "MISSING"}, widths)

	complete := 0
	for _, symbol := range tickers {
		ok, missing, err := a.raw.AllExist(ctx, tables, symbol)
		if err != nil {
			return fmt.Errorf("check %s: %w", symbol, err)
		}
		if ok {
			complete++
		}

		written := "-"
		if t, err := a.files.LastUpdate(ctx, contracts.TableFacts, symbol); err == nil {
			written = timestamp(t)
		}

		PrintTableRow([]string{
			symbol,
			fmt.Sprintf("%d/%d", len(tables)-len(missing), len(tables)),
			written,
			strings.Join(missing, ", "),
		}, widths)
	}
	PrintSeparator()
	PrintInfo(fmt.Sprintf("%d of %d tickers fully acquired", complete, len(tickers)))
	return nil
}
