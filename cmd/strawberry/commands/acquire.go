package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/strawberry/internal/acquisition"
)

// acquireCmd represents the acquire command
var acquireCmd = &cobra.Command{
	Use:   "acquire [symbols...]",
	Short: "Acquire raw AlphaVantage tables",
	Long: `Fetches every configured AlphaVantage table for each ticker and
stores it under the acquisition folder.

Tables already stored are skipped unless --force is given. The run
stops at the first rate-limit answer; rerun later to continue where
it stopped.

Example:
  go run ./cmd/strawberry acquire
  go run ./cmd/strawberry acquire KO PEP --force`,
	RunE: runAcquire,
}

var acquireForce bool

func init() {
	rootCmd.AddCommand(acquireCmd)

	acquireCmd.Flags().BoolVar(&acquireForce, "force", false, "refetch tables already stored")
}

func runAcquire(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tickers, err := a.tickers(args)
	if err != nil {
		return err
	}
	acq, err := a.acquirer()
	if err != nil {
		return err
	}

	PrintHeader("Acquisition", [][2]string{
		{"Tickers", fmt.Sprintf("%d", len(tickers))},
		{"Tables", strings.Join(acq.Tables(), ", ")},
		{"Force", fmt.Sprintf("%t", acquireForce)},
	})

	report, err := acq.Run(ctx, tickers, acquisition.Options{Force: acquireForce})
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}

	printAcquisitionReport(report)

	pending, err := acq.TickersNotAcquired(context.WithoutCancel(ctx), tickers)
	if err != nil {
		return fmt.Errorf("check pending tickers: %w", err)
	}
	if len(pending) > 0 {
		PrintWarning(fmt.Sprintf("%d tickers still have missing tables", len(pending)))
		PrintList(pending)
	}
	return nil
}

func printAcquisitionReport(report *acquisition.Report) {
	widths := []int{8, 9, 8, 8, 30}
	PrintTableHeader([]string{"SYMBOL", "ACQUIRED", "SKIPPED", "MISSING", "ERRORS"}, widths)
	for _, t := range report.Tickers {
		PrintTableRow([]string{
			t.Symbol,
			fmt.Sprintf("%d", len(t.Acquired)),
			fmt.Sprintf("%d", len(t.Skipped)),
			fmt.Sprintf("%d", len(t.Missing)),
			strings.Join(t.Errors, "; "),
		}, widths)
	}
	PrintSeparator()

	duration := report.FinishedAt.Sub(report.StartedAt)
	switch report.Status() {
	case "ok":
		PrintSuccess(fmt.Sprintf("Acquired %d tables in %s", report.Acquired(), FormatDuration(duration)))
	case "rate_limited":
		PrintWarning(fmt.Sprintf("Stopped by the API budget after %d tables: %s", report.Acquired(), report.Message))
	default:
		PrintWarning(fmt.Sprintf("Acquired %d tables with errors in %s", report.Acquired(), FormatDuration(duration)))
	}
}
