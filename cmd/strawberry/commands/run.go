package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/strawberry/internal/contracts"
	"github.com/wonny/strawberry/internal/pipeline"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [symbols...]",
	Short: "Build fact tables from acquired data",
	Long: `Runs the fact pipeline over the acquired tables.

Each ticker is consolidated, derived, valued, scored and screened,
then written to the transformed folder (and Postgres when configured).
Tickers whose fact table is newer than all of their inputs are skipped
unless --force is given.

Example:
  go run ./cmd/strawberry run
  go run ./cmd/strawberry run KO PEP --force --workers 8`,
	RunE: runPipeline,
}

var (
	runForce   bool
	runWorkers int
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runForce, "force", false, "rebuild up-to-date tickers")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "parallel tickers (default is $WORKERS)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
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
	runner, err := a.runner()
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	workers := runWorkers
	if workers < 1 {
		workers = a.cfg.Pipeline.Workers
	}

	PrintHeader("Fact pipeline", [][2]string{
		{"Tickers", fmt.Sprintf("%d", len(tickers))},
		{"Workers", fmt.Sprintf("%d", workers)},
		{"Config", runner.ConfigHash()[:12]},
	})

	if verbose {
		runner.Subscribe(func(ev pipeline.Event) {
			if ev.Kind == pipeline.EventTickerDone && ev.Result != nil {
				fmt.Printf("[%s] %s %s\n", ev.Result.Status, ev.Result.Symbol, FormatDuration(ev.Result.Duration))
			}
		})
	}

	report, err := runner.Run(ctx, tickers, pipeline.Options{Workers: workers, Force: runForce})
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	printRunReport(report)
	if report.Status() == "failed" {
		return fmt.Errorf("every ticker failed")
	}
	return nil
}

func printRunReport(report *contracts.RunReport) {
	widths := []int{8, 8, 6, 12, 36}
	PrintTableHeader([]string{"SYMBOL", "STATUS", "ROWS", "STAGE", "DETAIL"}, widths)
	for _, r := range report.Results {
		detail := r.Error
		if detail == "" && len(r.Issues) > 0 {
			detail = fmt.Sprintf("%d issues: %s", len(r.Issues), r.Issues[0])
		}
		PrintTableRow([]string{
			r.Symbol,
			string(r.Status),
			fmt.Sprintf("%d", r.Rows),
			r.Stage.String(),
			detail,
		}, widths)
	}
	PrintSeparator()

	PrintKeyValue("Run", report.RunID, 8)
	PrintKeyValue("Status", report.Status(), 8)
	PrintKeyValue("Ok", fmt.Sprintf("%d", report.Count(contracts.TickerOK)), 8)
	PrintKeyValue("Skipped", fmt.Sprintf("%d", report.Count(contracts.TickerSkipped)), 8)
	PrintKeyValue("Failed", fmt.Sprintf("%d", report.Count(contracts.TickerFailed)), 8)
	PrintKeyValue("Duration", FormatDuration(report.Duration()), 8)
	if len(report.Exceptions) > 0 {
		PrintWarning(fmt.Sprintf("%d exceptions recorded under %s/%s", len(report.Exceptions), contracts.TableExceptions, pipeline.ExceptionsPartition))
	}
}
