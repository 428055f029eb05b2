package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/strawberry/internal/pipeline"
	"github.com/wonny/strawberry/internal/scheduler"
	"github.com/wonny/strawberry/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Nightly job management",
	Long: `Starts the scheduler or manages its jobs.

Jobs:
  acquisition  - $SCHEDULE_ACQUIRE (fetch missing tables within the API budget)
  pipeline     - $SCHEDULE_PIPELINE (rebuild stale fact tables)

Subcommands:
  start   - start the scheduler
  list    - list registered jobs
  run     - run one job now

Example:
  go run ./cmd/strawberry scheduler start
  go run ./cmd/strawberry scheduler run pipeline`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job now and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// scheduler registers the nightly jobs. Acquisition is left out when no
// API key is configured.
func (a *app) scheduler(runner *pipeline.Runner) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log, scheduler.WithMetrics(a.metrics))

	acq, err := a.acquirer()
	if err != nil {
		a.log.WithError(err).Warn("Acquisition job disabled")
	} else {
		job := jobs.NewAcquisitionJob(acq, a.tickerSource(), a.cfg.Pipeline.ScheduleAcquire, a.log)
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}

	job := jobs.NewPipelineJob(runner, a.tickerSource(), a.cfg.Pipeline.Workers, a.cfg.Pipeline.SchedulePipeline, a.log)
	if err := sched.AddJob(job); err != nil {
		return nil, err
	}
	return sched, nil
}

func initScheduler(ctx context.Context) (*app, *scheduler.Scheduler, error) {
	a, err := newApp(ctx)
	if err != nil {
		return nil, nil, err
	}
	runner, err := a.runner()
	if err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("build pipeline: %w", err)
	}
	sched, err := a.scheduler(runner)
	if err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("init scheduler: %w", err)
	}
	return a, sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Strawberry Scheduler ===")

	a, sched, err := initScheduler(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	PrintList(sched.Jobs())
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	sched.Start()
	defer sched.Stop()

	widths := []int{12, 14, 20}
	PrintTableHeader([]string{"JOB", "SCHEDULE", "NEXT RUN"}, widths)
	for _, st := range sched.Stats() {
		next := "-"
		if st.NextRun != nil {
			next = timestamp(*st.NextRun)
		}
		PrintTableRow([]string{st.JobName, st.Schedule, next}, widths)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, sched, err := initScheduler(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Running job: %s\n", args[0])

	result, err := sched.RunJobSync(ctx, args[0])
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	PrintKeyValue("Attempts", fmt.Sprintf("%d", result.Attempts), 8)
	PrintKeyValue("Duration", FormatDuration(result.Duration), 8)
	if !result.Success {
		PrintError(result.Error)
		return fmt.Errorf("job %s failed", result.JobName)
	}
	PrintSuccess(fmt.Sprintf("Job %s completed", result.JobName))
	return nil
}
