package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/strawberry/internal/api"
	"github.com/wonny/strawberry/internal/api/handlers"
	"github.com/wonny/strawberry/internal/storage"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read API",
	Long: `Starts the HTTP API over the fact tables.

Endpoints:
  GET  /health                     - Health check
  GET  /metrics                    - Prometheus metrics
  GET  /api/tickers                - Tickers with a fact table
  GET  /api/facts/{symbol}         - Fact table of one ticker
  GET  /api/facts/{symbol}/latest  - Latest quarter of one ticker
  GET  /api/screener?rule=         - Tickers whose latest quarter passes a rule
  GET  /api/runs/latest            - Report of the last pipeline run
  POST /api/runs                   - Start a pipeline run
  GET  /ws/runs                    - Run progress events

Example:
  go run ./cmd/strawberry serve
  go run ./cmd/strawberry serve --port 8080 --with-scheduler`,
	RunE: runServer,
}

var (
	servePort      string
	serveScheduler bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (default is $PORT)")
	serveCmd.Flags().BoolVar(&serveScheduler, "with-scheduler", false, "also run the nightly jobs")
}

func runServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Strawberry API Server ===")

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort != "" {
		a.cfg.Port = servePort
	}

	a.log.WithFields(map[string]interface{}{
		"port": a.cfg.Port,
		"env":  a.cfg.Env,
	}).Info("Initializing API server")

	runner, err := a.runner()
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	facts := storage.NewCachedStore(a.facts, a.cache, a.metrics, a.log)
	factsHandler := handlers.NewFactsHandler(facts, a.cache, a.log)
	runsHandler := handlers.NewRunsHandler(runner, a.facts, a.tickerSource(), a.cfg.Pipeline.Workers, a.cache, a.log)
	hub := api.NewHub(a.metrics, a.log)

	runner.Subscribe(hub.Publish)
	runner.Subscribe(runsHandler.OnEvent)

	router := api.NewRouter(api.Handlers{
		Facts: factsHandler,
		Runs:  runsHandler,
		Hub:   hub,
	}, a.metrics, a.log)
	server := api.New(a.cfg, a.log, router, hub.Close)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if serveScheduler {
		sched, err := a.scheduler(runner)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
