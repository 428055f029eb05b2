package commands

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/strawberry/pkg/config"
	"github.com/wonny/strawberry/pkg/database"
	"github.com/wonny/strawberry/pkg/redis"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check storage, Postgres and Redis connectivity",
	Long: `Checks the environment the pipeline runs in.

This command:
- loads the configuration from .env and the environment
- checks the acquisition and transformed folders
- pings Postgres and prints pool statistics when DATABASE_URL is set
- pings Redis when REDIS_ENABLED is true

Example:
  go run ./cmd/strawberry check`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Strawberry Environment Check ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s)\n\n", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var failed int
	for _, dir := range []string{cfg.Storage.AcquisitionPath(), cfg.Storage.TransformedPath()} {
		info, err := os.Stat(dir)
		switch {
		case err == nil && info.IsDir():
			PrintSuccess(fmt.Sprintf("Folder %s", dir))
		case errors.Is(err, os.ErrNotExist):
			PrintInfo(fmt.Sprintf("Folder %s does not exist yet", dir))
		default:
			PrintError(fmt.Sprintf("Folder %s is not usable", dir))
			failed++
		}
	}
	if cfg.AlphaVantage.APIKey == "" {
		PrintInfo("ALPHA_VANTAGE_API_KEY not set, acquisition is disabled")
	}

	if err := checkDatabase(ctx, cfg); err != nil {
		PrintError(err.Error())
		failed++
	}
	if err := checkRedis(ctx, cfg); err != nil {
		PrintError(err.Error())
		failed++
	}

	if failed > 0 {
		return fmt.Errorf("%d checks failed", failed)
	}
	fmt.Println("\n✅ All checks passed!")
	return nil
}

func checkDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := database.New(ctx, cfg)
	if errors.Is(err, database.ErrNotConfigured) {
		PrintInfo("DATABASE_URL not set, fact tables are written to files only")
		return nil
	}
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	fmt.Printf("   Database URL: %s\n", redactURL(cfg.Database.URL))
	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("database health check: %w", err)
	}

	PrintSuccess("Postgres reachable")
	PrintKeyValue("Response Time", status.ResponseTime.String(), 16)
	PrintKeyValue("Max Connections", fmt.Sprintf("%d", status.Stats.MaxConns), 16)
	PrintKeyValue("Total", fmt.Sprintf("%d", status.Stats.TotalConns), 16)
	PrintKeyValue("Idle", fmt.Sprintf("%d", status.Stats.IdleConns), 16)
	return nil
}

func checkRedis(ctx context.Context, cfg *config.Config) error {
	client, err := redis.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer client.Close()

	if !client.Enabled() {
		PrintInfo("Redis disabled, caching and the shared API budget are off")
		return nil
	}
	start := time.Now()
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	PrintSuccess(fmt.Sprintf("Redis reachable (%s)", time.Since(start).Round(time.Microsecond)))
	return nil
}

// redactURL hides the password of a connection URL
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}
