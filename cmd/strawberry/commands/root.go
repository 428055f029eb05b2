package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	pipelineFile string
	tickersFile  string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "strawberry",
	Short: "Dividend stock fact pipeline",
	Long: `Strawberry builds quarterly fact tables for dividend stocks.

Raw AlphaVantage tables are acquired once per ticker, then
consolidated into one row per fiscal quarter with derived metrics,
valuations, scores and screening rules.

Usage:
  go run ./cmd/strawberry [command]

Examples:
  go run ./cmd/strawberry acquire
  go run ./cmd/strawberry run KO PEP
  go run ./cmd/strawberry show KO --rows 4
  go run ./cmd/strawberry serve --with-scheduler`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&pipelineFile, "pipeline", "", "pipeline config file (default is $CONFIG_FOLDER/$PIPELINE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&tickersFile, "tickers", "", "ticker list CSV (default is $CONFIG_FOLDER/$TICKERS_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
