package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/strawberry/internal/pipelineconfig"
	"github.com/wonny/strawberry/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the pipeline configuration",
}

var (
	configCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "Validate the pipeline config and print its hash",
		RunE:  runConfigCheck,
	}

	configPrintCmd = &cobra.Command{
		Use:   "print",
		Short: "Print the effective pipeline config as YAML",
		RunE:  runConfigPrint,
	}
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configPrintCmd)
}

func loadPipelineConfig() (*pipelineconfig.Config, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	path := cfg.Storage.PipelinePath()
	if pipelineFile != "" {
		path = pipelineFile
	}
	pcfg, err := pipelineconfig.LoadOrDefault(path)
	if err != nil {
		return nil, path, err
	}
	return pcfg, path, nil
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	pcfg, path, err := loadPipelineConfig()
	if err != nil {
		if pipelineconfig.IsValidationError(err) {
			PrintError(fmt.Sprintf("%s: %v", path, err))
		}
		return err
	}

	hash, err := pipelineconfig.Hash(pcfg)
	if err != nil {
		return err
	}

	source := path
	if _, statErr := os.Stat(path); statErr != nil {
		source = "built-in defaults"
	}

	PrintHeader("Pipeline config", [][2]string{
		{"Source", source},
		{"Name", pcfg.Meta.Name},
		{"Version", pcfg.Meta.Version},
		{"Hash", hash},
	})
	PrintKeyValue("Acquired", fmt.Sprintf("%d tables", len(pcfg.Acquisition.Tables)), 10)
	PrintKeyValue("Schemas", fmt.Sprintf("%d tables", len(pcfg.Tables)), 10)
	PrintKeyValue("Merge", fmt.Sprintf("%v", pcfg.Consolidation.Order), 10)
	PrintSuccess("Config is valid")
	return nil
}

func runConfigPrint(cmd *cobra.Command, args []string) error {
	pcfg, _, err := loadPipelineConfig()
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(pcfg)
}
