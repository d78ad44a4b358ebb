package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "products-api",
	Short:        "Products inventory service",
	Long:         "Products inventory API with soft delete, bulk operations and JSON/XML export",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default ./config.yaml when present)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}
