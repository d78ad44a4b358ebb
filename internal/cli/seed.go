package cli

import (
	"context"
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/mrops-br/products-inventory-api/internal/app/seed"
	"github.com/spf13/cobra"
)

var (
	seedActive  int
	seedTrashed int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample products",
	Long:  "Inserts sample products, some of them moved straight to the trash",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if seedActive < 0 || seedTrashed < 0 {
			return fmt.Errorf("--active and --trashed must not be negative")
		}

		app, err := bootstrap(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer func() { _ = app.close(context.Background()) }()

		seeder := seed.NewSeeder(app.repo, app.logger, gofakeit.New(0))

		result, err := seeder.Seed(cmd.Context(), seedActive, seedTrashed)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d active and %d trashed products\n", result.Active, result.Trashed)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedActive, "active", 50, "number of active products to create")
	seedCmd.Flags().IntVar(&seedTrashed, "trashed", 10, "number of trashed products to create")
}
