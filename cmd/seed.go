package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetops/app"
	"github.com/kilianp07/fleetops/internal/seed"
)

var seedOpts seed.Options

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo fleet into the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(cmd, func(ctx context.Context, c *app.Core) error {
			d := seed.Demo(time.Now(), seedOpts)
			if err := seed.Apply(ctx, c.Store, d); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d vehicles, %d routes, %d fuel and %d maintenance records\n",
				len(d.Vehicles), len(d.Routes), len(d.Fuel), len(d.Maintenance))
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedOpts.HistoryMonths, "history-months", 12, "months of generated refuelling and service history")
	seedCmd.Flags().Int64Var(&seedOpts.Seed, "seed", 1, "random seed of the generated history")
	rootCmd.AddCommand(seedCmd)
}
