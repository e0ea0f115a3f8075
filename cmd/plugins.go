package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetops/app/plugins"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the sink types usable in the configuration",
	Run: func(cmd *cobra.Command, args []string) {
		for _, k := range plugins.Available() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", k.Name, strings.Join(k.Types, ", "))
		}
	},
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
}
