package cmd

import "github.com/spf13/cobra"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the API, playback and scheduled regeneration",
	RunE:  run,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
