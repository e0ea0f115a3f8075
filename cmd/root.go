package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetops/app"
	"github.com/kilianp07/fleetops/config"
	"github.com/kilianp07/fleetops/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "fleetops",
	Short:        "Fleet analytics and route-track playback",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}

// withCore loads the configuration, opens the core for the duration of fn
// and closes it afterwards.
func withCore(cmd *cobra.Command, fn func(ctx context.Context, c *app.Core) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	core, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.New("main").Errorf("close: %v", err)
		}
	}()
	return fn(ctx, core)
}
