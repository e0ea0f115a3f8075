package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetops/api/httpx"
	"github.com/kilianp07/fleetops/app"
	"github.com/kilianp07/fleetops/core/analytics"
	"github.com/kilianp07/fleetops/infra/logger"
	"github.com/kilianp07/fleetops/pkg/export"
)

var (
	reportStart  string
	reportEnd    string
	reportFormat string
	horizonDays  int
)

var reportCmd = &cobra.Command{
	Use:       "report fuel|maintenance",
	Short:     "Print a regulatory report",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"fuel", "maintenance"},
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := analytics.ParseReportKind(args[0])
		if err != nil {
			return err
		}
		start, end, err := cliRange(reportStart, reportEnd)
		if err != nil {
			return err
		}
		return withCore(cmd, func(ctx context.Context, c *app.Core) error {
			rows, err := analytics.NewAggregator(c.Store, logger.New("report")).RegulatoryReport(ctx, kind, start, end)
			if err != nil {
				return err
			}
			if reportFormat == "csv" {
				return export.WriteReportCSV(cmd.OutOrStdout(), kind, rows)
			}
			return export.WriteReportJSON(cmd.OutOrStdout(), rows)
		})
	},
}

var forecastCmd = &cobra.Command{
	Use:   "forecast VEHICLE_ID",
	Short: "Predict the next service and the failure probability of a vehicle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid vehicle id %q", args[0])
		}
		return withCore(cmd, func(ctx context.Context, c *app.Core) error {
			f := analytics.NewForecaster(c.Store, logger.New("forecast"))
			fc, err := f.PredictNextMaintenance(ctx, id)
			if err != nil {
				return err
			}
			p, err := f.FailureProbability(ctx, id, horizonDays)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "last maintenance:    %s\n", fc.LastMaintenance.Format(time.DateOnly))
			fmt.Fprintf(out, "next maintenance:    %s (%d days)\n", fc.PredictedNext.Format(time.DateOnly), fc.DaysUntil)
			fmt.Fprintf(out, "failure within %3dd: %.1f%%\n", horizonDays, p*100)
			return nil
		})
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportStart, "start", "", "first day (YYYY-MM-DD or RFC3339)")
	reportCmd.Flags().StringVar(&reportEnd, "end", "", "last day, inclusive (YYYY-MM-DD or RFC3339)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "json", "json or csv")
	forecastCmd.Flags().IntVar(&horizonDays, "horizon", 30, "failure horizon in days")
	rootCmd.AddCommand(reportCmd, forecastCmd)
}

func cliRange(startS, endS string) (time.Time, time.Time, error) {
	start, _, err := httpx.ParseTime(startS)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
	}
	end, dateOnly, err := httpx.ParseTime(endS)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
	}
	if dateOnly {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	return start, end, nil
}
