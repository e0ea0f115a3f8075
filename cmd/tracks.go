package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	apitracks "github.com/kilianp07/fleetops/api/tracks"
	"github.com/kilianp07/fleetops/app"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/track"
	"github.com/kilianp07/fleetops/pkg/export"
)

var (
	pairFlags    []string
	exportFormat string
)

var tracksCmd = &cobra.Command{
	Use:   "tracks",
	Short: "Generate and inspect synthesized tracks",
}

var tracksGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Regenerate the tracks of the given or default pairs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(cmd, func(ctx context.Context, c *app.Core) error {
			pairs, err := commandPairs(ctx, c)
			if err != nil {
				return err
			}
			sum, err := c.Synth.Generate(ctx, pairs)
			printSummary(cmd, sum)
			return err
		})
	},
}

var tracksEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Generate only the tracks that are missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(cmd, func(ctx context.Context, c *app.Core) error {
			pairs, err := commandPairs(ctx, c)
			if err != nil {
				return err
			}
			sum, err := c.Synth.Ensure(ctx, pairs)
			printSummary(cmd, sum)
			return err
		})
	},
}

var tracksClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored track",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(cmd, func(ctx context.Context, c *app.Core) error {
			return c.Synth.Clear(ctx)
		})
	},
}

var tracksExportCmd = &cobra.Command{
	Use:   "export VEHICLE_ID ROUTE_ID",
	Short: "Write one stored track as csv or geojson",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := parsePair(args[0] + ":" + args[1])
		if err != nil {
			return err
		}
		return withCore(cmd, func(ctx context.Context, c *app.Core) error {
			pts, err := c.Store.TrackPoints(ctx, key)
			if err != nil {
				return err
			}
			if len(pts) == 0 {
				return fmt.Errorf("no stored track %s", key)
			}
			switch exportFormat {
			case "csv":
				return export.WriteTrackCSV(cmd.OutOrStdout(), pts)
			case "geojson":
				return json.NewEncoder(cmd.OutOrStdout()).Encode(apitracks.Feature(key, pts))
			}
			return fmt.Errorf("unknown format %q", exportFormat)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{tracksGenerateCmd, tracksEnsureCmd} {
		c.Flags().StringSliceVarP(&pairFlags, "pair", "p", nil, "vehicle:route pair, repeatable (default: configured or round-robin)")
	}
	tracksExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "csv or geojson")
	tracksCmd.AddCommand(tracksGenerateCmd, tracksEnsureCmd, tracksClearCmd, tracksExportCmd)
	rootCmd.AddCommand(tracksCmd)
}

func commandPairs(ctx context.Context, c *app.Core) ([]model.TrackKey, error) {
	if len(pairFlags) == 0 {
		return c.Pairs(ctx)
	}
	pairs := make([]model.TrackKey, 0, len(pairFlags))
	for _, p := range pairFlags {
		key, err := parsePair(p)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, key)
	}
	return pairs, nil
}

// parsePair reads "vehicle:route".
func parsePair(s string) (model.TrackKey, error) {
	v, r, ok := strings.Cut(s, ":")
	if !ok {
		return model.TrackKey{}, fmt.Errorf("pair %q: want VEHICLE:ROUTE", s)
	}
	vid, err := strconv.ParseInt(v, 10, 64)
	if err != nil || vid <= 0 {
		return model.TrackKey{}, fmt.Errorf("pair %q: invalid vehicle id", s)
	}
	rid, err := strconv.ParseInt(r, 10, 64)
	if err != nil || rid <= 0 {
		return model.TrackKey{}, fmt.Errorf("pair %q: invalid route id", s)
	}
	return model.TrackKey{VehicleID: vid, RouteID: rid}, nil
}

func printSummary(cmd *cobra.Command, sum track.Summary) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PAIR\tSOURCE\tPOINTS\tKM\tREASON")
	for _, r := range sum.Results {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.1f\t%s\n", r.Key, r.Source, r.Points, r.LengthKm, r.Reason)
	}
	_ = w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "batch %s: %d succeeded, %d failed, %d points stored\n",
		sum.BatchID, sum.Succeeded, sum.Failed, sum.PointsStored)
}
