package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/fleetops/core/analytics"
	"github.com/kilianp07/fleetops/core/model"
)

// WriteReportJSON writes report rows to w in JSON format.
func WriteReportJSON(w io.Writer, rows []analytics.ReportRow) error {
	if rows == nil {
		rows = []analytics.ReportRow{}
	}
	return json.NewEncoder(w).Encode(rows)
}

// WriteReportCSV writes report rows to w in CSV format with a header line.
func WriteReportCSV(w io.Writer, kind analytics.ReportKind, rows []analytics.ReportRow) error {
	cw := csv.NewWriter(w)
	total := "total_amount"
	if kind == analytics.ReportMaintenance {
		total = "total_records"
	}
	if err := cw.Write([]string{"vehicle_id", "registration_number", total, "total_cost"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.FormatInt(r.VehicleID, 10),
			r.Registration,
			strconv.FormatFloat(r.Total, 'f', -1, 64),
			strconv.FormatFloat(r.TotalCost, 'f', 2, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTrackCSV writes track points to w in CSV format.
func WriteTrackCSV(w io.Writer, pts []model.TrackPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"seq", "vehicle_id", "route_id", "lat", "lon", "timestamp"}); err != nil {
		return err
	}
	for _, p := range pts {
		rec := []string{
			strconv.Itoa(p.Seq),
			strconv.FormatInt(p.VehicleID, 10),
			strconv.FormatInt(p.RouteID, 10),
			strconv.FormatFloat(p.Lat, 'f', 6, 64),
			strconv.FormatFloat(p.Lon, 'f', 6, 64),
			p.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FuelChartHTML renders a consumption series as a standalone HTML line chart.
func FuelChartHTML(title string, series []analytics.ConsumptionPoint) (string, error) {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "L/100 km"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	xAxis := make([]string, 0, len(series))
	yAxis := make([]opts.LineData, 0, len(series))
	for _, p := range series {
		xAxis = append(xAxis, p.Date.Format("2006-01-02"))
		yAxis = append(yAxis, opts.LineData{Value: p.LitresPer100km})
	}
	line.SetXAxis(xAxis).AddSeries("Consumption", yAxis)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return "", fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.String(), nil
}
