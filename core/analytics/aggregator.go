package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
)

// CostSummary is the transportation cost of a vehicle over a period.
type CostSummary struct {
	FuelCost        float64 `json:"fuel_cost"`
	MaintenanceCost float64 `json:"maintenance_cost"`
	TotalCost       float64 `json:"total_cost"`
}

// Efficiency summarizes how a vehicle was used over a period. Distance is in
// kilometres and time in minutes.
type Efficiency struct {
	TotalDistance          float64 `json:"total_distance"`
	TotalTime              float64 `json:"total_time"`
	AverageFuelConsumption float64 `json:"average_fuel_consumption"`
	TasksCompleted         int     `json:"tasks_completed"`
}

// ReportKind selects a regulatory report.
type ReportKind int

const (
	ReportFuel ReportKind = iota + 1
	ReportMaintenance
)

func (k ReportKind) String() string {
	switch k {
	case ReportFuel:
		return "fuel"
	case ReportMaintenance:
		return "maintenance"
	default:
		return fmt.Sprintf("ReportKind(%d)", int(k))
	}
}

// ParseReportKind maps "fuel" or "maintenance" to its kind.
func ParseReportKind(s string) (ReportKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fuel":
		return ReportFuel, nil
	case "maintenance":
		return ReportMaintenance, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedReport, s)
	}
}

// ReportRow is one vehicle line of a regulatory report. Total is the fuel
// amount for fuel reports and the record count for maintenance reports.
type ReportRow struct {
	VehicleID    int64   `json:"vehicle_id"`
	Registration string  `json:"registration_number"`
	Total        float64 `json:"total"`
	TotalCost    float64 `json:"total_cost"`
}

// Aggregator computes cost, efficiency and report figures.
type Aggregator struct {
	store store.Reader
	log   logger.Logger
}

// NewAggregator returns an Aggregator reading from r.
func NewAggregator(r store.Reader, log logger.Logger) *Aggregator {
	return &Aggregator{store: r, log: log}
}

// TransportationCost sums fuel and maintenance costs dated within the
// inclusive range. Missing data contributes zero.
func (a *Aggregator) TransportationCost(ctx context.Context, vehicleID int64, start, end time.Time) (CostSummary, error) {
	q := store.Query{VehicleID: vehicleID, Start: start, End: end}
	fuel, err := a.store.FuelRecords(ctx, q)
	if err != nil {
		return CostSummary{}, fmt.Errorf("fuel records: %w", err)
	}
	maint, err := a.store.MaintenanceRecords(ctx, q)
	if err != nil {
		return CostSummary{}, fmt.Errorf("maintenance records: %w", err)
	}
	var res CostSummary
	for _, r := range fuel {
		res.FuelCost += r.Cost
	}
	for _, r := range maint {
		res.MaintenanceCost += r.Cost
	}
	res.TotalCost = res.FuelCost + res.MaintenanceCost
	a.log.Debugw("transportation cost", map[string]any{
		"vehicle_id": vehicleID, "fuel_records": len(fuel), "maintenance_records": len(maint),
	})
	return res, nil
}

// VehicleEfficiency sums the route distance and time of the tasks started in
// range and averages the consumption samples of the same range.
func (a *Aggregator) VehicleEfficiency(ctx context.Context, vehicleID int64, start, end time.Time) (Efficiency, error) {
	q := store.Query{VehicleID: vehicleID, Start: start, End: end}
	tasks, err := a.store.Tasks(ctx, q)
	if err != nil {
		return Efficiency{}, fmt.Errorf("tasks: %w", err)
	}
	samples, err := a.store.ConsumptionSamples(ctx, q)
	if err != nil {
		return Efficiency{}, fmt.Errorf("consumption samples: %w", err)
	}
	res := Efficiency{TasksCompleted: len(tasks)}
	for _, t := range tasks {
		res.TotalDistance += t.Route.Distance
		res.TotalTime += t.Route.EstimatedTime
	}
	if len(samples) > 0 {
		rates := make([]float64, len(samples))
		for i, s := range samples {
			rates[i] = s.ConsumptionRate
		}
		res.AverageFuelConsumption = stat.Mean(rates, nil)
	}
	return res, nil
}

// RegulatoryReport groups the records of kind dated in range by vehicle.
// Rows are sorted by registration number.
func (a *Aggregator) RegulatoryReport(ctx context.Context, kind ReportKind, start, end time.Time) ([]ReportRow, error) {
	q := store.Query{AllVehicles: true, Start: start, End: end}
	rows := map[int64]*ReportRow{}
	add := func(vehicleID int64, total, cost float64) {
		r, ok := rows[vehicleID]
		if !ok {
			r = &ReportRow{VehicleID: vehicleID}
			rows[vehicleID] = r
		}
		r.Total += total
		r.TotalCost += cost
	}

	switch kind {
	case ReportFuel:
		recs, err := a.store.FuelRecords(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("fuel records: %w", err)
		}
		for _, r := range recs {
			add(r.VehicleID, r.Amount, r.Cost)
		}
	case ReportMaintenance:
		recs, err := a.store.MaintenanceRecords(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("maintenance records: %w", err)
		}
		for _, r := range recs {
			add(r.VehicleID, 1, r.Cost)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedReport, kind)
	}

	vehicles, err := a.store.Vehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("vehicles: %w", err)
	}
	byID := make(map[int64]model.Vehicle, len(vehicles))
	for _, v := range vehicles {
		byID[v.ID] = v
	}

	res := make([]ReportRow, 0, len(rows))
	for id, r := range rows {
		v, ok := byID[id]
		if !ok {
			v = model.Vehicle{ID: id}
		}
		r.Registration = v.Label()
		res = append(res, *r)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Registration != res[j].Registration {
			return res[i].Registration < res[j].Registration
		}
		return res[i].VehicleID < res[j].VehicleID
	})
	a.log.Infof("%s report: %d vehicles", kind, len(res))
	return res, nil
}
