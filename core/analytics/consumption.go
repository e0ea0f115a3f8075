package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
)

// Consumption is the fuel economy of a vehicle derived from its refuelling
// history.
type Consumption struct {
	TotalFuel         float64 `json:"total_fuel"`
	TotalDistance     float64 `json:"total_distance"`
	AvgPer100km       float64 `json:"avg_consumption_per_100km"`
	RecordsConsidered int     `json:"records_considered"`
}

// ConsumptionPoint is the consumption of one refuelling interval.
type ConsumptionPoint struct {
	Date           time.Time `json:"date"`
	LitresPer100km float64   `json:"litres_per_100km"`
}

// ConsumptionAnalyzer derives fuel economy from fuel records.
type ConsumptionAnalyzer struct {
	store store.Reader
	log   logger.Logger
}

// NewConsumptionAnalyzer returns an analyzer reading from r.
func NewConsumptionAnalyzer(r store.Reader, log logger.Logger) *ConsumptionAnalyzer {
	return &ConsumptionAnalyzer{store: r, log: log}
}

// ConsumptionPer100km computes litres per 100 km over the fuel records
// dated within the inclusive range.
func (c *ConsumptionAnalyzer) ConsumptionPer100km(ctx context.Context, vehicleID int64, start, end time.Time) (Consumption, error) {
	recs, err := c.store.FuelRecords(ctx, store.Query{VehicleID: vehicleID, Start: start, End: end})
	if err != nil {
		return Consumption{}, fmt.Errorf("fuel records: %w", err)
	}
	res, err := ComputeConsumption(recs)
	if err != nil {
		c.log.Debugf("vehicle %d: no consumption figure: %v", vehicleID, err)
	}
	return res, err
}

// ComputeConsumption applies the consumption rule to records sorted by date.
//
// Fuel is summed over every record. Distance only accumulates where the
// odometer strictly exceeds the previous reading; the previous reading always
// moves to the latest record, so a backward reading is skipped without
// resetting the total.
func ComputeConsumption(recs []model.FuelRecord) (Consumption, error) {
	if len(recs) < 2 {
		return Consumption{}, fmt.Errorf("%w: %d fuel records", ErrInsufficientData, len(recs))
	}
	res := Consumption{RecordsConsidered: len(recs)}
	prev := recs[0].Mileage
	for i, r := range recs {
		res.TotalFuel += r.Amount
		if i > 0 && r.Mileage > prev {
			res.TotalDistance += r.Mileage - prev
		}
		prev = r.Mileage
	}
	if res.TotalDistance == 0 {
		return Consumption{}, fmt.Errorf("%w: %w: no distance travelled", ErrInsufficientData, ErrDegenerateInput)
	}
	res.AvgPer100km = res.TotalFuel / res.TotalDistance * 100
	return res, nil
}

// ConsumptionSeries returns the consumption of each refuelling interval with
// a positive mileage step: the previous fill divided by the distance driven
// since it, dated at the later record.
func (c *ConsumptionAnalyzer) ConsumptionSeries(ctx context.Context, vehicleID int64, start, end time.Time) ([]ConsumptionPoint, error) {
	recs, err := c.store.FuelRecords(ctx, store.Query{VehicleID: vehicleID, Start: start, End: end})
	if err != nil {
		return nil, fmt.Errorf("fuel records: %w", err)
	}
	if len(recs) < 2 {
		return nil, fmt.Errorf("%w: %d fuel records", ErrInsufficientData, len(recs))
	}
	var pts []ConsumptionPoint
	for i := 1; i < len(recs); i++ {
		prev, cur := recs[i-1], recs[i]
		dist := cur.Mileage - prev.Mileage
		if dist <= 0 {
			continue
		}
		pts = append(pts, ConsumptionPoint{Date: cur.Date, LitresPer100km: prev.Amount / dist * 100})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("%w: no positive mileage step", ErrInsufficientData)
	}
	return pts, nil
}
