package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/fleetops/core/logger"
	"github.com/kilianp07/fleetops/core/store"
)

// MaintenanceForecast predicts the next service of a vehicle. DaysUntil is
// negative when the service is overdue.
type MaintenanceForecast struct {
	LastMaintenance time.Time `json:"last_maintenance"`
	PredictedNext   time.Time `json:"predicted_next_maintenance"`
	DaysUntil       int       `json:"days_until_maintenance"`
}

// Forecaster estimates maintenance needs from the service history.
type Forecaster struct {
	store store.Reader
	log   logger.Logger
	now   func() time.Time
}

// ForecasterOption customizes a Forecaster.
type ForecasterOption func(*Forecaster)

// WithClock sets the clock used as "now".
func WithClock(now func() time.Time) ForecasterOption {
	return func(f *Forecaster) { f.now = now }
}

// NewForecaster returns a Forecaster reading from r.
func NewForecaster(r store.Reader, log logger.Logger, opts ...ForecasterOption) *Forecaster {
	f := &Forecaster{store: r, log: log, now: time.Now}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Forecaster) maintenanceDates(ctx context.Context, vehicleID int64) ([]time.Time, error) {
	recs, err := f.store.MaintenanceRecords(ctx, store.Query{VehicleID: vehicleID})
	if err != nil {
		return nil, fmt.Errorf("maintenance records: %w", err)
	}
	dates := make([]time.Time, len(recs))
	for i, r := range recs {
		dates[i] = r.Date
	}
	return dates, nil
}

// meanInterval returns the mean whole-day gap between sorted dates.
func meanInterval(dates []time.Time) (float64, error) {
	if len(dates) < 2 {
		return 0, fmt.Errorf("%w: %d maintenance dates", ErrInsufficientData, len(dates))
	}
	gaps := make([]float64, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		gaps[i-1] = float64(wholeDays(dates[i].Sub(dates[i-1])))
	}
	return stat.Mean(gaps, nil), nil
}

func sortedCopy(dates []time.Time) []time.Time {
	cp := make([]time.Time, len(dates))
	copy(cp, dates)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Before(cp[j]) })
	return cp
}

// PredictNextMaintenance adds the mean service interval to the last service
// date.
func (f *Forecaster) PredictNextMaintenance(ctx context.Context, vehicleID int64) (MaintenanceForecast, error) {
	dates, err := f.maintenanceDates(ctx, vehicleID)
	if err != nil {
		return MaintenanceForecast{}, err
	}
	dates = sortedCopy(dates)
	avg, err := meanInterval(dates)
	if err != nil {
		return MaintenanceForecast{}, err
	}
	last := dates[len(dates)-1]
	next := last.Add(time.Duration(avg * float64(day)))
	return MaintenanceForecast{
		LastMaintenance: last,
		PredictedNext:   next,
		DaysUntil:       wholeDays(next.Sub(f.now())),
	}, nil
}

// FailureProbability estimates the probability of a failure within
// horizonDays from now.
func (f *Forecaster) FailureProbability(ctx context.Context, vehicleID int64, horizonDays int) (float64, error) {
	dates, err := f.maintenanceDates(ctx, vehicleID)
	if err != nil {
		return 0, err
	}
	p, err := FailureProbabilityFromDates(dates, f.now(), horizonDays)
	if err != nil {
		f.log.Debugf("vehicle %d: no failure estimate: %v", vehicleID, err)
	}
	return p, err
}

// FailureProbabilityFromDates models services as a renewal process with a
// constant hazard rate of one failure per mean interval:
//
//	p = 1 - exp(-(daysSinceLast + horizonDays) / meanInterval)
//
// The result lies in [0, 1).
func FailureProbabilityFromDates(dates []time.Time, now time.Time, horizonDays int) (float64, error) {
	dates = sortedCopy(dates)
	avg, err := meanInterval(dates)
	if err != nil {
		return 0, err
	}
	if avg == 0 {
		return 0, fmt.Errorf("%w: zero mean maintenance interval", ErrDegenerateInput)
	}
	since := wholeDays(now.Sub(dates[len(dates)-1]))
	p := 1 - math.Exp(-float64(since+horizonDays)/avg)
	switch {
	case p < 0:
		p = 0
	case p >= 1:
		p = math.Nextafter(1, 0)
	}
	return p, nil
}
