// Package seed builds the demo fleet used for local runs.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
)

// Dataset is a complete set of fleet records.
type Dataset struct {
	Vehicles    []model.Vehicle
	Routes      []model.Route
	Fuel        []model.FuelRecord
	Maintenance []model.MaintenanceRecord
	Tasks       []model.Task
	Samples     []model.ConsumptionSample
}

// Options tunes the generated history.
type Options struct {
	// HistoryMonths adds monthly refuelling and quarterly service records
	// per vehicle so that forecasts have enough data. Zero keeps only the
	// base records.
	HistoryMonths int
	// Seed makes the generated history reproducible.
	Seed int64
}

var routeCities = [][2]string{
	{"Москва", "Тула"},
	{"Санкт-Петербург", "Казань"},
	{"Новосибирск", "Екатеринбург"},
	{"Нижний Новгород", "Воронеж"},
	{"Самара", "Ростов-на-Дону"},
}

var vehicleTypes = []string{"легковой", "автобус", "грузовой"}

// Demo returns five vehicles with one route, refuelling, service, task and
// consumption sample each, dated relative to now.
func Demo(now time.Time, opts Options) Dataset {
	day := 24 * time.Hour
	var d Dataset
	for i := 0; i < len(routeCities); i++ {
		vid := int64(i + 1)
		d.Vehicles = append(d.Vehicles, model.Vehicle{
			ID:                 vid,
			RegistrationNumber: fmt.Sprintf("A%dBC77", 1000+i),
			Brand:              "ГАЗ",
			Model:              fmt.Sprintf("330%d", i),
			Year:               2010 + i,
			Type:               vehicleTypes[i%len(vehicleTypes)],
		})
		d.Routes = append(d.Routes, model.CompleteCoordinates(model.Route{
			ID:            int64(i + 1),
			VehicleID:     vid,
			StartLocation: routeCities[i][0],
			EndLocation:   routeCities[i][1],
			Distance:      float64(180 + 100*i),
			EstimatedTime: float64(120 + 30*i),
		}))
		d.Maintenance = append(d.Maintenance, model.MaintenanceRecord{
			VehicleID:   vid,
			Kind:        "Плановое ТО",
			Description: "Замена масла",
			Date:        now.Add(-time.Duration(30*i) * day),
			Cost:        float64(3500 + 100*i),
		})
		d.Fuel = append(d.Fuel, model.FuelRecord{
			VehicleID: vid,
			FuelType:  "АИ-92",
			Date:      now.Add(-time.Duration(5*i) * day),
			Amount:    float64(40 + 5*i),
			Cost:      float64(2500 + 100*i),
			Mileage:   float64(10000 + 500*i),
		})
		d.Tasks = append(d.Tasks, model.Task{
			VehicleID: vid,
			RouteID:   int64(i + 1),
			StartTime: now.Add(-time.Duration(i) * day),
		})
		d.Samples = append(d.Samples, model.ConsumptionSample{
			VehicleID:       vid,
			Timestamp:       now.Add(-time.Duration(i) * day),
			ConsumptionRate: 10.5 + 0.5*float64(i),
			CurrentLevel:    float64(40 - 2*i),
		})
	}
	if opts.HistoryMonths > 0 {
		d.addHistory(now, opts)
	}
	return d
}

// addHistory adds older records, walking back from the base ones so the
// odometer grows over time.
func (d *Dataset) addHistory(now time.Time, opts Options) {
	rng := rand.New(rand.NewSource(opts.Seed))
	for _, v := range d.Vehicles {
		mileage := 10000.0
		for m := 1; m <= opts.HistoryMonths; m++ {
			date := now.AddDate(0, -m, -rng.Intn(5))
			mileage -= 900 + float64(rng.Intn(400))
			amount := 45 + float64(rng.Intn(20))
			d.Fuel = append(d.Fuel, model.FuelRecord{
				VehicleID: v.ID,
				FuelType:  "АИ-92",
				Date:      date,
				Amount:    amount,
				Cost:      amount * (52 + rng.Float64()*6),
				Mileage:   mileage,
			})
			if m%3 == 0 {
				d.Maintenance = append(d.Maintenance, model.MaintenanceRecord{
					VehicleID: v.ID,
					Kind:      "Плановое ТО",
					Date:      date.AddDate(0, 0, rng.Intn(10)),
					Cost:      3000 + float64(rng.Intn(1500)),
				})
			}
		}
	}
}

// Apply inserts every record of d.
func Apply(ctx context.Context, s store.Seeder, d Dataset) error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"vehicles", func() error { return s.InsertVehicles(ctx, d.Vehicles) }},
		{"routes", func() error { return s.InsertRoutes(ctx, d.Routes) }},
		{"fuel records", func() error { return s.InsertFuelRecords(ctx, d.Fuel) }},
		{"maintenance records", func() error { return s.InsertMaintenanceRecords(ctx, d.Maintenance) }},
		{"tasks", func() error { return s.InsertTasks(ctx, d.Tasks) }},
		{"consumption samples", func() error { return s.InsertConsumptionSamples(ctx, d.Samples) }},
	}
	for _, st := range steps {
		if err := st.fn(); err != nil {
			return fmt.Errorf("insert %s: %w", st.name, err)
		}
	}
	return nil
}
