package model

import (
	"fmt"
	"strings"
	"time"
)

// Vehicle is a fleet vehicle as seen by the analytics engine. Only the
// identity and the registration number matter to the computations; Type is
// used to pick a display icon during playback.
type Vehicle struct {
	ID                 int64  `json:"id"`
	RegistrationNumber string `json:"registration_number"`
	Brand              string `json:"brand,omitempty"`
	Model              string `json:"model,omitempty"`
	Year               int    `json:"year,omitempty"`
	Type               string `json:"vehicle_type,omitempty"`
}

// Label returns the registration number or a synthetic label when the
// vehicle has none.
func (v Vehicle) Label() string {
	if v.RegistrationNumber != "" {
		return v.RegistrationNumber
	}
	return fmt.Sprintf("#%d", v.ID)
}

// Icon maps the vehicle type to one of "car", "bus" or "truck".
// Both the Russian and English type names of the fleet registry are accepted.
func (v Vehicle) Icon() string {
	switch strings.ToLower(strings.TrimSpace(v.Type)) {
	case "car", "легковой":
		return "car"
	case "bus", "автобус":
		return "bus"
	default:
		return "truck"
	}
}

// FuelRecord is a single refuelling event with the odometer reading taken at
// that time. Mileage is expected to grow over time but readings are entered
// by hand and may go backwards.
type FuelRecord struct {
	ID        int64     `json:"id"`
	VehicleID int64     `json:"vehicle_id"`
	FuelType  string    `json:"fuel_type,omitempty"`
	Date      time.Time `json:"date"`
	Amount    float64   `json:"amount"`
	Cost      float64   `json:"cost"`
	Mileage   float64   `json:"mileage"`
}

// MaintenanceRecord is a completed service event.
type MaintenanceRecord struct {
	ID          int64     `json:"id"`
	VehicleID   int64     `json:"vehicle_id"`
	Kind        string    `json:"maintenance_type,omitempty"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Cost        float64   `json:"cost"`
}

// ConsumptionSample is a telemetry-reported fuel consumption rate.
type ConsumptionSample struct {
	VehicleID       int64     `json:"vehicle_id"`
	Timestamp       time.Time `json:"timestamp"`
	ConsumptionRate float64   `json:"consumption_rate"`
	CurrentLevel    float64   `json:"current_level"`
}
