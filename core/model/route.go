package model

import (
	"fmt"
	"math"
	"time"
)

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// IsZero reports whether the coordinate was left unset.
func (c Coordinate) IsZero() bool { return c.Lat == 0 && c.Lon == 0 }

// Round returns the coordinate rounded to the given number of decimals.
func (c Coordinate) Round(decimals int) Coordinate {
	p := math.Pow10(decimals)
	return Coordinate{Lat: math.Round(c.Lat*p) / p, Lon: math.Round(c.Lon*p) / p}
}

func (c Coordinate) String() string { return fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lon) }

// Route is a planned trip between two locations. Distance is in kilometres
// and EstimatedTime in minutes.
type Route struct {
	ID            int64      `json:"id"`
	VehicleID     int64      `json:"vehicle_id,omitempty"`
	StartLocation string     `json:"start_location,omitempty"`
	EndLocation   string     `json:"end_location,omitempty"`
	Start         Coordinate `json:"start"`
	End           Coordinate `json:"end"`
	Distance      float64    `json:"distance"`
	EstimatedTime float64    `json:"estimated_time"`
}

// Task is a dispatch assignment of a vehicle to a route.
type Task struct {
	ID        int64     `json:"id"`
	VehicleID int64     `json:"vehicle_id"`
	RouteID   int64     `json:"route_id"`
	StartTime time.Time `json:"start_time"`
	// Route is the joined route row, used to sum distance and time.
	Route Route `json:"route"`
}
