package model

import (
	"fmt"
	"time"
)

// TrackKey identifies the track of one vehicle on one route.
type TrackKey struct {
	VehicleID int64 `json:"vehicle_id"`
	RouteID   int64 `json:"route_id"`
}

func (k TrackKey) String() string { return fmt.Sprintf("%d_%d", k.VehicleID, k.RouteID) }

// TrackPoint is one synthesized position of a track.
//
// Seq is the generation order and the only ordering key of a track.
// Timestamp is the wall-clock instant the point was stored; it says nothing
// about when the vehicle would have been there.
type TrackPoint struct {
	VehicleID int64     `json:"vehicle_id"`
	RouteID   int64     `json:"route_id"`
	Seq       int       `json:"seq"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Speed     *float64  `json:"speed,omitempty"`
	FuelLevel *float64  `json:"fuel_level,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Key returns the track the point belongs to.
func (p TrackPoint) Key() TrackKey { return TrackKey{VehicleID: p.VehicleID, RouteID: p.RouteID} }

// Coordinate returns the point position.
func (p TrackPoint) Coordinate() Coordinate { return Coordinate{Lat: p.Lat, Lon: p.Lon} }
