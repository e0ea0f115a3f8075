package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/store"
)

// Source reads what playback needs from the store.
type Source interface {
	Vehicle(ctx context.Context, id int64) (model.Vehicle, error)
	TrackPoints(ctx context.Context, key model.TrackKey) ([]model.TrackPoint, error)
}

// LoadTracks reads the stored tracks of pairs with their vehicle labels.
// Points without coordinates are dropped and tracks left with fewer than two
// points are skipped. An unknown vehicle gets a synthetic label.
func LoadTracks(ctx context.Context, src Source, pairs []model.TrackKey) ([]Track, error) {
	var tracks []Track
	for _, key := range pairs {
		pts, err := src.TrackPoints(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("track %s: %w", key, err)
		}
		kept := pts[:0:0]
		for _, p := range pts {
			if p.Lat != 0 && p.Lon != 0 {
				kept = append(kept, p)
			}
		}
		if len(kept) < 2 {
			continue
		}
		v, err := src.Vehicle(ctx, key.VehicleID)
		if errors.Is(err, store.ErrNotFound) {
			v = model.Vehicle{ID: key.VehicleID}
		} else if err != nil {
			return nil, fmt.Errorf("vehicle %d: %w", key.VehicleID, err)
		}
		tracks = append(tracks, Track{Key: key, Label: v.Label(), Icon: v.Icon(), Points: kept})
	}
	if len(tracks) == 0 {
		return nil, ErrNoTracks
	}
	return tracks, nil
}
