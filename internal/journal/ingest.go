package journal

import (
	"context"
	"time"

	"github.com/fleetwise/fleet-journal/internal/gps"
	"github.com/fleetwise/fleet-journal/internal/models"
)

// TripSource is the slice of the GPS provider the pipeline needs. *gps.Client
// satisfies it; tests substitute a fake.
type TripSource interface {
	GetTrips(ctx context.Context, deviceID string, begin, end int64) ([]gps.Trip, error)
}

// FetchTrips pulls the provider trips for one vehicle over the window.
// Provider order is kept as-is; callers sort if they care.
func FetchTrips(ctx context.Context, source TripSource, vehicle models.Vehicle, w Window) ([]gps.Trip, error) {
	begin, end := w.Epoch()
	return source.GetTrips(ctx, vehicle.GPSDeviceID, begin, end)
}

// NewEntryFromTrip normalizes a provider trip into a pending journal entry
// for the vehicle. Positions at (0,0) are treated as "provider did not know"
// and left null.
func NewEntryFromTrip(vehicle models.Vehicle, trip gps.Trip) models.JournalEntry {
	entry := models.JournalEntry{
		VehicleID:          vehicle.ID,
		RegistrationNumber: vehicle.RegistrationNumber,
		GPSTripID:          trip.TripID,
		StartTime:          time.Unix(trip.BeginTime, 0).UTC().Format(time.RFC3339),
		EndTime:            time.Unix(trip.EndTime, 0).UTC().Format(time.RFC3339),
		DistanceKm:         trip.Mileage,
		DurationMin:        float64(trip.EndTime-trip.BeginTime) / 60.0,
		TripType:           models.TripTypePending,
	}
	if trip.BeginLat != 0 || trip.BeginLon != 0 {
		entry.StartLocation = &models.TripPoint{
			Lat:     trip.BeginLat,
			Lon:     trip.BeginLon,
			Address: trip.BeginAddress,
		}
	}
	if trip.EndLat != 0 || trip.EndLon != 0 {
		entry.EndLocation = &models.TripPoint{
			Lat:     trip.EndLat,
			Lon:     trip.EndLon,
			Address: trip.EndAddress,
		}
	}
	return entry
}
