package journal

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/fleetwise/fleet-journal/internal/models"
	"github.com/fleetwise/fleet-journal/internal/store"
)

// Syncer reconciles freshly fetched provider trips into the journal store.
// Syncs are idempotent against identical provider responses: entries are
// keyed by gps_trip_id per vehicle and known ids are skipped. Two concurrent
// syncs for the same vehicle can still double-insert; serialize per vehicle.
type Syncer struct {
	source  TripSource
	entries store.Collection
}

func NewSyncer(source TripSource, entries store.Collection) *Syncer {
	return &Syncer{source: source, entries: entries}
}

// VehicleResult is the outcome of syncing one vehicle.
type VehicleResult struct {
	VehicleID          string `json:"vehicle_id"`
	RegistrationNumber string `json:"registration_number"`
	Created            int    `json:"created"`
	Skipped            int    `json:"skipped"`
	Failed             int    `json:"failed"`
	Err                error  `json:"-"`
	ErrMessage         string `json:"error,omitempty"`
}

// Result aggregates a multi-vehicle sync.
type Result struct {
	Vehicles []VehicleResult `json:"vehicles"`
}

// Created is the total number of new journal entries across all vehicles.
func (r Result) Created() int {
	n := 0
	for _, v := range r.Vehicles {
		n += v.Created
	}
	return n
}

// FailedVehicles counts vehicles whose provider fetch failed outright.
func (r Result) FailedVehicles() int {
	n := 0
	for _, v := range r.Vehicles {
		if v.Err != nil {
			n++
		}
	}
	return n
}

// Summary renders the user-facing partial-success line, e.g.
// "synced 7 of 9 vehicles, 12 new trips; 2 failed".
func (r Result) Summary() string {
	failed := r.FailedVehicles()
	ok := len(r.Vehicles) - failed
	s := fmt.Sprintf("synced %d of %d vehicles, %d new trips", ok, len(r.Vehicles), r.Created())
	if failed > 0 {
		s += fmt.Sprintf("; %d failed", failed)
	}
	return s
}

// Sync fetches and reconciles trips for every vehicle with a GPS device.
// Vehicles are processed sequentially; a provider failure for one vehicle is
// recorded on its result and does not abort the others, and a store-write
// failure for one trip does not abort its siblings.
func (s *Syncer) Sync(ctx context.Context, vehicles []models.Vehicle, w Window) Result {
	var res Result
	for _, vehicle := range vehicles {
		if !vehicle.HasGPS() {
			continue
		}
		res.Vehicles = append(res.Vehicles, s.syncVehicle(ctx, vehicle, w))
	}
	log.WithFields(log.Fields{
		"vehicles": len(res.Vehicles),
		"created":  res.Created(),
		"failed":   res.FailedVehicles(),
	}).Info("Trip sync finished")
	return res
}

func (s *Syncer) syncVehicle(ctx context.Context, vehicle models.Vehicle, w Window) VehicleResult {
	vr := VehicleResult{
		VehicleID:          vehicle.ID,
		RegistrationNumber: vehicle.RegistrationNumber,
	}

	// Snapshot known provider trip ids before evaluating any fetched trip.
	known, err := s.knownTripIDs(ctx, vehicle.ID)
	if err != nil {
		vr.Err = err
		vr.ErrMessage = err.Error()
		return vr
	}

	trips, err := FetchTrips(ctx, s.source, vehicle, w)
	if err != nil {
		log.WithFields(log.Fields{
			"vehicle":   vehicle.RegistrationNumber,
			"device_id": vehicle.GPSDeviceID,
		}).WithError(err).Warn("Provider fetch failed")
		vr.Err = err
		vr.ErrMessage = err.Error()
		return vr
	}

	for _, trip := range trips {
		if trip.TripID != "" && known[trip.TripID] {
			vr.Skipped++
			continue
		}
		entry := NewEntryFromTrip(vehicle, trip)
		rec, err := store.Encode(entry)
		if err == nil {
			_, err = s.entries.Create(ctx, rec)
		}
		if err != nil {
			log.WithFields(log.Fields{
				"vehicle":     vehicle.RegistrationNumber,
				"gps_trip_id": trip.TripID,
			}).WithError(err).Warn("Failed to persist journal entry")
			vr.Failed++
			continue
		}
		vr.Created++
	}
	return vr
}

// knownTripIDs loads the provider trip ids already present in the journal for
// the vehicle, computed once per sync so the per-trip duplicate check never
// re-queries a slow store.
func (s *Syncer) knownTripIDs(ctx context.Context, vehicleID string) (map[string]bool, error) {
	recs, err := s.entries.Filter(ctx, store.Conditions{"vehicle_id": vehicleID}, nil)
	if err != nil {
		return nil, fmt.Errorf("load existing entries: %w", err)
	}
	known := make(map[string]bool, len(recs))
	for _, rec := range recs {
		if id, ok := rec["gps_trip_id"].(string); ok && id != "" {
			known[id] = true
		}
	}
	return known, nil
}
