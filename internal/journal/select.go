package journal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fleetwise/fleet-journal/internal/models"
	"github.com/fleetwise/fleet-journal/internal/store"
)

// VehicleGroup pairs a vehicle with its journal entries still awaiting
// classification.
type VehicleGroup struct {
	Vehicle models.Vehicle        `json:"vehicle"`
	Entries []models.JournalEntry `json:"entries"`
}

// Selector finds the journal entries that still need classification.
type Selector struct {
	entries store.Collection
}

func NewSelector(entries store.Collection) *Selector {
	return &Selector{entries: entries}
}

// Unregistered returns, grouped by vehicle, the entries whose start time
// falls inside the window and that are either still pending or were
// classified without the required purpose. Vehicles with nothing to review
// are omitted entirely; an empty result means fully caught up. Entries within
// a group are ordered most recent start first.
func (s *Selector) Unregistered(ctx context.Context, vehicles []models.Vehicle, w Window) ([]VehicleGroup, error) {
	var groups []VehicleGroup
	for _, vehicle := range vehicles {
		recs, err := s.entries.Filter(ctx, store.Conditions{
			"vehicle_id": vehicle.ID,
			"deleted":    false,
		}, &store.Options{Sort: "-start_time"})
		if err != nil {
			return nil, fmt.Errorf("load entries for %s: %w", vehicle.RegistrationNumber, err)
		}
		entries, err := store.DecodeAll[models.JournalEntry](recs)
		if err != nil {
			return nil, err
		}

		var pending []models.JournalEntry
		for _, entry := range entries {
			if !entry.NeedsClassification() {
				continue
			}
			start, err := time.Parse(time.RFC3339, entry.StartTime)
			if err != nil || !w.Contains(start) {
				continue
			}
			pending = append(pending, entry)
		}
		if len(pending) == 0 {
			continue
		}
		sort.SliceStable(pending, func(i, j int) bool {
			return pending[i].StartTime > pending[j].StartTime
		})
		groups = append(groups, VehicleGroup{Vehicle: vehicle, Entries: pending})
	}
	return groups, nil
}
