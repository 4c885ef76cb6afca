// Package classify turns pending journal entries into classified ones:
// geofence and AI heuristics propose a trip type, a review session collects
// approvals and the commit writes finalized entries back to the store.
package classify

import (
	"github.com/golang/geo/s2"

	"github.com/fleetwise/fleet-journal/internal/models"
)

const earthRadiusMeters = 6371000.0

// DistanceMeters is the great-circle distance between two points.
func DistanceMeters(a, b models.Location) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * earthRadiusMeters
}

// MatchZone finds the active geofence containing the point, if any. A point
// inside several overlapping zones matches the smallest-radius zone (the most
// specific site); on equal radii the most recently created zone wins.
func MatchZone(point models.Location, zones []models.Geofence) *models.Geofence {
	var best *models.Geofence
	for i := range zones {
		zone := &zones[i]
		if !zone.IsActive {
			continue
		}
		if DistanceMeters(point, zone.Center) > zone.RadiusM {
			continue
		}
		if best == nil ||
			zone.RadiusM < best.RadiusM ||
			(zone.RadiusM == best.RadiusM && zone.CreatedAt > best.CreatedAt) {
			best = zone
		}
	}
	return best
}

// suggestAt evaluates one point against the zone set. Returns nil when no
// zone matches or the matching zone carries no auto-classification directive:
// the classifier abstains rather than guessing.
func suggestAt(point models.Location, zones []models.Geofence) *models.Suggestion {
	zone := MatchZone(point, zones)
	if zone == nil || zone.AutoClassifyAs == "" {
		return nil
	}
	sug := &models.Suggestion{
		TripType: zone.AutoClassifyAs,
		Source:   models.SuggestionGeofence,
	}
	if zone.AutoClassifyAs == models.TripTypeBusiness {
		sug.ProjectCode = zone.DefaultProjectCode
		sug.Customer = zone.DefaultCustomer
	}
	return sug
}

// SuggestForEntry proposes a classification for the entry from its start and
// end points. The end point is checked first since the destination is the
// stronger signal for what the trip was for.
func SuggestForEntry(entry models.JournalEntry, zones []models.Geofence) *models.Suggestion {
	for _, p := range []*models.TripPoint{entry.EndLocation, entry.StartLocation} {
		if p == nil {
			continue
		}
		if sug := suggestAt(models.Location{Lat: p.Lat, Lon: p.Lon}, zones); sug != nil {
			sug.EntryID = entry.ID
			return sug
		}
	}
	return nil
}
