package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetwise/fleet-journal/internal/gps"
	"github.com/fleetwise/fleet-journal/internal/middleware"
	"github.com/fleetwise/fleet-journal/internal/models"
	"github.com/fleetwise/fleet-journal/internal/store"
)

type fakeSource struct {
	trips map[string][]gps.Trip
}

func (f *fakeSource) GetTrips(ctx context.Context, deviceID string, begin, end int64) ([]gps.Trip, error) {
	var out []gps.Trip
	for _, t := range f.trips[deviceID] {
		if t.BeginTime >= begin && t.BeginTime <= end {
			out = append(out, t)
		}
	}
	return out, nil
}

func seedVehicle(t *testing.T, s store.Store, reg, device string) models.Vehicle {
	t.Helper()
	rec, err := store.Encode(models.Vehicle{
		RegistrationNumber: reg, GPSDeviceID: device, Status: "active",
	})
	require.NoError(t, err)
	created, err := s.Collection(store.CollectionVehicles).Create(context.Background(), rec)
	require.NoError(t, err)
	var v models.Vehicle
	require.NoError(t, store.Decode(created, &v))
	return v
}

func seedGeofence(t *testing.T, s store.Store, zone models.Geofence) {
	t.Helper()
	rec, err := store.Encode(zone)
	require.NoError(t, err)
	_, err = s.Collection(store.CollectionGeofences).Create(context.Background(), rec)
	require.NoError(t, err)
}

func withClaims(r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserContextKey, &models.Claims{
		UserID: "u1", Email: "anna@fleetwise.se", DisplayName: "Anna Lind", Role: models.RoleDriver,
	})
	return r.WithContext(ctx)
}

func newTestHandler(t *testing.T, source *fakeSource) (*JournalHandler, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	return NewJournalHandler(s, source, nil), s
}

func recentTrip(id string, hoursAgo int, endLat, endLon float64) gps.Trip {
	begin := time.Now().UTC().Add(-time.Duration(hoursAgo) * time.Hour)
	return gps.Trip{
		TripID:    id,
		BeginTime: begin.Unix(),
		EndTime:   begin.Add(30 * time.Minute).Unix(),
		BeginLat:  59.31, BeginLon: 18.16,
		EndLat: endLat, EndLon: endLon,
		Mileage: 8.4,
	}
}

func TestSyncTrips_ReportsCountsAndDeduplicates(t *testing.T) {
	source := &fakeSource{trips: map[string][]gps.Trip{
		"GPS-1": {recentTrip("T1", 2, 59.33, 18.07), recentTrip("T2", 4, 59.86, 17.64)},
	}}
	h, s := newTestHandler(t, source)
	seedVehicle(t, s, "ABC123", "GPS-1")

	req := httptest.NewRequest(http.MethodPost, "/api/journal/sync",
		bytes.NewBufferString(`{"window":"24h"}`))
	w := httptest.NewRecorder()
	h.SyncTrips(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Summary string `json:"summary"`
		Created int    `json:"created"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Created)

	// Same provider response again: nothing new.
	w = httptest.NewRecorder()
	h.SyncTrips(w, httptest.NewRequest(http.MethodPost, "/api/journal/sync",
		bytes.NewBufferString(`{"window":"24h"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Created)
}

func TestUnregistered_AttachesGeofenceSuggestions(t *testing.T) {
	// Trip ends inside the customer-site zone.
	source := &fakeSource{trips: map[string][]gps.Trip{
		"GPS-1": {recentTrip("T1", 2, 59.8586, 17.6389)},
	}}
	h, s := newTestHandler(t, source)
	seedVehicle(t, s, "ABC123", "GPS-1")
	seedGeofence(t, s, models.Geofence{
		Name: "Kund: Nordbygg", Type: models.GeofenceCustomerSite,
		Center: models.Location{Lat: 59.8586, Lon: 17.6389}, RadiusM: 300,
		AutoClassifyAs: models.TripTypeBusiness, DefaultCustomer: "Nordbygg AB",
		IsActive: true,
	})

	w := httptest.NewRecorder()
	h.SyncTrips(w, httptest.NewRequest(http.MethodPost, "/api/journal/sync", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.Unregistered(w, httptest.NewRequest(http.MethodGet, "/api/journal/unregistered?window=24h", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Groups []struct {
			Vehicle models.Vehicle `json:"vehicle"`
			Items   []struct {
				Entry      models.JournalEntry `json:"entry"`
				Suggestion *models.Suggestion  `json:"suggestion"`
				State      string              `json:"state"`
			} `json:"items"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Groups, 1)
	require.Len(t, resp.Groups[0].Items, 1)
	item := resp.Groups[0].Items[0]
	require.NotNil(t, item.Suggestion)
	assert.Equal(t, models.TripTypeBusiness, item.Suggestion.TripType)
	assert.Equal(t, "Nordbygg AB", item.Suggestion.Customer)
	assert.Equal(t, "suggested", item.State)
}

func TestRegister_CommitsClassifications(t *testing.T) {
	source := &fakeSource{trips: map[string][]gps.Trip{
		"GPS-1": {recentTrip("T1", 2, 59.33, 18.07)},
	}}
	h, s := newTestHandler(t, source)
	seedVehicle(t, s, "ABC123", "GPS-1")

	w := httptest.NewRecorder()
	h.SyncTrips(w, httptest.NewRequest(http.MethodPost, "/api/journal/sync", nil))
	require.Equal(t, http.StatusOK, w.Code)

	recs, err := s.Collection(store.CollectionJournal).List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	entryID := recs[0]["id"].(string)

	body, _ := json.Marshal(map[string]any{
		"entries": []map[string]any{{
			"entry_id":  entryID,
			"trip_type": "tjänst",
			"purpose":   "Kundbesök",
			"customer":  "Nordbygg AB",
		}},
	})
	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/journal/register", bytes.NewReader(body)))
	w = httptest.NewRecorder()
	h.Register(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	recs, err = s.Collection(store.CollectionJournal).List(context.Background(), nil)
	require.NoError(t, err)
	var entry models.JournalEntry
	require.NoError(t, store.Decode(recs[0], &entry))
	assert.Equal(t, models.TripTypeBusiness, entry.TripType)
	assert.Equal(t, "Kundbesök", entry.Purpose)
	assert.Equal(t, models.EntryStatusSubmitted, entry.Status)
	assert.Equal(t, "anna@fleetwise.se", entry.DriverEmail)
}

func TestRegister_ValidationFailureCommitsNothing(t *testing.T) {
	source := &fakeSource{trips: map[string][]gps.Trip{
		"GPS-1": {recentTrip("T1", 2, 59.33, 18.07), recentTrip("T2", 3, 59.33, 18.07)},
	}}
	h, s := newTestHandler(t, source)
	seedVehicle(t, s, "ABC123", "GPS-1")

	w := httptest.NewRecorder()
	h.SyncTrips(w, httptest.NewRequest(http.MethodPost, "/api/journal/sync", nil))
	require.Equal(t, http.StatusOK, w.Code)

	recs, err := s.Collection(store.CollectionJournal).List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	body, _ := json.Marshal(map[string]any{
		"entries": []map[string]any{
			{"entry_id": recs[0]["id"], "trip_type": "tjänst", "purpose": "Kundbesök"},
			{"entry_id": recs[1]["id"], "trip_type": "tjänst"}, // missing purpose
		},
	})
	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/journal/register", bytes.NewReader(body)))
	w = httptest.NewRecorder()
	h.Register(w, req)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp struct {
		Violations []struct {
			EntryID string `json:"entry_id"`
		} `json:"violations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Violations, 1)
	assert.Equal(t, recs[1]["id"], resp.Violations[0].EntryID)

	// The valid sibling was not committed either.
	recs, err = s.Collection(store.CollectionJournal).List(context.Background(), nil)
	require.NoError(t, err)
	for _, rec := range recs {
		assert.Equal(t, string(models.TripTypePending), rec["trip_type"])
	}
}

func TestRegister_RequiresUserContext(t *testing.T) {
	h, _ := newTestHandler(t, &fakeSource{})
	req := httptest.NewRequest(http.MethodPost, "/api/journal/register",
		bytes.NewBufferString(`{"entries":[]}`))
	w := httptest.NewRecorder()
	h.Register(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDelete_SoftDeletes(t *testing.T) {
	h, s := newTestHandler(t, &fakeSource{})
	rec, err := store.Encode(models.JournalEntry{
		VehicleID: "v1", StartTime: time.Now().UTC().Format(time.RFC3339),
		TripType: models.TripTypePending,
	})
	require.NoError(t, err)
	created, err := s.Collection(store.CollectionJournal).Create(context.Background(), rec)
	require.NoError(t, err)
	id := created["id"].(string)

	req := httptest.NewRequest(http.MethodDelete, "/api/journal/"+id, nil)
	req.SetPathValue("id", id)
	w := httptest.NewRecorder()
	h.Delete(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	recs, err := s.Collection(store.CollectionJournal).List(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, true, recs[0]["deleted"])
}
