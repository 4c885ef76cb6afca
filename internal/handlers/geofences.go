package handlers

import (
	"errors"
	"net/http"

	"github.com/fleetwise/fleet-journal/internal/models"
	"github.com/fleetwise/fleet-journal/internal/store"
)

// GeofenceHandler handles geofence zone administration.
type GeofenceHandler struct {
	geofences store.Collection
}

func NewGeofenceHandler(s store.Store) *GeofenceHandler {
	return &GeofenceHandler{geofences: s.Collection(store.CollectionGeofences)}
}

func validateGeofence(zone models.Geofence) string {
	if zone.Name == "" {
		return "name is required"
	}
	if zone.RadiusM <= 0 {
		return "radius_m must be positive"
	}
	switch zone.AutoClassifyAs {
	case "", models.TripTypeBusiness, models.TripTypePrivate:
	default:
		return "auto_classify_as must be tjänst, privat or empty"
	}
	return ""
}

// List returns every zone. GET /api/geofences
func (h *GeofenceHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.geofences.List(r.Context(), &store.Options{Sort: "name"})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load geofences")
		return
	}
	zones, err := store.DecodeAll[models.Geofence](recs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"geofences": zones})
}

// Create adds a zone. POST /api/geofences
func (h *GeofenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var zone models.Geofence
	if err := decodeJSON(r, &zone); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := validateGeofence(zone); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	rec, err := store.Encode(zone)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	created, err := h.geofences.Create(r.Context(), rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create geofence")
		return
	}
	var out models.Geofence
	if err := store.Decode(created, &out); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// Update patches a zone. PUT /api/geofences/{id}
func (h *GeofenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch store.Record
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	updated, err := h.geofences.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "geofence not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var zone models.Geofence
	if err := store.Decode(updated, &zone); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, zone)
}

// Delete removes a zone. DELETE /api/geofences/{id}
func (h *GeofenceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.geofences.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "geofence not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
