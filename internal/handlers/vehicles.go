package handlers

import (
	"errors"
	"net/http"

	"github.com/fleetwise/fleet-journal/internal/models"
	"github.com/fleetwise/fleet-journal/internal/store"
)

// VehicleHandler handles fleet vehicle CRUD.
type VehicleHandler struct {
	vehicles store.Collection
}

func NewVehicleHandler(s store.Store) *VehicleHandler {
	return &VehicleHandler{vehicles: s.Collection(store.CollectionVehicles)}
}

// List returns every vehicle. GET /api/vehicles
func (h *VehicleHandler) List(w http.ResponseWriter, r *http.Request) {
	recs, err := h.vehicles.List(r.Context(), &store.Options{Sort: "registration_number"})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load vehicles")
		return
	}
	vehicles, err := store.DecodeAll[models.Vehicle](recs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"vehicles": vehicles})
}

// Create registers a new fleet vehicle. POST /api/vehicles
func (h *VehicleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var vehicle models.Vehicle
	if err := decodeJSON(r, &vehicle); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if vehicle.RegistrationNumber == "" {
		writeError(w, http.StatusBadRequest, "registration_number is required")
		return
	}
	// Registration numbers are the human-facing key; refuse duplicates.
	existing, err := h.vehicles.Filter(r.Context(),
		store.Conditions{"registration_number": vehicle.RegistrationNumber}, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check registration number")
		return
	}
	if len(existing) > 0 {
		writeError(w, http.StatusConflict, "registration number already exists")
		return
	}
	if vehicle.Status == "" {
		vehicle.Status = "active"
	}

	rec, err := store.Encode(vehicle)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	created, err := h.vehicles.Create(r.Context(), rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create vehicle")
		return
	}
	var out models.Vehicle
	if err := store.Decode(created, &out); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// Get returns one vehicle. GET /api/vehicles/{id}
func (h *VehicleHandler) Get(w http.ResponseWriter, r *http.Request) {
	recs, err := h.vehicles.Filter(r.Context(), store.Conditions{"id": r.PathValue("id")}, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load vehicle")
		return
	}
	if len(recs) == 0 {
		writeError(w, http.StatusNotFound, "vehicle not found")
		return
	}
	var vehicle models.Vehicle
	if err := store.Decode(recs[0], &vehicle); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// Update patches a vehicle; the GPS device id is attached and detached this
// way. PUT /api/vehicles/{id}
func (h *VehicleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch store.Record
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	updated, err := h.vehicles.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "vehicle not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var vehicle models.Vehicle
	if err := store.Decode(updated, &vehicle); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// Delete removes a vehicle. Journal entries keep only the GPS device id once
// the vehicle is gone. DELETE /api/vehicles/{id}
func (h *VehicleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.vehicles.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "vehicle not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
