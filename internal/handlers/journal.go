package handlers

import (
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fleetwise/fleet-journal/internal/classify"
	"github.com/fleetwise/fleet-journal/internal/journal"
	"github.com/fleetwise/fleet-journal/internal/middleware"
	"github.com/fleetwise/fleet-journal/internal/models"
	"github.com/fleetwise/fleet-journal/internal/store"
)

// JournalHandler exposes the driving-journal pipeline: sync trips from the
// GPS provider, review what is still unclassified, and register the reviewed
// batch.
type JournalHandler struct {
	vehicles  store.Collection
	entries   store.Collection
	geofences store.Collection
	syncer    *journal.Syncer
	selector  *journal.Selector
	suggester classify.Suggester // nil disables AI suggestions
}

func NewJournalHandler(s store.Store, source journal.TripSource, suggester classify.Suggester) *JournalHandler {
	entries := s.Collection(store.CollectionJournal)
	return &JournalHandler{
		vehicles:  s.Collection(store.CollectionVehicles),
		entries:   entries,
		geofences: s.Collection(store.CollectionGeofences),
		syncer:    journal.NewSyncer(source, entries),
		selector:  journal.NewSelector(entries),
		suggester: suggester,
	}
}

func (h *JournalHandler) loadVehicles(r *http.Request) ([]models.Vehicle, error) {
	recs, err := h.vehicles.List(r.Context(), &store.Options{Sort: "registration_number"})
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[models.Vehicle](recs)
}

// SyncTrips pulls new provider trips for every vehicle with a GPS device.
// POST /api/journal/sync {"window": "24h"|"7d"|"30d"}
func (h *JournalHandler) SyncTrips(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Window string `json:"window"`
	}
	// An empty or absent body means the default window.
	_ = decodeJSON(r, &req)
	window, err := journal.ParseWindow(req.Window)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	vehicles, err := h.loadVehicles(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load vehicles")
		return
	}

	res := h.syncer.Sync(r.Context(), vehicles, window)
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":         res.Summary(),
		"created":         res.Created(),
		"failed_vehicles": res.FailedVehicles(),
		"vehicles":        res.Vehicles,
	})
}

// reviewGroup is one vehicle's slice of the review payload.
type reviewGroup struct {
	Vehicle models.Vehicle         `json:"vehicle"`
	Items   []*classify.ReviewItem `json:"items"`
}

// Unregistered lists the entries still needing classification, with geofence
// and (optionally) AI suggestions attached.
// GET /api/journal/unregistered?window=7d&ai=1
func (h *JournalHandler) Unregistered(w http.ResponseWriter, r *http.Request) {
	window, err := journal.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	vehicles, err := h.loadVehicles(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load vehicles")
		return
	}
	groups, err := h.selector.Unregistered(r.Context(), vehicles, window)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	zoneRecs, err := h.geofences.Filter(r.Context(), store.Conditions{"is_active": true}, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load geofences")
		return
	}
	zones, err := store.DecodeAll[models.Geofence](zoneRecs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	useAI := h.suggester != nil && r.URL.Query().Get("ai") == "1"
	session := classify.NewSession(h.entries, groups)
	for _, item := range session.Items() {
		if sug := classify.SuggestForEntry(item.Entry, zones); sug != nil {
			session.Attach(item.Entry.ID, sug)
			continue
		}
		if !useAI {
			continue
		}
		sug, err := h.suggester.Suggest(r.Context(), item.Entry)
		if err != nil {
			// One failed AI call never blocks the rest of the review.
			log.WithField("entry_id", item.Entry.ID).WithError(err).Warn("AI suggestion failed")
			session.AttachError(item.Entry.ID, err)
			continue
		}
		session.Attach(item.Entry.ID, sug)
	}

	byEntry := make(map[string]*classify.ReviewItem, len(session.Items()))
	for _, item := range session.Items() {
		byEntry[item.Entry.ID] = item
	}
	out := make([]reviewGroup, 0, len(groups))
	for _, g := range groups {
		rg := reviewGroup{Vehicle: g.Vehicle}
		for _, entry := range g.Entries {
			rg.Items = append(rg.Items, byEntry[entry.ID])
		}
		out = append(out, rg)
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": out})
}

// registerRequest is the reviewed batch the user submits.
type registerRequest struct {
	Entries []struct {
		EntryID                 string `json:"entry_id"`
		classify.Classification        // trip_type, purpose, project, customer, notes
	} `json:"entries"`
}

// Register commits a reviewed batch of classifications.
// POST /api/journal/register
func (h *JournalHandler) Register(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Entries) == 0 {
		writeError(w, http.StatusBadRequest, "no entries to register")
		return
	}

	ids := make([]string, 0, len(req.Entries))
	for _, e := range req.Entries {
		ids = append(ids, e.EntryID)
	}
	recs, err := h.entries.Filter(r.Context(), store.Conditions{"id": ids}, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load entries")
		return
	}
	entries, err := store.DecodeAll[models.JournalEntry](recs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(entries) != len(req.Entries) {
		writeError(w, http.StatusBadRequest, "one or more entries do not exist")
		return
	}

	session := classify.NewSession(h.entries, []journal.VehicleGroup{{Entries: entries}})
	for _, e := range req.Entries {
		if err := session.Edit(e.EntryID, e.Classification); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	submitter := classify.Submitter{Email: claims.Email, Name: claims.DisplayName}
	res, err := session.Commit(r.Context(), submitter)
	if err != nil {
		var verr *classify.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":      "validation failed",
				"violations": verr.Violations,
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusOK
	if len(res.Failed) > 0 {
		// Partial success is reported as such, never collapsed to a boolean.
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, res)
}

// List returns journal entries, optionally filtered by vehicle and window.
// GET /api/journal?vehicle_id=...&window=30d
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	conds := store.Conditions{"deleted": false}
	if vid := r.URL.Query().Get("vehicle_id"); vid != "" {
		conds["vehicle_id"] = vid
	}
	recs, err := h.entries.Filter(r.Context(), conds, &store.Options{Sort: "-start_time"})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load entries")
		return
	}
	entries, err := store.DecodeAll[models.JournalEntry](recs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if name := r.URL.Query().Get("window"); name != "" {
		window, err := journal.ParseWindow(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filtered := entries[:0]
		for _, e := range entries {
			if t, err := time.Parse(time.RFC3339, e.StartTime); err == nil && window.Contains(t) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Delete soft-deletes a journal entry, preserving the audit trail.
// DELETE /api/journal/{id}
func (h *JournalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry id")
		return
	}
	if _, err := h.entries.Update(r.Context(), id, store.Record{"deleted": true}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
