package classify

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/fleetwise/fleet-journal/internal/journal"
	"github.com/fleetwise/fleet-journal/internal/models"
	"github.com/fleetwise/fleet-journal/internal/store"
)

// ReviewState is the per-trip state inside a review session.
type ReviewState string

const (
	StateUnreviewed ReviewState = "unreviewed"
	StateSuggested  ReviewState = "suggested"
	StateApproved   ReviewState = "approved"
	StateEdited     ReviewState = "edited-and-approved"
	StateRejected   ReviewState = "rejected"
)

// Classification is the final answer for one trip: what the reviewer commits.
type Classification struct {
	TripType    models.TripType `json:"trip_type"`
	Purpose     string          `json:"purpose,omitempty"`
	ProjectID   string          `json:"project_id,omitempty"`
	ProjectCode string          `json:"project_code,omitempty"`
	Customer    string          `json:"customer,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// ReviewItem tracks one pending entry through the session.
type ReviewItem struct {
	Entry      models.JournalEntry `json:"entry"`
	Suggestion *models.Suggestion  `json:"suggestion,omitempty"`
	Edited     *Classification     `json:"edited,omitempty"`
	State      ReviewState         `json:"state"`
	AIError    string              `json:"ai_error,omitempty"`
}

// Submitter identifies the user finalizing the classification. The submitter,
// not the original trip owner, is recorded on committed entries.
type Submitter struct {
	Email string
	Name  string
}

// Violation names one entry that failed the commit validation gate.
type Violation struct {
	EntryID            string `json:"entry_id"`
	RegistrationNumber string `json:"registration_number"`
	Reason             string `json:"reason"`
}

// ValidationError blocks an entire commit batch: nothing is persisted when
// any approved business trip lacks a purpose.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	ids := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		ids[i] = v.EntryID
	}
	return fmt.Sprintf("validation failed for entries %s", strings.Join(ids, ", "))
}

// CommitFailure records one entry the store refused during commit.
type CommitFailure struct {
	EntryID string `json:"entry_id"`
	Error   string `json:"error"`
}

// CommitResult reports a commit's partial outcome. Entries already written
// before a mid-batch failure stay written; there is no multi-entry rollback.
type CommitResult struct {
	Committed int             `json:"committed"`
	Failed    []CommitFailure `json:"failed,omitempty"`
}

// Session is a batch review of pending journal entries.
type Session struct {
	entries store.Collection
	items   []*ReviewItem
	byID    map[string]*ReviewItem
}

// NewSession builds a review session over the selector's output.
func NewSession(entries store.Collection, groups []journal.VehicleGroup) *Session {
	s := &Session{entries: entries, byID: make(map[string]*ReviewItem)}
	for _, g := range groups {
		for _, entry := range g.Entries {
			item := &ReviewItem{Entry: entry, State: StateUnreviewed}
			s.items = append(s.items, item)
			s.byID[entry.ID] = item
		}
	}
	return s
}

// Items exposes the session's review items in selector order.
func (s *Session) Items() []*ReviewItem { return s.items }

func (s *Session) item(entryID string) (*ReviewItem, error) {
	item, ok := s.byID[entryID]
	if !ok {
		return nil, fmt.Errorf("entry %s is not part of this session", entryID)
	}
	return item, nil
}

// Attach puts a suggestion on an unreviewed trip.
func (s *Session) Attach(entryID string, sug *models.Suggestion) error {
	item, err := s.item(entryID)
	if err != nil {
		return err
	}
	if item.State != StateUnreviewed && item.State != StateSuggested {
		return fmt.Errorf("entry %s already reviewed (%s)", entryID, item.State)
	}
	item.Suggestion = sug
	item.State = StateSuggested
	return nil
}

// AttachError records a failed AI suggestion on the trip without touching its
// state; the trip stays manually classifiable.
func (s *Session) AttachError(entryID string, err error) {
	if item, ok := s.byID[entryID]; ok {
		item.AIError = err.Error()
	}
}

// Approve accepts the attached suggestion as-is.
func (s *Session) Approve(entryID string) error {
	item, err := s.item(entryID)
	if err != nil {
		return err
	}
	if item.State != StateSuggested {
		return fmt.Errorf("entry %s has no suggestion to approve", entryID)
	}
	item.State = StateApproved
	return nil
}

// ApproveAll approves every currently suggested trip and returns how many.
func (s *Session) ApproveAll() int {
	n := 0
	for _, item := range s.items {
		if item.State == StateSuggested {
			item.State = StateApproved
			n++
		}
	}
	return n
}

// Edit sets (or overrides) the classification by hand and marks the trip
// approved. Allowed from any non-terminal state, including trips that never
// got a suggestion.
func (s *Session) Edit(entryID string, c Classification) error {
	item, err := s.item(entryID)
	if err != nil {
		return err
	}
	if item.State == StateRejected {
		return fmt.Errorf("entry %s was rejected", entryID)
	}
	item.Edited = &c
	item.State = StateEdited
	return nil
}

// Reject discards the suggestion. The underlying entry is untouched and stays
// pending for a later pass.
func (s *Session) Reject(entryID string) error {
	item, err := s.item(entryID)
	if err != nil {
		return err
	}
	item.Suggestion = nil
	item.State = StateRejected
	return nil
}

// final resolves the classification a trip would be committed with.
func (item *ReviewItem) final() Classification {
	if item.Edited != nil {
		return *item.Edited
	}
	if item.Suggestion != nil {
		return Classification{
			TripType:    item.Suggestion.TripType,
			Purpose:     item.Suggestion.Purpose,
			ProjectCode: item.Suggestion.ProjectCode,
			Customer:    item.Suggestion.Customer,
		}
	}
	return Classification{}
}

// Commit validates and persists every approved trip. The validation gate is
// all-or-nothing: if any approved business trip lacks a purpose, nothing is
// written and a *ValidationError naming the offenders is returned. Past the
// gate, a store failure on one entry is recorded on the result and does not
// stop the rest.
func (s *Session) Commit(ctx context.Context, submitter Submitter) (CommitResult, error) {
	var res CommitResult

	type pendingWrite struct {
		item  *ReviewItem
		final Classification
	}
	var writes []pendingWrite
	var violations []Violation

	for _, item := range s.items {
		if item.State != StateApproved && item.State != StateEdited {
			continue
		}
		final := item.final()
		if final.TripType == models.TripTypeBusiness && strings.TrimSpace(final.Purpose) == "" {
			violations = append(violations, Violation{
				EntryID:            item.Entry.ID,
				RegistrationNumber: item.Entry.RegistrationNumber,
				Reason:             "business trip requires a purpose",
			})
			continue
		}
		if final.TripType != models.TripTypeBusiness && final.TripType != models.TripTypePrivate {
			violations = append(violations, Violation{
				EntryID:            item.Entry.ID,
				RegistrationNumber: item.Entry.RegistrationNumber,
				Reason:             fmt.Sprintf("invalid trip type %q", final.TripType),
			})
			continue
		}
		writes = append(writes, pendingWrite{item: item, final: final})
	}
	if len(violations) > 0 {
		return res, &ValidationError{Violations: violations}
	}

	for _, w := range writes {
		patch := store.Record{
			"trip_type":    string(w.final.TripType),
			"purpose":      w.final.Purpose,
			"project_id":   w.final.ProjectID,
			"project_code": w.final.ProjectCode,
			"customer":     w.final.Customer,
			"notes":        w.final.Notes,
			"status":       string(models.EntryStatusSubmitted),
			"driver_email": submitter.Email,
			"driver_name":  submitter.Name,
		}
		if _, err := s.entries.Update(ctx, w.item.Entry.ID, patch); err != nil {
			log.WithField("entry_id", w.item.Entry.ID).WithError(err).Warn("Failed to commit journal entry")
			res.Failed = append(res.Failed, CommitFailure{EntryID: w.item.Entry.ID, Error: err.Error()})
			continue
		}
		res.Committed++
	}
	return res, nil
}
