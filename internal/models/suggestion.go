package models

// SuggestionSource identifies which heuristic produced a suggestion.
type SuggestionSource string

const (
	SuggestionGeofence SuggestionSource = "geofence"
	SuggestionAI       SuggestionSource = "ai"
)

// Suggestion is a transient, per-review-session classification proposal for
// one pending journal entry. It is never persisted.
type Suggestion struct {
	EntryID     string           `json:"entry_id"`
	TripType    TripType         `json:"trip_type"`
	Purpose     string           `json:"purpose,omitempty"`
	ProjectCode string           `json:"project_code,omitempty"`
	Customer    string           `json:"customer,omitempty"`
	Confidence  int              `json:"confidence,omitempty"` // 0-100, AI-sourced only
	Reasoning   string           `json:"reasoning,omitempty"`  // AI-sourced only
	Source      SuggestionSource `json:"source"`
}
