package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fleetwise/fleet-journal/internal/models"
)

// AdapterError marks a failed AI suggestion for one entry. It is carried on
// the review item so the reviewer can still classify that trip by hand.
type AdapterError struct {
	EntryID string
	Err     error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("ai suggestion for entry %s: %v", e.EntryID, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// Suggester proposes a classification for one journal entry.
type Suggester interface {
	Suggest(ctx context.Context, entry models.JournalEntry) (*models.Suggestion, error)
}

// aiResponse is the schema the AI endpoint is asked to answer with. Nil
// pointers mean the model did not know, as opposed to an empty answer.
type aiResponse struct {
	TripType    string  `json:"trip_type"`
	Purpose     *string `json:"purpose"`
	ProjectCode *string `json:"project_code"`
	Customer    *string `json:"customer"`
	Confidence  int     `json:"confidence"`
	Reasoning   string  `json:"reasoning"`
}

var aiResponseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"trip_type":    map[string]any{"type": "string", "enum": []string{"tjänst", "privat"}},
		"purpose":      map[string]any{"type": []string{"string", "null"}},
		"project_code": map[string]any{"type": []string{"string", "null"}},
		"customer":     map[string]any{"type": []string{"string", "null"}},
		"confidence":   map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
		"reasoning":    map[string]any{"type": "string"},
	},
	"required": []string{"trip_type", "confidence", "reasoning"},
}

// HTTPSuggester asks an LLM endpoint for a per-trip classification. Only the
// entry's observable fields are sent; the endpoint answers in the declared
// JSON schema.
type HTTPSuggester struct {
	url  string
	http *http.Client
}

func NewHTTPSuggester(url string) *HTTPSuggester {
	return &HTTPSuggester{
		url:  url,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *HTTPSuggester) Suggest(ctx context.Context, entry models.JournalEntry) (*models.Suggestion, error) {
	startAddr, endAddr := "", ""
	if entry.StartLocation != nil {
		startAddr = entry.StartLocation.Address
	}
	if entry.EndLocation != nil {
		endAddr = entry.EndLocation.Address
	}
	payload := map[string]any{
		"prompt": map[string]any{
			"task":          "classify_trip",
			"start_time":    entry.StartTime,
			"end_time":      entry.EndTime,
			"start_address": startAddr,
			"end_address":   endAddr,
			"distance_km":   entry.DistanceKm,
		},
		"response_schema": aiResponseSchema,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &AdapterError{EntryID: entry.ID, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, &AdapterError{EntryID: entry.ID, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, &AdapterError{EntryID: entry.ID, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &AdapterError{EntryID: entry.ID, Err: fmt.Errorf("http %d", resp.StatusCode)}
	}

	var out aiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &AdapterError{EntryID: entry.ID, Err: fmt.Errorf("malformed response: %w", err)}
	}
	tripType := models.TripType(out.TripType)
	if tripType != models.TripTypeBusiness && tripType != models.TripTypePrivate {
		return nil, &AdapterError{EntryID: entry.ID, Err: fmt.Errorf("unexpected trip type %q", out.TripType)}
	}

	sug := &models.Suggestion{
		EntryID:    entry.ID,
		TripType:   tripType,
		Confidence: out.Confidence,
		Reasoning:  out.Reasoning,
		Source:     models.SuggestionAI,
	}
	if out.Purpose != nil {
		sug.Purpose = *out.Purpose
	}
	if out.ProjectCode != nil {
		sug.ProjectCode = *out.ProjectCode
	}
	if out.Customer != nil {
		sug.Customer = *out.Customer
	}
	return sug, nil
}
