package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Collection names known to the application.
const (
	CollectionVehicles  = "vehicles"
	CollectionJournal   = "journal_entries"
	CollectionGeofences = "geofences"
	CollectionUsers     = "users"
)

var ErrNotFound = errors.New("record not found")

// Record is a single stored document. The server assigns "id", "created_at"
// and "updated_at" on create.
type Record map[string]any

// Conditions maps field names to required values. A slice value means the
// field must equal one of the elements ("field in set").
type Conditions map[string]any

// Options controls ordering and result size for List and Filter. A Sort field
// prefixed with "-" sorts descending.
type Options struct {
	Sort  string
	Limit int
}

// Collection exposes generic CRUD over one named collection.
type Collection interface {
	List(ctx context.Context, opts *Options) ([]Record, error)
	Filter(ctx context.Context, conds Conditions, opts *Options) ([]Record, error)
	Create(ctx context.Context, data Record) (Record, error)
	Update(ctx context.Context, id string, patch Record) (Record, error)
	Delete(ctx context.Context, id string) error
}

// Store hands out collection handles by name.
type Store interface {
	Collection(name string) Collection
}

// Decode unmarshals a record into a typed struct via its json tags.
func Decode(rec Record, out any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// Encode converts a typed struct into a record via its json tags.
func Encode(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode into record: %w", err)
	}
	return rec, nil
}

// DecodeAll unmarshals a slice of records into a slice of typed structs.
func DecodeAll[T any](recs []Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		var v T
		if err := Decode(rec, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
