package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a process-scoped Store backed by plain maps. It is the mock
// backend used in tests and local development; each record write is atomic
// under the store mutex, matching the per-record atomicity the pipeline
// assumes. There are no multi-record transactions.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string][]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]Record)}
}

func (s *MemoryStore) Collection(name string) Collection {
	return &memoryCollection{store: s, name: name}
}

type memoryCollection struct {
	store *MemoryStore
	name  string
}

func (c *memoryCollection) List(ctx context.Context, opts *Options) ([]Record, error) {
	return c.Filter(ctx, nil, opts)
}

func (c *memoryCollection) Filter(ctx context.Context, conds Conditions, opts *Options) ([]Record, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	var out []Record
	for _, rec := range c.store.tables[c.name] {
		if matches(rec, conds) {
			out = append(out, copyRecord(rec))
		}
	}
	applyOptions(out, opts)
	if opts != nil && opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (c *memoryCollection) Create(ctx context.Context, data Record) (Record, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	rec := copyRecord(data)
	rec["id"] = uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	rec["created_at"] = now
	rec["updated_at"] = now
	c.store.tables[c.name] = append(c.store.tables[c.name], rec)
	return copyRecord(rec), nil
}

func (c *memoryCollection) Update(ctx context.Context, id string, patch Record) (Record, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	for _, rec := range c.store.tables[c.name] {
		if rec["id"] == id {
			for k, v := range patch {
				if k == "id" || k == "created_at" {
					continue
				}
				rec[k] = v
			}
			rec["updated_at"] = time.Now().UTC().Format(time.RFC3339)
			return copyRecord(rec), nil
		}
	}
	return nil, fmt.Errorf("update %s/%s: %w", c.name, id, ErrNotFound)
}

func (c *memoryCollection) Delete(ctx context.Context, id string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	table := c.store.tables[c.name]
	for i, rec := range table {
		if rec["id"] == id {
			c.store.tables[c.name] = append(table[:i], table[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete %s/%s: %w", c.name, id, ErrNotFound)
}

func matches(rec Record, conds Conditions) bool {
	for field, want := range conds {
		got, ok := rec[field]
		if !ok {
			return false
		}
		switch wants := want.(type) {
		case []string:
			if !containsValue(got, toAnySlice(wants)) {
				return false
			}
		case []any:
			if !containsValue(got, wants) {
				return false
			}
		default:
			if !equalValues(got, want) {
				return false
			}
		}
	}
	return true
}

func containsValue(got any, set []any) bool {
	for _, v := range set {
		if equalValues(got, v) {
			return true
		}
	}
	return false
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// equalValues compares loosely across numeric types, since records that have
// been through JSON hold float64 where callers may pass int.
func equalValues(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func applyOptions(recs []Record, opts *Options) {
	if opts == nil || opts.Sort == "" {
		return
	}
	field := opts.Sort
	desc := strings.HasPrefix(field, "-")
	if desc {
		field = field[1:]
	}
	sort.SliceStable(recs, func(i, j int) bool {
		less := lessValues(recs[i][field], recs[j][field])
		if desc {
			return lessValues(recs[j][field], recs[i][field])
		}
		return less
	})
}

func lessValues(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af < bf
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as < bs
	}
	return false
}

func copyRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
