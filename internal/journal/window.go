// Package journal implements the driving-journal pipeline: pulling provider
// trips into the store without duplicates and selecting the entries that
// still need classification.
package journal

import (
	"fmt"
	"time"
)

// Window is a half-open-ish time range [Start, End] computed from "now" at
// call time, matching the provider's inclusive epoch-second semantics.
type Window struct {
	Start time.Time
	End   time.Time
}

func Last24Hours() Window { return lastDays(1) }
func Last7Days() Window   { return lastDays(7) }
func Last30Days() Window  { return lastDays(30) }

func lastDays(n int) Window {
	now := time.Now().UTC()
	return Window{Start: now.AddDate(0, 0, -n), End: now}
}

// Between builds an explicit custom window.
func Between(start, end time.Time) (Window, error) {
	if start.After(end) {
		return Window{}, fmt.Errorf("window start %s after end %s", start, end)
	}
	return Window{Start: start, End: end}, nil
}

// ParseWindow resolves the named presets used by the API ("24h", "7d", "30d").
func ParseWindow(name string) (Window, error) {
	switch name {
	case "", "24h":
		return Last24Hours(), nil
	case "7d":
		return Last7Days(), nil
	case "30d":
		return Last30Days(), nil
	default:
		return Window{}, fmt.Errorf("unknown window %q", name)
	}
}

// Contains reports whether t falls inside the window, inclusive at both ends.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Epoch returns the window bounds as epoch seconds for provider calls.
func (w Window) Epoch() (begin, end int64) {
	return w.Start.Unix(), w.End.Unix()
}
