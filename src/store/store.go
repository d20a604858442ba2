// Package store persists the dashboard history.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"operator-dashboard/src/contracts"
)

// ErrNotFound is returned by Load when no dashboard has been saved yet.
var ErrNotFound = errors.New("dashboard not found")

// Store loads and saves a whole dashboard. Save replaces the stored
// dashboard atomically: readers see either the old or the new one.
type Store interface {
	Load(ctx context.Context) (contracts.Dashboard, error)
	Save(ctx context.Context, d contracts.Dashboard) error
	Close() error
}

// Clone returns a deep copy of d.
func Clone(d contracts.Dashboard) contracts.Dashboard {
	if d == nil {
		return nil
	}
	out := make(contracts.Dashboard, len(d))
	for bucket, h := range d {
		out[bucket] = contracts.VersionHistory{
			Notes:           cloneSlice(h.Notes),
			BundleTests:     cloneSlice(h.BundleTests),
			ReleaseTests:    cloneSlice(h.ReleaseTests),
			JobHistoryLinks: cloneSlice(h.JobHistoryLinks),
			Extra:           cloneExtra(h.Extra),
		}
	}
	return out
}

func cloneExtra(m map[string]json.RawMessage) map[string]json.RawMessage {
	if m == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = cloneSlice(v)
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
