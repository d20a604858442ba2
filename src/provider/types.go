package provider

import "time"

// Object is one entry returned by an artifact listing.
type Object struct {
	Name    string    // Full object path, e.g. "pr-logs/pull/org_repo/12/job/34/finished.json"
	Size    int64     // Size in bytes, zero when unknown
	Updated time.Time // Last modification time, zero when unknown
}

// Names returns the object paths in listing order.
func Names(objs []Object) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.Name
	}
	return out
}
