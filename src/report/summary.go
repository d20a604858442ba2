package report

import (
	"time"

	"operator-dashboard/src/contracts"
	"operator-dashboard/src/operator"
)

// TimeLayout is the UTC timestamp format used in summaries.
const TimeLayout = "2006-01-02 15:04:05 UTC"

// VersionSummary is the one-line health of a platform version.
type VersionSummary struct {
	Bucket           string `json:"bucket"`
	Notes            int    `json:"notes"`
	BundleRuns       int    `json:"bundle_runs"`
	LastBundleStatus string `json:"last_bundle_status,omitempty"`
	LastBundleTime   string `json:"last_bundle_time,omitempty"`
	ReleaseVersions  int    `json:"release_versions"`
	FailingReleases  int    `json:"failing_releases"`
}

// Summarize returns one summary per bucket, newest platform version first.
func Summarize(d contracts.Dashboard, op operator.Config, now time.Time) []VersionSummary {
	p := Build(d, op, now)
	out := make([]VersionSummary, 0, len(p.Buckets))
	for _, b := range p.Buckets {
		sum := VersionSummary{
			Bucket:     b.Name,
			Notes:      len(b.Notes),
			BundleRuns: len(b.Bundles),
		}
		if len(b.Bundles) > 0 {
			sum.LastBundleStatus = b.Bundles[0].Status
			sum.LastBundleTime = time.Unix(b.LastBundle(), 0).UTC().Format(TimeLayout)
		}
		for _, row := range b.Rows {
			for _, c := range row.Cells {
				sum.ReleaseVersions++
				if !c.Success {
					sum.FailingReleases++
				}
			}
		}
		out = append(out, sum)
	}
	return out
}

// Matrix returns the release matrix of one history.
func Matrix(h contracts.VersionHistory) []Row {
	return rows(h.ReleaseTests)
}
