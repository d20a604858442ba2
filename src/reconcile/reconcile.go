// Package reconcile merges newly materialized results into the persisted
// dashboard history.
package reconcile

import (
	"sort"

	"operator-dashboard/src/contracts"
	"operator-dashboard/src/logger"
	"operator-dashboard/src/prow"
)

// Batch holds the results of one bucket observed during a run.
type Batch struct {
	BundleTests     []contracts.TestResult
	ReleaseTests    []contracts.TestResult
	JobHistoryLinks []string
}

// Reconciler merges incoming batches into a baseline.
type Reconciler struct {
	parser *prow.Parser
	logger logger.Logger
}

// New creates a Reconciler. The parser derives bundle identities from report
// URLs.
func New(parser *prow.Parser, log logger.Logger) *Reconciler {
	return &Reconciler{parser: parser, logger: log}
}

// Reconcile returns the baseline with every incoming batch merged in. The
// baseline is not modified. Buckets only present in the baseline are kept
// as they are. Reconciling the same incoming batches against the output
// again yields the same output.
func (r *Reconciler) Reconcile(baseline contracts.Dashboard, incoming map[string]Batch, limit Retention) contracts.Dashboard {
	out := make(contracts.Dashboard, len(baseline)+len(incoming))
	for bucket, h := range baseline {
		out[bucket] = h
	}

	buckets := make([]string, 0, len(incoming))
	for bucket := range incoming {
		buckets = append(buckets, bucket)
	}
	sort.Strings(buckets)

	for _, bucket := range buckets {
		existing := baseline[bucket]
		batch := incoming[bucket]
		merged := contracts.VersionHistory{
			Notes:           copyStrings(existing.Notes),
			BundleTests:     r.mergeBundle(existing.BundleTests, batch.BundleTests, limit),
			ReleaseTests:    r.mergeRelease(existing.ReleaseTests, batch.ReleaseTests),
			JobHistoryLinks: unionSorted(existing.JobHistoryLinks, batch.JobHistoryLinks),
			Extra:           existing.Extra,
		}
		r.logger.Debug("[Reconciler] bucket %s: %d bundle, %d release, %d job links",
			bucket, len(merged.BundleTests), len(merged.ReleaseTests), len(merged.JobHistoryLinks))
		out[bucket] = merged
	}
	return out
}

// mergeBundle unions existing and incoming results keyed by build identity.
// An incoming result replaces an existing one in place. The union is sorted
// newest first and truncated to limit.
func (r *Reconciler) mergeBundle(existing, incoming []contracts.TestResult, limit Retention) []contracts.TestResult {
	var (
		order []string
		byKey = make(map[string]contracts.TestResult, len(existing)+len(incoming))
	)
	add := func(res contracts.TestResult) {
		key := r.bundleKey(res)
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = res
	}
	for _, res := range existing {
		add(res)
	}
	for _, res := range incoming {
		add(res)
	}

	all := make([]contracts.TestResult, 0, len(order))
	for _, key := range order {
		all = append(all, byKey[key])
	}
	sortNewestFirst(all)
	return all[:limit.truncate(len(all))]
}

// bundleKey derives the build identity from the report URL. A URL that does
// not parse is its own key.
func (r *Reconciler) bundleKey(res contracts.TestResult) string {
	parsed, err := r.parser.Parse(res.ReportURL)
	if err != nil {
		r.logger.Debug("[Reconciler] bundle result keyed by URL: %v", err)
		return "url:" + res.ReportURL
	}
	return "id:" + parsed.Identity.String()
}

type releaseGroup struct {
	success *contracts.TestResult
	other   *contracts.TestResult
}

// offer keeps the newest entry per class. On equal timestamps the first
// offered entry stays.
func (g *releaseGroup) offer(res contracts.TestResult) {
	slot := &g.other
	if res.Status.IsSuccess() {
		slot = &g.success
	}
	if *slot == nil || res.Timestamp > (*slot).Timestamp {
		r := res
		*slot = &r
	}
}

func (g *releaseGroup) selected() contracts.TestResult {
	if g.success != nil {
		return *g.success
	}
	return *g.other
}

// mergeRelease keeps one result per exact version pair. The newest SUCCESS
// wins even over newer failures; without a SUCCESS the newest other result
// is kept. Existing entries are taken as is, incoming ones must be release
// eligible.
func (r *Reconciler) mergeRelease(existing, incoming []contracts.TestResult) []contracts.TestResult {
	var (
		order  []contracts.VersionPair
		groups = make(map[contracts.VersionPair]*releaseGroup)
	)
	add := func(res contracts.TestResult) {
		key := res.Versions()
		g, ok := groups[key]
		if !ok {
			g = &releaseGroup{}
			groups[key] = g
			order = append(order, key)
		}
		g.offer(res)
	}

	for _, res := range existing {
		add(res)
	}
	for _, res := range incoming {
		if !res.ReleaseEligible() {
			r.logger.Debug("[Reconciler] dropping release result %s: status=%s, exact_versions=%v",
				res.ReportURL, res.Status, res.HasExactVersions())
			continue
		}
		add(res)
	}

	out := make([]contracts.TestResult, 0, len(order))
	for _, key := range order {
		out = append(out, groups[key].selected())
	}
	sortNewestFirst(out)
	return out
}

func sortNewestFirst(results []contracts.TestResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp > results[j].Timestamp
	})
}

func unionSorted(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func copyStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
