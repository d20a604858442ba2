package reconcile

import (
	"sort"

	"operator-dashboard/src/contracts"
	"operator-dashboard/src/logger"
	"operator-dashboard/src/prow"
)

// Placement says where Add put a result.
type Placement int

const (
	PlacedBundle Placement = iota
	PlacedRelease
	Excluded
)

func (p Placement) String() string {
	switch p {
	case PlacedBundle:
		return "bundle"
	case PlacedRelease:
		return "release"
	default:
		return "excluded"
	}
}

type bucketBatch struct {
	bundle  []contracts.TestResult
	release []contracts.TestResult
	links   map[string]struct{}
}

// Accumulator collects the results of one run, or one change request of a
// run, grouped by bucket. It is not safe for concurrent use; give each
// worker its own and Merge them afterwards.
type Accumulator struct {
	urls    prow.URLBuilder
	logger  logger.Logger
	buckets map[string]*bucketBatch
	order   []string
	count   int
}

// NewAccumulator creates an empty Accumulator.
func NewAccumulator(urls prow.URLBuilder, log logger.Logger) *Accumulator {
	return &Accumulator{
		urls:    urls,
		logger:  log,
		buckets: make(map[string]*bucketBatch),
	}
}

func (a *Accumulator) bucket(name string) *bucketBatch {
	b, ok := a.buckets[name]
	if !ok {
		b = &bucketBatch{links: make(map[string]struct{})}
		a.buckets[name] = b
		a.order = append(a.order, name)
	}
	return b
}

// Add files result under the coarse platform version of its job. Bundle jobs
// always go to bundle history. Other jobs go to release history only when
// the result is release eligible. The job history link is recorded either way.
func (a *Accumulator) Add(parsed prow.Parsed, result contracts.TestResult) Placement {
	b := a.bucket(parsed.Hints.Platform)
	b.links[a.urls.JobHistoryURL(parsed.Identity.JobName)] = struct{}{}
	a.count++

	if parsed.IsBundle() {
		b.bundle = append(b.bundle, result)
		return PlacedBundle
	}
	if !result.ReleaseEligible() {
		a.logger.Debug("[Accumulator] excluded release test for build %s: status=%s, exact_versions=%v",
			parsed.Identity.BuildID, result.Status, result.HasExactVersions())
		return Excluded
	}
	b.release = append(b.release, result)
	return PlacedRelease
}

// Merge appends everything collected by other, bucket by bucket.
func (a *Accumulator) Merge(other *Accumulator) {
	if other == nil {
		return
	}
	for _, name := range other.order {
		src := other.buckets[name]
		dst := a.bucket(name)
		dst.bundle = append(dst.bundle, src.bundle...)
		dst.release = append(dst.release, src.release...)
		for link := range src.links {
			dst.links[link] = struct{}{}
		}
	}
	a.count += other.count
}

// Len returns the number of results added, including excluded ones.
func (a *Accumulator) Len() int {
	return a.count
}

// Buckets returns the bucket names in first-seen order.
func (a *Accumulator) Buckets() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Batches returns the collected results ready for Reconcile.
func (a *Accumulator) Batches() map[string]Batch {
	out := make(map[string]Batch, len(a.buckets))
	for name, b := range a.buckets {
		links := make([]string, 0, len(b.links))
		for link := range b.links {
			links = append(links, link)
		}
		sort.Strings(links)
		out[name] = Batch{
			BundleTests:     append([]contracts.TestResult(nil), b.bundle...),
			ReleaseTests:    append([]contracts.TestResult(nil), b.release...),
			JobHistoryLinks: links,
		}
	}
	return out
}
