package reconcile

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"operator-dashboard/src/contracts"
	"operator-dashboard/src/logger"
	"operator-dashboard/src/operator"
	"operator-dashboard/src/prow"
)

func parsedFor(t *testing.T, job string, build int) prow.Parsed {
	t.Helper()
	p, err := prow.NewParser(operator.GPU).Parse(reportURL(job, build))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return p
}

func TestAccumulator_Add(t *testing.T) {
	acc := NewAccumulator(prow.DefaultURLs(), logger.NewSilentLogger())

	tests := []struct {
		name   string
		job    string
		result contracts.TestResult
		want   Placement
	}{
		{"bundle job", bundleJob, bundle(1, 10, contracts.StatusAborted), PlacedBundle},
		{"coarse bundle result stays bundle", bundleJob, release("4.14", "24.10.0", 2, 11, contracts.StatusSuccess), PlacedBundle},
		{"exact release", releaseJob, release("4.14.1", "24.6.0", 3, 12, contracts.StatusSuccess), PlacedRelease},
		{"coarse release excluded", releaseJob, release("4.14", "24.10.0", 4, 13, contracts.StatusSuccess), Excluded},
		{"aborted release excluded", releaseJob, release("4.14.1", "24.6.0", 5, 14, contracts.StatusAborted), Excluded},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := acc.Add(parsedFor(t, tt.job, i+1), tt.result); got != tt.want {
				t.Errorf("Add() = %v, want %v", got, tt.want)
			}
		})
	}

	batches := acc.Batches()
	b, ok := batches["4.14"]
	if !ok {
		t.Fatalf("bucket 4.14 missing, got %v", acc.Buckets())
	}
	if len(b.BundleTests) != 2 || len(b.ReleaseTests) != 1 {
		t.Errorf("bundle=%d release=%d, want 2 and 1", len(b.BundleTests), len(b.ReleaseTests))
	}
	wantLinks := []string{prow.JobHistoryURL(releaseJob), prow.JobHistoryURL(bundleJob)}
	if diff := cmp.Diff(wantLinks, b.JobHistoryLinks); diff != "" {
		t.Errorf("JobHistoryLinks mismatch (-want +got):\n%s", diff)
	}
	if acc.Len() != len(tests) {
		t.Errorf("Len() = %d, want %d", acc.Len(), len(tests))
	}
}

func TestAccumulator_Merge(t *testing.T) {
	a := NewAccumulator(prow.DefaultURLs(), logger.NewSilentLogger())
	b := NewAccumulator(prow.DefaultURLs(), logger.NewSilentLogger())

	a.Add(parsedFor(t, bundleJob, 1), bundle(1, 10, contracts.StatusSuccess))
	b.Add(parsedFor(t, bundleJob, 2), bundle(2, 20, contracts.StatusFailure))
	b.Add(parsedFor(t, releaseJob, 3), release("4.14.1", "24.6.0", 3, 30, contracts.StatusSuccess))

	a.Merge(b)
	a.Merge(nil)

	got := a.Batches()["4.14"]
	if diff := cmp.Diff([]int64{10, 20}, timestamps(got.BundleTests)); diff != "" {
		t.Errorf("bundle order mismatch (-want +got):\n%s", diff)
	}
	if len(got.ReleaseTests) != 1 {
		t.Errorf("len(ReleaseTests) = %d, want 1", len(got.ReleaseTests))
	}
	if len(got.JobHistoryLinks) != 2 {
		t.Errorf("JobHistoryLinks = %v, want 2 links", got.JobHistoryLinks)
	}
	if a.Len() != 3 {
		t.Errorf("Len() = %d, want 3", a.Len())
	}
}

func TestAccumulator_FeedsReconcile(t *testing.T) {
	acc := NewAccumulator(prow.DefaultURLs(), logger.NewSilentLogger())
	acc.Add(parsedFor(t, releaseJob, 1), release("4.14.1", "24.10.0", 1, 100, contracts.StatusSuccess))

	got := newReconciler().Reconcile(contracts.Dashboard{}, acc.Batches(), Unlimited)

	h := got["4.14"]
	if len(h.ReleaseTests) != 1 || len(h.BundleTests) != 0 {
		t.Fatalf("release=%d bundle=%d, want 1 and 0", len(h.ReleaseTests), len(h.BundleTests))
	}
	if diff := cmp.Diff([]string{prow.JobHistoryURL(releaseJob)}, h.JobHistoryLinks); diff != "" {
		t.Errorf("JobHistoryLinks mismatch (-want +got):\n%s", diff)
	}
}
