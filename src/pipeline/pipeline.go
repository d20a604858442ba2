// Package pipeline runs one dashboard update: it lists the artifacts of the
// requested change requests, materializes every build, reconciles the
// results into the baseline and persists the merged dashboard.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"operator-dashboard/src/broker"
	"operator-dashboard/src/classify"
	"operator-dashboard/src/contracts"
	"operator-dashboard/src/logger"
	"operator-dashboard/src/materialize"
	"operator-dashboard/src/operator"
	"operator-dashboard/src/prow"
	"operator-dashboard/src/provider"
	"operator-dashboard/src/reconcile"
	"operator-dashboard/src/store"
)

// AllChangeRequests selects every closed pull request instead of a single one.
const AllChangeRequests = "all"

// IsAllChangeRequests reports whether number selects every closed pull
// request. The match ignores case and surrounding whitespace.
func IsAllChangeRequests(number string) bool {
	return strings.EqualFold(strings.TrimSpace(number), AllChangeRequests)
}

var (
	ErrNoChangeRequest = errors.New("change request number is required")
	ErrNoLister        = errors.New("no change request lister configured")
)

// Config wires a Runner to its collaborators.
type Config struct {
	Operator  operator.Config
	Artifacts provider.ArtifactStore
	// Lister resolves AllChangeRequests. Optional.
	Lister provider.ChangeRequestLister
	// Baseline is loaded at the start of every run.
	Baseline store.Store
	// Outputs receive the merged dashboard in order. The first failure aborts
	// the run; outputs saved before it keep the new dashboard and later ones
	// keep their old content, so the authoritative output goes last.
	Outputs []store.Store
	// Broker receives run events. Optional.
	Broker broker.Broker
	URLs   prow.URLBuilder
	// RepositorySlug is the bucket directory of the CI repository.
	RepositorySlug string
	Concurrency    int
	Logger         logger.Logger
}

// Options are the per-run parameters.
type Options struct {
	// PRNumber is a pull request number or AllChangeRequests.
	PRNumber    string
	BundleLimit reconcile.Retention
}

// Summary describes a completed run.
type Summary struct {
	// RunID tags every event published by the run.
	RunID      string
	PRs        int
	Builds     int
	Mismatches int
	// Buckets lists the buckets touched by this run, sorted.
	Buckets []string
}

// Runner executes dashboard updates.
type Runner struct {
	cfg        Config
	parser     *prow.Parser
	classifier *classify.Classifier
	materials  *materialize.Materializer
	reconciler *reconcile.Reconciler
	logger     logger.Logger
	now        func() time.Time
	newRunID   func() string
}

// NewRunner validates cfg and creates a Runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Artifacts == nil {
		return nil, fmt.Errorf("artifact store is required")
	}
	if cfg.Baseline == nil {
		return nil, fmt.Errorf("baseline store is required")
	}
	if len(cfg.Outputs) == 0 {
		return nil, fmt.Errorf("at least one output store is required")
	}
	if err := cfg.Operator.Validate(); err != nil {
		return nil, err
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewSilentLogger()
	}
	if cfg.URLs == (prow.URLBuilder{}) {
		cfg.URLs = prow.DefaultURLs()
	}

	parser := prow.NewParser(cfg.Operator)
	return &Runner{
		cfg:        cfg,
		parser:     parser,
		classifier: classify.New(parser, cfg.Logger),
		materials:  materialize.New(cfg.Artifacts, cfg.URLs, cfg.Operator.Label(), cfg.Logger),
		reconciler: reconcile.New(parser, cfg.Logger),
		logger:     cfg.Logger,
		now:        time.Now,
		newRunID:   uuid.NewString,
	}, nil
}

type prOutcome struct {
	acc        *reconcile.Accumulator
	builds     int
	mismatches int
}

// Run performs one update. Nothing is written unless every change request
// was processed successfully.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	runID := r.newRunID()

	baseline, err := r.cfg.Baseline.Load(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load baseline: %w", err)
	}
	r.logger.Info("[Pipeline] Loaded baseline with %d buckets", len(baseline))

	prs, err := r.changeRequests(ctx, opts.PRNumber)
	if err != nil {
		return Summary{}, err
	}
	r.logger.Info("[Pipeline] Run %s: processing %d change requests for %s", runID, len(prs), r.cfg.Operator.Label())

	outcomes := make([]prOutcome, len(prs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, pr := range prs {
		g.Go(func() error {
			out, err := r.processChangeRequest(gctx, runID, pr)
			if err != nil {
				return fmt.Errorf("PR #%s: %w", pr, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	summary := Summary{RunID: runID, PRs: len(prs)}
	merged := reconcile.NewAccumulator(r.cfg.URLs, r.logger)
	for _, out := range outcomes {
		merged.Merge(out.acc)
		summary.Builds += out.builds
		summary.Mismatches += out.mismatches
	}
	summary.Buckets = merged.Buckets()
	sort.Strings(summary.Buckets)

	dashboard := r.reconciler.Reconcile(baseline, merged.Batches(), opts.BundleLimit)

	for _, out := range r.cfg.Outputs {
		if err := out.Save(ctx, dashboard); err != nil {
			return Summary{}, fmt.Errorf("failed to save dashboard: %w", err)
		}
	}
	r.logger.Info("[Pipeline] Saved dashboard with %d buckets (%d builds, %d status mismatches)",
		len(dashboard), summary.Builds, summary.Mismatches)

	r.publishUpdates(ctx, runID, dashboard, summary.Buckets)
	return summary, nil
}

func (r *Runner) changeRequests(ctx context.Context, number string) ([]string, error) {
	number = strings.TrimSpace(number)
	switch {
	case number == "":
		return nil, ErrNoChangeRequest
	case IsAllChangeRequests(number):
		if r.cfg.Lister == nil {
			return nil, ErrNoLister
		}
		prs, err := r.cfg.Lister.ListClosed(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list closed pull requests: %w", err)
		}
		return prs, nil
	default:
		return []string{number}, nil
	}
}

// Globs returns the artifact globs listed for every change request: status
// files, platform version hints and component version hints.
func Globs(op operator.Config) (status, platform, component string) {
	return "**/finished.json",
		"**/" + op.ArtifactSubdir + "/artifacts/ocp.version",
		"**/" + op.ArtifactSubdir + "/artifacts/operator.version"
}

func (r *Runner) processChangeRequest(ctx context.Context, runID, pr string) (prOutcome, error) {
	prefix := "pr-logs/pull/" + r.cfg.RepositorySlug + "/" + pr + "/"
	statusGlob, platformGlob, componentGlob := Globs(r.cfg.Operator)

	r.logger.Info("[Pipeline] Fetching test data for PR #%s", pr)
	status, err := r.cfg.Artifacts.List(ctx, prefix, statusGlob)
	if err != nil {
		return prOutcome{}, err
	}
	platformHints, err := r.cfg.Artifacts.List(ctx, prefix, platformGlob)
	if err != nil {
		return prOutcome{}, err
	}
	componentHints, err := r.cfg.Artifacts.List(ctx, prefix, componentGlob)
	if err != nil {
		return prOutcome{}, err
	}

	classified := r.classifier.Classify(status, platformHints, componentHints)
	for _, id := range classified.MissingStatus {
		r.logger.Debug("[Pipeline] Build %s has no status file, skipping", id)
	}

	out := prOutcome{acc: reconcile.NewAccumulator(r.cfg.URLs, r.logger)}
	for _, id := range classified.Identities() {
		build := classified.Builds[id]
		var dual *classify.DualStatus
		if d, ok := classified.Dual[id]; ok {
			dual = &d
		}

		r.logger.Info("[Pipeline] Processing build %s for %s + %s", id.BuildID, build.Hints.Platform, build.Hints.Component)
		outcome, err := r.materials.Materialize(ctx, id, build.Files, build.Hints, dual)
		if err != nil {
			return prOutcome{}, err
		}

		parsed := prow.Parsed{Identity: id, Hints: build.Hints}
		placement := out.acc.Add(parsed, outcome.Result)
		out.builds++
		if outcome.Mismatch != nil {
			out.mismatches++
		}
		r.publishResult(ctx, runID, parsed, outcome, placement)
	}

	r.logger.Info("[Pipeline] Processed %d builds for PR #%s", out.builds, pr)
	return out, nil
}

func (r *Runner) publishResult(ctx context.Context, runID string, parsed prow.Parsed, outcome materialize.Outcome, placement reconcile.Placement) {
	if r.cfg.Broker == nil {
		return
	}
	msg := contracts.ResultMaterialized{
		RunID:          runID,
		Operator:       r.cfg.Operator.Name,
		Bucket:         parsed.Hints.Platform,
		Identity:       parsed.Identity,
		Result:         outcome.Result,
		Bundle:         placement == reconcile.PlacedBundle,
		StatusMismatch: outcome.Mismatch != nil,
	}
	if err := broker.PublishJSON(ctx, r.cfg.Broker, contracts.TopicResults, parsed.Identity.String(), msg); err != nil {
		r.logger.Warn("[Pipeline] Failed to publish result for build %s: %v", parsed.Identity.BuildID, err)
	}
}

func (r *Runner) publishUpdates(ctx context.Context, runID string, dashboard contracts.Dashboard, buckets []string) {
	if r.cfg.Broker == nil {
		return
	}
	ts := r.now().UTC().Format(time.RFC3339)
	for _, bucket := range buckets {
		h := dashboard[bucket]
		msg := contracts.DashboardUpdated{
			RunID:           runID,
			Operator:        r.cfg.Operator.Name,
			Bucket:          bucket,
			BundleTests:     len(h.BundleTests),
			ReleaseTests:    len(h.ReleaseTests),
			JobHistoryLinks: len(h.JobHistoryLinks),
			Timestamp:       ts,
		}
		if err := broker.PublishJSON(ctx, r.cfg.Broker, contracts.TopicUpdates, bucket, msg); err != nil {
			r.logger.Warn("[Pipeline] Failed to publish update for bucket %s: %v", bucket, err)
		}
	}
}
