// Package materialize turns the classified files of one build into a
// TestResult.
package materialize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"operator-dashboard/src/classify"
	"operator-dashboard/src/contracts"
	"operator-dashboard/src/logger"
	"operator-dashboard/src/prow"
	"operator-dashboard/src/provider"
	"operator-dashboard/src/sanitize"
)

// Finished is the subset of a Prow finished.json the dashboard reads.
type Finished struct {
	Result    string          `json:"result"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// Epoch returns the timestamp in seconds. It accepts a JSON number or a
// string holding an integer. A missing or unparseable timestamp yields 0 and
// false.
func (f Finished) Epoch() (int64, bool) {
	raw := strings.Trim(strings.TrimSpace(string(f.Timestamp)), `"`)
	if raw == "" {
		return 0, false
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if fl, ferr := strconv.ParseFloat(raw, 64); ferr == nil {
			return int64(fl), true
		}
		return 0, false
	}
	return ts, true
}

// Mismatch is reported when the operator's own tests passed but the
// enclosing job finished with another status.
type Mismatch struct {
	Identity       contracts.BuildIdentity
	NestedStatus   contracts.Status
	TopLevelStatus contracts.Status
}

// Outcome is the materialized result plus the optional diagnostic.
type Outcome struct {
	Result   contracts.TestResult
	Mismatch *Mismatch
}

// Materializer reads build artifacts from an ArtifactStore.
type Materializer struct {
	store  provider.ArtifactStore
	urls   prow.URLBuilder
	label  string
	logger logger.Logger
}

// New creates a Materializer. label names the operator in log messages.
func New(store provider.ArtifactStore, urls prow.URLBuilder, label string, log logger.Logger) *Materializer {
	return &Materializer{store: store, urls: urls, label: label, logger: log}
}

// Materialize builds the TestResult of one identity. Status and timestamp
// come from the chosen status file. Exact versions are read from the hint
// files when both are present and fall back to the coarse job name hints
// otherwise. The report URL is derived from the chosen status file path.
func (m *Materializer) Materialize(ctx context.Context, id contracts.BuildIdentity, files classify.RoleFiles, fallback contracts.VersionPair, dual *classify.DualStatus) (Outcome, error) {
	if files.Status == "" {
		return Outcome{}, fmt.Errorf("build %s: no status file", id)
	}

	finished, err := m.fetchFinished(ctx, files.Status)
	if err != nil {
		return Outcome{}, fmt.Errorf("build %s: %w", id, err)
	}

	var out Outcome
	if dual != nil {
		out.Mismatch = m.crossCheck(ctx, id, *dual)
	}

	versions, err := m.versions(ctx, id, files, fallback)
	if err != nil {
		return Outcome{}, err
	}

	ts, ok := finished.Epoch()
	if !ok {
		m.logger.Warn("[Materializer] build %s: status file %s has no valid timestamp (%s), recording 0",
			id, files.Status, string(finished.Timestamp))
	}

	out.Result = contracts.TestResult{
		PlatformVersion:  versions.Platform,
		ComponentVersion: versions.Component,
		Status:           contracts.Status(finished.Result),
		ReportURL:        m.urls.ReportURL(files.Status),
		Timestamp:        ts,
	}
	m.logger.Debug("[Materializer] build %s: %s + %s %s (%s)", id.BuildID,
		out.Result.PlatformVersion, out.Result.ComponentVersion, out.Result.Status, out.Result.ReportURL)
	return out, nil
}

func (m *Materializer) versions(ctx context.Context, id contracts.BuildIdentity, files classify.RoleFiles, fallback contracts.VersionPair) (contracts.VersionPair, error) {
	if !files.HasVersionHints() {
		return fallback, nil
	}

	platform, ok, err := m.fetchHint(ctx, files.PlatformVersionHint)
	if err != nil {
		return contracts.VersionPair{}, fmt.Errorf("build %s: %s: %w", id, classify.RolePlatformVersionHint, err)
	}
	if !ok {
		m.logger.Debug("[Materializer] build %s: %s missing, using %s", id.BuildID, classify.RolePlatformVersionHint, fallback.Platform)
		return fallback, nil
	}

	component, ok, err := m.fetchHint(ctx, files.ComponentVersionHint)
	if err != nil {
		return contracts.VersionPair{}, fmt.Errorf("build %s: %s: %w", id, classify.RoleComponentVersionHint, err)
	}
	if !ok {
		m.logger.Debug("[Materializer] build %s: %s missing, using %s", id.BuildID, classify.RoleComponentVersionHint, fallback.Component)
		return fallback, nil
	}

	return contracts.VersionPair{Platform: platform, Component: component}, nil
}

// fetchHint returns false when the hint file does not exist.
func (m *Materializer) fetchHint(ctx context.Context, path string) (string, bool, error) {
	text, err := m.store.FetchText(ctx, path)
	if errors.Is(err, provider.ErrObjectNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return sanitize.Version(text), true, nil
}

func (m *Materializer) fetchFinished(ctx context.Context, path string) (Finished, error) {
	var f Finished
	if err := m.store.FetchJSON(ctx, path, &f); err != nil {
		return Finished{}, fmt.Errorf("status file %s: %w", path, err)
	}
	return f, nil
}

// crossCheck compares the nested and top-level status. It never fails the
// build: fetch errors are logged and the check is skipped.
func (m *Materializer) crossCheck(ctx context.Context, id contracts.BuildIdentity, dual classify.DualStatus) *Mismatch {
	nested, err := m.fetchFinished(ctx, dual.Nested)
	if err != nil {
		m.logger.Warn("[Materializer] build %s: skipping status cross-check: %v", id.BuildID, err)
		return nil
	}
	top, err := m.fetchFinished(ctx, dual.TopLevel)
	if err != nil {
		m.logger.Warn("[Materializer] build %s: skipping status cross-check: %v", id.BuildID, err)
		return nil
	}

	ns, ts := contracts.Status(nested.Result), contracts.Status(top.Result)
	if !ns.IsSuccess() || ts.IsSuccess() {
		return nil
	}
	m.logger.Warn("[Materializer] build %s: %s tests SUCCEEDED but overall build has finished with status %s", id.BuildID, m.label, ts)
	return &Mismatch{Identity: id, NestedStatus: ns, TopLevelStatus: ts}
}
