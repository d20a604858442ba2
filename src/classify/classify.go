// Package classify groups the artifacts listed for one change request by
// build identity and file role, choosing one status file per build.
package classify

import (
	"errors"
	"sort"
	"strings"

	"operator-dashboard/src/contracts"
	"operator-dashboard/src/logger"
	"operator-dashboard/src/prow"
	"operator-dashboard/src/provider"
)

// Role is the purpose of an artifact within a build.
type Role int

const (
	RoleStatus Role = iota
	RolePlatformVersionHint
	RoleComponentVersionHint
)

func (r Role) String() string {
	switch r {
	case RoleStatus:
		return "status"
	case RolePlatformVersionHint:
		return "platform version hint"
	case RoleComponentVersionHint:
		return "component version hint"
	default:
		return "unknown"
	}
}

// RoleFiles holds the artifact path per role. Empty means absent.
type RoleFiles struct {
	Status               string
	PlatformVersionHint  string
	ComponentVersionHint string
}

// HasVersionHints reports whether both exact version files are present.
func (f RoleFiles) HasVersionHints() bool {
	return f.PlatformVersionHint != "" && f.ComponentVersionHint != ""
}

func (f *RoleFiles) set(role Role, path string) {
	switch role {
	case RoleStatus:
		f.Status = path
	case RolePlatformVersionHint:
		f.PlatformVersionHint = path
	case RoleComponentVersionHint:
		f.ComponentVersionHint = path
	}
}

// DualStatus holds both status files of a build that produced a nested and a
// top-level finished.json.
type DualStatus struct {
	Nested   string
	TopLevel string
}

// Build is everything known about one build after classification.
type Build struct {
	Files RoleFiles
	// Hints are the coarse versions from the job name.
	Hints contracts.VersionPair
}

// Result is the outcome of classifying one change request.
type Result struct {
	// Builds holds every identity that has a status file.
	Builds map[contracts.BuildIdentity]Build
	// Dual holds identities that have both a nested and a top-level status file.
	Dual map[contracts.BuildIdentity]DualStatus
	// MissingStatus lists identities seen only through hint files, sorted.
	MissingStatus []contracts.BuildIdentity
	// Skipped counts listed entries that were discarded.
	Skipped int
}

// Identities returns the identities of Builds in sorted order.
func (r Result) Identities() []contracts.BuildIdentity {
	ids := make([]contracts.BuildIdentity, 0, len(r.Builds))
	for id := range r.Builds {
		ids = append(ids, id)
	}
	sortIdentities(ids)
	return ids
}

// Classifier classifies artifacts of one operator.
type Classifier struct {
	parser *prow.Parser
	logger logger.Logger
}

// New creates a Classifier.
func New(parser *prow.Parser, log logger.Logger) *Classifier {
	return &Classifier{parser: parser, logger: log}
}

type statusKind int

const (
	statusOther statusKind = iota
	statusNested
	statusTopLevel
)

func (c *Classifier) kindOf(path string) statusKind {
	op := c.parser.Operator()
	if !strings.Contains(path, op.JobPattern) || !strings.HasSuffix(path, "/finished.json") {
		return statusOther
	}
	if strings.Contains(path, "/artifacts/"+op.JobPattern+"-") &&
		strings.Contains(path, "/"+op.ArtifactSubdir+"/finished.json") {
		return statusNested
	}
	if !strings.Contains(path, "/artifacts/") {
		return statusTopLevel
	}
	return statusOther
}

type candidate struct {
	path string
	role Role
}

// Classify selects one status file per build and attaches the version hint
// files of the same build. A nested status file is preferred over a
// top-level one. All roles are unified in a single pass in input order, so
// a later file of the same role replaces an earlier one.
func (c *Classifier) Classify(status, platformHints, componentHints []provider.Object) Result {
	res := Result{
		Builds: make(map[contracts.BuildIdentity]Build),
		Dual:   make(map[contracts.BuildIdentity]DualStatus),
	}

	chosen, dual, skipped := c.chooseStatus(status)
	res.Skipped += skipped
	res.Dual = dual

	candidates := make([]candidate, 0, len(chosen)+len(platformHints)+len(componentHints))
	for _, p := range chosen {
		candidates = append(candidates, candidate{path: p, role: RoleStatus})
	}
	for _, o := range platformHints {
		candidates = append(candidates, candidate{path: o.Name, role: RolePlatformVersionHint})
	}
	for _, o := range componentHints {
		candidates = append(candidates, candidate{path: o.Name, role: RoleComponentVersionHint})
	}

	all := make(map[contracts.BuildIdentity]Build)
	for _, cand := range candidates {
		parsed, ok := c.parse(cand.path, cand.role)
		if !ok {
			res.Skipped++
			continue
		}
		if prow.IsLatestPointer(parsed.Identity.BuildID) {
			res.Skipped++
			continue
		}
		b := all[parsed.Identity]
		b.Hints = parsed.Hints
		b.Files.set(cand.role, cand.path)
		all[parsed.Identity] = b
	}

	for id, b := range all {
		if b.Files.Status == "" {
			res.MissingStatus = append(res.MissingStatus, id)
			continue
		}
		res.Builds[id] = b
	}
	sortIdentities(res.MissingStatus)
	for _, id := range res.MissingStatus {
		c.logger.Debug("[Classifier] build %s has no status file, skipping", id)
	}

	return res
}

// chooseStatus keeps the operator's finished.json files, preferring the
// nested one per identity. The returned paths follow first-seen identity order.
func (c *Classifier) chooseStatus(objs []provider.Object) ([]string, map[contracts.BuildIdentity]DualStatus, int) {
	var (
		order   []contracts.BuildIdentity
		chosen  = make(map[contracts.BuildIdentity]string)
		both    = make(map[contracts.BuildIdentity]DualStatus)
		skipped int
	)

	for _, o := range objs {
		kind := c.kindOf(o.Name)
		if kind == statusOther {
			skipped++
			continue
		}
		parsed, ok := c.parse(o.Name, RoleStatus)
		if !ok {
			skipped++
			continue
		}
		id := parsed.Identity

		d := both[id]
		if kind == statusNested {
			d.Nested = o.Name
		} else {
			d.TopLevel = o.Name
		}
		both[id] = d

		_, seen := chosen[id]
		if !seen {
			order = append(order, id)
		}
		if !seen || kind == statusNested {
			chosen[id] = o.Name
		}
	}

	dual := make(map[contracts.BuildIdentity]DualStatus)
	for id, d := range both {
		if d.Nested != "" && d.TopLevel != "" {
			dual[id] = d
		}
	}

	paths := make([]string, 0, len(order))
	for _, id := range order {
		paths = append(paths, chosen[id])
	}
	return paths, dual, skipped
}

func (c *Classifier) parse(path string, role Role) (prow.Parsed, bool) {
	parsed, err := c.parser.Parse(path)
	if err == nil {
		return parsed, true
	}
	if errors.Is(err, prow.ErrPathPatternMismatch) {
		c.logger.Warn("[Classifier] skipping %s file: %v", role, err)
	} else {
		c.logger.Debug("[Classifier] skipping %s file: %v", role, err)
	}
	return prow.Parsed{}, false
}

func sortIdentities(ids []contracts.BuildIdentity) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}
