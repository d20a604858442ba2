// Package prow turns Prow artifact paths into build identities and derives
// the public URLs that point back at a build.
package prow

import (
	"errors"
	"fmt"
	"strings"

	"operator-dashboard/src/contracts"
	"operator-dashboard/src/operator"
)

var (
	// ErrPathPatternMismatch means the path mentions the operator's job but
	// does not have the expected structure. Usually an upstream naming change.
	ErrPathPatternMismatch = errors.New("path pattern mismatch")

	// ErrPathShapeMismatch means the path does not belong to the operator at all.
	ErrPathShapeMismatch = errors.New("unexpected path format")
)

// ParseError records the path that failed to parse.
type ParseError struct {
	Path     string
	Operator string
	Err      error
}

func (e *ParseError) Error() string {
	if errors.Is(e.Err, ErrPathPatternMismatch) {
		return fmt.Sprintf("%s %s: %s", e.Operator, e.Err, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Err, e.Path)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

const artifactsSegment = "/artifacts/"

// Latest pointer files live next to real build directories and must never be
// treated as builds.
var latestPointers = map[string]bool{
	"latest-build.txt": true,
	"latest-build":     true,
}

// IsLatestPointer reports whether buildID is a latest pointer sentinel.
func IsLatestPointer(buildID string) bool {
	return latestPointers[buildID]
}

// Parsed is the result of parsing one path.
type Parsed struct {
	Identity contracts.BuildIdentity
	// Hints holds the coarse versions found in the job name, e.g. "4.14" and
	// "24-10-x" or "master".
	Hints contracts.VersionPair
}

// IsBundle reports whether the parsed job tracks the unreleased bundle.
func (p Parsed) IsBundle() bool {
	return IsBundleJob(p.Identity.JobName)
}

// Parser parses paths for one operator.
type Parser struct {
	op operator.Config
}

// NewParser creates a parser for the given operator.
func NewParser(op operator.Config) *Parser {
	return &Parser{op: op}
}

// Operator returns the operator configuration the parser was built with.
func (p *Parser) Operator() operator.Config {
	return p.op
}

// Parse extracts the build identity and coarse version hints from a storage
// path or report URL. Anything below an "/artifacts/" segment is ignored so
// nested and top-level files of one build yield the same identity.
func (p *Parser) Parse(path string) (Parsed, error) {
	input := path
	if i := strings.Index(input, artifactsSegment); i >= 0 {
		input = input[:i]
	}

	re := p.op.PathPattern()
	m := re.FindStringSubmatch(input)
	if m == nil {
		if strings.Contains(path, p.op.JobPattern) {
			return Parsed{}, &ParseError{Path: path, Operator: p.op.Label(), Err: ErrPathPatternMismatch}
		}
		return Parsed{}, &ParseError{Path: path, Operator: p.op.Label(), Err: ErrPathShapeMismatch}
	}

	group := func(name string) string {
		return m[re.SubexpIndex(name)]
	}

	return Parsed{
		Identity: contracts.BuildIdentity{
			Repository:    group("repo"),
			ChangeRequest: group("pr_number"),
			JobName:       group("job_name"),
			BuildID:       group("build_id"),
		},
		Hints: contracts.VersionPair{
			Platform:  group("ocp_version"),
			Component: group("op_version"),
		},
	}, nil
}

// IsBundleJob reports whether the job runs against the operator's main branch
// bundle rather than a released version.
func IsBundleJob(jobName string) bool {
	return strings.HasSuffix(jobName, "-master")
}
