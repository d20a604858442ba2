// Package contracts defines the data model shared by the dashboard components
// and the messages published on the broker.
package contracts

import (
	"encoding/json"
	"strings"

	"github.com/blang/semver/v4"
)

// Status is the outcome recorded in a build's finished.json.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
	StatusAborted Status = "ABORTED"
)

// IsSuccess reports whether the status is SUCCESS.
func (s Status) IsSuccess() bool { return s == StatusSuccess }

// BuildIdentity identifies one job execution. It is the deduplication key
// everywhere a build can be seen more than once.
type BuildIdentity struct {
	Repository    string `json:"repository"`
	ChangeRequest string `json:"change_request"`
	JobName       string `json:"job_name"`
	BuildID       string `json:"build_id"`
}

// String renders the identity as a path-like key.
func (id BuildIdentity) String() string {
	return id.Repository + "/" + id.ChangeRequest + "/" + id.JobName + "/" + id.BuildID
}

// Less orders identities by repository, change request, job name and build id.
func (id BuildIdentity) Less(other BuildIdentity) bool {
	if id.Repository != other.Repository {
		return id.Repository < other.Repository
	}
	if id.ChangeRequest != other.ChangeRequest {
		return id.ChangeRequest < other.ChangeRequest
	}
	if id.JobName != other.JobName {
		return id.JobName < other.JobName
	}
	return id.BuildID < other.BuildID
}

// VersionPair is the (platform, component) version combination a build ran
// against. Each side is either an exact semantic version or a coarse hint
// taken from the job name.
type VersionPair struct {
	Platform  string
	Component string
}

// Exact reports whether both versions parse as semantic versions.
func (p VersionPair) Exact() bool {
	return IsSemver(p.Platform) && IsSemver(p.Component)
}

// IsSemver reports whether v is a valid semantic version once a trailing
// parenthesised annotation such as "(bundle)" is removed.
func IsSemver(v string) bool {
	_, err := semver.Parse(StripAnnotation(v))
	return err == nil
}

// StripAnnotation drops everything from the first "(" and trims spaces.
func StripAnnotation(v string) string {
	if i := strings.Index(v, "("); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

// TestResult is the immutable record produced once per build identity.
type TestResult struct {
	PlatformVersion  string `json:"platform_version"`
	ComponentVersion string `json:"component_version"`
	Status           Status `json:"status"`
	ReportURL        string `json:"report_url"`
	Timestamp        int64  `json:"timestamp"`
}

// Versions returns the version pair used for release grouping. The component
// version annotation is stripped so "24.10.0(bundle)" groups with "24.10.0".
func (r TestResult) Versions() VersionPair {
	return VersionPair{
		Platform:  r.PlatformVersion,
		Component: StripAnnotation(r.ComponentVersion),
	}
}

// HasExactVersions reports whether both versions are semantic versions.
func (r TestResult) HasExactVersions() bool {
	return r.Versions().Exact()
}

// ReleaseEligible reports whether the result may enter release history.
func (r TestResult) ReleaseEligible() bool {
	return r.HasExactVersions() && r.Status != StatusAborted
}

// VersionHistory is the persisted history of one platform version bucket.
type VersionHistory struct {
	Notes           []string
	BundleTests     []TestResult
	ReleaseTests    []TestResult
	JobHistoryLinks []string
	// Extra holds keys of the persisted bucket this program does not use.
	// They are written back unchanged. Nil when there are none.
	Extra map[string]json.RawMessage
}

// Dashboard maps a coarse platform version bucket (e.g. "4.14") to its history.
type Dashboard map[string]VersionHistory

// Buckets returns the bucket keys in ascending order.
func (d Dashboard) Buckets() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sortStrings(keys)
	return keys
}
