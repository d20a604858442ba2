// Package operator describes the operator products whose CI results are
// aggregated. GPU and Network operator share every code path and differ only
// in the values held by Config.
package operator

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultJobPrefix is the Prow job name prefix shared by all operator e2e jobs
// of the nvidia-ci repository.
const DefaultJobPrefix = "pull-ci-rh-ecosystem-edge-nvidia-ci-main-"

// DefaultPlatformVersionField is the JSON field holding the OpenShift version
// of a persisted test entry.
const DefaultPlatformVersionField = "ocp_full_version"

var ErrUnknownOperator = errors.New("unknown operator")

// Config is the product-specific configuration consumed by the parser, the
// classifier, the materializer and the reconciler.
type Config struct {
	// Name is the short name, e.g. "gpu" or "nno".
	Name string
	// DisplayName is used in log messages, e.g. "GPU Operator".
	DisplayName string
	// JobPattern is the job name token of the e2e job, e.g. "nvidia-gpu-operator-e2e".
	JobPattern string
	// ArtifactSubdir is the per-component artifact directory, e.g. "gpu-operator-e2e".
	ArtifactSubdir string
	// VersionField is the JSON field holding the operator version.
	VersionField string
	// PlatformVersionField is the JSON field holding the OpenShift version.
	PlatformVersionField string
	// JobPrefix precedes the coarse platform version in the job name.
	JobPrefix string

	pathPattern *regexp.Regexp
}

// New builds a Config and compiles its path pattern.
func New(name, displayName, jobPattern, artifactSubdir, versionField string) (Config, error) {
	c := Config{
		Name:                 name,
		DisplayName:          displayName,
		JobPattern:           jobPattern,
		ArtifactSubdir:       artifactSubdir,
		VersionField:         versionField,
		PlatformVersionField: DefaultPlatformVersionField,
		JobPrefix:            DefaultJobPrefix,
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	c.pathPattern = compilePattern(c.JobPrefix, c.JobPattern)
	return c, nil
}

func mustNew(name, displayName, jobPattern, artifactSubdir, versionField string) Config {
	c, err := New(name, displayName, jobPattern, artifactSubdir, versionField)
	if err != nil {
		panic(err)
	}
	return c
}

// Pre-configured products.
var (
	GPU = mustNew("gpu", "GPU Operator", "nvidia-gpu-operator-e2e", "gpu-operator-e2e", "gpu_operator_version")
	NNO = mustNew("nno", "Network Operator", "nvidia-network-operator-e2e", "network-operator-e2e", "nno_operator_version")
)

var builtin = map[string]Config{
	GPU.Name: GPU,
	NNO.Name: NNO,
}

// Lookup returns the built-in configuration with the given short name.
func Lookup(name string) (Config, error) {
	c, ok := builtin[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownOperator, name, strings.Join(Names(), ", "))
	}
	return c, nil
}

// Names lists the built-in operator names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate reports missing required fields.
func (c Config) Validate() error {
	var missing []string
	if c.Name == "" {
		missing = append(missing, "name")
	}
	if c.JobPattern == "" {
		missing = append(missing, "job_pattern")
	}
	if c.ArtifactSubdir == "" {
		missing = append(missing, "artifact_subdir")
	}
	if c.VersionField == "" {
		missing = append(missing, "version_field")
	}
	if c.PlatformVersionField == "" {
		missing = append(missing, "platform_version_field")
	}
	if c.JobPrefix == "" {
		missing = append(missing, "job_prefix")
	}
	if len(missing) > 0 {
		return fmt.Errorf("invalid operator config %q: missing %s", c.Name, strings.Join(missing, ", "))
	}
	return nil
}

// PathPattern returns the compiled build path pattern. Named groups: repo,
// pr_number, job_name, ocp_version, op_version, build_id.
func (c Config) PathPattern() *regexp.Regexp {
	if c.pathPattern == nil {
		return compilePattern(c.JobPrefix, c.JobPattern)
	}
	return c.pathPattern
}

// Label returns DisplayName, falling back to Name.
func (c Config) Label() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

func compilePattern(jobPrefix, jobPattern string) *regexp.Regexp {
	return regexp.MustCompile(
		`pr-logs/pull/(?P<repo>[^/]+)/(?P<pr_number>\d+)/` +
			`(?P<job_name>(?:rehearse-\d+-)?` + regexp.QuoteMeta(jobPrefix) +
			`(?P<ocp_version>\d+\.\d+)-stable-` + regexp.QuoteMeta(jobPattern) +
			`-(?P<op_version>\d+-\d+-x|master))/` +
			`(?P<build_id>[^/]+)`)
}
