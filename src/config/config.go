// Package config provides configuration management for the dashboard.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"operator-dashboard/src/gcs"
	"operator-dashboard/src/github"
	"operator-dashboard/src/operator"
	"operator-dashboard/src/prow"
)

// DefaultRepositorySlug is the bucket directory name of the CI repository.
const DefaultRepositorySlug = "rh-ecosystem-edge_nvidia-ci"

// OperatorProfile describes an operator that is not built in.
type OperatorProfile struct {
	Name           string `yaml:"name"`
	DisplayName    string `yaml:"display_name"`
	JobPattern     string `yaml:"job_pattern"`
	ArtifactSubdir string `yaml:"artifact_subdir"`
	VersionField   string `yaml:"version_field"`
}

// Config holds the application configuration.
type Config struct {
	// OperatorName selects a built-in operator ("gpu" or "nno").
	OperatorName string `yaml:"operator"`
	// OperatorProfile overrides OperatorName with a custom definition.
	OperatorProfile *OperatorProfile `yaml:"operator_profile"`

	GCSBaseURL        string `yaml:"gcs_base_url"`
	ReportBaseURL     string `yaml:"report_base_url"`
	JobHistoryBaseURL string `yaml:"job_history_base_url"`
	RepositorySlug    string `yaml:"repository_slug"`

	GitHubOwner string `yaml:"github_owner"`
	GitHubRepo  string `yaml:"github_repo"`
	GitHubBase  string `yaml:"github_base"`
	GitHubPages int    `yaml:"github_pages"`
	// GitHubAPIURL overrides the public API endpoint. Empty uses api.github.com.
	GitHubAPIURL string `yaml:"github_api_url"`
	// GitHubToken is only read from the environment.
	GitHubToken string `yaml:"-"`

	// RequestsPerSecond bounds artifact store requests. Zero disables limiting.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// Concurrency is the number of change requests processed in parallel.
	Concurrency int `yaml:"concurrency"`

	RedpandaBrokers []string `yaml:"redpanda_brokers"`
	PostgresDSN     string   `yaml:"postgres_dsn"`
	SQLitePath      string   `yaml:"sqlite_path"`
	LogLevel        string   `yaml:"log_level"`

	// Operator is resolved from OperatorName or OperatorProfile.
	Operator operator.Config `yaml:"-"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		OperatorName:      operator.GPU.Name,
		GCSBaseURL:        gcs.APIBaseURL,
		ReportBaseURL:     prow.DefaultReportBaseURL,
		JobHistoryBaseURL: prow.DefaultJobHistoryBaseURL,
		RepositorySlug:    DefaultRepositorySlug,
		GitHubOwner:       github.DefaultOwner,
		GitHubRepo:        github.DefaultRepo,
		GitHubBase:        github.DefaultBase,
		GitHubPages:       1,
		RequestsPerSecond: 10,
		Concurrency:       4,
		LogLevel:          "info",
		Operator:          operator.GPU,
	}
}

// LoadFromEnv loads configuration from environment variables on top of the
// defaults.
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads a YAML file on top of the defaults. Environment variables
// still take precedence over the file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoadFromEnv loads configuration from environment variables and panics on error.
// This is useful for initialization in main() where configuration errors should be fatal.
func MustLoadFromEnv() *Config {
	cfg, err := LoadFromEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("DASHBOARD_OPERATOR"); v != "" {
		c.OperatorName = v
		c.OperatorProfile = nil
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.GitHubToken = v
	}
	if v := os.Getenv("GITHUB_API_URL"); v != "" {
		c.GitHubAPIURL = v
	}
	if v := os.Getenv("REDPANDA_BROKERS"); v != "" {
		c.RedpandaBrokers = splitList(v)
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.PostgresDSN = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("GCS_REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("GCS_REQUESTS_PER_SECOND must be a number: %w", err)
		}
		c.RequestsPerSecond = rps
	}
	if v := os.Getenv("DASHBOARD_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DASHBOARD_CONCURRENCY must be an integer: %w", err)
		}
		c.Concurrency = n
	}
	return nil
}

func (c *Config) resolve() error {
	if c.OperatorProfile != nil {
		p := c.OperatorProfile
		op, err := operator.New(p.Name, p.DisplayName, p.JobPattern, p.ArtifactSubdir, p.VersionField)
		if err != nil {
			return err
		}
		c.Operator = op
		c.OperatorName = op.Name
	} else {
		op, err := operator.Lookup(c.OperatorName)
		if err != nil {
			return err
		}
		c.Operator = op
	}
	return c.Validate()
}

// SelectOperator switches to a built-in operator, dropping any custom
// profile.
func (c *Config) SelectOperator(name string) error {
	op, err := operator.Lookup(name)
	if err != nil {
		return err
	}
	c.OperatorName = op.Name
	c.OperatorProfile = nil
	c.Operator = op
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative, got %v", c.RequestsPerSecond)
	}
	if c.RepositorySlug == "" {
		return fmt.Errorf("repository_slug is required")
	}
	if c.GCSBaseURL == "" {
		return fmt.Errorf("gcs_base_url is required")
	}
	return nil
}

// URLs returns the link builder for reports and job history.
func (c *Config) URLs() prow.URLBuilder {
	return prow.URLBuilder{ReportBase: c.ReportBaseURL, JobHistoryBase: c.JobHistoryBaseURL}
}

// ChangeRequestPrefix returns the bucket prefix holding the builds of one
// pull request.
func (c *Config) ChangeRequestPrefix(number string) string {
	return "pr-logs/pull/" + c.RepositorySlug + "/" + number + "/"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
