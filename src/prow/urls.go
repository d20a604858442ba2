package prow

import "strings"

const (
	// DefaultReportBaseURL serves the browsable artifact tree of a build.
	DefaultReportBaseURL = "https://gcsweb-ci.apps.ci.l2s4.p1.openshiftapps.com/gcs/test-platform-results/"

	// DefaultJobHistoryBaseURL serves the run history of a presubmit job.
	DefaultJobHistoryBaseURL = "https://prow.ci.openshift.org/job-history/gs/test-platform-results/pr-logs/directory/"
)

// URLBuilder derives public links from storage paths.
type URLBuilder struct {
	ReportBase     string
	JobHistoryBase string
}

// DefaultURLs returns a builder pointing at the public OpenShift CI hosts.
func DefaultURLs() URLBuilder {
	return URLBuilder{ReportBase: DefaultReportBaseURL, JobHistoryBase: DefaultJobHistoryBaseURL}
}

// ReportURL returns the link to the directory holding statusPath.
func (b URLBuilder) ReportURL(statusPath string) string {
	dir := strings.TrimSuffix(statusPath, "/finished.json")
	if dir == statusPath {
		if i := strings.LastIndex(statusPath, "/"); i >= 0 {
			dir = statusPath[:i]
		}
	}
	return withSlash(b.ReportBase) + dir
}

// JobHistoryURL returns the job history link of a job.
func (b URLBuilder) JobHistoryURL(jobName string) string {
	return withSlash(b.JobHistoryBase) + jobName
}

// ReportURL is URLBuilder.ReportURL with the default hosts.
func ReportURL(statusPath string) string {
	return DefaultURLs().ReportURL(statusPath)
}

// JobHistoryURL is URLBuilder.JobHistoryURL with the default hosts.
func JobHistoryURL(jobName string) string {
	return DefaultURLs().JobHistoryURL(jobName)
}

func withSlash(base string) string {
	if base == "" || strings.HasSuffix(base, "/") {
		return base
	}
	return base + "/"
}
