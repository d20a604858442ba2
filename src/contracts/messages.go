package contracts

// Topic names used on the message broker.
const (
	// TopicResults carries one ResultMaterialized per build, keyed by identity.
	TopicResults = "dashboard.results"

	// TopicUpdates carries one DashboardUpdated per merged bucket.
	TopicUpdates = "dashboard.updated"
)

// ResultMaterialized is published for every build materialized during a run.
// Key: BuildIdentity.String()
type ResultMaterialized struct {
	RunID    string        `json:"run_id"`
	Operator string        `json:"operator"`
	Bucket   string        `json:"bucket"`
	Identity BuildIdentity `json:"identity"`
	Result   TestResult    `json:"result"`
	Bundle   bool          `json:"bundle"`
	// StatusMismatch is set when the operator's own tests passed but the
	// enclosing job did not.
	StatusMismatch bool `json:"status_mismatch,omitempty"`
}

// DashboardUpdated is published once per bucket after a merge is persisted.
// Key: bucket
type DashboardUpdated struct {
	RunID           string `json:"run_id"`
	Operator        string `json:"operator"`
	Bucket          string `json:"bucket"`
	BundleTests     int    `json:"bundle_tests"`
	ReleaseTests    int    `json:"release_tests"`
	JobHistoryLinks int    `json:"job_history_links"`
	Timestamp       string `json:"timestamp"`
}
