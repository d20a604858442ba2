// Package report renders a dashboard as a static HTML test matrix.
package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/blang/semver/v4"

	"operator-dashboard/src/contracts"
	"operator-dashboard/src/operator"
)

//go:embed templates/dashboard.html.tmpl
var dashboardTemplate string

var page = template.Must(template.New("dashboard").Funcs(sprig.HtmlFuncMap()).Parse(dashboardTemplate))

// Page is the view model of the rendered report.
type Page struct {
	Title     string
	Buckets   []Bucket
	Generated time.Time
}

// Bucket is one platform version section.
type Bucket struct {
	Name  string
	Notes []string
	// Bundles holds bundle runs newest first.
	Bundles []Square
	Rows    []Row
}

// LastBundle returns the timestamp of the newest bundle run.
func (b Bucket) LastBundle() int64 {
	if len(b.Bundles) == 0 {
		return 0
	}
	return b.Bundles[0].Timestamp
}

// Square is one bundle run in the history strip.
type Square struct {
	Status    string
	Class     string
	URL       string
	Timestamp int64
}

// Row lists the component versions tested on one exact platform version.
type Row struct {
	Platform string `json:"platform_version"`
	Cells    []Cell `json:"cells"`
}

// Cell links one component version to its authoritative run.
type Cell struct {
	Component string `json:"component_version"`
	URL       string `json:"report_url"`
	Success   bool   `json:"success"`
}

// Render writes the HTML report of d.
func Render(w io.Writer, d contracts.Dashboard, op operator.Config, now time.Time) error {
	if err := page.Execute(w, Build(d, op, now)); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	return nil
}

// Build prepares the view model. Buckets are ordered newest platform first.
func Build(d contracts.Dashboard, op operator.Config, now time.Time) Page {
	p := Page{
		Title:     op.Label() + " Test Matrix",
		Generated: now.UTC(),
	}
	for _, name := range sortedBuckets(d) {
		h := d[name]
		p.Buckets = append(p.Buckets, Bucket{
			Name:    name,
			Notes:   h.Notes,
			Bundles: squares(h.BundleTests),
			Rows:    rows(h.ReleaseTests),
		})
	}
	return p
}

func sortedBuckets(d contracts.Dashboard) []string {
	names := d.Buckets()
	sort.SliceStable(names, func(i, j int) bool {
		return compareVersions(names[i], names[j]) > 0
	})
	return names
}

func squares(results []contracts.TestResult) []Square {
	sorted := append([]contracts.TestResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp > sorted[j].Timestamp })

	out := make([]Square, 0, len(sorted))
	for _, r := range sorted {
		status := strings.ToUpper(string(r.Status))
		if status == "" {
			status = "UNKNOWN"
		}
		out = append(out, Square{
			Status:    status,
			Class:     statusClass(contracts.Status(status)),
			URL:       r.ReportURL,
			Timestamp: r.Timestamp,
		})
	}
	return out
}

func statusClass(s contracts.Status) string {
	switch s {
	case contracts.StatusSuccess:
		return "history-success"
	case contracts.StatusFailure:
		return "history-failure"
	default:
		return "history-aborted"
	}
}

// rows groups eligible release results by exact platform version. Within a
// row each component version shows its newest successful run, or its newest
// run when none succeeded.
func rows(results []contracts.TestResult) []Row {
	grouped := make(map[string]map[string][]contracts.TestResult)
	for _, r := range results {
		if !r.ReleaseEligible() {
			continue
		}
		if grouped[r.PlatformVersion] == nil {
			grouped[r.PlatformVersion] = make(map[string][]contracts.TestResult)
		}
		grouped[r.PlatformVersion][r.ComponentVersion] = append(grouped[r.PlatformVersion][r.ComponentVersion], r)
	}

	platforms := make([]string, 0, len(grouped))
	for p := range grouped {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return compareVersions(platforms[i], platforms[j]) > 0 })

	out := make([]Row, 0, len(platforms))
	for _, p := range platforms {
		row := Row{Platform: p}
		for component, runs := range grouped[p] {
			chosen := choose(runs)
			row.Cells = append(row.Cells, Cell{
				Component: component,
				URL:       chosen.ReportURL,
				Success:   chosen.Status.IsSuccess(),
			})
		}
		sort.Slice(row.Cells, func(i, j int) bool {
			c := compareVersions(contracts.StripAnnotation(row.Cells[i].Component), contracts.StripAnnotation(row.Cells[j].Component))
			if c != 0 {
				return c > 0
			}
			return row.Cells[i].Component > row.Cells[j].Component
		})
		out = append(out, row)
	}
	return out
}

func choose(runs []contracts.TestResult) contracts.TestResult {
	var best *contracts.TestResult
	for i := range runs {
		r := &runs[i]
		switch {
		case best == nil:
			best = r
		case r.Status.IsSuccess() && !best.Status.IsSuccess():
			best = r
		case r.Status.IsSuccess() == best.Status.IsSuccess() && r.Timestamp > best.Timestamp:
			best = r
		}
	}
	return *best
}

// compareVersions orders semantic versions, accepting short forms like
// "4.14". Values that do not parse sort after those that do, by string.
func compareVersions(a, b string) int {
	va, errA := semver.ParseTolerant(a)
	vb, errB := semver.ParseTolerant(b)
	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	default:
		return strings.Compare(a, b)
	}
}
