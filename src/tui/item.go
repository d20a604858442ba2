package tui

import (
	"fmt"
	"strings"

	"operator-dashboard/src/contracts"
	"operator-dashboard/src/report"
)

// Item is one platform bucket in the list. It wraps the report view model
// and implements bubbles/list.Item.
type Item struct {
	Bucket report.Bucket
}

// FilterValue is the value used for fuzzy filtering.
func (i Item) FilterValue() string { return i.Bucket.Name }

// Title returns the primary text for the item (required by list.Item).
func (i Item) Title() string { return "OpenShift " + i.Bucket.Name }

// Description returns the secondary text for the item (required by list.Item).
func (i Item) Description() string {
	passed, total := i.CellCounts()
	return fmt.Sprintf("%d bundle runs, %d/%d release versions passing", len(i.Bucket.Bundles), passed, total)
}

// LatestBundle returns the newest bundle run.
func (i Item) LatestBundle() (report.Square, bool) {
	if len(i.Bucket.Bundles) == 0 {
		return report.Square{}, false
	}
	return i.Bucket.Bundles[0], true
}

// CellCounts returns how many release matrix cells passed out of all cells.
func (i Item) CellCounts() (passed, total int) {
	for _, row := range i.Bucket.Rows {
		for _, c := range row.Cells {
			total++
			if c.Success {
				passed++
			}
		}
	}
	return passed, total
}

// Failing reports whether the newest bundle run or any release cell failed.
func (i Item) Failing() bool {
	if b, ok := i.LatestBundle(); ok && b.Status != string(contracts.StatusSuccess) {
		return true
	}
	passed, total := i.CellCounts()
	return passed < total
}

// Matches reports whether query occurs in the bucket name, its notes or any
// version shown for it. query must be lower case.
func (i Item) Matches(query string) bool {
	if strings.Contains(strings.ToLower(i.Bucket.Name), query) {
		return true
	}
	for _, note := range i.Bucket.Notes {
		if strings.Contains(strings.ToLower(note), query) {
			return true
		}
	}
	for _, row := range i.Bucket.Rows {
		if strings.Contains(strings.ToLower(row.Platform), query) {
			return true
		}
		for _, c := range row.Cells {
			if strings.Contains(strings.ToLower(c.Component), query) {
				return true
			}
		}
	}
	return false
}
