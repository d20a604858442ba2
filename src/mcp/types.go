// Package mcp provides an MCP server that answers questions about a
// dashboard: which platform versions exist, their history and their
// release matrix.
package mcp

import "operator-dashboard/src/report"

// ListResponse is the list_versions tool response.
type ListResponse struct {
	Operator string                  `json:"operator"`
	Versions []report.VersionSummary `json:"versions"`
}

// MatrixResponse is the get_release_matrix tool response.
type MatrixResponse struct {
	Operator string       `json:"operator"`
	Bucket   string       `json:"bucket"`
	Rows     []report.Row `json:"rows"`
}
