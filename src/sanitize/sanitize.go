// Package sanitize cleans text fetched from CI artifacts before it is used as
// a version string or returned to MCP clients. It removes ANSI escape codes
// and surrounding whitespace left by the tooling that wrote the file.
package sanitize

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// StripANSI removes ANSI escape sequences.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// Version cleans a version hint file: escape codes are removed and the
// whole text is trimmed. Inner lines are kept so that a file holding more than
// a version does not pass as one.
func Version(s string) string {
	return strings.TrimSpace(StripANSI(s))
}
