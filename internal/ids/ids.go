// Package ids issues lexicographically sortable identifiers used for
// request tracing and audit correlation.
package ids

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// New returns a fresh ULID in lower case. Lower case keeps the value
// friendly to log pipelines that normalize identifiers.
func New() string {
	return strings.ToLower(ulid.Make().String())
}
