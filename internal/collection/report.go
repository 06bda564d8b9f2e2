package collection

import (
	"sort"

	"github.com/Another0Noob/romfilter/internal/match"
)

// Failure is a kept title that could not be written.
type Failure struct {
	Title string
	File  string
	Err   error
}

// Produced is a file written to the output directory.
type Produced struct {
	Title string
	Name  string
	Path  string
	Bytes int64
}

// Report summarizes a filter run.
type Report struct {
	Scanned     int // candidate files considered
	Skipped     int // unreadable files and archives without an image
	Unknown     int // digests absent from the catalog
	Matched     int // unique titles with a kept candidate
	Produced    int
	Bytes       int64
	TotalTitles int

	Picks    []match.Pick
	Outputs  []Produced
	Failures []Failure
	// Missing lists titles without any matching candidate, sorted by title.
	Missing []match.Title
}

// Coverage is the integer percentage of catalog titles produced. It is 0 for
// an empty catalog.
func (r *Report) Coverage() int {
	if r.TotalTitles <= 0 {
		return 0
	}
	return r.Produced * 100 / r.TotalTitles
}

// Ignored counts scanned candidates that did not end up in the output.
func (r *Report) Ignored() int {
	if n := r.Scanned - r.Produced; n > 0 {
		return n
	}
	return 0
}

// MissingNames returns the titles of Missing.
func (r *Report) MissingNames() []string {
	names := make([]string, len(r.Missing))
	for i, t := range r.Missing {
		names[i] = t.Name
	}
	return names
}

func (r *Report) sortMissing() {
	sort.SliceStable(r.Missing, func(i, j int) bool {
		if r.Missing[i].Name != r.Missing[j].Name {
			return r.Missing[i].Name < r.Missing[j].Name
		}
		return r.Missing[i].ID < r.Missing[j].ID
	})
}
