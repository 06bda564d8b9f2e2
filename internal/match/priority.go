package match

import (
	"strings"

	"github.com/Another0Noob/romfilter/internal/catalog"
)

// Region priorities, highest wins.
const (
	PriorityNone   = 0
	PriorityUSA    = 1
	PriorityEurope = 2
	PriorityFrance = 3
)

// NormalizeDigest upper-cases and trims a hex digest.
func NormalizeDigest(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// RegionPriority ranks a checksum display name by its region tag.
// French releases are detected by "(France)" or a French entry in a
// language list such as "(En,Fr,De)".
func RegionPriority(name string) int {
	switch {
	case strings.Contains(name, "(France)"),
		strings.Contains(name, ",Fr"),
		strings.Contains(name, "(Fr)"),
		strings.Contains(name, "(Fr,"):
		return PriorityFrance
	case strings.Contains(name, "(Europe)"):
		return PriorityEurope
	case strings.Contains(name, "(USA)"):
		return PriorityUSA
	default:
		return PriorityNone
	}
}

// PriorityIndex is built once per run from the light catalog.
type PriorityIndex struct {
	Names     map[string]string // digest -> display name, first writer wins
	Preferred map[int]string    // game id -> highest priority digest (region-tagged only)
	Owners    map[string]int    // digest -> first game id listing it
	Titles    map[int]string    // game id -> title
	Order     []int             // game ids in catalog order
}

// BuildPriorityIndex indexes every digest of the catalog and computes each
// title's preferred digest independently over its own records.
func BuildPriorityIndex(entries []catalog.Entry) *PriorityIndex {
	idx := &PriorityIndex{
		Names:     make(map[string]string),
		Preferred: make(map[int]string),
		Owners:    make(map[string]int),
		Titles:    make(map[int]string, len(entries)),
		Order:     make([]int, 0, len(entries)),
	}

	for _, e := range entries {
		if _, seen := idx.Titles[e.GameID]; !seen {
			idx.Order = append(idx.Order, e.GameID)
			idx.Titles[e.GameID] = e.Title
		}

		best, bestPriority := "", PriorityNone
		for _, h := range e.Hashes {
			d := NormalizeDigest(h.MD5)
			if d == "" {
				continue
			}
			if _, ok := idx.Names[d]; !ok {
				idx.Names[d] = h.Name
			}
			if _, ok := idx.Owners[d]; !ok {
				idx.Owners[d] = e.GameID
			}
			// Strictly greater: ties keep the first seen.
			if p := RegionPriority(h.Name); p > bestPriority {
				best, bestPriority = d, p
			}
		}
		if best != "" {
			if _, ok := idx.Preferred[e.GameID]; !ok {
				idx.Preferred[e.GameID] = best
			}
		}
	}
	return idx
}

// Known reports whether digest belongs to any catalog title.
func (idx *PriorityIndex) Known(digest string) bool {
	_, ok := idx.Names[NormalizeDigest(digest)]
	return ok
}

// Owner resolves the title a digest belongs to.
func (idx *PriorityIndex) Owner(digest string) (int, bool) {
	id, ok := idx.Owners[NormalizeDigest(digest)]
	return id, ok
}

// PreferredFor returns the preferred digest of a title, if it has one.
func (idx *PriorityIndex) PreferredFor(gameID int) (string, bool) {
	d, ok := idx.Preferred[gameID]
	return d, ok
}
