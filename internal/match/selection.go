package match

import (
	"github.com/Another0Noob/romfilter/internal/romfile"
)

// Decision is the outcome of offering a candidate to a Selection.
type Decision int

const (
	Unknown  Decision = iota // digest not in the catalog
	Kept                     // first candidate for its title
	Replaced                 // displaced a non-preferred candidate
	Ignored                  // title already has a candidate that stays
)

func (d Decision) String() string {
	switch d {
	case Kept:
		return "kept"
	case Replaced:
		return "replaced"
	case Ignored:
		return "ignored"
	default:
		return "unknown"
	}
}

// Pick is the kept candidate of one title.
type Pick struct {
	GameID    int
	Title     string
	Digest    string
	Name      string // checksum display name
	Candidate romfile.Candidate
}

// Selection keeps at most one candidate per title.
type Selection struct {
	idx   *PriorityIndex
	picks map[int]*Pick
	order []int
}

func NewSelection(idx *PriorityIndex) *Selection {
	return &Selection{idx: idx, picks: make(map[int]*Pick)}
}

// Offer considers a scanned candidate. The first match of a title is kept; a
// later match replaces it only when its digest is the title's preferred one.
// A preferred candidate therefore ends up kept whatever the scan order.
func (s *Selection) Offer(c romfile.Candidate) Decision {
	digest := NormalizeDigest(c.Digest)
	gameID, ok := s.idx.Owner(digest)
	if !ok {
		return Unknown
	}

	pick := &Pick{
		GameID:    gameID,
		Title:     s.idx.Titles[gameID],
		Digest:    digest,
		Name:      s.idx.Names[digest],
		Candidate: c,
	}

	if _, exists := s.picks[gameID]; !exists {
		s.picks[gameID] = pick
		s.order = append(s.order, gameID)
		return Kept
	}

	if preferred, ok := s.idx.PreferredFor(gameID); ok && digest == preferred {
		s.picks[gameID] = pick
		return Replaced
	}
	return Ignored
}

// Picks returns the kept candidates in the order their titles were first matched.
func (s *Selection) Picks() []Pick {
	out := make([]Pick, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.picks[id])
	}
	return out
}

// Has reports whether a title has a kept candidate.
func (s *Selection) Has(gameID int) bool {
	_, ok := s.picks[gameID]
	return ok
}

// Len is the number of titles matched.
func (s *Selection) Len() int {
	return len(s.order)
}
