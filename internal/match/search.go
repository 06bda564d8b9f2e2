package match

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Title is a searchable catalog title.
type Title struct {
	ID   int
	Name string
}

// Hit is one search result. Distance is 0 for substring matches.
type Hit struct {
	Title
	Distance int
	Exact    bool
}

// SearchTitles finds titles containing query (case and accent insensitive),
// followed by fuzzy matches ranked by edit distance. limit <= 0 means no limit.
func SearchTitles(titles []Title, query string, limit int) []Hit {
	q := normalizeTitle(query)
	if q == "" {
		return nil
	}

	normalized := make([]string, len(titles))
	for i, t := range titles {
		normalized[i] = normalizeTitle(t.Name)
	}

	var hits []Hit
	taken := make(map[int]struct{})
	for i, n := range normalized {
		if strings.Contains(n, q) {
			hits = append(hits, Hit{Title: titles[i], Exact: true})
			taken[i] = struct{}{}
		}
	}

	ranks := fuzzy.RankFind(q, normalized)
	sort.Stable(ranks)
	for _, r := range ranks {
		if _, dup := taken[r.OriginalIndex]; dup {
			continue
		}
		taken[r.OriginalIndex] = struct{}{}
		hits = append(hits, Hit{Title: titles[r.OriginalIndex], Distance: r.Distance})
	}

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
