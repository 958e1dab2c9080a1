package domain

import "strings"

// Conflict is a CID proposed for an exception list that is already
// blocked by one of the owner's regular lists. Conflicts are computed
// on demand and never persisted.
type Conflict struct {
	ID         string `json:"id"`       // CID row id inside the conflicting list
	FilterID   int    `json:"filterId"` // list holding the row
	FilterName string `json:"filterName,omitempty"`
	CID        string `json:"cid"`
	RefURL     string `json:"refUrl,omitempty"`
}

// ConflictKind drives how the front end prompts for resolution.
type ConflictKind string

const (
	ConflictNone     ConflictKind = "none"
	ConflictSingle   ConflictKind = "single"
	ConflictMultiple ConflictKind = "multiple"
)

// DetectConflicts scans every non-override list (except targetID) for
// rows whose cid equals one of the candidates. A candidate present in
// several lists yields one conflict per list.
func DetectConflicts(lists []*FilterList, candidates []string, targetID int) []Conflict {
	wanted := make(map[string]struct{}, len(candidates))
	ordered := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := wanted[c]; dup {
			continue
		}
		wanted[c] = struct{}{}
		ordered = append(ordered, c)
	}

	conflicts := make([]Conflict, 0)
	if len(ordered) == 0 {
		return conflicts
	}

	for _, cid := range ordered {
		for _, list := range lists {
			if list == nil || list.Override || list.ID == targetID {
				continue
			}
			for _, item := range list.CIDs {
				if item.CID != cid {
					continue
				}
				conflicts = append(conflicts, Conflict{
					ID:         item.ID,
					FilterID:   list.ID,
					FilterName: list.Name,
					CID:        item.CID,
					RefURL:     item.RefURL,
				})
			}
		}
	}

	return conflicts
}

// DistinctCIDs tallies conflicts by cid value.
func DistinctCIDs(conflicts []Conflict) map[string]int {
	tally := make(map[string]int, len(conflicts))
	for _, c := range conflicts {
		tally[c.CID]++
	}
	return tally
}

// ClassifyConflicts is "multiple" only when more than one distinct cid
// is involved, regardless of how many rows conflict.
func ClassifyConflicts(conflicts []Conflict) ConflictKind {
	switch n := len(DistinctCIDs(conflicts)); {
	case n == 0:
		return ConflictNone
	case n == 1:
		return ConflictSingle
	default:
		return ConflictMultiple
	}
}

// WithoutConflicts returns pending minus every conflict in resolved,
// matched on (list, row).
func WithoutConflicts(pending, resolved []Conflict) []Conflict {
	done := make(map[conflictKey]struct{}, len(resolved))
	for _, c := range resolved {
		done[keyOf(c)] = struct{}{}
	}

	out := make([]Conflict, 0, len(pending))
	for _, c := range pending {
		if _, ok := done[keyOf(c)]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

type conflictKey struct {
	filterID int
	id       string
}

func keyOf(c Conflict) conflictKey {
	return conflictKey{filterID: c.FilterID, id: c.ID}
}
