package category

import (
	"slices"
	"strings"
)

// Reorder moves movedID to targetIndex within an ordered sibling group and
// rewrites the whole group to sort orders 1..N. targetIndex is clamped to
// [0, len(siblings)-1]; untouched nodes keep their relative order.
func Reorder(siblings []Sibling, movedID string, targetIndex int) ([]SortUpdate, error) {
	movedID = strings.TrimSpace(movedID)

	movedIdx := slices.IndexFunc(siblings, func(s Sibling) bool { return s.ID == movedID })
	if movedIdx < 0 {
		return nil, ErrMovedNodeNotFound
	}

	rest := make([]string, 0, len(siblings))
	for i, s := range siblings {
		if i != movedIdx {
			rest = append(rest, s.ID)
		}
	}

	if targetIndex < 0 {
		targetIndex = 0
	}
	if targetIndex > len(siblings)-1 {
		targetIndex = len(siblings) - 1
	}

	ordered := slices.Insert(rest, targetIndex, movedID)
	return Renumber(ordered), nil
}

// Renumber assigns sort_order = position + 1 to each id.
func Renumber(orderedIDs []string) []SortUpdate {
	updates := make([]SortUpdate, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		updates = append(updates, SortUpdate{ID: id, SortOrder: i + 1})
	}
	return updates
}

// Changed keeps only the updates whose sort order differs from the current one.
func Changed(current []Sibling, updates []SortUpdate) []SortUpdate {
	orders := make(map[string]int, len(current))
	for _, s := range current {
		orders[s.ID] = s.SortOrder
	}

	var out []SortUpdate
	for _, u := range updates {
		if old, ok := orders[u.ID]; ok && old == u.SortOrder {
			continue
		}
		out = append(out, u)
	}
	return out
}

// samePermutation reports whether ids names every sibling exactly once.
func samePermutation(siblings []Sibling, ids []string) bool {
	if len(siblings) != len(ids) {
		return false
	}
	want := make(map[string]bool, len(siblings))
	for _, s := range siblings {
		want[s.ID] = true
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !want[id] || seen[id] {
			return false
		}
		seen[id] = true
	}
	return true
}
