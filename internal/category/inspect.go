package category

import "sort"

// InspectTree reports every sibling group whose sort orders are not exactly 1..N.
func InspectTree(tree []*TreeNode) []GroupDefect {
	var defects []GroupDefect

	if d, ok := inspectGroup(nil, tree); ok {
		defects = append(defects, d)
	}
	for _, root := range tree {
		parentID := root.ID
		if d, ok := inspectGroup(&parentID, root.Children); ok {
			defects = append(defects, d)
		}
	}
	return defects
}

func inspectGroup(parentID *string, nodes []*TreeNode) (GroupDefect, bool) {
	counts := make(map[int]int, len(nodes))
	for _, n := range nodes {
		counts[n.SortOrder]++
	}

	d := GroupDefect{ParentID: parentID, Size: len(nodes)}
	for order, c := range counts {
		if c > 1 {
			d.Duplicates = append(d.Duplicates, order)
		}
	}
	for want := 1; want <= len(nodes); want++ {
		if counts[want] == 0 {
			d.Missing = append(d.Missing, want)
		}
	}
	sort.Ints(d.Duplicates)

	return d, len(d.Duplicates) > 0 || len(d.Missing) > 0
}
