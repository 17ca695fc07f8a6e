package category

import "sort"

// BuildTree joins the two flat collections into a two-level tree.
// Both levels are ordered by sort_order ascending; equal values keep input
// order. Subcategories whose parent is unknown are dropped.
func BuildTree(categories []*Category, subcategories []*Subcategory) []*TreeNode {
	roots := make([]*TreeNode, 0, len(categories))
	byID := make(map[string]*TreeNode, len(categories))

	for _, c := range categories {
		if c == nil {
			continue
		}
		node := categoryNode(c)
		roots = append(roots, node)
		byID[c.ID] = node
	}

	for _, sc := range subcategories {
		if sc == nil {
			continue
		}
		parent, ok := byID[sc.CategoryID]
		if !ok {
			continue
		}
		parent.Children = append(parent.Children, subcategoryNode(sc))
	}

	sortNodes(roots)
	for _, r := range roots {
		sortNodes(r.Children)
	}
	return roots
}

func categoryNode(c *Category) *TreeNode {
	return &TreeNode{
		ID:          c.ID,
		Kind:        KindCategory,
		Name:        c.Name,
		Description: c.Description,
		SortOrder:   c.SortOrder,
		CreatedAt:   c.CreatedAt,
	}
}

func subcategoryNode(sc *Subcategory) *TreeNode {
	parentID := sc.CategoryID
	return &TreeNode{
		ID:          sc.ID,
		Kind:        KindSubcategory,
		ParentID:    &parentID,
		Name:        sc.Name,
		Description: sc.Description,
		SortOrder:   sc.SortOrder,
		CreatedAt:   sc.CreatedAt,
	}
}

func sortNodes(nodes []*TreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].SortOrder < nodes[j].SortOrder
	})
}

// FindNode looks up a node at either level.
func FindNode(tree []*TreeNode, id string) *TreeNode {
	for _, root := range tree {
		if root.ID == id {
			return root
		}
		for _, child := range root.Children {
			if child.ID == id {
				return child
			}
		}
	}
	return nil
}

// SiblingGroup returns the ordered nodes sharing parentID (nil = main categories)
// and whether that group exists.
func SiblingGroup(tree []*TreeNode, parentID *string) ([]*TreeNode, bool) {
	if parentID == nil {
		return tree, true
	}
	for _, root := range tree {
		if root.ID == *parentID {
			return root.Children, true
		}
	}
	return nil, false
}

// Descendants returns the ids below the node with the given id.
func Descendants(tree []*TreeNode, id string) []string {
	node := FindNode(tree, id)
	if node == nil {
		return nil
	}
	var ids []string
	var walk func(n *TreeNode)
	walk = func(n *TreeNode) {
		for _, c := range n.Children {
			ids = append(ids, c.ID)
			walk(c)
		}
	}
	walk(node)
	return ids
}

// FlatRow is a depth-annotated tree row, used for parent pickers.
type FlatRow struct {
	Node  *TreeNode
	Depth int
}

// Flatten walks the tree depth-first in display order.
func Flatten(tree []*TreeNode) []FlatRow {
	rows := make([]FlatRow, 0, len(tree))
	for _, root := range tree {
		rows = append(rows, FlatRow{Node: root, Depth: 0})
		for _, child := range root.Children {
			rows = append(rows, FlatRow{Node: child, Depth: 1})
		}
	}
	return rows
}

func toSiblings(nodes []*TreeNode) []Sibling {
	out := make([]Sibling, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Sibling{ID: n.ID, SortOrder: n.SortOrder, CreatedAt: n.CreatedAt})
	}
	return out
}
