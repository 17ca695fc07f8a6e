package category

import "time"

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	SortOrder   int       `json:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Subcategory struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"categoryID"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	SortOrder   int       `json:"sortOrder"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type NodeKind string

const (
	KindCategory    NodeKind = "category"
	KindSubcategory NodeKind = "subcategory"
)

// TreeNode is the derived, display-ordered view of a category or subcategory.
// Subcategory nodes never carry children.
type TreeNode struct {
	ID          string      `json:"id"`
	Kind        NodeKind    `json:"kind"`
	ParentID    *string     `json:"parentID,omitempty"`
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"`
	SortOrder   int         `json:"sortOrder"`
	CreatedAt   time.Time   `json:"createdAt"`
	Children    []*TreeNode `json:"children,omitempty"`
}

func (n *TreeNode) IsCategory() bool {
	return n.Kind == KindCategory
}

// Fields are the mutable columns shared by both collections.
type Fields struct {
	Name        string
	Description *string
	SortOrder   int
}

type CreateInput struct {
	Name        string
	Description *string
	// ParentID selects the owning category; nil creates a main category.
	ParentID  *string
	SortOrder *int
}

type UpdateInput struct {
	Name        string
	Description *string
	// SortOrder keeps the current value when nil.
	SortOrder *int
	ParentID  *string
}

// SortUpdate is one (id, new sort_order) pair produced by reorder or repair.
type SortUpdate struct {
	ID        string `json:"id"`
	SortOrder int    `json:"sortOrder"`
}

// Sibling is the minimal view of a node the reorder engine works on.
type Sibling struct {
	ID        string
	SortOrder int
	CreatedAt time.Time
}

type ListOrder int

const (
	OrderBySortOrder ListOrder = iota
	OrderByCreatedAt
)

type RepairReport struct {
	Groups  int `json:"groups"`
	Failed  int `json:"failed"`
	Updated int `json:"updated"`
}

func (r *RepairReport) Success() bool {
	return r.Failed == 0
}

// GroupDefect describes a sibling group whose sort orders are not exactly 1..N.
type GroupDefect struct {
	ParentID   *string `json:"parentID,omitempty"`
	Size       int     `json:"size"`
	Duplicates []int   `json:"duplicates,omitempty"`
	Missing    []int   `json:"missing,omitempty"`
}
