package category

import "errors"

var (
	// -- Resource State --
	ErrCategoryNotFound    = errors.New("category not found")
	ErrSubcategoryNotFound = errors.New("subcategory not found")
	ErrNodeNotFound        = errors.New("category node not found")

	// -- Ordering --
	ErrMovedNodeNotFound = errors.New("moved node is not part of the sibling group")
	ErrSiblingMismatch   = errors.New("ordered ids do not match the sibling group")
	ErrRepairIncomplete  = errors.New("sort order repair did not complete")

	// -- Constants (External Systems) --
	PgForeignKeyViolation = "23503"
)
