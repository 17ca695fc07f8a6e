package category

import "github.com/google/uuid"

// ValidID reports whether id can name a stored row at all.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// CheckNodeID fails malformed ids with the not-found error the store would give.
func CheckNodeID(id string) error {
	if !ValidID(id) {
		return ErrNodeNotFound
	}
	return nil
}

// CheckReorderIDs rejects a reorder request whose ids cannot exist: an unknown
// parent is not found, an unknown sibling is a mismatch.
func CheckReorderIDs(parentID *string, orderedIDs []string) error {
	if parentID != nil && !ValidID(*parentID) {
		return ErrCategoryNotFound
	}
	for _, id := range orderedIDs {
		if !ValidID(id) {
			return ErrSiblingMismatch
		}
	}
	return nil
}
