package category

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	NameMinLength        = 2
	NameMaxLength        = 100
	DescriptionMaxLength = 500
	SortOrderMin         = 1
	SortOrderMax         = 999
)

// Validation error codes, stable for API clients.
const (
	CodeRequired        = "required"
	CodeTooShort        = "too_short"
	CodeTooLong         = "too_long"
	CodeOutOfRange      = "out_of_range"
	CodeDuplicateName   = "duplicate_name"
	CodeCircularParent  = "circular_parent"
	CodeParentImmutable = "parent_immutable"
	CodeParentNotFound  = "parent_not_found"
	CodeInvalidParent   = "invalid_parent"
)

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationError collects field-scoped, user-correctable problems.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Field+": "+fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, code, msg string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Code: code, Message: msg})
}

// Has reports whether field has an error with the given code.
func (e *ValidationError) Has(field, code string) bool {
	return slices.ContainsFunc(e.Errors, func(fe FieldError) bool {
		return fe.Field == field && fe.Code == code
	})
}

// errOrNil avoids handing out a typed nil inside an error interface.
func (e *ValidationError) errOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// ValidateFields applies the per-field rules shared by create and edit.
func ValidateFields(name string, description *string, sortOrder *int) *ValidationError {
	v := &ValidationError{}

	trimmed := strings.TrimSpace(name)
	switch n := utf8.RuneCountInString(trimmed); {
	case n == 0:
		v.add("name", CodeRequired, "name is required")
	case n < NameMinLength:
		v.add("name", CodeTooShort, fmt.Sprintf("name must be at least %d characters", NameMinLength))
	case n > NameMaxLength:
		v.add("name", CodeTooLong, fmt.Sprintf("name must be at most %d characters", NameMaxLength))
	}

	if description != nil && utf8.RuneCountInString(*description) > DescriptionMaxLength {
		v.add("description", CodeTooLong, fmt.Sprintf("description must be at most %d characters", DescriptionMaxLength))
	}

	if sortOrder != nil && (*sortOrder < SortOrderMin || *sortOrder > SortOrderMax) {
		v.add("sort_order", CodeOutOfRange, fmt.Sprintf("sort order must be between %d and %d", SortOrderMin, SortOrderMax))
	}

	return v
}

// ValidateCreate checks a create form against the current tree. A nil tree
// only applies the field rules.
func ValidateCreate(input CreateInput, tree []*TreeNode) *ValidationError {
	v := ValidateFields(input.Name, input.Description, input.SortOrder)
	if tree == nil {
		return v
	}

	siblings := tree
	if input.ParentID != nil {
		parent := FindNode(tree, *input.ParentID)
		switch {
		case parent == nil:
			v.add("parent_id", CodeParentNotFound, "parent category does not exist")
			return v
		case !parent.IsCategory():
			v.add("parent_id", CodeInvalidParent, "a subcategory cannot have children")
			return v
		}
		siblings = parent.Children
	}

	if nameTaken(siblings, input.Name, "") {
		v.add("name", CodeDuplicateName, "a category with this name already exists here")
	}
	return v
}

// ValidateEdit checks an edit form for the node with the given id.
func ValidateEdit(id string, input UpdateInput, tree []*TreeNode) *ValidationError {
	v := ValidateFields(input.Name, input.Description, input.SortOrder)

	node := FindNode(tree, id)
	if node == nil {
		return v
	}

	if input.ParentID != nil && !samePtr(input.ParentID, node.ParentID) {
		candidate := *input.ParentID
		if candidate == id || slices.Contains(Descendants(tree, id), candidate) {
			v.add("parent_id", CodeCircularParent, "a category cannot be moved under itself or its descendants")
		} else {
			v.add("parent_id", CodeParentImmutable, "the parent of a category cannot be changed")
		}
	}

	siblings, _ := SiblingGroup(tree, node.ParentID)
	if nameTaken(siblings, input.Name, id) {
		v.add("name", CodeDuplicateName, "a category with this name already exists here")
	}
	return v
}

func nameTaken(siblings []*TreeNode, name, exceptID string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for _, s := range siblings {
		if s.ID != exceptID && strings.EqualFold(strings.TrimSpace(s.Name), name) {
			return true
		}
	}
	return false
}

func samePtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
