package model

import "time"

type CategoryNode struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	ParentID    *string         `json:"parent_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	SortOrder   int             `json:"sort_order"`
	CreatedAt   time.Time       `json:"created_at"`
	Children    []*CategoryNode `json:"children,omitempty"`
}

type CategoryTree struct {
	Categories []*CategoryNode `json:"categories"`
}

type CreateCategoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	ParentID    *string `json:"parent_id"`
	SortOrder   *int    `json:"sort_order"`
}

type UpdateCategoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	SortOrder   *int    `json:"sort_order"`
	ParentID    *string `json:"parent_id"`
}

type ReorderRequest struct {
	ParentID   *string  `json:"parent_id"`
	OrderedIDs []string `json:"ordered_ids"`
}

type MoveRequest struct {
	TargetIndex int `json:"target_index"`
}

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrorResponse struct {
	Error  string        `json:"error"`
	Fields []*FieldError `json:"fields"`
}

type RepairReport struct {
	Success bool   `json:"success"`
	Groups  int    `json:"groups"`
	Failed  int    `json:"failed"`
	Updated int    `json:"updated"`
	Error   string `json:"error,omitempty"`
}

type GroupDefect struct {
	ParentID   *string `json:"parent_id"`
	Size       int     `json:"size"`
	Duplicates []int   `json:"duplicates"`
	Missing    []int   `json:"missing"`
}

type HealthReport struct {
	Healthy bool           `json:"healthy"`
	Defects []*GroupDefect `json:"defects"`
}
