package category

import (
	"promptmart-admin/internal/rest/model"
)

func MapTreeToREST(tree []*TreeNode) *model.CategoryTree {
	out := make([]*model.CategoryNode, 0, len(tree))
	for _, n := range tree {
		out = append(out, MapNodeToREST(n))
	}
	return &model.CategoryTree{Categories: out}
}

func MapNodeToREST(n *TreeNode) *model.CategoryNode {
	if n == nil {
		return nil
	}

	var children []*model.CategoryNode
	if n.IsCategory() {
		children = make([]*model.CategoryNode, 0, len(n.Children))
		for _, c := range n.Children {
			children = append(children, MapNodeToREST(c))
		}
	}

	return &model.CategoryNode{
		ID:          n.ID,
		Kind:        string(n.Kind),
		ParentID:    n.ParentID,
		Name:        n.Name,
		Description: n.Description,
		SortOrder:   n.SortOrder,
		CreatedAt:   n.CreatedAt,
		Children:    children,
	}
}

func MapFieldErrorsToREST(v *ValidationError) []*model.FieldError {
	out := make([]*model.FieldError, 0, len(v.Errors))
	for _, fe := range v.Errors {
		out = append(out, &model.FieldError{Field: fe.Field, Code: fe.Code, Message: fe.Message})
	}
	return out
}

func MapRepairReportToREST(r *RepairReport) *model.RepairReport {
	if r == nil {
		return &model.RepairReport{}
	}
	return &model.RepairReport{
		Success: r.Success(),
		Groups:  r.Groups,
		Failed:  r.Failed,
		Updated: r.Updated,
	}
}

func MapDefectsToREST(defects []GroupDefect) *model.HealthReport {
	out := make([]*model.GroupDefect, 0, len(defects))
	for _, d := range defects {
		out = append(out, &model.GroupDefect{
			ParentID:   d.ParentID,
			Size:       d.Size,
			Duplicates: nonNil(d.Duplicates),
			Missing:    nonNil(d.Missing),
		})
	}
	return &model.HealthReport{Healthy: len(out) == 0, Defects: out}
}

func nonNil(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
