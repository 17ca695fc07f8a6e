package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"promptmart-admin/internal/category"
	"promptmart-admin/internal/utils"

	"github.com/spf13/cobra"
)

var errDefectsFound = errors.New("sort order defects found; run `catctl repair`")

func newTreeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the category tree in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, app, func(ctx context.Context, svc category.Service) error {
				tree, err := svc.GetTree(ctx)
				if err != nil {
					return err
				}
				if app.JSON {
					return writeJSON(cmd, category.MapTreeToREST(tree))
				}
				out := cmd.OutOrStdout()
				for _, row := range category.Flatten(tree) {
					indent := strings.Repeat("    ", row.Depth)
					fmt.Fprintf(out, "%s%3d  %s  (%s)\n", indent, row.Node.SortOrder, row.Node.Name, row.Node.ID)
					if desc := utils.PtrString(row.Node.Description); desc != "" {
						fmt.Fprintf(out, "%s     %s\n", indent, desc)
					}
				}
				return nil
			})
		},
	}
}

func newCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report sibling groups whose sort orders are not 1..N",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, app, func(ctx context.Context, svc category.Service) error {
				defects, err := svc.Inspect(ctx)
				if err != nil {
					return err
				}
				if app.JSON {
					if err := writeJSON(cmd, category.MapDefectsToREST(defects)); err != nil {
						return err
					}
				} else {
					out := cmd.OutOrStdout()
					if len(defects) == 0 {
						fmt.Fprintln(out, "ok: every sibling group is numbered 1..N")
					}
					for _, d := range defects {
						group := "main categories"
						if d.ParentID != nil {
							group = "subcategories of " + *d.ParentID
						}
						fmt.Fprintf(out, "%s: size=%d duplicates=%v missing=%v\n", group, d.Size, d.Duplicates, d.Missing)
					}
				}
				if len(defects) > 0 {
					return errDefectsFound
				}
				return nil
			})
		},
	}
}

func newMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <index>",
		Short: "Move a category to a zero-based position among its siblings",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return writeErr(cmd, fmt.Errorf("invalid index %q: %w", args[1], err))
			}
			if err := category.CheckNodeID(args[0]); err != nil {
				return writeErr(cmd, err)
			}
			return withService(cmd, app, func(ctx context.Context, svc category.Service) error {
				if err := svc.MoveSibling(ctx, args[0], index); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "moved %s to position %d\n", args[0], index)
				return nil
			})
		},
	}
}

func newReorderCmd(app *App) *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "reorder <id>...",
		Short: "Set the full display order of one sibling group",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var parentID *string
			if parent != "" {
				parentID = &parent
			}
			if err := category.CheckReorderIDs(parentID, args); err != nil {
				return writeErr(cmd, err)
			}
			return withService(cmd, app, func(ctx context.Context, svc category.Service) error {
				if err := svc.ReorderSiblings(ctx, parentID, args); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reordered %d siblings\n", len(args))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "Parent category id (omit for main categories)")
	return cmd
}

func newRepairCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Renumber every sibling group 1..N by creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, app, func(ctx context.Context, svc category.Service) error {
				report, repairErr := svc.Repair(ctx)
				if report != nil {
					if app.JSON {
						if err := writeJSON(cmd, category.MapRepairReportToREST(report)); err != nil {
							return err
						}
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "groups=%d updated=%d failed=%d\n",
							report.Groups, report.Updated, report.Failed)
					}
				}
				return repairErr
			})
		},
	}
}
