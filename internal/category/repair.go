package category

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"promptmart-admin/internal/logger"
	"promptmart-admin/internal/metrics"

	"go.uber.org/zap"
)

// PlanRepair orders a sibling group by creation time (id breaks exact ties)
// and returns the updates needed to make its sort orders 1..N.
func PlanRepair(group []Sibling) []SortUpdate {
	ordered := append([]Sibling(nil), group...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	ids := make([]string, 0, len(ordered))
	for _, s := range ordered {
		ids = append(ids, s.ID)
	}
	return Changed(group, Renumber(ids))
}

// Repair re-derives sort order for every sibling group from creation order.
// Updates are issued one row at a time; a failing group is abandoned and the
// walk moves on to the next one.
func (s *service) Repair(ctx context.Context) (*RepairReport, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Repair"),
	)
	log.Info("Repair started")
	timer := metrics.StartTimer()
	s.metrics.Counter(metricRepairRuns).Inc()

	report := &RepairReport{}
	var failures []error

	defer func() {
		s.invalidate(ctx)
		s.metrics.ObserveDuration(metricRepairDuration, timer.Duration())
	}()

	categories, err := s.repo.ListCategories(ctx, OrderByCreatedAt)
	if err != nil {
		log.Error("failed to list categories", zap.Error(err))
		report.Groups++
		report.Failed++
		s.metrics.Counter(metricRepairFailures).Inc()
		return report, errors.Join(ErrRepairIncomplete, err)
	}

	report.Groups++
	rootGroup := make([]Sibling, 0, len(categories))
	for _, c := range categories {
		rootGroup = append(rootGroup, Sibling{ID: c.ID, SortOrder: c.SortOrder, CreatedAt: c.CreatedAt})
	}
	n, err := s.applySortUpdates(ctx, PlanRepair(rootGroup), s.repo.SetCategorySortOrder)
	report.Updated += n
	if err != nil {
		log.Error("failed to repair main categories", zap.Error(err))
		report.Failed++
		failures = append(failures, fmt.Errorf("main categories: %w", err))
	}

	for _, c := range categories {
		report.Groups++

		subs, err := s.repo.ListSubcategoriesByCategory(ctx, c.ID, OrderByCreatedAt)
		if err != nil {
			log.Error("failed to list subcategories", zap.String("category_id", c.ID), zap.Error(err))
			report.Failed++
			failures = append(failures, fmt.Errorf("subcategories of %s: %w", c.ID, err))
			continue
		}

		group := make([]Sibling, 0, len(subs))
		for _, sc := range subs {
			group = append(group, Sibling{ID: sc.ID, SortOrder: sc.SortOrder, CreatedAt: sc.CreatedAt})
		}

		n, err := s.applySortUpdates(ctx, PlanRepair(group), s.repo.SetSubcategorySortOrder)
		report.Updated += n
		if err != nil {
			log.Error("failed to repair subcategories", zap.String("category_id", c.ID), zap.Error(err))
			report.Failed++
			failures = append(failures, fmt.Errorf("subcategories of %s: %w", c.ID, err))
		}
	}

	if len(failures) > 0 {
		s.metrics.Counter(metricRepairFailures).Inc()
		log.Warn("Repair incomplete",
			zap.Int("groups", report.Groups),
			zap.Int("failed", report.Failed),
			zap.Int("updated", report.Updated),
		)
		return report, errors.Join(append([]error{ErrRepairIncomplete}, failures...)...)
	}

	log.Info("Repair success",
		zap.Int("groups", report.Groups),
		zap.Int("updated", report.Updated),
	)
	return report, nil
}

// applySortUpdates writes updates sequentially and stops at the first error.
// It returns how many rows were written before stopping.
func (s *service) applySortUpdates(
	ctx context.Context,
	updates []SortUpdate,
	set func(ctx context.Context, id string, sortOrder int) error,
) (int, error) {
	for i, u := range updates {
		if err := set(ctx, u.ID, u.SortOrder); err != nil {
			return i, fmt.Errorf("set sort order of %s: %w", u.ID, err)
		}
	}
	return len(updates), nil
}
