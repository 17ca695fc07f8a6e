package category

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"promptmart-admin/internal/logger"
	"promptmart-admin/internal/metrics"

	"go.uber.org/zap"
)

const (
	metricReorders       = "category_reorders_total"
	metricReorderUpdates = "category_reorder_updates_total"
	metricRepairRuns     = "category_repairs_total"
	metricRepairFailures = "category_repair_failures_total"
	metricRepairDuration = "category_repair_duration"
	metricCacheHits      = "category_tree_cache_hits_total"
	metricCacheMisses    = "category_tree_cache_misses_total"
)

// Service is the category hierarchy contract consumed by the admin UI.
type Service interface {
	GetTree(ctx context.Context) ([]*TreeNode, error)
	Create(ctx context.Context, input CreateInput) (*TreeNode, error)
	Update(ctx context.Context, id string, input UpdateInput) (*TreeNode, error)
	Delete(ctx context.Context, id string) error
	ReorderSiblings(ctx context.Context, parentID *string, orderedIDs []string) error
	MoveSibling(ctx context.Context, id string, targetIndex int) error
	Repair(ctx context.Context) (*RepairReport, error)
	Inspect(ctx context.Context) ([]GroupDefect, error)
}

// TreeCache stores the assembled tree between reads. Implementations must be
// safe to call with a cold or unreachable backend.
//
// Load reports a generation on a miss. Store must drop the write when an
// Invalidate happened after that generation was read.
type TreeCache interface {
	Load(ctx context.Context) (tree []*TreeNode, gen int64, ok bool, err error)
	Store(ctx context.Context, gen int64, tree []*TreeNode) error
	Invalidate(ctx context.Context) error
}

type noopCache struct{}

func (noopCache) Load(context.Context) ([]*TreeNode, int64, bool, error) { return nil, 0, false, nil }
func (noopCache) Store(context.Context, int64, []*TreeNode) error        { return nil }
func (noopCache) Invalidate(context.Context) error                       { return nil }

type Option func(*service)

func WithCache(c TreeCache) Option {
	return func(s *service) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithMetrics(r *metrics.Registry) Option {
	return func(s *service) {
		if r != nil {
			s.metrics = r
		}
	}
}

type service struct {
	repo    Repository
	cache   TreeCache
	metrics *metrics.Registry
}

func NewService(repo Repository, opts ...Option) Service {
	s := &service{
		repo:    repo,
		cache:   noopCache{},
		metrics: metrics.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetTree returns the display tree, from cache when possible.
func (s *service) GetTree(ctx context.Context) ([]*TreeNode, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "GetTree"),
	)

	cached, gen, ok, cacheErr := s.cache.Load(ctx)
	if cacheErr != nil {
		log.Warn("tree cache load failed", zap.Error(cacheErr))
	} else if ok {
		s.metrics.Counter(metricCacheHits).Inc()
		return cached, nil
	}
	s.metrics.Counter(metricCacheMisses).Inc()

	tree, err := s.loadTree(ctx)
	if err != nil {
		log.Error("failed to load tree", zap.Error(err))
		return nil, err
	}

	// Without a generation there is nothing safe to write back.
	if cacheErr == nil {
		if err := s.cache.Store(ctx, gen, tree); err != nil {
			log.Warn("tree cache store failed", zap.Error(err))
		}
	}

	log.Info("GetTree success", zap.Int("categories", len(tree)))
	return tree, nil
}

// loadTree always reads through to the store.
func (s *service) loadTree(ctx context.Context) ([]*TreeNode, error) {
	categories, err := s.repo.ListCategories(ctx, OrderBySortOrder)
	if err != nil {
		return nil, err
	}
	subcategories, err := s.repo.ListSubcategories(ctx, OrderBySortOrder)
	if err != nil {
		return nil, err
	}
	return BuildTree(categories, subcategories), nil
}

func (s *service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.FromCtx(ctx).Warn("tree cache invalidate failed", zap.Error(err))
	}
}

func (s *service) Create(ctx context.Context, input CreateInput) (*TreeNode, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Create"),
		zap.String("name", input.Name),
	)
	log.Info("Create started")

	input.Name = strings.TrimSpace(input.Name)
	input.Description = normalizeDescription(input.Description)

	if verr := ValidateFields(input.Name, input.Description, input.SortOrder); verr.errOrNil() != nil {
		log.Warn("create rejected", zap.Error(verr))
		return nil, verr
	}

	tree, err := s.loadTree(ctx)
	if err != nil {
		log.Error("failed to load tree", zap.Error(err))
		return nil, err
	}
	if verr := ValidateCreate(input, tree); verr.errOrNil() != nil {
		log.Warn("create rejected", zap.Error(verr))
		return nil, verr
	}

	fields := Fields{Name: input.Name, Description: input.Description}

	var node *TreeNode
	if input.ParentID == nil {
		fields.SortOrder, err = s.sortOrderOrNext(ctx, input.SortOrder, s.repo.NextCategorySortOrder)
		if err != nil {
			log.Error("failed to compute sort order", zap.Error(err))
			return nil, err
		}
		c, err := s.repo.InsertCategory(ctx, fields)
		if err != nil {
			log.Error("failed to insert category", zap.Error(err))
			return nil, err
		}
		node = categoryNode(c)
	} else {
		parentID := *input.ParentID
		fields.SortOrder, err = s.sortOrderOrNext(ctx, input.SortOrder, func(ctx context.Context) (int, error) {
			return s.repo.NextSubcategorySortOrder(ctx, parentID)
		})
		if err != nil {
			log.Error("failed to compute sort order", zap.Error(err))
			return nil, err
		}
		sc, err := s.repo.InsertSubcategory(ctx, parentID, fields)
		if err != nil {
			log.Error("failed to insert subcategory", zap.Error(err))
			return nil, err
		}
		node = subcategoryNode(sc)
	}

	s.invalidate(ctx)
	log.Info("Create success",
		zap.String("id", node.ID),
		zap.String("kind", string(node.Kind)),
		zap.Int("sort_order", node.SortOrder),
	)
	return node, nil
}

// sortOrderOrNext keeps an explicit order as-is; colliding values are left
// for repair to resolve.
func (s *service) sortOrderOrNext(
	ctx context.Context,
	explicit *int,
	next func(ctx context.Context) (int, error),
) (int, error) {
	if explicit != nil {
		return *explicit, nil
	}
	return next(ctx)
}

func (s *service) Update(ctx context.Context, id string, input UpdateInput) (*TreeNode, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Update"),
		zap.String("id", id),
	)
	log.Info("Update started")

	input.Name = strings.TrimSpace(input.Name)
	input.Description = normalizeDescription(input.Description)

	if verr := ValidateFields(input.Name, input.Description, input.SortOrder); verr.errOrNil() != nil {
		log.Warn("update rejected", zap.Error(verr))
		return nil, verr
	}

	tree, err := s.loadTree(ctx)
	if err != nil {
		log.Error("failed to load tree", zap.Error(err))
		return nil, err
	}

	current := FindNode(tree, id)
	if current == nil {
		log.Warn("update target not found")
		return nil, ErrNodeNotFound
	}
	if verr := ValidateEdit(id, input, tree); verr.errOrNil() != nil {
		log.Warn("update rejected", zap.Error(verr))
		return nil, verr
	}

	fields := Fields{Name: input.Name, Description: input.Description, SortOrder: current.SortOrder}
	if input.SortOrder != nil {
		fields.SortOrder = *input.SortOrder
	}

	var node *TreeNode
	if current.IsCategory() {
		c, err := s.repo.UpdateCategory(ctx, id, fields)
		if err != nil {
			return nil, s.mapNotFound(log, err)
		}
		node = categoryNode(c)
		node.Children = current.Children
	} else {
		sc, err := s.repo.UpdateSubcategory(ctx, id, fields)
		if err != nil {
			return nil, s.mapNotFound(log, err)
		}
		node = subcategoryNode(sc)
	}

	s.invalidate(ctx)
	log.Info("Update success", zap.String("kind", string(node.Kind)))
	return node, nil
}

func (s *service) mapNotFound(log *zap.Logger, err error) error {
	if errors.Is(err, ErrCategoryNotFound) || errors.Is(err, ErrSubcategoryNotFound) {
		log.Warn("update target vanished", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrNodeNotFound, err)
	}
	log.Error("failed to update", zap.Error(err))
	return err
}

// Delete removes a category (with its subcategories) or a subcategory.
// Remaining siblings are not renumbered.
func (s *service) Delete(ctx context.Context, id string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Delete"),
		zap.String("id", id),
	)
	log.Info("Delete started")

	deleted, err := s.repo.DeleteCategory(ctx, id)
	if err != nil {
		log.Error("failed to delete category", zap.Error(err))
		return err
	}
	if !deleted {
		deleted, err = s.repo.DeleteSubcategory(ctx, id)
		if err != nil {
			log.Error("failed to delete subcategory", zap.Error(err))
			return err
		}
	}
	if !deleted {
		log.Warn("delete target not found")
		return ErrNodeNotFound
	}

	s.invalidate(ctx)
	log.Info("Delete success")
	return nil
}

// ReorderSiblings persists orderedIDs as the new display order of one sibling
// group. orderedIDs must name every member of the group exactly once.
func (s *service) ReorderSiblings(ctx context.Context, parentID *string, orderedIDs []string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ReorderSiblings"),
		zap.Int("count", len(orderedIDs)),
	)
	if parentID != nil {
		log = log.With(zap.String("parent_id", *parentID))
	}
	log.Info("ReorderSiblings started")

	group, err := s.siblingsOf(ctx, parentID)
	if err != nil {
		log.Error("failed to load sibling group", zap.Error(err))
		return err
	}

	if !samePermutation(group, orderedIDs) {
		log.Warn("ordered ids do not match sibling group", zap.Int("group_size", len(group)))
		return ErrSiblingMismatch
	}

	return s.persistOrder(ctx, log, parentID, Changed(group, Renumber(orderedIDs)))
}

// MoveSibling moves one node to targetIndex within its own sibling group.
func (s *service) MoveSibling(ctx context.Context, id string, targetIndex int) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "MoveSibling"),
		zap.String("id", id),
		zap.Int("target_index", targetIndex),
	)
	log.Info("MoveSibling started")

	tree, err := s.loadTree(ctx)
	if err != nil {
		log.Error("failed to load tree", zap.Error(err))
		return err
	}

	node := FindNode(tree, id)
	if node == nil {
		log.Warn("move target not found")
		return ErrNodeNotFound
	}

	nodes, _ := SiblingGroup(tree, node.ParentID)
	group := toSiblings(nodes)

	updates, err := Reorder(group, id, targetIndex)
	if err != nil {
		log.Error("reorder failed", zap.Error(err))
		return err
	}

	return s.persistOrder(ctx, log, node.ParentID, Changed(group, updates))
}

func (s *service) siblingsOf(ctx context.Context, parentID *string) ([]Sibling, error) {
	if parentID == nil {
		categories, err := s.repo.ListCategories(ctx, OrderBySortOrder)
		if err != nil {
			return nil, err
		}
		group := make([]Sibling, 0, len(categories))
		for _, c := range categories {
			group = append(group, Sibling{ID: c.ID, SortOrder: c.SortOrder, CreatedAt: c.CreatedAt})
		}
		return group, nil
	}

	if _, err := s.repo.GetCategory(ctx, *parentID); err != nil {
		return nil, err
	}
	subs, err := s.repo.ListSubcategoriesByCategory(ctx, *parentID, OrderBySortOrder)
	if err != nil {
		return nil, err
	}
	group := make([]Sibling, 0, len(subs))
	for _, sc := range subs {
		group = append(group, Sibling{ID: sc.ID, SortOrder: sc.SortOrder, CreatedAt: sc.CreatedAt})
	}
	return group, nil
}

func (s *service) persistOrder(ctx context.Context, log *zap.Logger, parentID *string, updates []SortUpdate) error {
	s.metrics.Counter(metricReorders).Inc()
	if len(updates) == 0 {
		log.Info("order unchanged")
		return nil
	}

	var err error
	if parentID == nil {
		err = s.repo.ApplyCategoryOrder(ctx, updates)
	} else {
		err = s.repo.ApplySubcategoryOrder(ctx, *parentID, updates)
	}
	// The write may have partially landed either way.
	s.invalidate(ctx)
	if err != nil {
		log.Error("failed to persist order", zap.Error(err))
		return err
	}

	s.metrics.Counter(metricReorderUpdates).Add(uint64(len(updates)))
	log.Info("order persisted", zap.Int("updates", len(updates)))
	return nil
}

// Inspect reports sibling groups whose sort orders need repair.
func (s *service) Inspect(ctx context.Context) ([]GroupDefect, error) {
	tree, err := s.loadTree(ctx)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load tree", zap.Error(err))
		return nil, err
	}
	return InspectTree(tree), nil
}

func normalizeDescription(d *string) *string {
	if d == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*d)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
