package category

import (
	"context"
	"errors"
	"testing"

	"promptmart-admin/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_GetTree(t *testing.T) {
	ctx := context.Background()

	t.Run("Cache miss loads and stores", func(t *testing.T) {
		repo := newMemRepository()
		c := repo.seedCategory("Marketing", 1)
		repo.seedSubcategory(c.ID, "Email", 1)

		cache := new(MockTreeCache)
		cache.On("Load", ctx).Return(nil, int64(7), false, nil).Once()
		cache.On("Store", ctx, int64(7), mock.AnythingOfType("[]*category.TreeNode")).Return(nil).Once()

		reg := metrics.NewRegistry()
		tree, err := NewService(repo, WithCache(cache), WithMetrics(reg)).GetTree(ctx)
		require.NoError(t, err)
		require.Len(t, tree, 1)
		require.Len(t, tree[0].Children, 1)
		assert.Equal(t, "Email", tree[0].Children[0].Name)

		assert.Equal(t, uint64(1), reg.Counter(metricCacheMisses).Load())
		cache.AssertExpectations(t)
	})

	t.Run("Cache hit skips the store", func(t *testing.T) {
		cached := []*TreeNode{{ID: "c1", Kind: KindCategory, Name: "Cached", SortOrder: 1}}
		cache := new(MockTreeCache)
		cache.On("Load", ctx).Return(cached, int64(1), true, nil).Once()

		repo := new(MockRepository)
		reg := metrics.NewRegistry()

		tree, err := NewService(repo, WithCache(cache), WithMetrics(reg)).GetTree(ctx)
		require.NoError(t, err)
		assert.Equal(t, cached, tree)
		assert.Equal(t, uint64(1), reg.Counter(metricCacheHits).Load())
		repo.AssertNotCalled(t, "ListCategories", mock.Anything, mock.Anything)
	})

	t.Run("Cache errors fall through", func(t *testing.T) {
		cache := new(MockTreeCache)
		cache.On("Load", ctx).Return(nil, int64(0), false, errors.New("redis down"))

		tree, err := NewService(newMemRepository(), WithCache(cache)).GetTree(ctx)
		require.NoError(t, err)
		assert.Empty(t, tree)
		cache.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Cache write-back error is not fatal", func(t *testing.T) {
		cache := new(MockTreeCache)
		cache.On("Load", ctx).Return(nil, int64(2), false, nil).Once()
		cache.On("Store", ctx, int64(2), mock.Anything).Return(errors.New("redis down")).Once()

		_, err := NewService(newMemRepository(), WithCache(cache)).GetTree(ctx)
		require.NoError(t, err)
		cache.AssertExpectations(t)
	})

	t.Run("Mutation during read-through is not overwritten", func(t *testing.T) {
		mem := newMemRepository()
		a := mem.seedCategory("A", 1)
		mem.seedCategory("B", 2)
		c := mem.seedCategory("C", 3)

		repo := &hookedRepository{memRepository: mem}
		cache := &memTreeCache{}
		svc := NewService(repo, WithCache(cache))

		repo.onListSubcategories = func() {
			require.NoError(t, svc.MoveSibling(ctx, c.ID, 0))
		}

		first, err := svc.GetTree(ctx)
		require.NoError(t, err)
		require.Len(t, first, 3)
		assert.Equal(t, a.ID, first[0].ID, "the in-flight read still sees the old order")
		assert.False(t, cache.hit, "an older read must not repopulate the cache")

		second, err := svc.GetTree(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{c.ID, a.ID}, []string{second[0].ID, second[1].ID})
		assert.Equal(t, 1, mem.categoryOrders()[c.ID])
	})

	t.Run("Store error", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListCategories", ctx, OrderBySortOrder).Return(nil, errors.New("db down"))

		_, err := NewService(repo).GetTree(ctx)
		assert.EqualError(t, err, "db down")
	})
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Appends after the highest sibling", func(t *testing.T) {
		repo := newMemRepository()
		parent := repo.seedCategory("Parent", 1)
		repo.seedSubcategory(parent.ID, "A", 1)
		repo.seedSubcategory(parent.ID, "B", 3)

		node, err := NewService(repo).Create(ctx, CreateInput{Name: "C", ParentID: &parent.ID})
		require.NoError(t, err)
		assert.Equal(t, KindSubcategory, node.Kind)
		assert.Equal(t, 4, node.SortOrder)
		require.NotNil(t, node.ParentID)
		assert.Equal(t, parent.ID, *node.ParentID)
	})

	t.Run("First main category gets 1", func(t *testing.T) {
		node, err := NewService(newMemRepository()).Create(ctx, CreateInput{Name: "Marketing"})
		require.NoError(t, err)
		assert.Equal(t, KindCategory, node.Kind)
		assert.Equal(t, 1, node.SortOrder)
		assert.Nil(t, node.ParentID)
	})

	t.Run("Explicit sort order kept", func(t *testing.T) {
		repo := newMemRepository()
		repo.seedCategory("Existing", 1)

		node, err := NewService(repo).Create(ctx, CreateInput{Name: "New", SortOrder: ptr(1)})
		require.NoError(t, err)
		assert.Equal(t, 1, node.SortOrder)
	})

	t.Run("Trims input", func(t *testing.T) {
		node, err := NewService(newMemRepository()).Create(ctx, CreateInput{Name: "  Sales  ", Description: ptr("   ")})
		require.NoError(t, err)
		assert.Equal(t, "Sales", node.Name)
		assert.Nil(t, node.Description)
	})

	t.Run("Invalid fields never reach the store", func(t *testing.T) {
		repo := new(MockRepository)

		_, err := NewService(repo).Create(ctx, CreateInput{Name: "x", SortOrder: ptr(1000)})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.Has("name", CodeTooShort))
		assert.True(t, verr.Has("sort_order", CodeOutOfRange))
		repo.AssertExpectations(t)
	})

	t.Run("Duplicate name rejected", func(t *testing.T) {
		repo := newMemRepository()
		repo.seedCategory("Marketing", 1)

		_, err := NewService(repo).Create(ctx, CreateInput{Name: "marketing"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.Has("name", CodeDuplicateName))
		assert.Len(t, repo.categories, 1)
	})

	t.Run("Subcategory parent rejected", func(t *testing.T) {
		repo := newMemRepository()
		c := repo.seedCategory("Parent", 1)
		sc := repo.seedSubcategory(c.ID, "Child", 1)

		_, err := NewService(repo).Create(ctx, CreateInput{Name: "Grandchild", ParentID: &sc.ID})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.Has("parent_id", CodeInvalidParent))
	})

	t.Run("Invalidates cache", func(t *testing.T) {
		cache := new(MockTreeCache)
		cache.On("Invalidate", ctx).Return(nil).Once()

		_, err := NewService(newMemRepository(), WithCache(cache)).Create(ctx, CreateInput{Name: "Marketing"})
		require.NoError(t, err)
		cache.AssertExpectations(t)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("Renames and keeps sort order", func(t *testing.T) {
		repo := newMemRepository()
		c := repo.seedCategory("Old", 3)
		repo.seedSubcategory(c.ID, "Child", 1)

		node, err := NewService(repo).Update(ctx, c.ID, UpdateInput{Name: "New", Description: ptr("desc")})
		require.NoError(t, err)
		assert.Equal(t, "New", node.Name)
		assert.Equal(t, 3, node.SortOrder)
		require.NotNil(t, node.Description)
		assert.Equal(t, "desc", *node.Description)
		assert.Len(t, node.Children, 1)
	})

	t.Run("Explicit sort order on subcategory", func(t *testing.T) {
		repo := newMemRepository()
		c := repo.seedCategory("Parent", 1)
		sc := repo.seedSubcategory(c.ID, "Child", 1)

		node, err := NewService(repo).Update(ctx, sc.ID, UpdateInput{Name: "Child", SortOrder: ptr(7)})
		require.NoError(t, err)
		assert.Equal(t, 7, node.SortOrder)
		assert.Equal(t, 7, repo.subcategoryOrders()[sc.ID])
	})

	t.Run("Not found", func(t *testing.T) {
		_, err := NewService(newMemRepository()).Update(ctx, "missing", UpdateInput{Name: "Valid"})
		assert.ErrorIs(t, err, ErrNodeNotFound)
	})

	t.Run("Vanished between read and write", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListCategories", ctx, OrderBySortOrder).Return([]*Category{{ID: "c1", Name: "One", SortOrder: 1}}, nil)
		repo.On("ListSubcategories", ctx, OrderBySortOrder).Return([]*Subcategory{}, nil)
		repo.On("UpdateCategory", ctx, "c1", Fields{Name: "Two", SortOrder: 1}).Return(nil, ErrCategoryNotFound)

		_, err := NewService(repo).Update(ctx, "c1", UpdateInput{Name: "Two"})
		assert.ErrorIs(t, err, ErrNodeNotFound)
		assert.ErrorIs(t, err, ErrCategoryNotFound)
		repo.AssertExpectations(t)
	})

	t.Run("Parent change rejected", func(t *testing.T) {
		repo := newMemRepository()
		c1 := repo.seedCategory("One", 1)
		c2 := repo.seedCategory("Two", 2)
		sc := repo.seedSubcategory(c1.ID, "Child", 1)

		_, err := NewService(repo).Update(ctx, sc.ID, UpdateInput{Name: "Child", ParentID: &c2.ID})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.Has("parent_id", CodeParentImmutable))

		_, err = NewService(repo).Update(ctx, c1.ID, UpdateInput{Name: "One", ParentID: &sc.ID})
		require.ErrorAs(t, err, &verr)
		assert.True(t, verr.Has("parent_id", CodeCircularParent))
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("Remaining sibling keeps its order", func(t *testing.T) {
		repo := newMemRepository()
		c := repo.seedCategory("Parent", 1)
		first := repo.seedSubcategory(c.ID, "A", 1)
		second := repo.seedSubcategory(c.ID, "B", 2)

		require.NoError(t, NewService(repo).Delete(ctx, first.ID))
		assert.Equal(t, map[string]int{second.ID: 2}, repo.subcategoryOrders())
	})

	t.Run("Category delete cascades", func(t *testing.T) {
		repo := newMemRepository()
		c := repo.seedCategory("Parent", 1)
		repo.seedSubcategory(c.ID, "A", 1)

		require.NoError(t, NewService(repo).Delete(ctx, c.ID))
		assert.Empty(t, repo.categories)
		assert.Empty(t, repo.subcategories)
	})

	t.Run("Not found", func(t *testing.T) {
		assert.ErrorIs(t, NewService(newMemRepository()).Delete(ctx, "missing"), ErrNodeNotFound)
	})

	t.Run("Store error", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("DeleteCategory", ctx, "c1").Return(false, nil)
		repo.On("DeleteSubcategory", ctx, "c1").Return(false, errors.New("db down"))

		assert.EqualError(t, NewService(repo).Delete(ctx, "c1"), "db down")
	})
}

func TestService_ReorderSiblings(t *testing.T) {
	ctx := context.Background()

	t.Run("Main categories", func(t *testing.T) {
		repo := newMemRepository()
		a := repo.seedCategory("A", 1)
		b := repo.seedCategory("B", 2)
		c := repo.seedCategory("C", 3)
		reg := metrics.NewRegistry()

		err := NewService(repo, WithMetrics(reg)).ReorderSiblings(ctx, nil, []string{c.ID, a.ID, b.ID})
		require.NoError(t, err)
		assert.Equal(t, map[string]int{c.ID: 1, a.ID: 2, b.ID: 3}, repo.categoryOrders())
		assert.Equal(t, uint64(1), reg.Counter(metricReorders).Load())
		assert.Equal(t, uint64(3), reg.Counter(metricReorderUpdates).Load())
	})

	t.Run("Only changed rows written", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetCategory", ctx, "p").Return(&Category{ID: "p"}, nil)
		repo.On("ListSubcategoriesByCategory", ctx, "p", OrderBySortOrder).Return([]*Subcategory{
			{ID: "a", CategoryID: "p", SortOrder: 1},
			{ID: "b", CategoryID: "p", SortOrder: 2},
			{ID: "c", CategoryID: "p", SortOrder: 3},
		}, nil)
		repo.On("ApplySubcategoryOrder", ctx, "p", []SortUpdate{{ID: "c", SortOrder: 2}, {ID: "b", SortOrder: 3}}).Return(nil).Once()

		parent := "p"
		require.NoError(t, NewService(repo).ReorderSiblings(ctx, &parent, []string{"a", "c", "b"}))
		repo.AssertExpectations(t)
	})

	t.Run("Unchanged order writes nothing", func(t *testing.T) {
		repo := newMemRepository()
		a := repo.seedCategory("A", 1)
		b := repo.seedCategory("B", 2)

		require.NoError(t, NewService(repo).ReorderSiblings(ctx, nil, []string{a.ID, b.ID}))
		assert.Equal(t, 0, repo.applyCalls)
	})

	t.Run("Mismatched ids", func(t *testing.T) {
		repo := newMemRepository()
		a := repo.seedCategory("A", 1)
		repo.seedCategory("B", 2)

		err := NewService(repo).ReorderSiblings(ctx, nil, []string{a.ID, "stranger"})
		assert.ErrorIs(t, err, ErrSiblingMismatch)
		assert.Equal(t, 0, repo.applyCalls)
	})

	t.Run("Unknown parent", func(t *testing.T) {
		parent := "missing"
		err := NewService(newMemRepository()).ReorderSiblings(ctx, &parent, nil)
		assert.ErrorIs(t, err, ErrCategoryNotFound)
	})

	t.Run("Apply error still invalidates", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListCategories", ctx, OrderBySortOrder).Return([]*Category{
			{ID: "a", SortOrder: 1}, {ID: "b", SortOrder: 2},
		}, nil)
		repo.On("ApplyCategoryOrder", ctx, mock.Anything).Return(errors.New("db down"))
		cache := new(MockTreeCache)
		cache.On("Invalidate", ctx).Return(nil).Once()

		err := NewService(repo, WithCache(cache)).ReorderSiblings(ctx, nil, []string{"b", "a"})
		assert.EqualError(t, err, "db down")
		cache.AssertExpectations(t)
	})
}

func TestService_MoveSibling(t *testing.T) {
	ctx := context.Background()

	t.Run("Move to front", func(t *testing.T) {
		repo := newMemRepository()
		a := repo.seedCategory("A", 1)
		b := repo.seedCategory("B", 2)
		c := repo.seedCategory("C", 3)

		require.NoError(t, NewService(repo).MoveSibling(ctx, c.ID, 0))
		assert.Equal(t, map[string]int{c.ID: 1, a.ID: 2, b.ID: 3}, repo.categoryOrders())
	})

	t.Run("Subcategory index clamped", func(t *testing.T) {
		repo := newMemRepository()
		p := repo.seedCategory("P", 1)
		a := repo.seedSubcategory(p.ID, "A", 1)
		b := repo.seedSubcategory(p.ID, "B", 2)

		require.NoError(t, NewService(repo).MoveSibling(ctx, a.ID, 99))
		assert.Equal(t, map[string]int{b.ID: 1, a.ID: 2}, repo.subcategoryOrders())
	})

	t.Run("Heals duplicates while moving", func(t *testing.T) {
		repo := newMemRepository()
		a := repo.seedCategory("A", 1)
		b := repo.seedCategory("B", 1)
		c := repo.seedCategory("C", 1)

		require.NoError(t, NewService(repo).MoveSibling(ctx, c.ID, 1))
		assert.Equal(t, map[string]int{a.ID: 1, c.ID: 2, b.ID: 3}, repo.categoryOrders())
	})

	t.Run("Not found", func(t *testing.T) {
		assert.ErrorIs(t, NewService(newMemRepository()).MoveSibling(ctx, "missing", 0), ErrNodeNotFound)
	})
}

func TestService_Inspect(t *testing.T) {
	repo := newMemRepository()
	repo.seedCategory("A", 2)
	repo.seedCategory("B", 2)

	svc := NewService(repo)
	defects, err := svc.Inspect(context.Background())
	require.NoError(t, err)
	require.Len(t, defects, 1)
	assert.Equal(t, []int{2}, defects[0].Duplicates)

	_, err = svc.Repair(context.Background())
	require.NoError(t, err)

	defects, err = svc.Inspect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, defects)
}
