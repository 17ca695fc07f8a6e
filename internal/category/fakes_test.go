package category

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/stretchr/testify/mock"
)

// --- In-memory record store ---

// memRepository mimics the SQL store: ids and creation times are assigned on
// insert, deleting a category cascades to its subcategories.
type memRepository struct {
	seq           int
	clock         time.Time
	categories    map[string]*Category
	subcategories map[string]*Subcategory

	// failSet makes Set*SortOrder fail for the given ids.
	failSet map[string]error
	// failListSubs makes ListSubcategoriesByCategory fail for the given parent.
	failListSubs map[string]error

	setCalls   int
	applyCalls int
}

func newMemRepository() *memRepository {
	return &memRepository{
		clock:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		categories:    map[string]*Category{},
		subcategories: map[string]*Subcategory{},
		failSet:       map[string]error{},
		failListSubs:  map[string]error{},
	}
}

func (m *memRepository) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// seedCategory inserts a category with an explicit sort order.
func (m *memRepository) seedCategory(name string, sortOrder int) *Category {
	m.seq++
	c := &Category{ID: fmt.Sprintf("cat-%d", m.seq), Name: name, SortOrder: sortOrder, CreatedAt: m.tick()}
	m.categories[c.ID] = c
	return c
}

func (m *memRepository) seedSubcategory(parentID, name string, sortOrder int) *Subcategory {
	m.seq++
	sc := &Subcategory{ID: fmt.Sprintf("sub-%d", m.seq), CategoryID: parentID, Name: name, SortOrder: sortOrder, CreatedAt: m.tick()}
	m.subcategories[sc.ID] = sc
	return sc
}

func sortByOrder[T any](items []T, sortOrder func(T) int, created func(T) time.Time, id func(T) string, order ListOrder) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if order == OrderBySortOrder && sortOrder(a) != sortOrder(b) {
			return sortOrder(a) < sortOrder(b)
		}
		if !created(a).Equal(created(b)) {
			return created(a).Before(created(b))
		}
		return id(a) < id(b)
	})
}

func (m *memRepository) ListCategories(_ context.Context, order ListOrder) ([]*Category, error) {
	out := make([]*Category, 0, len(m.categories))
	for _, c := range m.categories {
		cp := *c
		out = append(out, &cp)
	}
	sortByOrder(out,
		func(c *Category) int { return c.SortOrder },
		func(c *Category) time.Time { return c.CreatedAt },
		func(c *Category) string { return c.ID },
		order)
	return out, nil
}

func (m *memRepository) ListSubcategories(_ context.Context, order ListOrder) ([]*Subcategory, error) {
	out := make([]*Subcategory, 0, len(m.subcategories))
	for _, sc := range m.subcategories {
		cp := *sc
		out = append(out, &cp)
	}
	sortSubs(out, order)
	return out, nil
}

func sortSubs(out []*Subcategory, order ListOrder) {
	sortByOrder(out,
		func(s *Subcategory) int { return s.SortOrder },
		func(s *Subcategory) time.Time { return s.CreatedAt },
		func(s *Subcategory) string { return s.ID },
		order)
}

func (m *memRepository) ListSubcategoriesByCategory(_ context.Context, categoryID string, order ListOrder) ([]*Subcategory, error) {
	if err := m.failListSubs[categoryID]; err != nil {
		return nil, err
	}
	out := make([]*Subcategory, 0)
	for _, sc := range m.subcategories {
		if sc.CategoryID == categoryID {
			cp := *sc
			out = append(out, &cp)
		}
	}
	sortSubs(out, order)
	return out, nil
}

func (m *memRepository) GetCategory(_ context.Context, id string) (*Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepository) NextCategorySortOrder(context.Context) (int, error) {
	maxOrder := 0
	for _, c := range m.categories {
		maxOrder = max(maxOrder, c.SortOrder)
	}
	return maxOrder + 1, nil
}

func (m *memRepository) NextSubcategorySortOrder(_ context.Context, categoryID string) (int, error) {
	maxOrder := 0
	for _, sc := range m.subcategories {
		if sc.CategoryID == categoryID {
			maxOrder = max(maxOrder, sc.SortOrder)
		}
	}
	return maxOrder + 1, nil
}

func (m *memRepository) InsertCategory(_ context.Context, f Fields) (*Category, error) {
	c := m.seedCategory(f.Name, f.SortOrder)
	c.Description = f.Description
	cp := *c
	return &cp, nil
}

func (m *memRepository) InsertSubcategory(_ context.Context, categoryID string, f Fields) (*Subcategory, error) {
	if _, ok := m.categories[categoryID]; !ok {
		return nil, ErrCategoryNotFound
	}
	sc := m.seedSubcategory(categoryID, f.Name, f.SortOrder)
	sc.Description = f.Description
	cp := *sc
	return &cp, nil
}

func (m *memRepository) UpdateCategory(_ context.Context, id string, f Fields) (*Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	c.Name, c.Description, c.SortOrder = f.Name, f.Description, f.SortOrder
	cp := *c
	return &cp, nil
}

func (m *memRepository) UpdateSubcategory(_ context.Context, id string, f Fields) (*Subcategory, error) {
	sc, ok := m.subcategories[id]
	if !ok {
		return nil, ErrSubcategoryNotFound
	}
	sc.Name, sc.Description, sc.SortOrder = f.Name, f.Description, f.SortOrder
	cp := *sc
	return &cp, nil
}

func (m *memRepository) SetCategorySortOrder(_ context.Context, id string, sortOrder int) error {
	m.setCalls++
	if err := m.failSet[id]; err != nil {
		return err
	}
	c, ok := m.categories[id]
	if !ok {
		return ErrCategoryNotFound
	}
	c.SortOrder = sortOrder
	return nil
}

func (m *memRepository) SetSubcategorySortOrder(_ context.Context, id string, sortOrder int) error {
	m.setCalls++
	if err := m.failSet[id]; err != nil {
		return err
	}
	sc, ok := m.subcategories[id]
	if !ok {
		return ErrSubcategoryNotFound
	}
	sc.SortOrder = sortOrder
	return nil
}

func (m *memRepository) ApplyCategoryOrder(ctx context.Context, updates []SortUpdate) error {
	m.applyCalls++
	for _, u := range updates {
		if c, ok := m.categories[u.ID]; ok {
			c.SortOrder = u.SortOrder
		}
	}
	return nil
}

func (m *memRepository) ApplySubcategoryOrder(_ context.Context, categoryID string, updates []SortUpdate) error {
	m.applyCalls++
	for _, u := range updates {
		if sc, ok := m.subcategories[u.ID]; ok && sc.CategoryID == categoryID {
			sc.SortOrder = u.SortOrder
		}
	}
	return nil
}

func (m *memRepository) DeleteCategory(_ context.Context, id string) (bool, error) {
	if _, ok := m.categories[id]; !ok {
		return false, nil
	}
	delete(m.categories, id)
	for subID, sc := range m.subcategories {
		if sc.CategoryID == id {
			delete(m.subcategories, subID)
		}
	}
	return true, nil
}

func (m *memRepository) DeleteSubcategory(_ context.Context, id string) (bool, error) {
	if _, ok := m.subcategories[id]; !ok {
		return false, nil
	}
	delete(m.subcategories, id)
	return true, nil
}

// categoryOrders returns main-category sort orders keyed by id.
func (m *memRepository) categoryOrders() map[string]int {
	out := make(map[string]int, len(m.categories))
	for id, c := range m.categories {
		out[id] = c.SortOrder
	}
	return out
}

func (m *memRepository) subcategoryOrders() map[string]int {
	out := make(map[string]int, len(m.subcategories))
	for id, sc := range m.subcategories {
		out[id] = sc.SortOrder
	}
	return out
}

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListCategories(ctx context.Context, order ListOrder) ([]*Category, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Category), args.Error(1)
}

func (m *MockRepository) ListSubcategories(ctx context.Context, order ListOrder) ([]*Subcategory, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Subcategory), args.Error(1)
}

func (m *MockRepository) ListSubcategoriesByCategory(ctx context.Context, categoryID string, order ListOrder) ([]*Subcategory, error) {
	args := m.Called(ctx, categoryID, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Subcategory), args.Error(1)
}

func (m *MockRepository) GetCategory(ctx context.Context, id string) (*Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Category), args.Error(1)
}

func (m *MockRepository) NextCategorySortOrder(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) NextSubcategorySortOrder(ctx context.Context, categoryID string) (int, error) {
	args := m.Called(ctx, categoryID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) InsertCategory(ctx context.Context, f Fields) (*Category, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Category), args.Error(1)
}

func (m *MockRepository) InsertSubcategory(ctx context.Context, categoryID string, f Fields) (*Subcategory, error) {
	args := m.Called(ctx, categoryID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Subcategory), args.Error(1)
}

func (m *MockRepository) UpdateCategory(ctx context.Context, id string, f Fields) (*Category, error) {
	args := m.Called(ctx, id, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Category), args.Error(1)
}

func (m *MockRepository) UpdateSubcategory(ctx context.Context, id string, f Fields) (*Subcategory, error) {
	args := m.Called(ctx, id, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Subcategory), args.Error(1)
}

func (m *MockRepository) SetCategorySortOrder(ctx context.Context, id string, sortOrder int) error {
	return m.Called(ctx, id, sortOrder).Error(0)
}

func (m *MockRepository) SetSubcategorySortOrder(ctx context.Context, id string, sortOrder int) error {
	return m.Called(ctx, id, sortOrder).Error(0)
}

func (m *MockRepository) ApplyCategoryOrder(ctx context.Context, updates []SortUpdate) error {
	return m.Called(ctx, updates).Error(0)
}

func (m *MockRepository) ApplySubcategoryOrder(ctx context.Context, categoryID string, updates []SortUpdate) error {
	return m.Called(ctx, categoryID, updates).Error(0)
}

func (m *MockRepository) DeleteCategory(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) DeleteSubcategory(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockTreeCache struct {
	mock.Mock
}

func (m *MockTreeCache) Load(ctx context.Context) ([]*TreeNode, int64, bool, error) {
	args := m.Called(ctx)
	gen, _ := args.Get(1).(int64)
	if args.Get(0) == nil {
		return nil, gen, args.Bool(2), args.Error(3)
	}
	return args.Get(0).([]*TreeNode), gen, args.Bool(2), args.Error(3)
}

func (m *MockTreeCache) Store(ctx context.Context, gen int64, tree []*TreeNode) error {
	return m.Called(ctx, gen, tree).Error(0)
}

func (m *MockTreeCache) Invalidate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// memTreeCache follows the generation contract of the Redis cache.
type memTreeCache struct {
	gen  int64
	tree []*TreeNode
	hit  bool
}

func (c *memTreeCache) Load(context.Context) ([]*TreeNode, int64, bool, error) {
	if c.hit {
		return c.tree, c.gen, true, nil
	}
	return nil, c.gen, false, nil
}

func (c *memTreeCache) Store(_ context.Context, gen int64, tree []*TreeNode) error {
	if gen != c.gen {
		return nil
	}
	c.tree, c.hit = tree, true
	return nil
}

func (c *memTreeCache) Invalidate(context.Context) error {
	c.gen++
	c.tree, c.hit = nil, false
	return nil
}

// hookedRepository runs onListSubcategories once, after the store has been
// read but before the caller sees the rows.
type hookedRepository struct {
	*memRepository
	onListSubcategories func()
}

func (h *hookedRepository) ListSubcategories(ctx context.Context, order ListOrder) ([]*Subcategory, error) {
	subs, err := h.memRepository.ListSubcategories(ctx, order)
	if hook := h.onListSubcategories; hook != nil {
		h.onListSubcategories = nil
		hook()
	}
	return subs, err
}
