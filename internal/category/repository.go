package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"promptmart-admin/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Repository is the record store for both flat collections. Cascading
// deletes of subcategories are enforced by the schema.
type Repository interface {
	ListCategories(ctx context.Context, order ListOrder) ([]*Category, error)
	ListSubcategories(ctx context.Context, order ListOrder) ([]*Subcategory, error)
	ListSubcategoriesByCategory(ctx context.Context, categoryID string, order ListOrder) ([]*Subcategory, error)
	GetCategory(ctx context.Context, id string) (*Category, error)

	NextCategorySortOrder(ctx context.Context) (int, error)
	NextSubcategorySortOrder(ctx context.Context, categoryID string) (int, error)

	InsertCategory(ctx context.Context, f Fields) (*Category, error)
	InsertSubcategory(ctx context.Context, categoryID string, f Fields) (*Subcategory, error)
	UpdateCategory(ctx context.Context, id string, f Fields) (*Category, error)
	UpdateSubcategory(ctx context.Context, id string, f Fields) (*Subcategory, error)

	SetCategorySortOrder(ctx context.Context, id string, sortOrder int) error
	SetSubcategorySortOrder(ctx context.Context, id string, sortOrder int) error
	ApplyCategoryOrder(ctx context.Context, updates []SortUpdate) error
	ApplySubcategoryOrder(ctx context.Context, categoryID string, updates []SortUpdate) error

	DeleteCategory(ctx context.Context, id string) (bool, error)
	DeleteSubcategory(ctx context.Context, id string) (bool, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const (
	categoryColumns    = `id, name, description, sort_order, created_at, updated_at`
	subcategoryColumns = `id, category_id, name, description, sort_order, created_at, updated_at`
)

func orderClause(order ListOrder) string {
	if order == OrderByCreatedAt {
		return " ORDER BY created_at ASC, id ASC"
	}
	return " ORDER BY sort_order ASC, created_at ASC, id ASC"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*Category, error) {
	var c Category
	var desc sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &desc, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Description = nullToPtr(desc)
	return &c, nil
}

func scanSubcategory(row rowScanner) (*Subcategory, error) {
	var sc Subcategory
	var desc sql.NullString
	if err := row.Scan(&sc.ID, &sc.CategoryID, &sc.Name, &desc, &sc.SortOrder, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
		return nil, err
	}
	sc.Description = nullToPtr(desc)
	return &sc, nil
}

func nullToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func (r *repository) ListCategories(ctx context.Context, order ListOrder) ([]*Category, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListCategories"),
	)

	query := `SELECT ` + categoryColumns + ` FROM categories` + orderClause(order)
	log.Debug("Executing ListCategories query", zap.String("query", query))

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("DB query failed ListCategories", zap.Error(err))
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]*Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			log.Error("Row scan failed", zap.Error(err))
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		log.Error("Rows iteration failed", zap.Error(err))
		return nil, fmt.Errorf("list categories: %w", err)
	}

	return categories, nil
}

func (r *repository) ListSubcategories(ctx context.Context, order ListOrder) ([]*Subcategory, error) {
	query := `SELECT ` + subcategoryColumns + ` FROM subcategories` + orderClause(order)
	return r.querySubcategories(ctx, "ListSubcategories", query)
}

func (r *repository) ListSubcategoriesByCategory(ctx context.Context, categoryID string, order ListOrder) ([]*Subcategory, error) {
	query := `SELECT ` + subcategoryColumns + ` FROM subcategories WHERE category_id = $1` + orderClause(order)
	return r.querySubcategories(ctx, "ListSubcategoriesByCategory", query, categoryID)
}

func (r *repository) querySubcategories(ctx context.Context, method, query string, args ...any) ([]*Subcategory, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", method),
	)
	log.Debug("Executing subcategory query", zap.String("query", query), zap.Any("args", args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("DB query failed", zap.Error(err))
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	defer rows.Close()

	subcategories := make([]*Subcategory, 0)
	for rows.Next() {
		sc, err := scanSubcategory(rows)
		if err != nil {
			log.Error("Row scan failed", zap.Error(err))
			return nil, fmt.Errorf("scan subcategory: %w", err)
		}
		subcategories = append(subcategories, sc)
	}
	if err := rows.Err(); err != nil {
		log.Error("Rows iteration failed", zap.Error(err))
		return nil, fmt.Errorf("list subcategories: %w", err)
	}

	return subcategories, nil
}

func (r *repository) GetCategory(ctx context.Context, id string) (*Category, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("GetCategory failed", zap.String("category_id", id), zap.Error(err))
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *repository) NextCategorySortOrder(ctx context.Context) (int, error) {
	var next int
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order), 0) + 1 FROM categories`).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next category sort order: %w", err)
	}
	return next, nil
}

func (r *repository) NextSubcategorySortOrder(ctx context.Context, categoryID string) (int, error) {
	var next int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order), 0) + 1 FROM subcategories WHERE category_id = $1`,
		categoryID,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next subcategory sort order: %w", err)
	}
	return next, nil
}

func (r *repository) InsertCategory(ctx context.Context, f Fields) (*Category, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "InsertCategory"),
		zap.String("category_name", f.Name),
	)

	query := `
		INSERT INTO categories (name, description, sort_order)
		VALUES ($1, $2, $3)
		RETURNING ` + categoryColumns

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, f.Name, f.Description, f.SortOrder))
	if err != nil {
		log.Error("InsertCategory DB query failed", zap.Error(err))
		return nil, fmt.Errorf("insert category: %w", err)
	}

	log.Info("InsertCategory success", zap.String("category_id", c.ID))
	return c, nil
}

func (r *repository) InsertSubcategory(ctx context.Context, categoryID string, f Fields) (*Subcategory, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "InsertSubcategory"),
		zap.String("category_id", categoryID),
		zap.String("subcategory_name", f.Name),
	)

	query := `
		INSERT INTO subcategories (category_id, name, description, sort_order)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + subcategoryColumns

	sc, err := scanSubcategory(r.db.QueryRowContext(ctx, query, categoryID, f.Name, f.Description, f.SortOrder))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == PgForeignKeyViolation {
			log.Warn("InsertSubcategory parent missing")
			return nil, ErrCategoryNotFound
		}
		log.Error("InsertSubcategory DB query failed", zap.Error(err))
		return nil, fmt.Errorf("insert subcategory: %w", err)
	}

	log.Info("InsertSubcategory success", zap.String("subcategory_id", sc.ID))
	return sc, nil
}

func (r *repository) UpdateCategory(ctx context.Context, id string, f Fields) (*Category, error) {
	query := `
		UPDATE categories
		SET name = $1, description = $2, sort_order = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING ` + categoryColumns

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, f.Name, f.Description, f.SortOrder, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("UpdateCategory failed", zap.String("category_id", id), zap.Error(err))
		return nil, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

func (r *repository) UpdateSubcategory(ctx context.Context, id string, f Fields) (*Subcategory, error) {
	query := `
		UPDATE subcategories
		SET name = $1, description = $2, sort_order = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING ` + subcategoryColumns

	sc, err := scanSubcategory(r.db.QueryRowContext(ctx, query, f.Name, f.Description, f.SortOrder, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubcategoryNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("UpdateSubcategory failed", zap.String("subcategory_id", id), zap.Error(err))
		return nil, fmt.Errorf("update subcategory: %w", err)
	}
	return sc, nil
}

func (r *repository) SetCategorySortOrder(ctx context.Context, id string, sortOrder int) error {
	return r.setSortOrder(ctx, "categories", id, sortOrder, ErrCategoryNotFound)
}

func (r *repository) SetSubcategorySortOrder(ctx context.Context, id string, sortOrder int) error {
	return r.setSortOrder(ctx, "subcategories", id, sortOrder, ErrSubcategoryNotFound)
}

func (r *repository) setSortOrder(ctx context.Context, table, id string, sortOrder int, notFound error) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE `+table+` SET sort_order = $1, updated_at = NOW() WHERE id = $2`,
		sortOrder, id,
	)
	if err != nil {
		return fmt.Errorf("set sort order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set sort order: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (r *repository) ApplyCategoryOrder(ctx context.Context, updates []SortUpdate) error {
	query := `
		UPDATE categories AS c
		SET sort_order = u.sort_order, updated_at = NOW()
		FROM unnest($1::uuid[], $2::int[]) AS u(id, sort_order)
		WHERE c.id = u.id`
	return r.applyOrder(ctx, "ApplyCategoryOrder", query, updates, ErrCategoryNotFound)
}

func (r *repository) ApplySubcategoryOrder(ctx context.Context, categoryID string, updates []SortUpdate) error {
	query := `
		UPDATE subcategories AS s
		SET sort_order = u.sort_order, updated_at = NOW()
		FROM unnest($1::uuid[], $2::int[]) AS u(id, sort_order)
		WHERE s.id = u.id AND s.category_id = $3`
	return r.applyOrder(ctx, "ApplySubcategoryOrder", query, updates, ErrSubcategoryNotFound, categoryID)
}

// applyOrder writes a whole sibling group in one statement. Rows that vanished
// concurrently are reported as notFound; the rest stay written.
func (r *repository) applyOrder(
	ctx context.Context,
	method, query string,
	updates []SortUpdate,
	notFound error,
	extra ...any,
) error {
	if len(updates) == 0 {
		return nil
	}

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", method),
		zap.Int("updates", len(updates)),
	)

	ids := make([]string, 0, len(updates))
	orders := make([]int64, 0, len(updates))
	for _, u := range updates {
		ids = append(ids, u.ID)
		orders = append(orders, int64(u.SortOrder))
	}

	args := append([]any{pq.Array(ids), pq.Array(orders)}, extra...)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("batch sort order update failed", zap.Error(err))
		return fmt.Errorf("apply sort order: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply sort order: %w", err)
	}
	if int(n) != len(updates) {
		log.Warn("batch sort order update touched fewer rows", zap.Int64("affected", n))
		return fmt.Errorf("applied %d of %d sort orders: %w", n, len(updates), notFound)
	}
	return nil
}

func (r *repository) DeleteCategory(ctx context.Context, id string) (bool, error) {
	return r.deleteByID(ctx, "categories", id)
}

func (r *repository) DeleteSubcategory(ctx context.Context, id string) (bool, error) {
	return r.deleteByID(ctx, "subcategories", id)
}

func (r *repository) deleteByID(ctx context.Context, table, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		logger.FromCtx(ctx).Error("delete failed", zap.String("table", table), zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	return n > 0, nil
}
