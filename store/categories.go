package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/shopbot/domain"
)

// CategoryStore persists the per-shop category tree.
type CategoryStore struct {
	db *sqlx.DB
}

// Create inserts a category. parentID nil means a top-level node.
func (s *CategoryStore) Create(ctx context.Context, shopID int64, parentID *int64, name string) (domain.Category, error) {
	const q = `
		INSERT INTO categories (shop_id, parent_id, name)
		VALUES ($1, $2, $3)
		RETURNING *`
	var cat domain.Category
	if err := s.db.GetContext(ctx, &cat, q, shopID, parentID, name); err != nil {
		return domain.Category{}, translate("categories.create", err)
	}
	return cat, nil
}

// GetByID returns one category.
func (s *CategoryStore) GetByID(ctx context.Context, id int64) (domain.Category, error) {
	var cat domain.Category
	err := s.db.GetContext(ctx, &cat, `SELECT * FROM categories WHERE id = $1`, id)
	if err != nil {
		return domain.Category{}, translate("categories.get", err)
	}
	return cat, nil
}

// ListTopLevel returns the shop's root categories.
func (s *CategoryStore) ListTopLevel(ctx context.Context, shopID int64) ([]domain.Category, error) {
	var cats []domain.Category
	err := s.db.SelectContext(ctx, &cats,
		`SELECT * FROM categories WHERE shop_id = $1 AND parent_id IS NULL ORDER BY id`, shopID)
	if err != nil {
		return nil, translate("categories.list_top", err)
	}
	return cats, nil
}

// ListChildren returns the direct subcategories of a node.
func (s *CategoryStore) ListChildren(ctx context.Context, parentID int64) ([]domain.Category, error) {
	var cats []domain.Category
	err := s.db.SelectContext(ctx, &cats,
		`SELECT * FROM categories WHERE parent_id = $1 ORDER BY id`, parentID)
	if err != nil {
		return nil, translate("categories.list_children", err)
	}
	return cats, nil
}

// HasChildren reports whether a node has subcategories.
func (s *CategoryStore) HasChildren(ctx context.Context, id int64) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM categories WHERE parent_id = $1`, id)
	if err != nil {
		return false, translate("categories.has_children", err)
	}
	return n > 0, nil
}

// Rename updates a category's name.
func (s *CategoryStore) Rename(ctx context.Context, id int64, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = $2 WHERE id = $1`, id, name)
	if err != nil {
		return translate("categories.rename", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a category; descendants and their products cascade.
func (s *CategoryStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return translate("categories.delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
