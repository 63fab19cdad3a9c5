package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/shopbot/domain"
)

// ProductStore persists products inside leaf categories.
type ProductStore struct {
	db *sqlx.DB
}

// Create inserts a product.
func (s *ProductStore) Create(ctx context.Context, categoryID int64, name string, price int64) (domain.Product, error) {
	const q = `
		INSERT INTO products (category_id, name, price)
		VALUES ($1, $2, $3)
		RETURNING *`
	var p domain.Product
	if err := s.db.GetContext(ctx, &p, q, categoryID, name, price); err != nil {
		return domain.Product{}, translate("products.create", err)
	}
	return p, nil
}

// GetByID returns one product.
func (s *ProductStore) GetByID(ctx context.Context, id int64) (domain.Product, error) {
	var p domain.Product
	err := s.db.GetContext(ctx, &p, `SELECT * FROM products WHERE id = $1`, id)
	if err != nil {
		return domain.Product{}, translate("products.get", err)
	}
	return p, nil
}

// ListByCategory returns the products of a leaf category.
func (s *ProductStore) ListByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	var out []domain.Product
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM products WHERE category_id = $1 ORDER BY id`, categoryID)
	if err != nil {
		return nil, translate("products.list", err)
	}
	return out, nil
}

// CountByCategory reports how many products a category holds directly.
func (s *ProductStore) CountByCategory(ctx context.Context, categoryID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM products WHERE category_id = $1`, categoryID)
	if err != nil {
		return 0, translate("products.count", err)
	}
	return n, nil
}

// Delete removes a product; its inventory units cascade.
func (s *ProductStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return translate("products.delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ShopID resolves the owning shop of a product through its category.
func (s *ProductStore) ShopID(ctx context.Context, productID int64) (int64, error) {
	const q = `
		SELECT c.shop_id FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1`
	var shopID int64
	if err := s.db.GetContext(ctx, &shopID, q, productID); err != nil {
		return 0, translate("products.shop_id", err)
	}
	return shopID, nil
}
