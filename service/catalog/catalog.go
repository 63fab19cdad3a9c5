// Package catalog maintains each shop's category tree and products. A
// category is either a grouping node with subcategories or a leaf with
// products, never both; the rule is enforced here at write time.
package catalog

import (
	"context"
	"strings"

	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/domain"
)

const maxNameLen = 64

// CategoryStore is the slice of category storage this service needs.
type CategoryStore interface {
	Create(ctx context.Context, shopID int64, parentID *int64, name string) (domain.Category, error)
	GetByID(ctx context.Context, id int64) (domain.Category, error)
	ListTopLevel(ctx context.Context, shopID int64) ([]domain.Category, error)
	ListChildren(ctx context.Context, parentID int64) ([]domain.Category, error)
	HasChildren(ctx context.Context, id int64) (bool, error)
	Rename(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error
}

// ProductStore is the slice of product storage this service needs.
type ProductStore interface {
	Create(ctx context.Context, categoryID int64, name string, price int64) (domain.Product, error)
	GetByID(ctx context.Context, id int64) (domain.Product, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error)
	CountByCategory(ctx context.Context, categoryID int64) (int, error)
	Delete(ctx context.Context, id int64) error
	ShopID(ctx context.Context, productID int64) (int64, error)
}

// UnitStore is the slice of inventory storage this service needs.
type UnitStore interface {
	Add(ctx context.Context, productID int64, payload string) (domain.InventoryUnit, error)
	CountFree(ctx context.Context, productID int64) (int, error)
}

// Service owns catalog writes and reads.
type Service struct {
	categories CategoryStore
	products   ProductStore
	units      UnitStore
}

// New builds the catalog service.
func New(categories CategoryStore, products ProductStore, units UnitStore) *Service {
	return &Service{categories: categories, products: products, units: units}
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.Invalid("name", "empty")
	}
	if len(name) > maxNameLen {
		return "", domain.Invalid("name", "too long")
	}
	return name, nil
}

// AddCategory creates a top-level category in a shop.
func (s *Service) AddCategory(ctx context.Context, shopID int64, name string) (domain.Category, error) {
	name, err := cleanName(name)
	if err != nil {
		return domain.Category{}, err
	}
	cat, err := s.categories.Create(ctx, shopID, nil, name)
	if err != nil {
		return domain.Category{}, err
	}
	logger.Info(ctx, "catalog", "category.add",
		slog.Int64("shop_id", shopID),
		slog.Int64("category_id", cat.ID),
	)
	return cat, nil
}

// AddSubcategory creates a child under a parent category. A parent that
// already holds products is a leaf and cannot become a grouping node.
func (s *Service) AddSubcategory(ctx context.Context, shopID, parentID int64, name string) (domain.Category, error) {
	name, err := cleanName(name)
	if err != nil {
		return domain.Category{}, err
	}
	if _, err := s.requireCategoryInShop(ctx, shopID, parentID); err != nil {
		return domain.Category{}, err
	}
	n, err := s.products.CountByCategory(ctx, parentID)
	if err != nil {
		return domain.Category{}, err
	}
	if n > 0 {
		return domain.Category{}, domain.Invalid("parent", "category already holds products")
	}
	cat, err := s.categories.Create(ctx, shopID, &parentID, name)
	if err != nil {
		return domain.Category{}, err
	}
	logger.Info(ctx, "catalog", "subcategory.add",
		slog.Int64("shop_id", shopID),
		slog.Int64("category_id", cat.ID),
	)
	return cat, nil
}

// AddProduct creates a product in a leaf category. A category with
// subcategories is a grouping node and cannot hold products.
func (s *Service) AddProduct(ctx context.Context, shopID, categoryID int64, name string, price int64) (domain.Product, error) {
	name, err := cleanName(name)
	if err != nil {
		return domain.Product{}, err
	}
	if price <= 0 {
		return domain.Product{}, domain.Invalid("price", "must be positive")
	}
	if _, err := s.requireCategoryInShop(ctx, shopID, categoryID); err != nil {
		return domain.Product{}, err
	}
	hasChildren, err := s.categories.HasChildren(ctx, categoryID)
	if err != nil {
		return domain.Product{}, err
	}
	if hasChildren {
		return domain.Product{}, domain.Invalid("category", "category holds subcategories")
	}
	p, err := s.products.Create(ctx, categoryID, name, price)
	if err != nil {
		return domain.Product{}, err
	}
	logger.Info(ctx, "catalog", "product.add",
		slog.Int64("shop_id", shopID),
		slog.Int64("category_id", categoryID),
		slog.Int64("product_id", p.ID),
	)
	return p, nil
}

// AddUnit appends one sellable unit to a product's stock.
func (s *Service) AddUnit(ctx context.Context, shopID, productID int64, payload string) (domain.InventoryUnit, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return domain.InventoryUnit{}, domain.Invalid("payload", "empty")
	}
	if err := s.requireProductInShop(ctx, shopID, productID); err != nil {
		return domain.InventoryUnit{}, err
	}
	return s.units.Add(ctx, productID, payload)
}

// requireCategoryInShop loads a category and hides it from other tenants.
// Callback payloads are client-forgeable, so every mutation re-checks that
// the target actually belongs to the shop the caller was authorized for.
func (s *Service) requireCategoryInShop(ctx context.Context, shopID, categoryID int64) (domain.Category, error) {
	cat, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return domain.Category{}, err
	}
	if cat.ShopID != shopID {
		return domain.Category{}, domain.ErrNotFound
	}
	return cat, nil
}

// requireProductInShop resolves a product's owning shop and hides it from
// other tenants.
func (s *Service) requireProductInShop(ctx context.Context, shopID, productID int64) error {
	owner, err := s.products.ShopID(ctx, productID)
	if err != nil {
		return err
	}
	if owner != shopID {
		return domain.ErrNotFound
	}
	return nil
}

// Category returns one category.
func (s *Service) Category(ctx context.Context, id int64) (domain.Category, error) {
	return s.categories.GetByID(ctx, id)
}

// TopCategories returns the shop's root categories.
func (s *Service) TopCategories(ctx context.Context, shopID int64) ([]domain.Category, error) {
	return s.categories.ListTopLevel(ctx, shopID)
}

// Subcategories returns a node's direct children.
func (s *Service) Subcategories(ctx context.Context, parentID int64) ([]domain.Category, error) {
	return s.categories.ListChildren(ctx, parentID)
}

// HasSubcategories reports whether a category is a grouping node.
func (s *Service) HasSubcategories(ctx context.Context, id int64) (bool, error) {
	return s.categories.HasChildren(ctx, id)
}

// Products returns the products of a leaf category.
func (s *Service) Products(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	return s.products.ListByCategory(ctx, categoryID)
}

// Product returns one product.
func (s *Service) Product(ctx context.Context, id int64) (domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

// Stock reports how many units of a product remain free.
func (s *Service) Stock(ctx context.Context, productID int64) (int, error) {
	return s.units.CountFree(ctx, productID)
}

// RenameCategory updates a category's name.
func (s *Service) RenameCategory(ctx context.Context, shopID, id int64, name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	if _, err := s.requireCategoryInShop(ctx, shopID, id); err != nil {
		return err
	}
	return s.categories.Rename(ctx, id, name)
}

// DeleteCategory removes a category with its descendants and products.
func (s *Service) DeleteCategory(ctx context.Context, shopID, id int64) error {
	if _, err := s.requireCategoryInShop(ctx, shopID, id); err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info(ctx, "catalog", "category.delete",
		slog.Int64("shop_id", shopID),
		slog.Int64("category_id", id),
	)
	return nil
}

// DeleteProduct removes a product and its remaining stock.
func (s *Service) DeleteProduct(ctx context.Context, shopID, id int64) error {
	if err := s.requireProductInShop(ctx, shopID, id); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info(ctx, "catalog", "product.delete",
		slog.Int64("shop_id", shopID),
		slog.Int64("product_id", id),
	)
	return nil
}
