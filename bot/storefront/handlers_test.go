package storefront

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/domain"
)

type fakeCatalog struct {
	categories map[int64]domain.Category
	products   map[int64]domain.Product
}

func (f *fakeCatalog) TopCategories(_ context.Context, shopID int64) ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range f.categories {
		if c.ShopID == shopID && c.ParentID == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Category(_ context.Context, id int64) (domain.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return domain.Category{}, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeCatalog) HasSubcategories(_ context.Context, id int64) (bool, error) {
	for _, c := range f.categories {
		if c.ParentID != nil && *c.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCatalog) Subcategories(_ context.Context, parentID int64) ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range f.categories {
		if c.ParentID != nil && *c.ParentID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Products(_ context.Context, categoryID int64) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range f.products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Product(_ context.Context, id int64) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) Stock(context.Context, int64) (int, error) { return 1, nil }

func TestProductLookupIsShopScoped(t *testing.T) {
	catalog := &fakeCatalog{
		categories: map[int64]domain.Category{
			10: {ID: 10, ShopID: 1, Name: "Games"},
			20: {ID: 20, ShopID: 2, Name: "Other shop"},
		},
		products: map[int64]domain.Product{
			100: {ID: 100, CategoryID: 10, Name: "Key", Price: 1500},
			200: {ID: 200, CategoryID: 20, Name: "Foreign", Price: 900},
		},
	}
	h := newHandlers(1, catalog, nil, nil)
	ctx := context.Background()

	p, err := h.product(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Key", p.Name)

	// A crafted callback with another tenant's product id must look like
	// a missing item, not leak the foreign product.
	_, err = h.product(ctx, 200)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.product(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
