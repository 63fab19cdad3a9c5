// Package store implements Postgres persistence for the shop-bot runtime.
// Repositories return domain errors: uniqueness violations map to
// domain.ErrConflict, empty result sets to domain.ErrNotFound, anything
// else is wrapped as transient.
package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/m3rciful/shopbot/domain"
)

const uniqueViolation = "23505"

// Stores aggregates all repositories over one connection pool.
type Stores struct {
	Users      *UserStore
	Shops      *ShopStore
	Categories *CategoryStore
	Products   *ProductStore
	Inventory  *InventoryStore
	Purchases  *PurchaseStore
	Admins     *AdminStore
}

// New wires all repositories against the given pool.
func New(db *sqlx.DB) *Stores {
	return &Stores{
		Users:      &UserStore{db: db},
		Shops:      &ShopStore{db: db},
		Categories: &CategoryStore{db: db},
		Products:   &ProductStore{db: db},
		Inventory:  &InventoryStore{db: db},
		Purchases:  &PurchaseStore{db: db},
		Admins:     &AdminStore{db: db},
	}
}

// translate maps driver errors onto the domain taxonomy.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrConflict
	}
	return domain.WrapTransient(op, err)
}
