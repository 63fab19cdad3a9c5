package store

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/shopbot/domain"
)

// InventoryStore persists discrete sellable units. Reservation is a
// storage-level conditional write: the update applies only while
// reserved_by is still unset, so concurrent buyers can never both win the
// same unit regardless of how their tasks interleave.
type InventoryStore struct {
	db *sqlx.DB
}

// Add inserts one unit with its serialized payload.
func (s *InventoryStore) Add(ctx context.Context, productID int64, payload string) (domain.InventoryUnit, error) {
	const q = `
		INSERT INTO inventory_units (product_id, payload)
		VALUES ($1, $2)
		RETURNING *`
	var u domain.InventoryUnit
	if err := s.db.GetContext(ctx, &u, q, productID, payload); err != nil {
		return domain.InventoryUnit{}, translate("inventory.add", err)
	}
	return u, nil
}

// NextFree returns one unreserved unit of a product, or domain.ErrOutOfStock.
func (s *InventoryStore) NextFree(ctx context.Context, productID int64) (domain.InventoryUnit, error) {
	const q = `
		SELECT * FROM inventory_units
		WHERE product_id = $1 AND reserved_by IS NULL
		ORDER BY id
		LIMIT 1`
	var u domain.InventoryUnit
	if err := s.db.GetContext(ctx, &u, q, productID); err != nil {
		translated := translate("inventory.next_free", err)
		if errors.Is(translated, domain.ErrNotFound) {
			return domain.InventoryUnit{}, domain.ErrOutOfStock
		}
		return domain.InventoryUnit{}, translated
	}
	return u, nil
}

// Reserve atomically assigns a unit to a buyer, guarded by the precondition
// that reserved_by is still unset at write time. It reports false when the
// caller lost the race.
func (s *InventoryStore) Reserve(ctx context.Context, unitID, buyerID int64) (bool, error) {
	const q = `
		UPDATE inventory_units
		SET reserved_by = $2
		WHERE id = $1 AND reserved_by IS NULL`
	res, err := s.db.ExecContext(ctx, q, unitID, buyerID)
	if err != nil {
		return false, translate("inventory.reserve", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, translate("inventory.reserve", err)
	}
	return n == 1, nil
}

// CountFree reports how many units of a product remain unreserved.
func (s *InventoryStore) CountFree(ctx context.Context, productID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM inventory_units WHERE product_id = $1 AND reserved_by IS NULL`,
		productID)
	if err != nil {
		return 0, translate("inventory.count_free", err)
	}
	return n, nil
}
