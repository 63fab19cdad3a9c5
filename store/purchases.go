package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/shopbot/domain"
)

// PurchaseStore persists immutable purchase records. unit_id is unique at
// the schema level: a second purchase against the same unit is a conflict,
// never a silent duplicate.
type PurchaseStore struct {
	db *sqlx.DB
}

// Create records a purchase for a freshly reserved unit, copying the
// delivered payload so the record stays readable after the unit is gone.
func (s *PurchaseStore) Create(ctx context.Context, buyerID, unitID, shopID int64, payload string) (domain.Purchase, error) {
	const q = `
		INSERT INTO purchases (buyer_tg_id, unit_id, shop_id, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING *`
	var p domain.Purchase
	if err := s.db.GetContext(ctx, &p, q, buyerID, unitID, shopID, payload); err != nil {
		return domain.Purchase{}, translate("purchases.create", err)
	}
	return p, nil
}

// ListByBuyer returns a buyer's purchases in one shop, newest first.
func (s *PurchaseStore) ListByBuyer(ctx context.Context, shopID, buyerID int64) ([]domain.Purchase, error) {
	const q = `
		SELECT * FROM purchases
		WHERE shop_id = $1 AND buyer_tg_id = $2
		ORDER BY id DESC`
	var out []domain.Purchase
	if err := s.db.SelectContext(ctx, &out, q, shopID, buyerID); err != nil {
		return nil, translate("purchases.list_by_buyer", err)
	}
	return out, nil
}
