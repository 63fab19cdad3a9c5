package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/shopbot/domain"
)

// ShopStore persists tenants. The bot token digest is unique: one credential
// backs at most one shop.
type ShopStore struct {
	db *sqlx.DB
}

// Create inserts a new shop. A duplicate token digest yields domain.ErrConflict.
func (s *ShopStore) Create(ctx context.Context, digest string, ownerID int64) (domain.Shop, error) {
	const q = `
		INSERT INTO shops (bot_token_digest, owner_tg_id)
		VALUES ($1, $2)
		RETURNING *`
	var shop domain.Shop
	if err := s.db.GetContext(ctx, &shop, q, digest, ownerID); err != nil {
		return domain.Shop{}, translate("shops.create", err)
	}
	return shop, nil
}

// GetByID returns one shop.
func (s *ShopStore) GetByID(ctx context.Context, id int64) (domain.Shop, error) {
	var shop domain.Shop
	err := s.db.GetContext(ctx, &shop, `SELECT * FROM shops WHERE id = $1`, id)
	if err != nil {
		return domain.Shop{}, translate("shops.get", err)
	}
	return shop, nil
}

// GetByDigest returns the shop registered under a token digest.
func (s *ShopStore) GetByDigest(ctx context.Context, digest string) (domain.Shop, error) {
	var shop domain.Shop
	err := s.db.GetContext(ctx, &shop, `SELECT * FROM shops WHERE bot_token_digest = $1`, digest)
	if err != nil {
		return domain.Shop{}, translate("shops.get_by_digest", err)
	}
	return shop, nil
}

// ListByOwner returns the shops owned by a user.
func (s *ShopStore) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Shop, error) {
	var shops []domain.Shop
	err := s.db.SelectContext(ctx, &shops,
		`SELECT * FROM shops WHERE owner_tg_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, translate("shops.list_by_owner", err)
	}
	return shops, nil
}

// ListAdministered returns the shops where the user is an administrator.
func (s *ShopStore) ListAdministered(ctx context.Context, tgID int64) ([]domain.Shop, error) {
	const q = `
		SELECT s.* FROM shops s
		JOIN administrators a ON a.shop_id = s.id
		WHERE a.tg_user_id = $1
		ORDER BY s.id`
	var shops []domain.Shop
	if err := s.db.SelectContext(ctx, &shops, q, tgID); err != nil {
		return nil, translate("shops.list_administered", err)
	}
	return shops, nil
}

// ListActive returns all shops whose persisted active flag is set. The flag
// is a restart hint only; the fleet registry remains authoritative.
func (s *ShopStore) ListActive(ctx context.Context) ([]domain.Shop, error) {
	var shops []domain.Shop
	err := s.db.SelectContext(ctx, &shops,
		`SELECT * FROM shops WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, translate("shops.list_active", err)
	}
	return shops, nil
}

// SetActiveByDigest persists the active hint for the shop behind a digest.
func (s *ShopStore) SetActiveByDigest(ctx context.Context, digest string, active bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE shops SET is_active = $2 WHERE bot_token_digest = $1`, digest, active)
	return translate("shops.set_active", err)
}

// Delete removes a shop; categories, products, units, purchases and
// administrators cascade at the schema level.
func (s *ShopStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shops WHERE id = $1`, id)
	if err != nil {
		return translate("shops.delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
