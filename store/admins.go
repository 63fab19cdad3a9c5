package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/shopbot/domain"
)

// AdminStore persists per-shop administrator grants.
type AdminStore struct {
	db *sqlx.DB
}

// Create grants a user administrator rights in a shop. A duplicate
// (shop, user) pair yields domain.ErrConflict.
func (s *AdminStore) Create(ctx context.Context, a domain.Administrator) (domain.Administrator, error) {
	const q = `
		INSERT INTO administrators (shop_id, tg_user_id, can_manage_roles, can_chat_clients, can_manage_products)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, shop_id, tg_user_id, can_manage_roles, can_chat_clients, can_manage_products`
	var out domain.Administrator
	err := s.db.GetContext(ctx, &out, q,
		a.ShopID, a.TelegramID, a.CanManageRoles, a.CanChatClients, a.CanManageProducts)
	if err != nil {
		return domain.Administrator{}, translate("admins.create", err)
	}
	return out, nil
}

// GetByID returns one administrator record.
func (s *AdminStore) GetByID(ctx context.Context, id int64) (domain.Administrator, error) {
	const q = `
		SELECT a.id, a.shop_id, a.tg_user_id,
		       a.can_manage_roles, a.can_chat_clients, a.can_manage_products,
		       COALESCE(u.full_name, '') AS full_name
		FROM administrators a
		LEFT JOIN users u ON u.telegram_id = a.tg_user_id
		WHERE a.id = $1`
	var out domain.Administrator
	if err := s.db.GetContext(ctx, &out, q, id); err != nil {
		return domain.Administrator{}, translate("admins.get", err)
	}
	return out, nil
}

// Get returns the administrator record for a user in a shop, if any.
func (s *AdminStore) Get(ctx context.Context, shopID, tgID int64) (domain.Administrator, error) {
	const q = `
		SELECT a.id, a.shop_id, a.tg_user_id,
		       a.can_manage_roles, a.can_chat_clients, a.can_manage_products,
		       COALESCE(u.full_name, '') AS full_name
		FROM administrators a
		LEFT JOIN users u ON u.telegram_id = a.tg_user_id
		WHERE a.shop_id = $1 AND a.tg_user_id = $2`
	var out domain.Administrator
	if err := s.db.GetContext(ctx, &out, q, shopID, tgID); err != nil {
		return domain.Administrator{}, translate("admins.get", err)
	}
	return out, nil
}

// ListByShop returns all administrators of a shop with display names.
func (s *AdminStore) ListByShop(ctx context.Context, shopID int64) ([]domain.Administrator, error) {
	const q = `
		SELECT a.id, a.shop_id, a.tg_user_id,
		       a.can_manage_roles, a.can_chat_clients, a.can_manage_products,
		       COALESCE(u.full_name, '') AS full_name
		FROM administrators a
		LEFT JOIN users u ON u.telegram_id = a.tg_user_id
		WHERE a.shop_id = $1
		ORDER BY a.id`
	var out []domain.Administrator
	if err := s.db.SelectContext(ctx, &out, q, shopID); err != nil {
		return nil, translate("admins.list", err)
	}
	return out, nil
}

// SetCapabilities replaces the three capability flags of a grant.
func (s *AdminStore) SetCapabilities(ctx context.Context, id int64, roles, chat, products bool) error {
	const q = `
		UPDATE administrators
		SET can_manage_roles = $2, can_chat_clients = $3, can_manage_products = $4
		WHERE id = $1`
	res, err := s.db.ExecContext(ctx, q, id, roles, chat, products)
	if err != nil {
		return translate("admins.set_capabilities", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete revokes a grant.
func (s *AdminStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM administrators WHERE id = $1`, id)
	if err != nil {
		return translate("admins.delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
