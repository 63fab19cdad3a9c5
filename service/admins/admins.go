// Package admins manages per-shop administrator grants and answers the
// single authorization question the handlers ask: may this user perform
// this capability in this shop?
package admins

import (
	"context"

	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/domain"
)

// AdminStore is the slice of administrator storage this service needs.
type AdminStore interface {
	Create(ctx context.Context, a domain.Administrator) (domain.Administrator, error)
	GetByID(ctx context.Context, id int64) (domain.Administrator, error)
	Get(ctx context.Context, shopID, tgID int64) (domain.Administrator, error)
	ListByShop(ctx context.Context, shopID int64) ([]domain.Administrator, error)
	SetCapabilities(ctx context.Context, id int64, roles, chat, products bool) error
	Delete(ctx context.Context, id int64) error
}

// ShopStore resolves shop ownership for authorization.
type ShopStore interface {
	GetByID(ctx context.Context, id int64) (domain.Shop, error)
}

// Service owns administrator grants.
type Service struct {
	admins AdminStore
	shops  ShopStore
}

// New builds the admin service.
func New(admins AdminStore, shops ShopStore) *Service {
	return &Service{admins: admins, shops: shops}
}

// Authorize allows the action when the user owns the shop, or holds an
// administrator grant carrying the capability. Everyone else gets
// domain.ErrForbidden.
func (s *Service) Authorize(ctx context.Context, shopID, userID int64, cap domain.Capability) error {
	shop, err := s.shops.GetByID(ctx, shopID)
	if err != nil {
		return err
	}
	if shop.OwnerID == userID {
		return nil
	}
	grant, err := s.admins.Get(ctx, shopID, userID)
	if err != nil {
		// Non-admins are indistinguishable from unauthorized admins.
		return domain.ErrForbidden
	}
	allowed := false
	switch cap {
	case domain.CapManageRoles:
		allowed = grant.CanManageRoles
	case domain.CapChatClients:
		allowed = grant.CanChatClients
	case domain.CapManageProducts:
		allowed = grant.CanManageProducts
	}
	if !allowed {
		logger.Debug(ctx, "admins", "authorize.deny",
			slog.Int64("shop_id", shopID),
			slog.Int64("user_id", userID),
		)
		return domain.ErrForbidden
	}
	return nil
}

// Grant makes a user an administrator of a shop with the given flags. Only
// the owner or an admin with the role capability may grant; a duplicate
// grant yields domain.ErrConflict.
func (s *Service) Grant(ctx context.Context, actorID int64, grant domain.Administrator) (domain.Administrator, error) {
	if err := s.Authorize(ctx, grant.ShopID, actorID, domain.CapManageRoles); err != nil {
		return domain.Administrator{}, err
	}
	shop, err := s.shops.GetByID(ctx, grant.ShopID)
	if err != nil {
		return domain.Administrator{}, err
	}
	if grant.TelegramID == shop.OwnerID {
		return domain.Administrator{}, domain.Invalid("user", "owner already has every capability")
	}
	out, err := s.admins.Create(ctx, grant)
	if err != nil {
		return domain.Administrator{}, err
	}
	logger.Info(ctx, "admins", "grant.ok",
		slog.Int64("shop_id", grant.ShopID),
		slog.Int64("admin_id", out.ID),
		slog.Int64("user_id", actorID),
	)
	return out, nil
}

// Update replaces the capability flags of a grant.
func (s *Service) Update(ctx context.Context, actorID, grantID int64, roles, chat, products bool) error {
	grant, err := s.admins.GetByID(ctx, grantID)
	if err != nil {
		return err
	}
	if err := s.Authorize(ctx, grant.ShopID, actorID, domain.CapManageRoles); err != nil {
		return err
	}
	return s.admins.SetCapabilities(ctx, grantID, roles, chat, products)
}

// Revoke removes a grant.
func (s *Service) Revoke(ctx context.Context, actorID, grantID int64) error {
	grant, err := s.admins.GetByID(ctx, grantID)
	if err != nil {
		return err
	}
	if err := s.Authorize(ctx, grant.ShopID, actorID, domain.CapManageRoles); err != nil {
		return err
	}
	if err := s.admins.Delete(ctx, grantID); err != nil {
		return err
	}
	logger.Info(ctx, "admins", "revoke.ok",
		slog.Int64("shop_id", grant.ShopID),
		slog.Int64("admin_id", grantID),
		slog.Int64("user_id", actorID),
	)
	return nil
}

// requireMember admits the shop's owner and its administrators, nobody else.
func (s *Service) requireMember(ctx context.Context, shopID, actorID int64) error {
	shop, err := s.shops.GetByID(ctx, shopID)
	if err != nil {
		return err
	}
	if shop.OwnerID == actorID {
		return nil
	}
	if _, err := s.admins.Get(ctx, shopID, actorID); err != nil {
		return domain.ErrForbidden
	}
	return nil
}

// List returns a shop's administrators. Any owner or administrator of the
// shop may look.
func (s *Service) List(ctx context.Context, actorID, shopID int64) ([]domain.Administrator, error) {
	if err := s.requireMember(ctx, shopID, actorID); err != nil {
		return nil, err
	}
	return s.admins.ListByShop(ctx, shopID)
}

// Get returns one grant. Visibility follows List: only the owner or an
// administrator of the grant's shop may read it, so a guessed grant id
// reveals nothing about other shops.
func (s *Service) Get(ctx context.Context, actorID, grantID int64) (domain.Administrator, error) {
	grant, err := s.admins.GetByID(ctx, grantID)
	if err != nil {
		return domain.Administrator{}, err
	}
	if err := s.requireMember(ctx, grant.ShopID, actorID); err != nil {
		return domain.Administrator{}, err
	}
	return grant, nil
}
