// Package shops implements tenant lifecycle: registering a shop under a bot
// token, switching its storefront bot on and off, and tearing it down.
package shops

import (
	"context"
	"errors"
	"regexp"

	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/domain"
)

// tokenPattern matches the BotFather token shape: numeric bot id, colon,
// 35-char secret.
var tokenPattern = regexp.MustCompile(`^\d{8,10}:[A-Za-z0-9_-]{35}$`)

// ValidToken reports whether input has the bot token shape.
func ValidToken(input string) bool { return tokenPattern.MatchString(input) }

// ShopStore is the slice of shop storage this service needs.
type ShopStore interface {
	Create(ctx context.Context, digest string, ownerID int64) (domain.Shop, error)
	GetByID(ctx context.Context, id int64) (domain.Shop, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Shop, error)
	ListAdministered(ctx context.Context, tgID int64) ([]domain.Shop, error)
	Delete(ctx context.Context, id int64) error
}

// Credentials converts between plaintext tokens and stored digests.
type Credentials interface {
	Digest(token string) (string, error)
	Reveal(digest string) (string, error)
}

// Fleet is the slice of the bot fleet this service drives.
type Fleet interface {
	Start(ctx context.Context, token string) error
	StopByDigest(ctx context.Context, digest string) error
	IsRunningDigest(digest string) bool
	Identity(ctx context.Context, digest string) (domain.BotIdentity, error)
}

// Service owns shop registration and lifecycle.
type Service struct {
	store ShopStore
	creds Credentials
	fleet Fleet
}

// New builds the shop service.
func New(store ShopStore, creds Credentials, fleet Fleet) *Service {
	return &Service{store: store, creds: creds, fleet: fleet}
}

// Register creates a shop for a token and launches its storefront bot. The
// token is persisted only as its digest. A token already bound to a shop
// yields domain.ErrConflict; a token the chat platform rejects rolls the
// registration back so no dead shop lingers.
func (s *Service) Register(ctx context.Context, ownerID int64, token string) (domain.Shop, error) {
	if !ValidToken(token) {
		return domain.Shop{}, domain.Invalid("token", "not a bot token")
	}
	digest, err := s.creds.Digest(token)
	if err != nil {
		return domain.Shop{}, err
	}

	shop, err := s.store.Create(ctx, digest, ownerID)
	if err != nil {
		return domain.Shop{}, err
	}

	if err := s.fleet.Start(ctx, token); err != nil {
		if delErr := s.store.Delete(ctx, shop.ID); delErr != nil {
			logger.Error(ctx, "shops", "register.rollback_fail",
				slog.Int64("shop_id", shop.ID),
				slog.String("err", delErr.Error()),
			)
		}
		return domain.Shop{}, err
	}

	logger.Info(ctx, "shops", "register.ok",
		slog.Int64("shop_id", shop.ID),
		slog.Int64("user_id", ownerID),
	)
	return shop, nil
}

// Accessible returns the shops a user owns and the shops they administer.
func (s *Service) Accessible(ctx context.Context, userID int64) (owned, administered []domain.Shop, err error) {
	owned, err = s.store.ListByOwner(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	administered, err = s.store.ListAdministered(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return owned, administered, nil
}

// Get returns one shop.
func (s *Service) Get(ctx context.Context, shopID int64) (domain.Shop, error) {
	return s.store.GetByID(ctx, shopID)
}

// requireOwner loads a shop and rejects callers who do not own it.
func (s *Service) requireOwner(ctx context.Context, shopID, userID int64) (domain.Shop, error) {
	shop, err := s.store.GetByID(ctx, shopID)
	if err != nil {
		return domain.Shop{}, err
	}
	if shop.OwnerID != userID {
		return domain.Shop{}, domain.ErrForbidden
	}
	return shop, nil
}

// Activate launches a shop's storefront bot. Owner only.
func (s *Service) Activate(ctx context.Context, shopID, userID int64) error {
	shop, err := s.requireOwner(ctx, shopID, userID)
	if err != nil {
		return err
	}
	token, err := s.creds.Reveal(shop.TokenDigest)
	if err != nil {
		return err
	}
	return s.fleet.Start(ctx, token)
}

// Deactivate stops a shop's storefront bot. Owner only.
func (s *Service) Deactivate(ctx context.Context, shopID, userID int64) error {
	shop, err := s.requireOwner(ctx, shopID, userID)
	if err != nil {
		return err
	}
	return s.fleet.StopByDigest(ctx, shop.TokenDigest)
}

// IsRunning reports whether the shop's bot is live right now. The fleet
// registry is authoritative; the persisted flag is ignored here.
func (s *Service) IsRunning(ctx context.Context, shop domain.Shop) bool {
	return s.fleet.IsRunningDigest(shop.TokenDigest)
}

// RevealToken returns the plaintext bot token. Owner only.
func (s *Service) RevealToken(ctx context.Context, shopID, userID int64) (string, error) {
	shop, err := s.requireOwner(ctx, shopID, userID)
	if err != nil {
		return "", err
	}
	return s.creds.Reveal(shop.TokenDigest)
}

// Identity returns the chat-platform identity of a shop's running bot.
func (s *Service) Identity(ctx context.Context, shop domain.Shop) (domain.BotIdentity, error) {
	return s.fleet.Identity(ctx, shop.TokenDigest)
}

// Delete stops the shop's bot and removes the shop with everything under it.
// Owner only. A bot that was not running does not block deletion.
func (s *Service) Delete(ctx context.Context, shopID, userID int64) error {
	shop, err := s.requireOwner(ctx, shopID, userID)
	if err != nil {
		return err
	}
	if err := s.fleet.StopByDigest(ctx, shop.TokenDigest); err != nil && !errors.Is(err, domain.ErrNotRunning) {
		return err
	}
	if err := s.store.Delete(ctx, shop.ID); err != nil {
		return err
	}
	logger.Info(ctx, "shops", "delete.ok",
		slog.Int64("shop_id", shop.ID),
		slog.Int64("user_id", userID),
	)
	return nil
}
