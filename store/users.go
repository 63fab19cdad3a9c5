package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/shopbot/domain"
)

// UserStore persists operator-bot users.
type UserStore struct {
	db *sqlx.DB
}

// Upsert records a user, refreshing the display name on conflict.
func (s *UserStore) Upsert(ctx context.Context, u domain.User) error {
	const q = `
		INSERT INTO users (telegram_id, full_name)
		VALUES ($1, $2)
		ON CONFLICT (telegram_id) DO UPDATE SET full_name = EXCLUDED.full_name`
	_, err := s.db.ExecContext(ctx, q, u.TelegramID, u.FullName)
	return translate("users.upsert", err)
}

// GetByTelegramID returns a user by their Telegram id.
func (s *UserStore) GetByTelegramID(ctx context.Context, tgID int64) (domain.User, error) {
	var u domain.User
	err := s.db.GetContext(ctx, &u, `SELECT * FROM users WHERE telegram_id = $1`, tgID)
	if err != nil {
		return domain.User{}, translate("users.get", err)
	}
	return u, nil
}

// GetUserByTelegramID adapts GetByTelegramID to the helper resolver contract.
func (s *UserStore) GetUserByTelegramID(ctx context.Context, tgID int64) (domain.User, error) {
	return s.GetByTelegramID(ctx, tgID)
}
