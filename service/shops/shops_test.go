package shops

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/domain"
)

type fakeShopStore struct {
	shops  map[int64]domain.Shop
	nextID int64
}

func newFakeShopStore() *fakeShopStore {
	return &fakeShopStore{shops: make(map[int64]domain.Shop)}
}

func (s *fakeShopStore) Create(_ context.Context, digest string, ownerID int64) (domain.Shop, error) {
	for _, shop := range s.shops {
		if shop.TokenDigest == digest {
			return domain.Shop{}, domain.ErrConflict
		}
	}
	s.nextID++
	shop := domain.Shop{ID: s.nextID, TokenDigest: digest, OwnerID: ownerID}
	s.shops[shop.ID] = shop
	return shop, nil
}

func (s *fakeShopStore) GetByID(_ context.Context, id int64) (domain.Shop, error) {
	shop, ok := s.shops[id]
	if !ok {
		return domain.Shop{}, domain.ErrNotFound
	}
	return shop, nil
}

func (s *fakeShopStore) ListByOwner(_ context.Context, ownerID int64) ([]domain.Shop, error) {
	var out []domain.Shop
	for _, shop := range s.shops {
		if shop.OwnerID == ownerID {
			out = append(out, shop)
		}
	}
	return out, nil
}

func (s *fakeShopStore) ListAdministered(context.Context, int64) ([]domain.Shop, error) {
	return nil, nil
}

func (s *fakeShopStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.shops[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.shops, id)
	return nil
}

type plainCreds struct{}

func (plainCreds) Digest(token string) (string, error) { return "d:" + token, nil }
func (plainCreds) Reveal(digest string) (string, error) {
	return digest[2:], nil
}

type fakeFleet struct {
	running    map[string]bool
	startErr   error
	startCalls int
	stopCalls  int
}

func newFakeFleet() *fakeFleet { return &fakeFleet{running: make(map[string]bool)} }

func (f *fakeFleet) Start(_ context.Context, token string) error {
	f.startCalls++
	if f.startErr != nil {
		return f.startErr
	}
	f.running["d:"+token] = true
	return nil
}

func (f *fakeFleet) StopByDigest(_ context.Context, digest string) error {
	f.stopCalls++
	if !f.running[digest] {
		return domain.ErrNotRunning
	}
	delete(f.running, digest)
	return nil
}

func (f *fakeFleet) IsRunningDigest(digest string) bool { return f.running[digest] }

func (f *fakeFleet) Identity(context.Context, string) (domain.BotIdentity, error) {
	return domain.BotIdentity{Handle: "shop_bot"}, nil
}

const goodToken = "123456789:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

func newTestService() (*Service, *fakeShopStore, *fakeFleet) {
	store := newFakeShopStore()
	fleet := newFakeFleet()
	return New(store, plainCreds{}, fleet), store, fleet
}

func TestValidToken(t *testing.T) {
	assert.True(t, ValidToken(goodToken))
	assert.True(t, ValidToken("12345678:AAAAAAAAAAAAAAAAAAAAAAAAAAA_-AAAAAA"))
	assert.False(t, ValidToken("not a token"))
	assert.False(t, ValidToken("123:short"))
	assert.False(t, ValidToken(goodToken+"x"))
}

func TestRegisterStartsBot(t *testing.T) {
	svc, store, fleet := newTestService()
	ctx := context.Background()

	shop, err := svc.Register(ctx, 42, goodToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), shop.OwnerID)
	assert.Equal(t, "d:"+goodToken, shop.TokenDigest)
	assert.True(t, fleet.IsRunningDigest(shop.TokenDigest))
	assert.Len(t, store.shops, 1)
}

func TestRegisterRejectsMalformedToken(t *testing.T) {
	svc, store, fleet := newTestService()

	_, err := svc.Register(context.Background(), 42, "garbage")
	assert.True(t, domain.IsValidation(err))
	assert.Empty(t, store.shops)
	assert.Zero(t, fleet.startCalls)
}

func TestRegisterDuplicateTokenConflicts(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, 42, goodToken)
	require.NoError(t, err)

	_, err = svc.Register(ctx, 43, goodToken)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRegisterRollsBackWhenStartFails(t *testing.T) {
	svc, store, fleet := newTestService()
	fleet.startErr = errors.New("401 unauthorized")

	_, err := svc.Register(context.Background(), 42, goodToken)
	assert.Error(t, err)
	assert.Empty(t, store.shops, "failed registration must not leave a shop behind")
}

func TestLifecycleIsOwnerOnly(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	shop, err := svc.Register(ctx, 42, goodToken)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Deactivate(ctx, shop.ID, 99), domain.ErrForbidden)
	assert.ErrorIs(t, svc.Activate(ctx, shop.ID, 99), domain.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, shop.ID, 99), domain.ErrForbidden)
	_, err = svc.RevealToken(ctx, shop.ID, 99)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, svc.Deactivate(ctx, shop.ID, 42))
	require.NoError(t, svc.Activate(ctx, shop.ID, 42))

	token, err := svc.RevealToken(ctx, shop.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, goodToken, token)
}

func TestDeleteStoppedShop(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	shop, err := svc.Register(ctx, 42, goodToken)
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(ctx, shop.ID, 42))

	// Deleting a shop whose bot is already down must not fail.
	require.NoError(t, svc.Delete(ctx, shop.ID, 42))
	assert.Empty(t, store.shops)
}

func TestIsRunningReflectsFleet(t *testing.T) {
	svc, _, fleet := newTestService()
	ctx := context.Background()

	shop, err := svc.Register(ctx, 42, goodToken)
	require.NoError(t, err)
	assert.True(t, svc.IsRunning(ctx, shop))

	require.NoError(t, fleet.StopByDigest(ctx, shop.TokenDigest))
	assert.False(t, svc.IsRunning(ctx, shop))
}
