package admins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/domain"
)

type fakeAdminStore struct {
	grants map[int64]domain.Administrator
	nextID int64
}

func newFakeAdminStore() *fakeAdminStore {
	return &fakeAdminStore{grants: make(map[int64]domain.Administrator)}
}

func (s *fakeAdminStore) Create(_ context.Context, a domain.Administrator) (domain.Administrator, error) {
	for _, g := range s.grants {
		if g.ShopID == a.ShopID && g.TelegramID == a.TelegramID {
			return domain.Administrator{}, domain.ErrConflict
		}
	}
	s.nextID++
	a.ID = s.nextID
	s.grants[a.ID] = a
	return a, nil
}

func (s *fakeAdminStore) GetByID(_ context.Context, id int64) (domain.Administrator, error) {
	g, ok := s.grants[id]
	if !ok {
		return domain.Administrator{}, domain.ErrNotFound
	}
	return g, nil
}

func (s *fakeAdminStore) Get(_ context.Context, shopID, tgID int64) (domain.Administrator, error) {
	for _, g := range s.grants {
		if g.ShopID == shopID && g.TelegramID == tgID {
			return g, nil
		}
	}
	return domain.Administrator{}, domain.ErrNotFound
}

func (s *fakeAdminStore) ListByShop(_ context.Context, shopID int64) ([]domain.Administrator, error) {
	var out []domain.Administrator
	for _, g := range s.grants {
		if g.ShopID == shopID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *fakeAdminStore) SetCapabilities(_ context.Context, id int64, roles, chat, products bool) error {
	g, ok := s.grants[id]
	if !ok {
		return domain.ErrNotFound
	}
	g.CanManageRoles, g.CanChatClients, g.CanManageProducts = roles, chat, products
	s.grants[id] = g
	return nil
}

func (s *fakeAdminStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.grants[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.grants, id)
	return nil
}

type fakeShopStore struct{ shops map[int64]domain.Shop }

func (s *fakeShopStore) GetByID(_ context.Context, id int64) (domain.Shop, error) {
	shop, ok := s.shops[id]
	if !ok {
		return domain.Shop{}, domain.ErrNotFound
	}
	return shop, nil
}

const (
	ownerID    = int64(42)
	managerID  = int64(100)
	strangerID = int64(999)
)

func newTestService() (*Service, *fakeAdminStore) {
	admins := newFakeAdminStore()
	shops := &fakeShopStore{shops: map[int64]domain.Shop{
		1: {ID: 1, OwnerID: ownerID},
	}}
	return New(admins, shops), admins
}

func TestOwnerHasEveryCapability(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for _, cap := range []domain.Capability{
		domain.CapManageRoles, domain.CapChatClients, domain.CapManageProducts,
	} {
		assert.NoError(t, svc.Authorize(ctx, 1, ownerID, cap))
	}
}

func TestAdminCapabilitiesAreScoped(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	_, err := store.Create(ctx, domain.Administrator{
		ShopID: 1, TelegramID: managerID, CanManageProducts: true,
	})
	require.NoError(t, err)

	assert.NoError(t, svc.Authorize(ctx, 1, managerID, domain.CapManageProducts))
	assert.ErrorIs(t, svc.Authorize(ctx, 1, managerID, domain.CapManageRoles), domain.ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, 1, managerID, domain.CapChatClients), domain.ErrForbidden)
}

func TestStrangerIsForbidden(t *testing.T) {
	svc, _ := newTestService()
	err := svc.Authorize(context.Background(), 1, strangerID, domain.CapManageProducts)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestAuthorizeUnknownShop(t *testing.T) {
	svc, _ := newTestService()
	err := svc.Authorize(context.Background(), 77, ownerID, domain.CapManageProducts)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGrantRequiresRoleCapability(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	// Product manager cannot hand out grants.
	_, err := store.Create(ctx, domain.Administrator{
		ShopID: 1, TelegramID: managerID, CanManageProducts: true,
	})
	require.NoError(t, err)

	_, err = svc.Grant(ctx, managerID, domain.Administrator{ShopID: 1, TelegramID: strangerID})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// The owner can.
	granted, err := svc.Grant(ctx, ownerID, domain.Administrator{
		ShopID: 1, TelegramID: strangerID, CanChatClients: true,
	})
	require.NoError(t, err)
	assert.True(t, granted.CanChatClients)
}

func TestGrantOwnerIsRejected(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Grant(context.Background(), ownerID, domain.Administrator{ShopID: 1, TelegramID: ownerID})
	assert.True(t, domain.IsValidation(err))
}

func TestDuplicateGrantConflicts(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Grant(ctx, ownerID, domain.Administrator{ShopID: 1, TelegramID: managerID})
	require.NoError(t, err)
	_, err = svc.Grant(ctx, ownerID, domain.Administrator{ShopID: 1, TelegramID: managerID})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUpdateAndRevoke(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	granted, err := svc.Grant(ctx, ownerID, domain.Administrator{ShopID: 1, TelegramID: managerID})
	require.NoError(t, err)

	require.NoError(t, svc.Update(ctx, ownerID, granted.ID, true, false, true))
	got := store.grants[granted.ID]
	assert.True(t, got.CanManageRoles)
	assert.False(t, got.CanChatClients)
	assert.True(t, got.CanManageProducts)

	assert.ErrorIs(t, svc.Update(ctx, strangerID, granted.ID, false, false, false), domain.ErrForbidden)
	assert.ErrorIs(t, svc.Revoke(ctx, strangerID, granted.ID), domain.ErrForbidden)

	require.NoError(t, svc.Revoke(ctx, ownerID, granted.ID))
	assert.Empty(t, store.grants)
}

func TestGetVisibility(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	granted, err := svc.Grant(ctx, ownerID, domain.Administrator{ShopID: 1, TelegramID: managerID})
	require.NoError(t, err)

	// The owner and the grantee's fellow admins may read a grant by id.
	got, err := svc.Get(ctx, ownerID, granted.ID)
	require.NoError(t, err)
	assert.Equal(t, managerID, got.TelegramID)

	_, err = svc.Get(ctx, managerID, granted.ID)
	assert.NoError(t, err)

	// A user outside the shop cannot read grants even with a valid id.
	_, err = svc.Get(ctx, strangerID, granted.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListVisibility(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	granted, err := svc.Grant(ctx, ownerID, domain.Administrator{ShopID: 1, TelegramID: managerID})
	require.NoError(t, err)

	// Owner and the admin see the list; strangers do not.
	list, err := svc.List(ctx, ownerID, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, granted.ID, list[0].ID)

	_, err = svc.List(ctx, managerID, 1)
	assert.NoError(t, err)

	_, err = svc.List(ctx, strangerID, 1)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
