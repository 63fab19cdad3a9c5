package allocator

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/domain"
)

// fakeStock mimics the conditional-write semantics of the real unit store:
// Reserve only wins while the unit is still free.
type fakeStock struct {
	mu        sync.Mutex
	units     map[int64]*domain.InventoryUnit
	order     []int64
	purchases []domain.Purchase
	nextPID   int64
}

func newFakeStock(productID int64, unitCount int) *fakeStock {
	s := &fakeStock{units: make(map[int64]*domain.InventoryUnit)}
	for i := 0; i < unitCount; i++ {
		id := int64(i + 1)
		s.units[id] = &domain.InventoryUnit{ID: id, ProductID: productID, Payload: fmt.Sprintf("code-%d", id)}
		s.order = append(s.order, id)
	}
	return s
}

func (s *fakeStock) NextFree(_ context.Context, productID int64) (domain.InventoryUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		u := s.units[id]
		if u.ProductID == productID && u.ReservedBy == nil {
			return *u, nil
		}
	}
	return domain.InventoryUnit{}, domain.ErrOutOfStock
}

func (s *fakeStock) Reserve(_ context.Context, unitID, buyerID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[unitID]
	if !ok || u.ReservedBy != nil {
		return false, nil
	}
	u.ReservedBy = &buyerID
	return true, nil
}

func (s *fakeStock) Create(_ context.Context, buyerID, unitID, shopID int64, payload string) (domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPID++
	p := domain.Purchase{ID: s.nextPID, BuyerID: buyerID, UnitID: &unitID, ShopID: shopID, Payload: payload}
	s.purchases = append(s.purchases, p)
	return p, nil
}

func TestBuyDrainsStockExactly(t *testing.T) {
	const units = 5
	stock := newFakeStock(1, units)
	a := New(stock, stock)
	ctx := context.Background()

	seen := make(map[int64]bool)
	for buyer := int64(100); buyer < 100+units; buyer++ {
		unit, purchase, err := a.Buy(ctx, 7, 1, buyer)
		require.NoError(t, err)
		assert.False(t, seen[unit.ID], "unit %d sold twice", unit.ID)
		seen[unit.ID] = true
		require.NotNil(t, purchase.UnitID)
		assert.Equal(t, unit.ID, *purchase.UnitID)
		assert.Equal(t, unit.Payload, purchase.Payload, "purchase must carry the delivered payload")
		assert.Equal(t, buyer, purchase.BuyerID)
		assert.Equal(t, int64(7), purchase.ShopID)
	}

	_, _, err := a.Buy(ctx, 7, 1, 999)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
	assert.Len(t, stock.purchases, units)
}

func TestBuyUnknownProductIsOutOfStock(t *testing.T) {
	stock := newFakeStock(1, 3)
	a := New(stock, stock)

	_, _, err := a.Buy(context.Background(), 7, 42, 100)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
}

func TestConcurrentBuyersNeverShareAUnit(t *testing.T) {
	const (
		units  = 8
		buyers = 32
	)
	stock := newFakeStock(1, units)
	a := New(stock, stock)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, results[i] = a.Buy(ctx, 7, 1, int64(1000+i))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domain.ErrOutOfStock)
		}
	}

	// Every success is backed by exactly one purchase of a distinct unit.
	require.Equal(t, succeeded, len(stock.purchases))
	unitsSold := make(map[int64]bool)
	for _, p := range stock.purchases {
		require.NotNil(t, p.UnitID)
		assert.False(t, unitsSold[*p.UnitID], "unit %d referenced by two purchases", *p.UnitID)
		unitsSold[*p.UnitID] = true
	}
	assert.LessOrEqual(t, succeeded, units)

	// Reservations and purchase records agree one-to-one.
	reserved := 0
	for _, u := range stock.units {
		if u.ReservedBy != nil {
			reserved++
			assert.True(t, unitsSold[u.ID], "unit %d reserved without a purchase", u.ID)
		}
	}
	assert.Equal(t, succeeded, reserved)
}

func TestBuyRetriesAfterLostRace(t *testing.T) {
	stock := newFakeStock(1, 2)
	a := New(stock, stock)
	ctx := context.Background()

	// Simulate losing the first race: another buyer grabs unit 1 between
	// selection and reservation.
	won, err := stock.Reserve(ctx, 1, 555)
	require.NoError(t, err)
	require.True(t, won)

	unit, purchase, err := a.Buy(ctx, 7, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unit.ID)
	require.NotNil(t, purchase.UnitID)
	assert.Equal(t, int64(2), *purchase.UnitID)
}
