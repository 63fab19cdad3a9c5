// Package allocator hands out inventory units to buyers. Correctness does
// not depend on application-level locking: the unit store's conditional
// reserve is the arbiter, and the allocator only retries selection when it
// lost a race.
package allocator

import (
	"context"

	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/domain"
)

// UnitStore is the slice of inventory storage the allocator needs.
type UnitStore interface {
	NextFree(ctx context.Context, productID int64) (domain.InventoryUnit, error)
	Reserve(ctx context.Context, unitID, buyerID int64) (bool, error)
}

// PurchaseStore records completed allocations.
type PurchaseStore interface {
	Create(ctx context.Context, buyerID, unitID, shopID int64, payload string) (domain.Purchase, error)
}

// maxReserveAttempts bounds how many lost races one purchase tolerates
// before reporting the product sold out. Each lost race means another buyer
// took a unit, so stock genuinely shrank between attempts.
const maxReserveAttempts = 3

// Allocator reserves one unit per purchase and records it.
type Allocator struct {
	units     UnitStore
	purchases PurchaseStore
}

// New builds an Allocator over the given stores.
func New(units UnitStore, purchases PurchaseStore) *Allocator {
	return &Allocator{units: units, purchases: purchases}
}

// Buy reserves the next free unit of a product for a buyer and records the
// purchase. It returns the reserved unit so the caller can deliver its
// payload. When every attempt loses its race or no unit is free, it returns
// domain.ErrOutOfStock.
func (a *Allocator) Buy(ctx context.Context, shopID, productID, buyerID int64) (domain.InventoryUnit, domain.Purchase, error) {
	for attempt := 1; attempt <= maxReserveAttempts; attempt++ {
		unit, err := a.units.NextFree(ctx, productID)
		if err != nil {
			return domain.InventoryUnit{}, domain.Purchase{}, err
		}

		won, err := a.units.Reserve(ctx, unit.ID, buyerID)
		if err != nil {
			return domain.InventoryUnit{}, domain.Purchase{}, err
		}
		if !won {
			logger.Debug(ctx, "allocator", "reserve.lost_race",
				slog.Int64("product_id", productID),
				slog.Int64("unit_id", unit.ID),
				slog.Int("attempts", attempt),
			)
			continue
		}

		purchase, err := a.purchases.Create(ctx, buyerID, unit.ID, shopID, unit.Payload)
		if err != nil {
			return domain.InventoryUnit{}, domain.Purchase{}, err
		}
		unit.ReservedBy = &buyerID

		logger.Info(ctx, "allocator", "buy.ok",
			slog.Int64("shop_id", shopID),
			slog.Int64("product_id", productID),
			slog.Int64("unit_id", unit.ID),
			slog.Int64("buyer_id", buyerID),
		)
		return unit, purchase, nil
	}

	logger.Warn(ctx, "allocator", "buy.exhausted",
		slog.Int64("product_id", productID),
		slog.Int64("buyer_id", buyerID),
	)
	return domain.InventoryUnit{}, domain.Purchase{}, domain.ErrOutOfStock
}
