package app

import (
	"context"

	"go.uber.org/zap"

	"inventory-transfer/internal/cache"
	"inventory-transfer/internal/core"
)

// NewCacheInvalidator returns a StockObserver that retires the cached inventory view
// of the mutated warehouse once the unit of work commits.
func NewCacheInvalidator(c cache.Cache, logger *zap.Logger) core.StockObserver {
	views := cache.NewInventoryViews(c)
	return core.StockObserverFunc(func(ctx context.Context, tx core.Tx, change core.StockChange) error {
		warehouseID := change.Stock.WarehouseID
		tx.AfterCommit(func() {
			if err := views.Invalidate(context.WithoutCancel(ctx), warehouseID); err != nil {
				logger.Warn("Failed to invalidate inventory cache", zap.Int64("warehouse_id", warehouseID), zap.Error(err))
			}
		})
		return nil
	})
}
