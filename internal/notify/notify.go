// Package notify delivers low-stock events outside the unit of work that produced them.
package notify

import (
	"context"

	"go.uber.org/zap"

	"inventory-transfer/internal/core"
)

// Notifier delivers one low-stock event.
type Notifier interface {
	Notify(ctx context.Context, evt core.LowStockDetected) error
}

// LogNotifier writes each event as a warning. It is the fallback when no broker is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, evt core.LowStockDetected) error {
	n.logger.Warn("Low stock detected",
		zap.String("item", evt.ItemName),
		zap.String("sku", evt.SKU),
		zap.String("warehouse", evt.WarehouseName),
		zap.Int("current_quantity", evt.AvailableQuantity),
		zap.Int("min_stock_level", evt.MinStockLevel),
		zap.Int64("stock_id", evt.StockID),
	)
	return nil
}
