package app

import (
	"context"

	"go.uber.org/zap"

	"inventory-transfer/internal/cache"
	"inventory-transfer/internal/config"
	"inventory-transfer/internal/core"
	"inventory-transfer/internal/metrics"
	"inventory-transfer/internal/notify"
)

// Runtime is a fully wired ApplicationService together with the background
// pieces a binary must start and stop.
type Runtime struct {
	Service    ApplicationService
	Metrics    *metrics.Metrics
	Dispatcher *notify.Dispatcher

	closers []func() error
	logger  *zap.Logger
}

// NewRuntime wires the ledger observers, the low-stock dispatcher and the read
// cache around store. Kafka is used when brokers are configured, otherwise
// low-stock events are logged. The dispatcher is started with ctx.
func NewRuntime(ctx context.Context, cfg *config.Config, store core.Store, logger *zap.Logger) (*Runtime, error) {
	rt := &Runtime{Metrics: metrics.New(), logger: logger}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if len(cfg.KafkaBrokers) > 0 {
		kn, err := notify.NewKafkaNotifier(cfg, logger)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, kn.Close)
		notifier = kn
		logger.Info("Low-stock events publish to Kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopicLowStock))
	}

	rt.Dispatcher = notify.NewDispatcher(notifier, logger, cfg.NotifyWorkers, cfg.NotifyQueueSize).
		WithRecorder(rt.Metrics).
		WithEnqueueTimeout(cfg.NotifyEnqueueTimeout)
	rt.Dispatcher.Start(ctx)

	c := cache.New(cfg, logger)
	if closer, ok := c.(interface{ Close() error }); ok {
		rt.closers = append(rt.closers, closer.Close)
	}

	ledger := core.NewLedger(store, core.Observers{
		core.NewLowStockMonitor(rt.Dispatcher),
		rt.Metrics,
		NewCacheInvalidator(c, logger),
	})

	rt.Service = NewAppService(Deps{
		Transfers: core.NewTransferService(store, ledger),
		Ledger:    ledger,
		Inventory: core.NewInventoryService(store),
		Users:     core.NewUserService(store),
		Cache:     c,
		CacheTTL:  cfg.CacheTTL,
		Recorder:  rt.Metrics,
		Logger:    logger,
	})
	return rt, nil
}

// Close drains pending low-stock events before releasing the notifier and cache.
func (rt *Runtime) Close() {
	rt.Dispatcher.Close()
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.logger.Warn("Failed to close runtime dependency", zap.Error(err))
		}
	}
}
