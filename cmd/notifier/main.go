// notifier consumes low-stock events from Kafka and logs them.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"inventory-transfer/internal/config"
	"inventory-transfer/internal/logger"
	"inventory-transfer/internal/notify"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Environment)
	defer log.Sync()

	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer, err := notify.NewConsumer(cfg, notify.NewLogNotifier(log), log)
	if err != nil {
		log.Fatal("consumer", zap.Error(err))
	}
	defer consumer.Close()

	if err := consumer.Run(ctx); err != nil {
		log.Error("consumer stopped", zap.Error(err), zap.String("group", cfg.KafkaGroupID))
	}
}
