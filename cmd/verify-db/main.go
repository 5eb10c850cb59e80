// verify-db applies pending schema migrations and verifies the checksums of
// those already applied.
//
// Usage: go run ./cmd/verify-db [-dir ./migrations]
package main

import (
	"context"
	"flag"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"inventory-transfer/internal/config"
	"inventory-transfer/internal/db"
	"inventory-transfer/internal/logger"
	"inventory-transfer/migrations"
)

func main() {
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	flag.Parse()

	cfg := config.Load()
	log := logger.New(cfg.Environment)
	defer log.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect", zap.Error(err))
	}
	defer pool.Close()

	var source fs.FS = migrations.FS
	if *dir != "" {
		source = os.DirFS(*dir)
	}

	if err := db.Migrate(ctx, pool, source, log); err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}
	log.Info("All migrations processed")
}
