// app is the operator CLI for stock and transfers. Without arguments it starts
// an interactive session.
//
// Usage: go run ./cmd/app [command] [args]
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"inventory-transfer/internal/adapters/cli"
	"inventory-transfer/internal/adapters/repl"
	"inventory-transfer/internal/app"
	"inventory-transfer/internal/config"
	"inventory-transfer/internal/db"
	"inventory-transfer/internal/logger"
	"inventory-transfer/internal/store/postgres"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	log := logger.New(cfg.Environment)
	defer log.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("Unable to connect to database", zap.Error(err))
		return 1
	}
	defer pool.Close()

	rt, err := app.NewRuntime(ctx, cfg, postgres.New(pool), log)
	if err != nil {
		log.Error("Unable to start", zap.Error(err))
		return 1
	}
	defer rt.Close()

	if len(os.Args) < 2 {
		repl.Run(ctx, rt.Service, bufio.NewReader(os.Stdin), os.Stdout)
		return 0
	}

	if err := cli.Run(ctx, rt.Service, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
