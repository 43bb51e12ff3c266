// cmd/seeder/main.go
package main

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-campaigns/internal/config"
	"github.com/unclebandit/outreach-campaigns/internal/db"
	"github.com/unclebandit/outreach-campaigns/internal/logger"
)

var seedFiles = []string{
	"seed/schema.sql",
	"seed/campaigns.sql",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	store, err := db.Open(ctx, cfg.DSN(), 30*time.Second, log)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer store.Close()

	for _, file := range seedFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatal("failed to read seed file", zap.String("file", file), zap.Error(err))
		}
		if _, err := store.ExecContext(ctx, string(content)); err != nil {
			log.Fatal("failed to execute seed file", zap.String("file", file), zap.Error(err))
		}
		log.Info("seeded", zap.String("file", file))
	}

	log.Info("database seeding completed")
}
