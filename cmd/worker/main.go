package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-campaigns/internal/config"
	"github.com/unclebandit/outreach-campaigns/internal/db"
	"github.com/unclebandit/outreach-campaigns/internal/logger"
	"github.com/unclebandit/outreach-campaigns/internal/queue"
	"github.com/unclebandit/outreach-campaigns/internal/repository"
	"github.com/unclebandit/outreach-campaigns/internal/service"
)

// The worker consumes candidate link jobs published by the server when it
// runs with AMQP_URL set.
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

	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(ctx, cfg.DSN(), 30*time.Second, log)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer store.Close()

	q, err := queue.DialAMQP(cfg.AMQPURL, time.Minute, log)
	if err != nil {
		log.Fatal("rabbitmq connection failed", zap.Error(err))
	}
	defer q.Close()

	w := service.NewLinkWorker(&repository.CandidateRepository{DB: store}, log)
	if err := w.Start(q); err != nil {
		log.Fatal("failed to register consumer", zap.Error(err))
	}

	log.Info("worker running, waiting for messages...", zap.String("topic", queue.TopicCandidateLinks))
	<-ctx.Done()
	log.Info("worker stopped")
}
