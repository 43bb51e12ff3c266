// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-campaigns/internal/ai"
	"github.com/unclebandit/outreach-campaigns/internal/config"
	"github.com/unclebandit/outreach-campaigns/internal/controller"
	"github.com/unclebandit/outreach-campaigns/internal/db"
	"github.com/unclebandit/outreach-campaigns/internal/handler"
	"github.com/unclebandit/outreach-campaigns/internal/logger"
	"github.com/unclebandit/outreach-campaigns/internal/metrics"
	"github.com/unclebandit/outreach-campaigns/internal/queue"
	"github.com/unclebandit/outreach-campaigns/internal/repository"
	"github.com/unclebandit/outreach-campaigns/internal/service"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ------------------------------------------------
	// Database
	// ------------------------------------------------
	store, err := db.Open(ctx, cfg.DSN(), 30*time.Second, log)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer store.Close()

	campaignRepo := &repository.CampaignRepository{DB: store}
	stepRepo := &repository.StepRepository{DB: store}
	candidateRepo := &repository.CandidateRepository{DB: store}

	// ------------------------------------------------
	// Queue: RabbitMQ when configured, otherwise an in-process worker
	// ------------------------------------------------
	var q queue.Queue
	if cfg.AMQPURL != "" {
		aq, err := queue.DialAMQP(cfg.AMQPURL, 30*time.Second, log)
		if err != nil {
			log.Fatal("rabbitmq connection failed", zap.Error(err))
		}
		defer aq.Close()
		q = aq
	} else {
		mq := queue.NewInMemoryQueue(log)
		if err := service.NewLinkWorker(candidateRepo, log).Start(mq); err != nil {
			log.Fatal("failed to start link worker", zap.Error(err))
		}
		q = mq
		log.Info("AMQP_URL not set, linking candidates in-process")
	}

	// ------------------------------------------------
	// Metrics
	// ------------------------------------------------
	metrics.Init()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: metricsMux}

	go func() {
		log.Info("metrics server started", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("metrics server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Services
	// ------------------------------------------------
	llm := ai.NewClient(ai.Config{APIKey: cfg.OpenAIKey, Model: cfg.OpenAIModel, RPS: cfg.OpenAIRPS}, log)
	if cfg.OpenAIKey == "" {
		log.Warn("OPENAI_API_KEY not set, sequence generation will fail")
	}

	campaignService := service.NewCampaignService(campaignRepo, stepRepo, &service.QueueLinker{Queue: q}, log)

	minHold, maxHold := cfg.StageHolds()
	deps := service.LifecycleDeps{
		Generator:     &ai.SequenceWriter{LLM: llm},
		Namer:         &ai.CampaignNamer{LLM: llm},
		Saver:         campaignService,
		Log:           log,
		MinStageHold:  minHold,
		MaxStageHold:  maxHold,
		FollowUpDelay: cfg.FollowUpDelay,
	}

	drafts := service.NewDraftRegistry()
	drafts.IdleTTL = cfg.DraftIdleTTL
	drafts.SavedTTL = cfg.DraftSavedTTL
	go drafts.Run(ctx, cfg.DraftSweepInterval, log)

	router := controller.NewRouter(
		controller.NewDraftController(drafts, campaignService, deps, log),
		controller.NewCampaignController(campaignService, log),
		handler.NewCampaignHandler(campaignService, log),
	)

	apiServer := &http.Server{Addr: ":" + cfg.APIPort, Handler: router}

	go func() {
		log.Info("api server started", zap.String("port", cfg.APIPort))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("api server error", zap.Error(err))
		}
	}()

	// ------------------------------------------------
	// Wait for shutdown
	// ------------------------------------------------
	<-ctx.Done()
	log.Info("shutting down services...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error("api shutdown failed", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("metrics shutdown failed", zap.Error(err))
	}
	// The in-memory queue is drained here only, bounded by the shutdown timeout.
	if mq, ok := q.(*queue.InMemoryQueue); ok {
		if err := mq.Drain(shutdownCtx); err != nil {
			log.Warn("link jobs still running at shutdown", zap.Error(err))
		}
	}

	log.Info("application shutdown complete")
}
