// Command server runs the notification prioritization core as an HTTP
// service: it wires the KV store, ClickHouse audit sink, SQS deferred
// dispatcher, hot-reloadable rules loader, and AI enricher into the
// pipeline orchestrator, then serves the gin handler until signaled to
// shut down.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Abhinay1073/cyepro-notification-engine/internal/ai"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/audit"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/clock"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/config"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/dedup"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/dispatch"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/dnd"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/fatigue"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/handler"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/kv"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/logger"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/pipeline"
	"github.com/Abhinay1073/cyepro-notification-engine/internal/rules"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Service.Environment, "notification-core")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := kv.NewValkeyStore(ctx, &cfg.Valkey, log)
	if err != nil {
		log.Fatal("failed to connect to Valkey", zap.Error(err))
	}

	chClient, err := audit.NewClient(ctx, &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal("failed to connect to ClickHouse", zap.Error(err))
	}
	defer chClient.Close()

	auditRepo := audit.NewRepository(chClient, log)

	auditWriter := audit.NewWriter(auditRepo, audit.WriterConfig{
		MaxBatchSize: cfg.ClickHouse.BatchMaxSize,
		FlushTimeout: time.Duration(cfg.ClickHouse.BatchFlushInterval) * time.Second,
		BufferSize:   cfg.ClickHouse.BatchMaxSize * 4,
	}, log)
	go auditWriter.Run(ctx)

	dispatcher, err := dispatch.NewSQSDispatcher(ctx, cfg.SQS, log)
	if err != nil {
		log.Fatal("failed to create SQS dispatcher", zap.Error(err))
	}

	rulesLoader, err := rules.NewLoader(cfg.Rules.FilePath, cfg.Rules.ReloadPeriod, log)
	if err != nil {
		log.Fatal("failed to load initial rule set", zap.Error(err))
	}
	go rulesLoader.Run(ctx)

	realClock := clock.Real{}
	dedupChecker := dedup.New(store, realClock, &cfg.Dedup, log)
	fatigueAccountant := fatigue.New(store, realClock, &cfg.Fatigue, log)
	dndGate := dnd.New(&cfg.DND)

	var enricher ai.Enricher
	if cfg.AI.Endpoint != "" {
		enricher = ai.NewHTTPEnricher(cfg.AI.Endpoint, cfg.AI.Timeout)
	} else {
		log.Warn("no AI_ENDPOINT configured, using mock enricher")
		enricher = ai.NewMock()
	}

	orchestrator := pipeline.New(
		realClock,
		dedupChecker,
		fatigueAccountant,
		rulesLoader,
		dndGate,
		enricher,
		auditWriter,
		dispatcher,
		log,
	)

	h := handler.NewHandler(orchestrator, store, auditRepo, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Service.APIPort,
		Handler: h,
	}

	go func() {
		log.Info("notification core listening", zap.String("port", cfg.Service.APIPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, draining connections")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}

	os.Exit(0)
}
