// Bricks API — HTTP сервер редактора functions.
//
// API:
//   - хранит functions и их графы в PostgreSQL
//   - проверяет каждое изменение графа
//   - выполняет functions синхронно (POST /run)
//   - ставит выполнение в очередь RabbitMQ (POST /runs), если брокер доступен
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/bricks/internal/api"
	"github.com/shaiso/bricks/internal/bricks"
	"github.com/shaiso/bricks/internal/config"
	"github.com/shaiso/bricks/internal/mq"
	"github.com/shaiso/bricks/internal/orchestrator"
	"github.com/shaiso/bricks/internal/repo"
	"github.com/shaiso/bricks/internal/telemetry"
)

var startTime = time.Now()

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting bricks-api")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных
	pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	functionRepo := repo.NewFunctionRepo(pool)
	instanceRepo := repo.NewInstanceRepo(pool)
	registry := bricks.DefaultRegistry()

	orch := orchestrator.New(orchestrator.Config{
		Registry: registry,
		Store:    instanceRepo,
		Loader:   functionRepo,
		Timeout:  cfg.RunTimeout,
		Logger:   logger,
	})
	telemetry.RegisterActiveExecutions(orch.ActiveCount)

	handlerCfg := api.Config{
		Functions: functionRepo,
		Databases: instanceRepo,
		Registry:  registry,
		Runner:    orch,
		Logger:    logger,
	}

	// RabbitMQ опционален: без него работает только синхронный запуск
	mqConn, err := mq.NewConnection(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, async runs disabled", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		handlerCfg.Publisher = mq.NewPublisher(mqConn, logger)
		logger.Info("RabbitMQ connected")
	}

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := pool.Ping(context.Background()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	api.NewHandler(handlerCfg).RegisterRoutes(mux)

	addr := ":" + cfg.APIPort
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown: даём текущим запускам завершиться
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.RunTimeout+5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
