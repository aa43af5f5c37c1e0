// Bricks Worker — выполняет functions по запросам из очереди.
//
// Worker:
//   - получает run.requested из очереди runs.requested
//   - читает снимок function из PostgreSQL и выполняет его
//   - публикует run.finished с консольным выводом или ошибкой
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/bricks/internal/bricks"
	"github.com/shaiso/bricks/internal/config"
	"github.com/shaiso/bricks/internal/mq"
	"github.com/shaiso/bricks/internal/orchestrator"
	"github.com/shaiso/bricks/internal/repo"
	"github.com/shaiso/bricks/internal/telemetry"
	"github.com/shaiso/bricks/internal/worker"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting bricks-worker")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	// Без брокера worker бесполезен
	mqConn, err := mq.NewConnection(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}
	logger.Info("RabbitMQ connected", "topology", mq.TopologyInfo())

	orch := orchestrator.New(orchestrator.Config{
		Registry: bricks.DefaultRegistry(),
		Store:    repo.NewInstanceRepo(pool),
		Loader:   repo.NewFunctionRepo(pool),
		Timeout:  cfg.RunTimeout,
		Logger:   logger,
	})
	telemetry.RegisterActiveExecutions(orch.ActiveCount)

	w := worker.New(worker.Config{
		Runner:    orch,
		Publisher: mq.NewPublisher(mqConn, logger),
		Conn:      mqConn,
		Prefetch:  cfg.WorkerPrefetch,
		Logger:    logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		if w.IsStopped() || !mqConn.IsConnected() {
			http.Error(rw, "not ready", http.StatusServiceUnavailable)
			return
		}
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + cfg.WorkerPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	// Сначала worker: незавершённые запросы вернутся в очередь
	w.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	logger.Info("bricks-worker stopped", "processed", w.Processed())
}
