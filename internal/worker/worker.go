package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/shaiso/bricks/internal/domain"
	"github.com/shaiso/bricks/internal/mq"
	"github.com/shaiso/bricks/internal/orchestrator"
	"github.com/shaiso/bricks/internal/repo"
	"github.com/shaiso/bricks/internal/telemetry"
)

// defaultPrefetch — сколько запросов обрабатывается одновременно.
const defaultPrefetch = 1

// Runner выполняет function (orchestrator.Orchestrator).
type Runner interface {
	RunFunction(ctx context.Context, functionID uuid.UUID) (*domain.Execution, error)
}

// FinishedPublisher публикует итог выполнения (mq.Publisher).
type FinishedPublisher interface {
	PublishRunFinished(ctx context.Context, payload mq.RunFinishedPayload) error
}

// Worker выполняет functions по запросам из runs.requested.
type Worker struct {
	runner    Runner
	publisher FinishedPublisher
	conn      *mq.Connection

	consumers []*mq.Consumer
	prefetch  int

	inFlight  atomic.Int64
	processed atomic.Int64

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    atomic.Bool
}

// Config — конфигурация Worker.
type Config struct {
	// Runner — исполнитель functions.
	Runner Runner

	// Publisher — получатель событий run.finished.
	Publisher FinishedPublisher

	// Conn — соединение с RabbitMQ для consumer.
	Conn *mq.Connection

	// Prefetch — параллельность обработки (default: 1).
	Prefetch int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		runner:    cfg.Runner,
		publisher: cfg.Publisher,
		conn:      cfg.Conn,
		prefetch:  prefetch,
		logger:    logger,
	}
}

// Start запускает consumer очереди runs.requested и сразу возвращается.
func (w *Worker) Start(ctx context.Context) error {
	if w.conn == nil {
		return errors.New("worker requires an amqp connection")
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker", "prefetch", w.prefetch)

	// Consumer обрабатывает сообщения по одному,
	// параллельность даёт число consumers.
	for i := 0; i < w.prefetch; i++ {
		consumer := mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    mq.QueueRunsRequested,
			Handler:  w.handleRunRequested,
			Prefetch: 1,
		})
		w.consumers = append(w.consumers, consumer)

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("run consumer error", "error", err)
			}
		}()
	}

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и ждёт завершения текущих выполнений.
func (w *Worker) Stop() {
	w.stopped.Store(true)
	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	for _, c := range w.consumers {
		c.Stop()
	}

	w.wg.Wait()
	w.logger.Info("worker stopped", "processed", w.processed.Load())
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	return w.stopped.Load()
}

// InFlight возвращает количество выполняющихся сейчас запросов.
func (w *Worker) InFlight() int64 {
	return w.inFlight.Load()
}

// Processed возвращает количество обработанных запросов.
func (w *Worker) Processed() int64 {
	return w.processed.Load()
}

// handleRunRequested обрабатывает одно сообщение run.requested.
func (w *Worker) handleRunRequested(ctx context.Context, delivery *mq.Delivery) error {
	req, err := mq.ParsePayload[mq.RunRequestedPayload](&delivery.Message)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if req.FunctionID == uuid.Nil {
		return fmt.Errorf("%w: function_id is required", ErrInvalidRequest)
	}

	return w.process(ctx, req)
}

// process выполняет function и публикует итог.
func (w *Worker) process(ctx context.Context, req mq.RunRequestedPayload) error {
	logger := telemetry.WithFunctionID(w.logger, req.FunctionID.String()).With("request_id", req.RequestID)

	w.inFlight.Add(1)
	defer w.inFlight.Add(-1)

	logger.Info("run request received")

	exec, runErr := w.runner.RunFunction(telemetry.WithLogger(ctx, logger), req.FunctionID)

	// Остановка воркера: запрос вернётся в очередь для другого экземпляра
	if ctx.Err() != nil {
		telemetry.RunRequestsTotal.WithLabelValues("requeued").Inc()
		return fmt.Errorf("%w: %w: %w", mq.ErrRetry, ErrWorkerStopped, ctx.Err())
	}

	if exec == nil && runErr != nil && !isMissingFunction(runErr) {
		// Снимок не прочитан по инфраструктурной причине
		telemetry.RunRequestsTotal.WithLabelValues("requeued").Inc()
		return fmt.Errorf("%w: %w", mq.ErrRetry, runErr)
	}

	payload := mq.RunFinishedFromExecution(req, exec, runErr)
	if err := w.publisher.PublishRunFinished(ctx, payload); err != nil {
		telemetry.RunRequestsTotal.WithLabelValues("requeued").Inc()
		return fmt.Errorf("%w: publish run.finished: %w", mq.ErrRetry, err)
	}

	w.processed.Add(1)
	telemetry.RunRequestsTotal.WithLabelValues(payload.Status.String()).Inc()
	logger.Info("run request finished",
		"status", payload.Status,
		"output_lines", len(payload.OutputLines),
	)
	return nil
}

func isMissingFunction(err error) bool {
	return errors.Is(err, repo.ErrNotFound) || errors.Is(err, orchestrator.ErrFunctionNotFound)
}
