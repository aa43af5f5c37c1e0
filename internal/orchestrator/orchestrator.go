package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/bricks/internal/bricks"
	"github.com/shaiso/bricks/internal/domain"
	"github.com/shaiso/bricks/internal/engine"
	"github.com/shaiso/bricks/internal/telemetry"
)

// SnapshotLoader — источник согласованных снимков functions.
//
// Снимок читается целиком одной операцией и больше не перечитывается
// во время выполнения.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, functionID uuid.UUID) (*domain.FunctionSnapshot, error)
}

// Orchestrator выполняет functions.
//
// Для каждого запуска:
//   - читает снимок function
//   - проверяет его (engine.Validate)
//   - строит порядок выполнения (engine.BuildDAG)
//   - выполняет bricks по одному, передавая выходы по connections
//   - собирает консольный вывод
//
// Запуски не разделяют изменяемого состояния и могут идти параллельно.
type Orchestrator struct {
	registry *bricks.Registry
	store    bricks.InstanceStore
	loader   SnapshotLoader

	timeout time.Duration
	logger  *slog.Logger

	// active — количество выполняющихся запусков.
	active atomic.Int64
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Registry — реестр типов bricks (default: bricks.DefaultRegistry()).
	Registry *bricks.Registry

	// Store — хранилище экземпляров баз.
	Store bricks.InstanceStore

	// Loader — источник снимков для RunFunction.
	Loader SnapshotLoader

	// Timeout — ограничение на одно выполнение (0 — без ограничения).
	Timeout time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	registry := cfg.Registry
	if registry == nil {
		registry = bricks.DefaultRegistry()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		registry: registry,
		store:    cfg.Store,
		loader:   cfg.Loader,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

// Registry возвращает реестр bricks.
func (o *Orchestrator) Registry() *bricks.Registry {
	return o.registry
}

// RunFunction загружает снимок function и выполняет его.
//
// Execution возвращается всегда, кроме ошибки загрузки снимка.
// При успехе Execution.OutputLines содержит консольный вывод.
func (o *Orchestrator) RunFunction(ctx context.Context, functionID uuid.UUID) (*domain.Execution, error) {
	if o.loader == nil {
		return nil, ErrNoSnapshotLoader
	}

	snapshot, err := o.loader.LoadSnapshot(ctx, functionID)
	if err != nil {
		return nil, fmt.Errorf("load function %s: %w", functionID, err)
	}

	return o.Execute(ctx, snapshot)
}

// Execute выполняет снимок function.
//
// Возможные ошибки:
//   - *engine.ValidationErrors — граф не прошёл проверку, ни один brick не выполнялся
//   - *BrickExecutionError — brick завершился с ошибкой
//   - ErrExecutionCancelled — контекст отменён между bricks
//
// При любой ошибке вывод отбрасывается целиком.
func (o *Orchestrator) Execute(ctx context.Context, snapshot *domain.FunctionSnapshot) (*domain.Execution, error) {
	if snapshot == nil {
		return nil, ErrFunctionNotFound
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	exec := domain.NewExecution(snapshot.Function.ID)
	logger := telemetry.WithExecutionID(
		telemetry.WithFunctionID(o.logger, snapshot.Function.ID.String()),
		exec.ID.String(),
	)

	exec.MarkRunning()
	err := o.execute(telemetry.WithLogger(ctx, logger), exec, snapshot)
	o.observe(exec)

	switch {
	case err == nil:
		logger.Info("execution succeeded",
			"bricks", len(snapshot.Bricks),
			"output_lines", len(exec.OutputLines),
			"duration", exec.Duration(),
		)
	case exec.Status == domain.ExecutionStatusCancelled:
		logger.Warn("execution cancelled", "error", err)
	default:
		logger.Warn("execution failed", "error", err)
	}

	return exec, err
}

func (o *Orchestrator) execute(ctx context.Context, exec *domain.Execution, snapshot *domain.FunctionSnapshot) error {
	logger := telemetry.FromContext(ctx)

	// 1. Проверка снимка
	if err := engine.Validate(snapshot, o.registry); err != nil {
		telemetry.ValidationFailuresTotal.Inc()
		exec.MarkFailed(err.Error(), nil)
		return err
	}

	// 2. Порядок выполнения
	dag, err := engine.BuildDAG(snapshot)
	if err != nil {
		exec.MarkFailed(err.Error(), nil)
		return fmt.Errorf("build DAG: %w", err)
	}

	state := NewExecutionContext(exec, snapshot, dag)
	o.active.Add(1)
	defer o.active.Add(-1)

	// 3. Выполнение bricks по одному
	for _, node := range dag.Order {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err := fmt.Errorf("%w: %w", ErrExecutionCancelled, ctxErr)
			exec.MarkCancelled(err.Error())
			return err
		}

		brickLogger := telemetry.WithBrickID(logger, node.ID().String(), node.Brick.Type)
		brickLogger.Debug("executing brick", "index", node.Index)

		if err := o.executeBrick(ctx, state, node); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err := fmt.Errorf("%w: %w", ErrExecutionCancelled, ctxErr)
				exec.MarkCancelled(err.Error())
				return err
			}

			brickLogger.Debug("brick failed", "error", err)
			id := node.ID()
			exec.MarkFailed(err.Error(), &id)
			return err
		}

		brickLogger.Debug("brick completed")
	}

	exec.MarkSucceeded(state.Sink.Lines())
	return nil
}

// executeBrick выполняет один brick и сохраняет его результат.
func (o *Orchestrator) executeBrick(ctx context.Context, state *ExecutionContext, node *engine.Node) error {
	brick := node.Brick
	fail := func(err error) error {
		telemetry.BrickInvocationsTotal.WithLabelValues(brick.Type, "error").Inc()
		return &BrickExecutionError{BrickID: brick.ID, BrickType: brick.Type, Err: err}
	}

	schema, ok := o.registry.Schema(brick.Type)
	if !ok {
		return fail(fmt.Errorf("%w: %s", bricks.ErrBrickTypeNotFound, brick.Type))
	}
	impl, err := o.registry.Get(brick.Type)
	if err != nil {
		return fail(err)
	}

	inputs, err := state.ResolveInputs(node, schema)
	if err != nil {
		return fail(err)
	}

	req := bricks.NewRequest(brick, state.Snapshot.Function.ProjectID, inputs, o.store)
	resp, err := impl.Execute(ctx, req)
	if err != nil {
		return fail(err)
	}
	if resp == nil {
		resp = bricks.NewResponse(nil)
	}

	state.SetOutputs(brick.ID, schema, resp.Outputs)
	state.Sink.Append(resp.Logs...)
	telemetry.BrickInvocationsTotal.WithLabelValues(brick.Type, "ok").Inc()
	return nil
}

// observe записывает метрики завершённого выполнения.
func (o *Orchestrator) observe(exec *domain.Execution) {
	status := exec.Status.String()
	telemetry.ExecutionsTotal.WithLabelValues(status).Inc()
	telemetry.ExecutionDuration.WithLabelValues(status).Observe(exec.Duration().Seconds())
}

// ActiveCount возвращает количество выполняющихся запусков.
// Отдаётся в /metrics как bricks_active_executions.
func (o *Orchestrator) ActiveCount() int {
	return int(o.active.Load())
}

// IsBrickFailure проверяет, завершилось ли выполнение ошибкой brick.
func IsBrickFailure(err error) (*BrickExecutionError, bool) {
	var be *BrickExecutionError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
