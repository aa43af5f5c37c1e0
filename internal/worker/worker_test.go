package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/bricks/internal/bricks"
	"github.com/shaiso/bricks/internal/domain"
	"github.com/shaiso/bricks/internal/engine"
	"github.com/shaiso/bricks/internal/mq"
	"github.com/shaiso/bricks/internal/orchestrator"
	"github.com/shaiso/bricks/internal/repo"
)

type recordingPublisher struct {
	mu       sync.Mutex
	finished []mq.RunFinishedPayload
	err      error
}

func (p *recordingPublisher) PublishRunFinished(_ context.Context, payload mq.RunFinishedPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.finished = append(p.finished, payload)
	return nil
}

type runnerFunc func(ctx context.Context, id uuid.UUID) (*domain.Execution, error)

func (f runnerFunc) RunFunction(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	return f(ctx, id)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture собирает worker поверх настоящего оркестратора и MemoryStore.
func newFixture(t *testing.T) (*Worker, *recordingPublisher, *repo.MemoryStore, uuid.UUID) {
	t.Helper()

	store := repo.NewMemoryStore()
	project := uuid.New()
	_, err := store.AddDatabase(project, "default database", nil)
	require.NoError(t, err)

	registry := bricks.DefaultRegistry()
	g := engine.NewGraph(&domain.FunctionSnapshot{
		Function: domain.Function{ID: uuid.New(), ProjectID: project, Name: "f"},
	}, registry)

	list, err := g.AddBrick(bricks.BrickTypeListInstances, map[string]any{bricks.ConfigDatabaseName: "default database"}, domain.Position{})
	require.NoError(t, err)
	first, err := g.AddBrick(bricks.BrickTypeGetFirstInstance, nil, domain.Position{})
	require.NoError(t, err)
	log, err := g.AddBrick(bricks.BrickTypeLogInstanceProperties, nil, domain.Position{})
	require.NoError(t, err)
	_, err = g.Connect(list.ID, "instances", first.ID, "instances")
	require.NoError(t, err)
	_, err = g.Connect(first.ID, "instance", log.ID, "object")
	require.NoError(t, err)
	store.SaveSnapshot(g.Snapshot())

	pub := &recordingPublisher{}
	w := New(Config{
		Runner: orchestrator.New(orchestrator.Config{
			Registry: registry,
			Store:    store,
			Loader:   store,
			Logger:   discardLogger(),
		}),
		Publisher: pub,
		Logger:    discardLogger(),
	})
	return w, pub, store, g.Function().ID
}

func deliveryFor(t *testing.T, payload any) *mq.Delivery {
	t.Helper()
	// Конверт проходит JSON как в очереди
	body, err := json.Marshal(mq.NewMessage(mq.MessageTypeRunRequested, payload))
	require.NoError(t, err)
	var msg mq.Message
	require.NoError(t, json.Unmarshal(body, &msg))
	return &mq.Delivery{Message: msg}
}

func TestHandleRunRequested_Succeeded(t *testing.T) {
	w, pub, store, fnID := newFixture(t)
	snap, _ := store.LoadSnapshot(context.Background(), fnID)
	_, err := store.AddInstance(snap.Function.ProjectID, "default database", map[string]string{"value": "X"})
	require.NoError(t, err)

	req := mq.RunRequestedPayload{RequestID: uuid.New(), FunctionID: fnID}
	require.NoError(t, w.handleRunRequested(context.Background(), deliveryFor(t, req)))

	require.Len(t, pub.finished, 1)
	got := pub.finished[0]
	assert.Equal(t, req.RequestID, got.RequestID)
	assert.Equal(t, fnID, got.FunctionID)
	assert.Equal(t, domain.ExecutionStatusSucceeded, got.Status)
	assert.Equal(t, []string{`{"value":"X"}`}, got.OutputLines)
	assert.Nil(t, got.FailedBrickID)
	assert.EqualValues(t, 1, w.Processed())
	assert.Zero(t, w.InFlight())
}

func TestHandleRunRequested_BrickFailure(t *testing.T) {
	w, pub, store, fnID := newFixture(t)
	snap, _ := store.LoadSnapshot(context.Background(), fnID)

	req := mq.RunRequestedPayload{RequestID: uuid.New(), FunctionID: fnID}
	require.NoError(t, w.handleRunRequested(context.Background(), deliveryFor(t, req)))

	require.Len(t, pub.finished, 1)
	got := pub.finished[0]
	assert.Equal(t, domain.ExecutionStatusFailed, got.Status)
	assert.Empty(t, got.OutputLines)
	require.NotNil(t, got.FailedBrickID)
	// Пустая база: падает get_first_instance
	assert.Equal(t, snap.Bricks[1].ID, *got.FailedBrickID)
}

func TestHandleRunRequested_MissingFunction(t *testing.T) {
	w, pub, _, _ := newFixture(t)

	req := mq.RunRequestedPayload{RequestID: uuid.New(), FunctionID: uuid.New()}
	require.NoError(t, w.handleRunRequested(context.Background(), deliveryFor(t, req)))

	require.Len(t, pub.finished, 1)
	assert.Equal(t, domain.ExecutionStatusFailed, pub.finished[0].Status)
	assert.Contains(t, pub.finished[0].Error, "not found")
}

func TestHandleRunRequested_InvalidPayload(t *testing.T) {
	w, pub, _, _ := newFixture(t)

	err := w.handleRunRequested(context.Background(), deliveryFor(t, map[string]any{"request_id": uuid.New()}))
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.NotErrorIs(t, err, mq.ErrRetry)

	err = w.handleRunRequested(context.Background(), deliveryFor(t, map[string]any{"function_id": 42}))
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, pub.finished)
}

func TestHandleRunRequested_Retry(t *testing.T) {
	req := mq.RunRequestedPayload{RequestID: uuid.New(), FunctionID: uuid.New()}

	t.Run("store unavailable", func(t *testing.T) {
		pub := &recordingPublisher{}
		w := New(Config{
			Runner: runnerFunc(func(context.Context, uuid.UUID) (*domain.Execution, error) {
				return nil, errors.New("connection refused")
			}),
			Publisher: pub,
			Logger:    discardLogger(),
		})

		err := w.handleRunRequested(context.Background(), deliveryFor(t, req))
		assert.ErrorIs(t, err, mq.ErrRetry)
		assert.Empty(t, pub.finished)
	})

	t.Run("publish failed", func(t *testing.T) {
		w, pub, _, _ := newFixture(t)
		pub.err = errors.New("no channel")

		err := w.handleRunRequested(context.Background(), deliveryFor(t, req))
		assert.ErrorIs(t, err, mq.ErrRetry)
		assert.Zero(t, w.Processed())
	})

	t.Run("worker stopping", func(t *testing.T) {
		pub := &recordingPublisher{}
		ctx, cancel := context.WithCancel(context.Background())
		w := New(Config{
			Runner: runnerFunc(func(context.Context, uuid.UUID) (*domain.Execution, error) {
				cancel()
				exec := domain.NewExecution(req.FunctionID)
				exec.MarkCancelled("execution cancelled")
				return exec, orchestrator.ErrExecutionCancelled
			}),
			Publisher: pub,
			Logger:    discardLogger(),
		})

		err := w.handleRunRequested(ctx, deliveryFor(t, req))
		assert.ErrorIs(t, err, mq.ErrRetry)
		assert.ErrorIs(t, err, ErrWorkerStopped)
		assert.Empty(t, pub.finished)
	})
}

func TestStart_RequiresConnection(t *testing.T) {
	w := New(Config{Logger: discardLogger()})
	assert.Error(t, w.Start(context.Background()))
	assert.False(t, w.IsStopped())

	w.Stop()
	assert.True(t, w.IsStopped())
}
