package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/bricks/internal/bricks"
	"github.com/shaiso/bricks/internal/domain"
	"github.com/shaiso/bricks/internal/engine"
	"github.com/shaiso/bricks/internal/repo"
)

// fixture — проект с базой "default database" и function list → first → log.
type fixture struct {
	store    *repo.MemoryStore
	registry *bricks.Registry
	orch     *Orchestrator
	project  uuid.UUID
}

func newFixture(t *testing.T, values ...string) *fixture {
	t.Helper()

	f := &fixture{
		store:    repo.NewMemoryStore(),
		registry: bricks.DefaultRegistry(),
		project:  uuid.New(),
	}
	_, err := f.store.AddDatabase(f.project, "default database", []domain.Property{{Name: "value", Type: "string"}})
	require.NoError(t, err)
	for _, v := range values {
		_, err := f.store.AddInstance(f.project, "default database", map[string]string{"value": v})
		require.NoError(t, err)
	}

	f.orch = New(Config{
		Registry: f.registry,
		Store:    f.store,
		Loader:   f.store,
	})
	return f
}

func (f *fixture) newGraph() *engine.Graph {
	return engine.NewGraph(&domain.FunctionSnapshot{
		Function: domain.Function{ID: uuid.New(), ProjectID: f.project, Name: "test"},
	}, f.registry)
}

// pipeline строит ListInstances(dbName) → GetFirstInstance → LogInstanceProps.
func (f *fixture) pipeline(t *testing.T, dbName string) (*domain.FunctionSnapshot, [3]uuid.UUID) {
	t.Helper()
	g := f.newGraph()

	list, err := g.AddBrick(bricks.BrickTypeListInstances, map[string]any{bricks.ConfigDatabaseName: dbName}, domain.Position{})
	require.NoError(t, err)
	first, err := g.AddBrick(bricks.BrickTypeGetFirstInstance, nil, domain.Position{X: 100})
	require.NoError(t, err)
	log, err := g.AddBrick(bricks.BrickTypeLogInstanceProperties, nil, domain.Position{X: 200})
	require.NoError(t, err)

	_, err = g.Connect(list.ID, "instances", first.ID, "instances")
	require.NoError(t, err)
	_, err = g.Connect(first.ID, "instance", log.ID, "object")
	require.NoError(t, err)

	snap := g.Snapshot()
	f.store.SaveSnapshot(snap)
	return snap, [3]uuid.UUID{list.ID, first.ID, log.ID}
}

func TestRunFunction_LogsFirstInstance(t *testing.T) {
	f := newFixture(t, "X", "Y")
	snap, _ := f.pipeline(t, "default database")

	exec, err := f.orch.RunFunction(context.Background(), snap.Function.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.ExecutionStatusSucceeded, exec.Status)
	assert.Equal(t, snap.Function.ID, exec.FunctionID)
	if diff := cmp.Diff([]string{`{"value":"X"}`}, exec.OutputLines); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, exec.FailedBrickID)
	assert.Equal(t, 0, f.orch.ActiveCount())
}

func TestRunFunction_UnknownDatabaseFailsListBrick(t *testing.T) {
	f := newFixture(t, "X")
	snap, ids := f.pipeline(t, "no such database")

	exec, err := f.orch.RunFunction(context.Background(), snap.Function.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDatabaseNotFound)

	be, ok := IsBrickFailure(err)
	require.True(t, ok)
	assert.Equal(t, ids[0], be.BrickID)
	assert.Equal(t, bricks.BrickTypeListInstances, be.BrickType)

	assert.Equal(t, domain.ExecutionStatusFailed, exec.Status)
	assert.Empty(t, exec.OutputLines)
	require.NotNil(t, exec.FailedBrickID)
	assert.Equal(t, ids[0], *exec.FailedBrickID)
}

func TestRunFunction_EmptyDatabaseFailsFirstBrick(t *testing.T) {
	f := newFixture(t)
	snap, ids := f.pipeline(t, "default database")

	exec, err := f.orch.RunFunction(context.Background(), snap.Function.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, bricks.ErrEmptyList)

	be, ok := IsBrickFailure(err)
	require.True(t, ok)
	assert.Equal(t, ids[1], be.BrickID)

	assert.Equal(t, domain.ExecutionStatusFailed, exec.Status)
	assert.Empty(t, exec.OutputLines)
}

func TestConnect_ListToObjectRejected(t *testing.T) {
	f := newFixture(t, "X")
	g := f.newGraph()

	list, err := g.AddBrick(bricks.BrickTypeListInstances, map[string]any{bricks.ConfigDatabaseName: "default database"}, domain.Position{})
	require.NoError(t, err)
	log, err := g.AddBrick(bricks.BrickTypeLogInstanceProperties, nil, domain.Position{})
	require.NoError(t, err)

	_, err = g.Connect(list.ID, "instances", log.ID, "object")
	assert.ErrorIs(t, err, engine.ErrIncompatibleTypes)
	assert.Empty(t, g.Snapshot().Connections)
}

func TestExecute_ValidationFailureRunsNothing(t *testing.T) {
	f := newFixture(t, "X")
	g := f.newGraph()

	// log без входа: проверка должна остановить выполнение до вызова bricks
	_, err := g.AddBrick(bricks.BrickTypeLogText, nil, domain.Position{})
	require.NoError(t, err)

	counter := &countingBrick{}
	f.registry.MustRegister(countingSchema(), counter)
	_, err = g.AddBrick(counter.Type(), nil, domain.Position{})
	require.NoError(t, err)

	exec, err := f.orch.Execute(context.Background(), g.Snapshot())
	require.Error(t, err)

	var verrs *engine.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.True(t, verrs.Has(engine.ErrMissingRequiredInput))
	assert.Equal(t, domain.ExecutionStatusFailed, exec.Status)
	assert.Equal(t, 0, counter.calls, "no brick may run when validation fails")
}

func TestExecute_FormatAndLogText(t *testing.T) {
	f := newFixture(t, "X", "Y")
	g := f.newGraph()

	list, _ := g.AddBrick(bricks.BrickTypeListInstances, map[string]any{bricks.ConfigDatabaseName: "default database"}, domain.Position{})
	first, _ := g.AddBrick(bricks.BrickTypeGetFirstInstance, nil, domain.Position{})
	format, err := g.AddBrick(bricks.BrickTypeFormatInstance, map[string]any{bricks.ConfigTemplate: "value={{ .Values.value }}"}, domain.Position{})
	require.NoError(t, err)
	logText, _ := g.AddBrick(bricks.BrickTypeLogText, nil, domain.Position{})
	logProps, _ := g.AddBrick(bricks.BrickTypeLogInstanceProperties, nil, domain.Position{})

	_, err = g.Connect(list.ID, "instances", first.ID, "instances")
	require.NoError(t, err)
	_, err = g.Connect(first.ID, "instance", format.ID, "object")
	require.NoError(t, err)
	_, err = g.Connect(format.ID, "text", logText.ID, "text")
	require.NoError(t, err)
	// Выход instance раздаётся на два входа
	_, err = g.Connect(first.ID, "instance", logProps.ID, "object")
	require.NoError(t, err)

	exec, err := f.orch.Execute(context.Background(), g.Snapshot())
	require.NoError(t, err)

	// Порядок: list, first, format, logText, logProps (по порядку добавления среди готовых)
	if diff := cmp.Diff([]string{"value=X", `{"value":"X"}`}, exec.OutputLines); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_Deterministic(t *testing.T) {
	f := newFixture(t, "X", "Y")
	snap, _ := f.pipeline(t, "default database")

	var outputs [][]string
	for i := 0; i < 5; i++ {
		exec, err := f.orch.Execute(context.Background(), snap)
		require.NoError(t, err)
		outputs = append(outputs, exec.OutputLines)
	}
	for _, out := range outputs[1:] {
		assert.Equal(t, outputs[0], out)
	}
}

func TestExecute_Cancelled(t *testing.T) {
	f := newFixture(t, "X")
	snap, _ := f.pipeline(t, "default database")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec, err := f.orch.Execute(ctx, snap)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecutionCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.ExecutionStatusCancelled, exec.Status)
	assert.Empty(t, exec.OutputLines)
}

func TestExecute_CancelledMidRun(t *testing.T) {
	f := newFixture(t, "X")
	g := f.newGraph()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	canceller := &countingBrick{onExecute: cancel}
	f.registry.MustRegister(countingSchema(), canceller)

	_, err := g.AddBrick(canceller.Type(), nil, domain.Position{})
	require.NoError(t, err)
	_, err = g.AddBrick(canceller.Type(), nil, domain.Position{})
	require.NoError(t, err)

	exec, err := f.orch.Execute(ctx, g.Snapshot())
	assert.ErrorIs(t, err, ErrExecutionCancelled)
	assert.Equal(t, domain.ExecutionStatusCancelled, exec.Status)
	assert.Equal(t, 1, canceller.calls, "second brick must not start after cancellation")
}

func TestExecute_ActiveCount(t *testing.T) {
	f := newFixture(t)
	g := f.newGraph()

	var during []int
	counter := &countingBrick{}
	counter.onExecute = func() { during = append(during, f.orch.ActiveCount()) }
	f.registry.MustRegister(countingSchema(), counter)
	_, err := g.AddBrick(counter.Type(), nil, domain.Position{})
	require.NoError(t, err)

	_, err = f.orch.Execute(context.Background(), g.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, during)
	assert.Equal(t, 0, f.orch.ActiveCount())

	// Отменённый запуск тоже снимается со счётчика
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	counter.onExecute = cancel
	_, err = g.AddBrick(counter.Type(), nil, domain.Position{})
	require.NoError(t, err)

	_, err = f.orch.Execute(ctx, g.Snapshot())
	assert.ErrorIs(t, err, ErrExecutionCancelled)
	assert.Equal(t, 0, f.orch.ActiveCount())
}

func TestExecute_Timeout(t *testing.T) {
	f := newFixture(t, "X")
	f.orch = New(Config{Registry: f.registry, Store: f.store, Timeout: time.Nanosecond})
	snap, _ := f.pipeline(t, "default database")

	_, err := f.orch.Execute(context.Background(), snap)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunFunction_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.RunFunction(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestRunFunction_NoLoader(t *testing.T) {
	orch := New(Config{})
	_, err := orch.RunFunction(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNoSnapshotLoader)
}

func TestRunFunction_UsesSingleSnapshot(t *testing.T) {
	f := newFixture(t, "X", "Y")
	snap, _ := f.pipeline(t, "default database")

	// Сохранённый граф меняется после загрузки: выполнение не должно это заметить
	loader := &mutatingLoader{store: f.store}
	orch := New(Config{Registry: f.registry, Store: f.store, Loader: loader})

	exec, err := orch.RunFunction(context.Background(), snap.Function.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{`{"value":"X"}`}, exec.OutputLines)
	assert.Equal(t, 1, loader.loads)
}

func TestExecutionContext_ResolveInputs(t *testing.T) {
	f := newFixture(t, "X")
	snap, ids := f.pipeline(t, "default database")

	dag, err := engine.BuildDAG(snap)
	require.NoError(t, err)
	state := NewExecutionContext(domain.NewExecution(snap.Function.ID), snap, dag)

	listSchema, _ := f.registry.Schema(bricks.BrickTypeListInstances)
	inputs, err := state.ResolveInputs(dag.GetNode(ids[0]), listSchema)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"database": "default database"}, inputs)

	firstSchema, _ := f.registry.Schema(bricks.BrickTypeGetFirstInstance)
	_, err = state.ResolveInputs(dag.GetNode(ids[1]), firstSchema)
	assert.ErrorIs(t, err, ErrOutputNotProduced)

	state.SetOutputs(ids[0], listSchema, map[string]any{"instances": []domain.Instance{}, "junk": 1})
	inputs, err = state.ResolveInputs(dag.GetNode(ids[1]), firstSchema)
	require.NoError(t, err)
	assert.Equal(t, []domain.Instance{}, inputs["instances"])

	_, ok := state.Output(ids[0], "junk")
	assert.False(t, ok, "undeclared outputs are dropped")
}

func TestOutputSink(t *testing.T) {
	s := NewOutputSink()
	s.Append("a")
	s.Append("b", "c")
	assert.Equal(t, []string{"a", "b", "c"}, s.Lines())

	lines := s.Lines()
	lines[0] = "changed"
	assert.Equal(t, "a", s.Lines()[0])
	assert.Equal(t, 3, s.Len())
}

// --- test doubles ---

func countingSchema() engine.BrickSchema {
	return engine.BrickSchema{Type: "counting"}
}

// countingBrick считает вызовы и выполняет onExecute.
type countingBrick struct {
	calls     int
	onExecute func()
}

func (b *countingBrick) Type() string      { return "counting" }
func (b *countingBrick) Inputs() []string  { return nil }
func (b *countingBrick) Outputs() []string { return nil }

func (b *countingBrick) Execute(_ context.Context, _ *bricks.Request) (*bricks.Response, error) {
	b.calls++
	if b.onExecute != nil {
		b.onExecute()
	}
	return bricks.NewResponse(nil), nil
}

// mutatingLoader отдаёт снимок и сразу удаляет из сохранённого графа все bricks.
type mutatingLoader struct {
	store *repo.MemoryStore
	loads int
}

func (l *mutatingLoader) LoadSnapshot(ctx context.Context, id uuid.UUID) (*domain.FunctionSnapshot, error) {
	l.loads++
	snap, err := l.store.LoadSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	emptied := snap.Clone()
	emptied.Bricks = nil
	emptied.Connections = nil
	l.store.SaveSnapshot(emptied)
	return snap, nil
}
