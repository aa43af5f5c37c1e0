package engine

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/bricks/internal/domain"
)

func validationErrors(t *testing.T, err error) *ValidationErrors {
	t.Helper()
	require.Error(t, err)
	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected *ValidationErrors, got %T", err)
	return verrs
}

func TestValidate_Valid(t *testing.T) {
	g, _, _, _ := pipeline(t)
	assert.NoError(t, Validate(g.Snapshot(), testSchemas()))
}

func TestValidate_Empty(t *testing.T) {
	assert.NoError(t, Validate(&domain.FunctionSnapshot{}, testSchemas()))
}

func TestValidate_MissingConnectedInput(t *testing.T) {
	// Сценарий: get_first_instance без входа
	g := NewGraph(nil, testSchemas())
	first := mustAdd(t, g, "get_first_instance", nil)

	verrs := validationErrors(t, Validate(g.Snapshot(), testSchemas()))
	require.Len(t, verrs.Errors, 1)
	assert.ErrorIs(t, verrs.Errors[0], ErrMissingRequiredInput)
	assert.Equal(t, first, verrs.Errors[0].BrickID)
	assert.Equal(t, "instances", verrs.Errors[0].Port)
}

func TestValidate_MissingConfiguredInput(t *testing.T) {
	g := NewGraph(nil, testSchemas())
	list := mustAdd(t, g, "list_instances", map[string]any{"Name of DB": "  "})

	verrs := validationErrors(t, Validate(g.Snapshot(), testSchemas()))
	require.Len(t, verrs.Errors, 1)
	assert.ErrorIs(t, verrs, ErrMissingRequiredInput)
	assert.Equal(t, list, verrs.Errors[0].BrickID)
	assert.Equal(t, "database", verrs.Errors[0].Port)
}

func TestValidate_CollectsAllInCategory(t *testing.T) {
	g := NewGraph(nil, testSchemas())
	mustAdd(t, g, "get_first_instance", nil)
	mustAdd(t, g, "log_instance_properties", nil)
	mustAdd(t, g, "list_instances", nil)

	verrs := validationErrors(t, Validate(g.Snapshot(), testSchemas()))
	assert.Len(t, verrs.Errors, 3)
	for _, ge := range verrs.Errors {
		assert.ErrorIs(t, ge, ErrMissingRequiredInput)
	}
}

func TestValidate_Cycle(t *testing.T) {
	g := NewGraph(nil, testSchemas())
	a := mustAdd(t, g, "pass", nil)
	b := mustAdd(t, g, "pass", nil)
	c := mustAdd(t, g, "pass", nil)
	mustConnect(t, g, a, "out", b, "in")
	mustConnect(t, g, b, "out", c, "in")
	mustConnect(t, g, c, "out", a, "in")

	verrs := validationErrors(t, Validate(g.Snapshot(), testSchemas()))
	require.Len(t, verrs.Errors, 1)
	ge := verrs.Errors[0]
	assert.ErrorIs(t, ge, ErrCyclicGraph)
	assert.ElementsMatch(t, []uuid.UUID{a, b, c}, ge.BrickIDs)
}

func TestValidate_CycleReportedBeforeMissingInputs(t *testing.T) {
	g := NewGraph(nil, testSchemas())
	a := mustAdd(t, g, "pass", nil)
	b := mustAdd(t, g, "pass", nil)
	mustAdd(t, g, "get_first_instance", nil) // вход не подключён
	mustConnect(t, g, a, "out", b, "in")
	mustConnect(t, g, b, "out", a, "in")

	verrs := validationErrors(t, Validate(g.Snapshot(), testSchemas()))
	assert.True(t, verrs.Has(ErrCyclicGraph))
	assert.False(t, verrs.Has(ErrMissingRequiredInput))
}

func TestValidate_SelfLoopInSnapshot(t *testing.T) {
	// Graph.Connect не допускает петли, но снимок из хранилища может их содержать
	a := domain.Brick{ID: uuid.New(), Type: "pass"}
	snap := &domain.FunctionSnapshot{
		Bricks: []domain.Brick{a},
		Connections: []domain.Connection{
			{ID: uuid.New(), FromBrickID: a.ID, FromPort: "out", ToBrickID: a.ID, ToPort: "in"},
		},
	}

	verrs := validationErrors(t, Validate(snap, testSchemas()))
	require.Len(t, verrs.Errors, 1)
	assert.ErrorIs(t, verrs.Errors[0], ErrCyclicGraph)
	assert.Equal(t, []uuid.UUID{a.ID}, verrs.Errors[0].BrickIDs)
}

func TestValidate_Structure(t *testing.T) {
	list := domain.Brick{ID: uuid.New(), Type: "list_instances", Config: map[string]any{"Name of DB": "db"}}
	first := domain.Brick{ID: uuid.New(), Type: "get_first_instance"}
	ghost := domain.Brick{ID: uuid.New(), Type: "ghost"}

	tests := []struct {
		name  string
		snap  *domain.FunctionSnapshot
		wants []error
	}{
		{
			name:  "unknown type",
			snap:  &domain.FunctionSnapshot{Bricks: []domain.Brick{ghost}},
			wants: []error{ErrUnknownBrickType},
		},
		{
			name: "dangling connection",
			snap: &domain.FunctionSnapshot{
				Bricks: []domain.Brick{first},
				Connections: []domain.Connection{
					{ID: uuid.New(), FromBrickID: uuid.New(), FromPort: "instances", ToBrickID: first.ID, ToPort: "instances"},
				},
			},
			wants: []error{ErrBrickNotFound},
		},
		{
			name: "unknown ports",
			snap: &domain.FunctionSnapshot{
				Bricks: []domain.Brick{list, first},
				Connections: []domain.Connection{
					{ID: uuid.New(), FromBrickID: list.ID, FromPort: "rows", ToBrickID: first.ID, ToPort: "list"},
				},
			},
			wants: []error{ErrPortNotFound, ErrPortNotFound},
		},
		{
			name: "two edges into one input",
			snap: &domain.FunctionSnapshot{
				Bricks: []domain.Brick{list, first},
				Connections: []domain.Connection{
					{ID: uuid.New(), FromBrickID: list.ID, FromPort: "instances", ToBrickID: first.ID, ToPort: "instances"},
					{ID: uuid.New(), FromBrickID: list.ID, FromPort: "instances", ToBrickID: first.ID, ToPort: "instances"},
				},
			},
			wants: []error{ErrInputAlreadyConnected},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verrs := validationErrors(t, Validate(tt.snap, testSchemas()))
			require.Len(t, verrs.Errors, len(tt.wants))
			for i, want := range tt.wants {
				assert.ErrorIs(t, verrs.Errors[i], want)
			}
		})
	}
}

func TestValidate_TypeRecheck(t *testing.T) {
	// Снимок с несовместимым ребром, обходящий Graph.Connect
	list := domain.Brick{ID: uuid.New(), Type: "list_instances", Config: map[string]any{"Name of DB": "db"}}
	log := domain.Brick{ID: uuid.New(), Type: "log_instance_properties"}
	snap := &domain.FunctionSnapshot{
		Bricks: []domain.Brick{list, log},
		Connections: []domain.Connection{
			{ID: uuid.New(), FromBrickID: list.ID, FromPort: "instances", ToBrickID: log.ID, ToPort: "object"},
		},
	}

	verrs := validationErrors(t, Validate(snap, testSchemas()))
	require.Len(t, verrs.Errors, 1)
	assert.ErrorIs(t, verrs.Errors[0], ErrIncompatibleTypes)
	assert.Equal(t, log.ID, verrs.Errors[0].BrickID)
}

func TestValidate_DoesNotMutateSnapshot(t *testing.T) {
	g, _, _, _ := pipeline(t)
	snap := g.Snapshot()
	before := snap.Clone()

	_ = Validate(snap, testSchemas())
	assert.Equal(t, before, snap)
}
