package engine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/shaiso/bricks/internal/domain"
)

// Validate проверяет снимок function перед выполнением.
//
// Категории проверяются по очереди, первая непройденная останавливает проверку:
//  1. структура снимка (известные типы, существующие концы и порты, один вход — одно ребро);
//  2. ацикличность;
//  3. полнота обязательных входов;
//  4. совместимость типов на каждом ребре.
//
// Внутри категории собираются все ошибки. Возвращает nil или *ValidationErrors.
// Ссылки конфигурации на базы данных здесь не проверяются.
func Validate(snapshot *domain.FunctionSnapshot, schemas Schemas) error {
	v := &validator{
		snapshot: snapshot,
		schemas:  schemas,
		bricks:   make(map[uuid.UUID]domain.Brick, len(snapshot.Bricks)),
	}

	checks := []func() []*GraphError{
		v.checkStructure,
		v.checkCycles,
		v.checkInputs,
		v.checkTypes,
	}
	for _, check := range checks {
		if errs := check(); len(errs) > 0 {
			return &ValidationErrors{Errors: errs}
		}
	}
	return nil
}

type validator struct {
	snapshot *domain.FunctionSnapshot
	schemas  Schemas
	bricks   map[uuid.UUID]domain.Brick
}

func (v *validator) checkStructure() []*GraphError {
	var errs []*GraphError

	for _, b := range v.snapshot.Bricks {
		if _, dup := v.bricks[b.ID]; dup {
			errs = append(errs, NewGraphError(b.ID, "", "brick id is used twice", ErrDuplicateBrick))
			continue
		}
		v.bricks[b.ID] = b
		if _, ok := v.schemas.Schema(b.Type); !ok {
			errs = append(errs, NewGraphError(b.ID, "",
				fmt.Sprintf("brick type %q is not registered", b.Type), ErrUnknownBrickType))
		}
	}

	type inputKey struct {
		brick uuid.UUID
		port  string
	}
	taken := make(map[inputKey]bool)

	for _, c := range v.snapshot.Connections {
		from, okFrom := v.bricks[c.FromBrickID]
		to, okTo := v.bricks[c.ToBrickID]
		if !okFrom {
			errs = append(errs, connError(c, c.FromBrickID, "", "source brick does not exist", ErrBrickNotFound))
		}
		if !okTo {
			errs = append(errs, connError(c, c.ToBrickID, "", "target brick does not exist", ErrBrickNotFound))
		}
		if !okFrom || !okTo {
			continue
		}

		if schema, ok := v.schemas.Schema(from.Type); ok {
			if _, ok := schema.Output(c.FromPort); !ok {
				errs = append(errs, connError(c, c.FromBrickID, c.FromPort, "no such output port", ErrPortNotFound))
			}
		}
		if schema, ok := v.schemas.Schema(to.Type); ok {
			if _, ok := schema.ConnectableInput(c.ToPort); !ok {
				errs = append(errs, connError(c, c.ToBrickID, c.ToPort, "no such input port", ErrPortNotFound))
			}
		}

		key := inputKey{c.ToBrickID, c.ToPort}
		if taken[key] {
			errs = append(errs, connError(c, c.ToBrickID, c.ToPort, "input has more than one connection", ErrInputAlreadyConnected))
		}
		taken[key] = true
	}

	return errs
}

// checkCycles ищет циклы обходом в глубину с множеством "на стеке".
// Каждое обратное ребро даёт отдельную ошибку со списком bricks цикла.
func (v *validator) checkCycles() []*GraphError {
	adjacent := make(map[uuid.UUID][]uuid.UUID)
	for _, c := range v.snapshot.Connections {
		adjacent[c.FromBrickID] = append(adjacent[c.FromBrickID], c.ToBrickID)
	}

	const (
		white = iota
		grey
		black
	)
	color := make(map[uuid.UUID]int, len(v.snapshot.Bricks))
	var stack []uuid.UUID
	var errs []*GraphError

	var visit func(id uuid.UUID)
	visit = func(id uuid.UUID) {
		color[id] = grey
		stack = append(stack, id)

		for _, next := range adjacent[id] {
			switch color[next] {
			case white:
				visit(next)
			case grey:
				errs = append(errs, cycleError(stack, next))
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = black
	}

	for _, b := range v.snapshot.Bricks {
		if color[b.ID] == white {
			visit(b.ID)
		}
	}
	return errs
}

func cycleError(stack []uuid.UUID, head uuid.UUID) *GraphError {
	start := 0
	for i, id := range stack {
		if id == head {
			start = i
			break
		}
	}
	ids := make([]uuid.UUID, len(stack)-start)
	copy(ids, stack[start:])

	parts := make([]string, len(ids)+1)
	for i, id := range ids {
		parts[i] = id.String()
	}
	parts[len(ids)] = head.String()

	return &GraphError{
		BrickID:  head,
		BrickIDs: ids,
		Message:  "cycle " + strings.Join(parts, " -> "),
		Err:      ErrCyclicGraph,
	}
}

func (v *validator) checkInputs() []*GraphError {
	type inputKey struct {
		brick uuid.UUID
		port  string
	}
	connected := make(map[inputKey]bool, len(v.snapshot.Connections))
	for _, c := range v.snapshot.Connections {
		connected[inputKey{c.ToBrickID, c.ToPort}] = true
	}

	var errs []*GraphError
	for _, b := range v.snapshot.Bricks {
		schema, _ := v.schemas.Schema(b.Type)
		for _, in := range schema.Inputs {
			if in.IsConfigured() {
				if !hasConfigValue(b.Config, in.ConfigKey) {
					errs = append(errs, NewGraphError(b.ID, in.Name,
						fmt.Sprintf("configuration %q is not set", in.ConfigKey), ErrMissingRequiredInput))
				}
				continue
			}
			if !connected[inputKey{b.ID, in.Name}] {
				errs = append(errs, NewGraphError(b.ID, in.Name, "input is not connected", ErrMissingRequiredInput))
			}
		}
	}
	return errs
}

func (v *validator) checkTypes() []*GraphError {
	var errs []*GraphError
	for _, c := range v.snapshot.Connections {
		fromSchema, _ := v.schemas.Schema(v.bricks[c.FromBrickID].Type)
		toSchema, _ := v.schemas.Schema(v.bricks[c.ToBrickID].Type)
		out, _ := fromSchema.Output(c.FromPort)
		in, _ := toSchema.Input(c.ToPort)
		if !Compatible(out.Type, in.Type) {
			errs = append(errs, connError(c, c.ToBrickID, c.ToPort,
				fmt.Sprintf("cannot connect %s to %s", out.Type, in.Type), ErrIncompatibleTypes))
		}
	}
	return errs
}

func connError(c domain.Connection, brickID uuid.UUID, port, message string, err error) *GraphError {
	return &GraphError{
		BrickID:      brickID,
		Port:         port,
		ConnectionID: c.ID,
		Message:      message,
		Err:          err,
	}
}

// hasConfigValue проверяет, что значение задано и не пусто.
func hasConfigValue(config map[string]any, key string) bool {
	v, ok := config[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}
