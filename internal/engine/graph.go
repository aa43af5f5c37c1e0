package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/bricks/internal/domain"
)

// Graph — изменяемый граф одной function.
//
// Все операции проверяют инварианты сразу: после успешного вызова
// граф остаётся структурно корректным. Ацикличность и полнота входов
// проверяются отдельно через Validate.
//
// Graph не потокобезопасен: каждый запрос работает со своей копией.
type Graph struct {
	schemas     Schemas
	function    domain.Function
	bricks      []domain.Brick
	connections []domain.Connection
}

// NewGraph создаёт граф из снимка. Снимок копируется.
// nil снимок даёт пустой граф.
func NewGraph(snapshot *domain.FunctionSnapshot, schemas Schemas) *Graph {
	g := &Graph{schemas: schemas}
	if snapshot == nil {
		return g
	}
	c := snapshot.Clone()
	g.function = c.Function
	g.bricks = c.Bricks
	g.connections = c.Connections
	return g
}

// Function возвращает метаданные function.
func (g *Graph) Function() domain.Function {
	return g.function
}

// Brick возвращает копию brick по ID.
func (g *Graph) Brick(id uuid.UUID) (domain.Brick, bool) {
	i := g.brickIndex(id)
	if i < 0 {
		return domain.Brick{}, false
	}
	return g.bricks[i].Clone(), true
}

// Connection возвращает connection по ID.
func (g *Graph) Connection(id uuid.UUID) (domain.Connection, bool) {
	for _, c := range g.connections {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Connection{}, false
}

// Len возвращает количество bricks.
func (g *Graph) Len() int {
	return len(g.bricks)
}

// AddBrick добавляет brick указанного типа в конец порядка добавления.
func (g *Graph) AddBrick(brickType string, config map[string]any, pos domain.Position) (domain.Brick, error) {
	schema, ok := g.schemas.Schema(brickType)
	if !ok {
		return domain.Brick{}, &GraphError{
			Message: fmt.Sprintf("brick type %q is not registered", brickType),
			Err:     ErrUnknownBrickType,
		}
	}

	for key := range config {
		if !schema.HasConfigField(key) {
			return domain.Brick{}, &GraphError{
				Message: fmt.Sprintf("%s has no configuration field %q", brickType, key),
				Err:     ErrUnknownConfigField,
			}
		}
	}

	brick := domain.Brick{
		ID:       uuid.New(),
		Type:     brickType,
		Position: pos,
		Config:   make(map[string]any, len(config)),
	}
	for k, v := range config {
		if v != nil {
			brick.Config[k] = v
		}
	}

	g.bricks = append(g.bricks, brick)
	return brick.Clone(), nil
}

// RemoveBrick удаляет brick и все connections, где он является концом.
// Возвращает удалённые connections.
func (g *Graph) RemoveBrick(id uuid.UUID) ([]domain.Connection, error) {
	i := g.brickIndex(id)
	if i < 0 {
		return nil, NewGraphError(id, "", "brick does not exist", ErrBrickNotFound)
	}

	g.bricks = append(g.bricks[:i], g.bricks[i+1:]...)

	var removed []domain.Connection
	kept := g.connections[:0]
	for _, c := range g.connections {
		if c.FromBrickID == id || c.ToBrickID == id {
			removed = append(removed, c)
			continue
		}
		kept = append(kept, c)
	}
	g.connections = kept

	return removed, nil
}

// Connect соединяет выход fromPort brick from со входом toPort brick to.
//
// Проверки выполняются в порядке: петля, существование bricks,
// существование портов, дубликат, занятость входа, совместимость типов.
func (g *Graph) Connect(from uuid.UUID, fromPort string, to uuid.UUID, toPort string) (domain.Connection, error) {
	if from == to {
		return domain.Connection{}, NewGraphError(from, fromPort, "cannot connect a brick to itself", ErrSelfLoop)
	}

	fi := g.brickIndex(from)
	if fi < 0 {
		return domain.Connection{}, NewGraphError(from, "", "source brick does not exist", ErrBrickNotFound)
	}
	ti := g.brickIndex(to)
	if ti < 0 {
		return domain.Connection{}, NewGraphError(to, "", "target brick does not exist", ErrBrickNotFound)
	}

	fromBrick, toBrick := g.bricks[fi], g.bricks[ti]

	fromSchema, ok := g.schemas.Schema(fromBrick.Type)
	if !ok {
		return domain.Connection{}, NewGraphError(from, "", "brick type "+fromBrick.Type+" is not registered", ErrUnknownBrickType)
	}
	toSchema, ok := g.schemas.Schema(toBrick.Type)
	if !ok {
		return domain.Connection{}, NewGraphError(to, "", "brick type "+toBrick.Type+" is not registered", ErrUnknownBrickType)
	}

	out, ok := fromSchema.Output(fromPort)
	if !ok {
		return domain.Connection{}, NewGraphError(from, fromPort, "no such output port", ErrPortNotFound)
	}
	in, ok := toSchema.ConnectableInput(toPort)
	if !ok {
		return domain.Connection{}, NewGraphError(to, toPort, "no such input port", ErrPortNotFound)
	}

	conn := domain.Connection{
		FromBrickID: from,
		FromPort:    fromPort,
		ToBrickID:   to,
		ToPort:      toPort,
	}

	for _, c := range g.connections {
		if c.SameEdge(conn) {
			return domain.Connection{}, &GraphError{
				BrickID:      to,
				Port:         toPort,
				ConnectionID: c.ID,
				Message:      "connection already exists",
				Err:          ErrDuplicateConnection,
			}
		}
	}
	for _, c := range g.connections {
		if c.ToBrickID == to && c.ToPort == toPort {
			return domain.Connection{}, &GraphError{
				BrickID:      to,
				Port:         toPort,
				ConnectionID: c.ID,
				Message:      "input is already connected",
				Err:          ErrInputAlreadyConnected,
			}
		}
	}

	if !Compatible(out.Type, in.Type) {
		return domain.Connection{}, NewGraphError(to, toPort,
			fmt.Sprintf("cannot connect %s to %s", out.Type, in.Type), ErrIncompatibleTypes)
	}

	conn.ID = uuid.New()
	g.connections = append(g.connections, conn)
	return conn, nil
}

// Disconnect удаляет connection.
func (g *Graph) Disconnect(id uuid.UUID) error {
	for i, c := range g.connections {
		if c.ID == id {
			g.connections = append(g.connections[:i], g.connections[i+1:]...)
			return nil
		}
	}
	return &GraphError{
		ConnectionID: id,
		Message:      "connection " + id.String() + " does not exist",
		Err:          ErrConnectionNotFound,
	}
}

// UpdateConfiguration сливает partial с конфигурацией brick.
//
// Значение nil удаляет ключ. Проверяются только имена полей:
// ссылки на базы данных проверяются при выполнении.
func (g *Graph) UpdateConfiguration(id uuid.UUID, partial map[string]any) (domain.Brick, error) {
	i := g.brickIndex(id)
	if i < 0 {
		return domain.Brick{}, NewGraphError(id, "", "brick does not exist", ErrBrickNotFound)
	}

	brick := &g.bricks[i]
	schema, ok := g.schemas.Schema(brick.Type)
	if !ok {
		return domain.Brick{}, NewGraphError(id, "", "brick type "+brick.Type+" is not registered", ErrUnknownBrickType)
	}

	for key := range partial {
		if !schema.HasConfigField(key) {
			return domain.Brick{}, NewGraphError(id, "",
				fmt.Sprintf("%s has no configuration field %q", brick.Type, key), ErrUnknownConfigField)
		}
	}

	if brick.Config == nil {
		brick.Config = make(map[string]any, len(partial))
	}
	for key, v := range partial {
		if v == nil {
			delete(brick.Config, key)
			continue
		}
		brick.Config[key] = v
	}

	return brick.Clone(), nil
}

// UpdatePosition меняет положение brick на холсте.
func (g *Graph) UpdatePosition(id uuid.UUID, pos domain.Position) (domain.Brick, error) {
	i := g.brickIndex(id)
	if i < 0 {
		return domain.Brick{}, NewGraphError(id, "", "brick does not exist", ErrBrickNotFound)
	}
	g.bricks[i].Position = pos
	return g.bricks[i].Clone(), nil
}

// Snapshot возвращает глубокую копию текущего состояния.
func (g *Graph) Snapshot() *domain.FunctionSnapshot {
	s := &domain.FunctionSnapshot{
		Function:    g.function,
		Bricks:      g.bricks,
		Connections: g.connections,
	}
	c := s.Clone()
	if c.Bricks == nil {
		c.Bricks = []domain.Brick{}
	}
	return c
}

func (g *Graph) brickIndex(id uuid.UUID) int {
	for i, b := range g.bricks {
		if b.ID == id {
			return i
		}
	}
	return -1
}
