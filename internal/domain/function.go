package domain

import (
	"time"

	"github.com/google/uuid"
)

// Function — программа, собранная пользователем из bricks.
//
// Function принадлежит ровно одному проекту. Жизненным циклом проекта
// и правами доступа управляет внешняя система.
type Function struct {
	// ID — уникальный идентификатор function.
	ID uuid.UUID `json:"id"`

	// ProjectID — проект, которому принадлежит function.
	ProjectID uuid.UUID `json:"project_id"`

	// Name — имя function, которое видит пользователь.
	Name string `json:"name"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

// Position — координаты brick на холсте редактора.
// Движок не интерпретирует их, только хранит.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Brick — узел графа function.
//
// Порты brick не хранятся отдельно: они выводятся из Type
// через схему типа brick (engine.BrickSchema).
type Brick struct {
	// ID — идентификатор brick, уникальный в рамках function.
	ID uuid.UUID `json:"id"`

	// Type — тег типа brick (например, "list_instances").
	// Определяет схему портов и реализацию в реестре.
	Type string `json:"type"`

	// Position — положение на холсте.
	Position Position `json:"position"`

	// Config — статические параметры brick.
	// Например: {"Name of DB": "default database"}.
	Config map[string]any `json:"config,omitempty"`
}

// Clone возвращает копию brick с собственной картой Config.
func (b Brick) Clone() Brick {
	c := b
	if b.Config != nil {
		c.Config = make(map[string]any, len(b.Config))
		for k, v := range b.Config {
			c.Config[k] = v
		}
	}
	return c
}

// Connection — направленное ребро от выходного порта одного brick
// к входному порту другого.
//
// Входной порт принимает не более одного ребра,
// выходной может раздаваться на любое количество.
type Connection struct {
	// ID — идентификатор connection.
	ID uuid.UUID `json:"id"`

	// FromBrickID — brick-источник.
	FromBrickID uuid.UUID `json:"from_brick_id"`

	// FromPort — имя выходного порта источника.
	FromPort string `json:"from_port"`

	// ToBrickID — brick-получатель.
	ToBrickID uuid.UUID `json:"to_brick_id"`

	// ToPort — имя входного порта получателя.
	ToPort string `json:"to_port"`
}

// SameEdge проверяет, соединяют ли два connection одни и те же порты.
func (c Connection) SameEdge(other Connection) bool {
	return c.FromBrickID == other.FromBrickID &&
		c.FromPort == other.FromPort &&
		c.ToBrickID == other.ToBrickID &&
		c.ToPort == other.ToPort
}

// FunctionSnapshot — согласованный снимок графа function.
//
// Bricks упорядочены по порядку добавления в function:
// этот порядок используется планировщиком для разрешения ничьих.
type FunctionSnapshot struct {
	// Function — метаданные function.
	Function Function `json:"function"`

	// Bricks — узлы графа в порядке добавления.
	Bricks []Brick `json:"bricks"`

	// Connections — рёбра графа.
	Connections []Connection `json:"connections"`
}

// Brick возвращает brick по ID.
func (s *FunctionSnapshot) Brick(id uuid.UUID) (Brick, bool) {
	for _, b := range s.Bricks {
		if b.ID == id {
			return b, true
		}
	}
	return Brick{}, false
}

// Clone возвращает глубокую копию снимка.
func (s *FunctionSnapshot) Clone() *FunctionSnapshot {
	c := &FunctionSnapshot{
		Function:    s.Function,
		Bricks:      make([]Brick, len(s.Bricks)),
		Connections: make([]Connection, len(s.Connections)),
	}
	for i, b := range s.Bricks {
		c.Bricks[i] = b.Clone()
	}
	copy(c.Connections, s.Connections)
	return c
}
