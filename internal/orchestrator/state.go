package orchestrator

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/bricks/internal/domain"
	"github.com/shaiso/bricks/internal/engine"
)

// portKey — адрес значения выхода.
type portKey struct {
	brick uuid.UUID
	port  string
}

// ExecutionContext — состояние одного выполнения в памяти.
//
// Создаётся после успешной проверки снимка и живёт до конца выполнения.
// Не сохраняется.
//
// Содержит:
//   - снимок и построенный DAG
//   - значения выходов выполненных bricks
//   - консольный вывод
type ExecutionContext struct {
	// Execution — результат выполнения.
	Execution *domain.Execution

	// Snapshot — снимок function, прочитанный один раз перед выполнением.
	Snapshot *domain.FunctionSnapshot

	// DAG — граф зависимостей bricks.
	DAG *engine.DAG

	// Sink — консольный вывод.
	Sink *OutputSink

	// outputs — значения выходов (brickID, port) → value.
	outputs map[portKey]any
}

// NewExecutionContext создаёт новый ExecutionContext.
func NewExecutionContext(exec *domain.Execution, snapshot *domain.FunctionSnapshot, dag *engine.DAG) *ExecutionContext {
	return &ExecutionContext{
		Execution: exec,
		Snapshot:  snapshot,
		DAG:       dag,
		Sink:      NewOutputSink(),
		outputs:   make(map[portKey]any),
	}
}

// ResolveInputs собирает значения входов узла.
//
// Connection-backed вход получает значение выхода upstream brick,
// configuration-backed — значение из конфигурации brick.
func (c *ExecutionContext) ResolveInputs(node *engine.Node, schema engine.BrickSchema) (map[string]any, error) {
	inputs := make(map[string]any, len(schema.Inputs))

	for _, in := range schema.Inputs {
		if in.IsConfigured() {
			if v, ok := node.Brick.Config[in.ConfigKey]; ok {
				inputs[in.Name] = v
			}
			continue
		}

		for _, conn := range node.Incoming {
			if conn.ToPort != in.Name {
				continue
			}
			v, ok := c.Output(conn.FromBrickID, conn.FromPort)
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrOutputNotProduced, conn.FromBrickID, conn.FromPort)
			}
			inputs[in.Name] = v
		}
	}

	return inputs, nil
}

// SetOutputs сохраняет выходы brick.
// Значения на портах, не объявленных схемой, отбрасываются.
func (c *ExecutionContext) SetOutputs(brickID uuid.UUID, schema engine.BrickSchema, outputs map[string]any) {
	for _, out := range schema.Outputs {
		if v, ok := outputs[out.Name]; ok {
			c.outputs[portKey{brickID, out.Name}] = v
		}
	}
}

// Output возвращает значение выхода.
func (c *ExecutionContext) Output(brickID uuid.UUID, port string) (any, bool) {
	v, ok := c.outputs[portKey{brickID, port}]
	return v, ok
}
