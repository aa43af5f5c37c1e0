package bricks

import (
	"context"
	"fmt"

	"github.com/shaiso/bricks/internal/domain"
	"github.com/shaiso/bricks/internal/engine"
)

const (
	// BrickTypeGetFirstInstance — тип brick, выбирающего первый экземпляр.
	BrickTypeGetFirstInstance = "get_first_instance"

	portInstance = "instance"
)

// GetFirstInstanceSchema возвращает схему get_first_instance.
func GetFirstInstanceSchema() engine.BrickSchema {
	return engine.BrickSchema{
		Type:        BrickTypeGetFirstInstance,
		Description: "Returns the first instance of a list",
		Inputs: []domain.PortDef{{
			Name:      portInstances,
			Direction: domain.DirectionInput,
			Type:      domain.PortTypeInstanceList,
			Source:    domain.PortSourceConnection,
		}},
		Outputs: []domain.PortDef{{
			Name:      portInstance,
			Direction: domain.DirectionOutput,
			Type:      domain.PortTypeObject,
		}},
	}
}

// GetFirstInstanceBrick возвращает первый элемент списка экземпляров.
// На пустом списке завершается с ErrEmptyList.
type GetFirstInstanceBrick struct{}

// NewGetFirstInstanceBrick создаёт новый GetFirstInstanceBrick.
func NewGetFirstInstanceBrick() *GetFirstInstanceBrick {
	return &GetFirstInstanceBrick{}
}

func (b *GetFirstInstanceBrick) Type() string      { return BrickTypeGetFirstInstance }
func (b *GetFirstInstanceBrick) Inputs() []string  { return []string{portInstances} }
func (b *GetFirstInstanceBrick) Outputs() []string { return []string{portInstance} }

// Execute выбирает первый экземпляр.
func (b *GetFirstInstanceBrick) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	raw, err := req.Input(portInstances)
	if err != nil {
		return nil, err
	}
	instances, ok := raw.([]domain.Instance)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects a list of instances, got %T", ErrInvalidInput, portInstances, raw)
	}
	if len(instances) == 0 {
		return nil, ErrEmptyList
	}

	return NewResponse(map[string]any{
		portInstance: instances[0],
	}), nil
}
