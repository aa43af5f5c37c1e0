package bricks

import (
	"context"
	"fmt"
	"strings"

	"github.com/shaiso/bricks/internal/domain"
	"github.com/shaiso/bricks/internal/engine"
)

const (
	// BrickTypeListInstances — тип brick, читающего экземпляры базы.
	BrickTypeListInstances = "list_instances"

	// ConfigDatabaseName — ключ конфигурации с именем базы.
	ConfigDatabaseName = "Name of DB"

	portDatabase  = "database"
	portInstances = "instances"
)

// ListInstancesSchema возвращает схему list_instances.
func ListInstancesSchema() engine.BrickSchema {
	return engine.BrickSchema{
		Type:        BrickTypeListInstances,
		Description: "Lists all instances of a project database",
		Inputs: []domain.PortDef{{
			Name:      portDatabase,
			Direction: domain.DirectionInput,
			Type:      domain.PortTypeString,
			Source:    domain.PortSourceConfiguration,
			ConfigKey: ConfigDatabaseName,
		}},
		Outputs: []domain.PortDef{{
			Name:      portInstances,
			Direction: domain.DirectionOutput,
			Type:      domain.PortTypeInstanceList,
		}},
		ConfigFields: []string{ConfigDatabaseName},
	}
}

// ListInstancesBrick — brick, возвращающий экземпляры базы по имени.
//
// Конфигурация:
//
//	{"Name of DB": "default database"}
//
// Outputs:
//
//	{"instances": []domain.Instance}  // в порядке хранилища
type ListInstancesBrick struct{}

// NewListInstancesBrick создаёт новый ListInstancesBrick.
func NewListInstancesBrick() *ListInstancesBrick {
	return &ListInstancesBrick{}
}

// Type возвращает тип brick.
func (b *ListInstancesBrick) Type() string { return BrickTypeListInstances }

// Inputs возвращает имена входов.
func (b *ListInstancesBrick) Inputs() []string { return []string{portDatabase} }

// Outputs возвращает имена выходов.
func (b *ListInstancesBrick) Outputs() []string { return []string{portInstances} }

// Execute читает экземпляры базы из хранилища.
func (b *ListInstancesBrick) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	raw, err := req.Input(portDatabase)
	if err != nil {
		return nil, err
	}
	name, ok := raw.(string)
	if !ok || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: %q must be a non-empty string", ErrInvalidConfig, ConfigDatabaseName)
	}

	if req.Store == nil {
		return nil, fmt.Errorf("%w: no instance store", ErrInvalidConfig)
	}

	instances, err := req.Store.ListInstances(ctx, req.ProjectID, name)
	if err != nil {
		return nil, fmt.Errorf("list instances of %q: %w", name, err)
	}
	if instances == nil {
		instances = []domain.Instance{}
	}

	return NewResponse(map[string]any{
		portInstances: instances,
	}), nil
}
