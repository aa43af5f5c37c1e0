package bricks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shaiso/bricks/internal/domain"
	"github.com/shaiso/bricks/internal/engine"
)

const (
	// BrickTypeLogInstanceProperties — тип brick, печатающего свойства объекта.
	BrickTypeLogInstanceProperties = "log_instance_properties"

	portObject = "object"
)

// LogInstancePropertiesSchema возвращает схему log_instance_properties.
func LogInstancePropertiesSchema() engine.BrickSchema {
	return engine.BrickSchema{
		Type:        BrickTypeLogInstanceProperties,
		Description: "Logs the properties of an object as a JSON line",
		Inputs: []domain.PortDef{{
			Name:      portObject,
			Direction: domain.DirectionInput,
			Type:      domain.PortTypeObject,
			Source:    domain.PortSourceConnection,
		}},
	}
}

// LogInstancePropertiesBrick выводит свойства объекта одной строкой JSON.
//
// Ключи упорядочены лексикографически:
//
//	{"name":"Alice","value":"X"}
type LogInstancePropertiesBrick struct{}

// NewLogInstancePropertiesBrick создаёт новый LogInstancePropertiesBrick.
func NewLogInstancePropertiesBrick() *LogInstancePropertiesBrick {
	return &LogInstancePropertiesBrick{}
}

func (b *LogInstancePropertiesBrick) Type() string      { return BrickTypeLogInstanceProperties }
func (b *LogInstancePropertiesBrick) Inputs() []string  { return []string{portObject} }
func (b *LogInstancePropertiesBrick) Outputs() []string { return []string{} }

// Execute сериализует свойства и возвращает их как строку вывода.
func (b *LogInstancePropertiesBrick) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	raw, err := req.Input(portObject)
	if err != nil {
		return nil, err
	}

	_, values, err := objectValues(raw)
	if err != nil {
		return nil, err
	}

	line, err := FormatProperties(values)
	if err != nil {
		return nil, err
	}
	return LogResponse(line), nil
}

// FormatProperties сериализует свойства в JSON с отсортированными ключами.
func FormatProperties(values map[string]string) (string, error) {
	if values == nil {
		values = map[string]string{}
	}
	// encoding/json сортирует ключи map
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("marshal properties: %w", err)
	}
	return string(b), nil
}
