package bricks

import (
	"context"
	"fmt"

	"github.com/shaiso/bricks/internal/domain"
	"github.com/shaiso/bricks/internal/engine"
)

const (
	// BrickTypeFormatInstance — тип brick, форматирующего объект по шаблону.
	BrickTypeFormatInstance = "format_instance"

	// ConfigTemplate — ключ конфигурации с Go template.
	ConfigTemplate = "Template"

	portTemplate = "template"
	portText     = "text"
)

// FormatInstanceSchema возвращает схему format_instance.
func FormatInstanceSchema() engine.BrickSchema {
	return engine.BrickSchema{
		Type:        BrickTypeFormatInstance,
		Description: "Renders an object with a Go template",
		Inputs: []domain.PortDef{
			{
				Name:      portObject,
				Direction: domain.DirectionInput,
				Type:      domain.PortTypeObject,
				Source:    domain.PortSourceConnection,
			},
			{
				Name:      portTemplate,
				Direction: domain.DirectionInput,
				Type:      domain.PortTypeString,
				Source:    domain.PortSourceConfiguration,
				ConfigKey: ConfigTemplate,
			},
		},
		Outputs: []domain.PortDef{{
			Name:      portText,
			Direction: domain.DirectionOutput,
			Type:      domain.PortTypeString,
		}},
		ConfigFields: []string{ConfigTemplate},
	}
}

// FormatInstanceBrick рендерит объект через Go template.
//
// Конфигурация:
//
//	{"Template": "{{ .Values.name }} lives in {{ .Values.city }}"}
//
// Outputs:
//
//	{"text": "Alice lives in Paris"}
type FormatInstanceBrick struct{}

// NewFormatInstanceBrick создаёт новый FormatInstanceBrick.
func NewFormatInstanceBrick() *FormatInstanceBrick {
	return &FormatInstanceBrick{}
}

func (b *FormatInstanceBrick) Type() string      { return BrickTypeFormatInstance }
func (b *FormatInstanceBrick) Inputs() []string  { return []string{portObject, portTemplate} }
func (b *FormatInstanceBrick) Outputs() []string { return []string{portText} }

// Execute рендерит шаблон.
func (b *FormatInstanceBrick) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	raw, err := req.Input(portObject)
	if err != nil {
		return nil, err
	}
	id, values, err := objectValues(raw)
	if err != nil {
		return nil, err
	}

	rawTmpl, err := req.Input(portTemplate)
	if err != nil {
		return nil, err
	}
	tmpl, ok := rawTmpl.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %q must be a string", ErrInvalidConfig, ConfigTemplate)
	}

	text, err := engine.Render(tmpl, engine.NewContext(id, values))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return NewResponse(map[string]any{
		portText: text,
	}), nil
}
