package bricks

import (
	"context"
	"fmt"

	"github.com/shaiso/bricks/internal/domain"
	"github.com/shaiso/bricks/internal/engine"
)

// BrickTypeLogText — тип brick, печатающего строку.
const BrickTypeLogText = "log_text"

// LogTextSchema возвращает схему log_text.
func LogTextSchema() engine.BrickSchema {
	return engine.BrickSchema{
		Type:        BrickTypeLogText,
		Description: "Logs a text line",
		Inputs: []domain.PortDef{{
			Name:      portText,
			Direction: domain.DirectionInput,
			Type:      domain.PortTypeString,
			Source:    domain.PortSourceConnection,
		}},
	}
}

// LogTextBrick выводит входную строку как есть.
type LogTextBrick struct{}

// NewLogTextBrick создаёт новый LogTextBrick.
func NewLogTextBrick() *LogTextBrick {
	return &LogTextBrick{}
}

func (b *LogTextBrick) Type() string      { return BrickTypeLogText }
func (b *LogTextBrick) Inputs() []string  { return []string{portText} }
func (b *LogTextBrick) Outputs() []string { return []string{} }

// Execute возвращает строку вывода.
func (b *LogTextBrick) Execute(ctx context.Context, req *Request) (*Response, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	raw, err := req.Input(portText)
	if err != nil {
		return nil, err
	}
	text, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s expects a string, got %T", ErrInvalidInput, portText, raw)
	}
	return LogResponse(text), nil
}
