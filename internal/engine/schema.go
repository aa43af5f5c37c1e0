package engine

import (
	"fmt"
	"sort"

	"github.com/shaiso/bricks/internal/domain"
)

// BrickSchema — объявление типа brick: порты и поля конфигурации.
//
// Схема неизменна для типа. Порты конкретного brick выводятся из неё.
type BrickSchema struct {
	// Type — тег типа brick.
	Type string `json:"type"`

	// Description — краткое описание для редактора.
	Description string `json:"description,omitempty"`

	// Inputs — входные порты в порядке объявления.
	Inputs []domain.PortDef `json:"inputs"`

	// Outputs — выходные порты в порядке объявления.
	Outputs []domain.PortDef `json:"outputs"`

	// ConfigFields — допустимые ключи конфигурации.
	ConfigFields []string `json:"config_fields"`
}

// Schemas — источник схем по тегу типа.
// Реализуется реестром bricks.
type Schemas interface {
	Schema(brickType string) (BrickSchema, bool)
}

// SchemaSet — статический набор схем.
type SchemaSet map[string]BrickSchema

// Schema реализует Schemas.
func (s SchemaSet) Schema(brickType string) (BrickSchema, bool) {
	schema, ok := s[brickType]
	return schema, ok
}

// NewSchemaSet собирает набор из списка схем.
func NewSchemaSet(schemas ...BrickSchema) SchemaSet {
	set := make(SchemaSet, len(schemas))
	for _, s := range schemas {
		set[s.Type] = s
	}
	return set
}

// Port возвращает порт по имени и направлению.
func (s BrickSchema) Port(name string, dir domain.Direction) (domain.PortDef, bool) {
	ports := s.Inputs
	if dir == domain.DirectionOutput {
		ports = s.Outputs
	}
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return domain.PortDef{}, false
}

// Input возвращает входной порт по имени.
func (s BrickSchema) Input(name string) (domain.PortDef, bool) {
	return s.Port(name, domain.DirectionInput)
}

// Output возвращает выходной порт по имени.
func (s BrickSchema) Output(name string) (domain.PortDef, bool) {
	return s.Port(name, domain.DirectionOutput)
}

// ConnectableInput возвращает вход, к которому можно провести connection.
// Configuration-backed входы не считаются найденными.
func (s BrickSchema) ConnectableInput(name string) (domain.PortDef, bool) {
	p, ok := s.Input(name)
	if !ok || !p.IsConnectable() {
		return domain.PortDef{}, false
	}
	return p, true
}

// HasConfigField проверяет, объявлен ли ключ конфигурации.
func (s BrickSchema) HasConfigField(key string) bool {
	for _, f := range s.ConfigFields {
		if f == key {
			return true
		}
	}
	return false
}

// InputNames возвращает отсортированные имена входов.
func (s BrickSchema) InputNames() []string {
	return portNames(s.Inputs)
}

// OutputNames возвращает отсортированные имена выходов.
func (s BrickSchema) OutputNames() []string {
	return portNames(s.Outputs)
}

func portNames(ports []domain.PortDef) []string {
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.Name
	}
	sort.Strings(names)
	return names
}

// Validate проверяет внутреннюю согласованность схемы.
func (s BrickSchema) Validate() error {
	if s.Type == "" {
		return fmt.Errorf("%w: empty type", ErrInvalidSchema)
	}

	seen := make(map[string]bool)
	for _, p := range s.Inputs {
		if p.Direction != domain.DirectionInput {
			return fmt.Errorf("%w: %s: port %s listed as input has direction %q",
				ErrInvalidSchema, s.Type, p.Name, p.Direction)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: %s: duplicate input %s", ErrInvalidSchema, s.Type, p.Name)
		}
		seen[p.Name] = true

		if p.IsConfigured() {
			if p.ConfigKey == "" {
				return fmt.Errorf("%w: %s: input %s has no config key", ErrInvalidSchema, s.Type, p.Name)
			}
			if !s.HasConfigField(p.ConfigKey) {
				return fmt.Errorf("%w: %s: config key %q of input %s is not a config field",
					ErrInvalidSchema, s.Type, p.ConfigKey, p.Name)
			}
		}
	}

	seen = make(map[string]bool)
	for _, p := range s.Outputs {
		if p.Direction != domain.DirectionOutput {
			return fmt.Errorf("%w: %s: port %s listed as output has direction %q",
				ErrInvalidSchema, s.Type, p.Name, p.Direction)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: %s: duplicate output %s", ErrInvalidSchema, s.Type, p.Name)
		}
		seen[p.Name] = true
	}

	return nil
}

// PortType возвращает тип порта brick указанного типа.
func PortType(schemas Schemas, brickType, port string, dir domain.Direction) (domain.PortType, error) {
	schema, ok := schemas.Schema(brickType)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownBrickType, brickType)
	}
	p, ok := schema.Port(port, dir)
	if !ok {
		return "", fmt.Errorf("%w: %s %s %s", ErrPortNotFound, brickType, dir, port)
	}
	return p.Type, nil
}

// Compatible проверяет, можно ли соединить выход типа from со входом типа to.
// Допускается только точное совпадение.
func Compatible(from, to domain.PortType) bool {
	return from == to
}
