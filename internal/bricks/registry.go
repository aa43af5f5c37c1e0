package bricks

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shaiso/bricks/internal/engine"
)

type entry struct {
	schema engine.BrickSchema
	brick  Brick
}

// Registry — реестр типов bricks.
//
// Хранит для каждого типа схему портов и реализацию.
// Реализует engine.Schemas. Потокобезопасен.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

// DefaultRegistry создаёт реестр со всеми встроенными bricks.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(ListInstancesSchema(), NewListInstancesBrick())
	r.MustRegister(GetFirstInstanceSchema(), NewGetFirstInstanceBrick())
	r.MustRegister(LogInstancePropertiesSchema(), NewLogInstancePropertiesBrick())
	r.MustRegister(FormatInstanceSchema(), NewFormatInstanceBrick())
	r.MustRegister(LogTextSchema(), NewLogTextBrick())

	return r
}

// Register регистрирует тип brick.
//
// Схема должна быть корректной, а имена портов реализации —
// совпадать с портами схемы. Повторная регистрация перезаписывает тип.
func (r *Registry) Register(schema engine.BrickSchema, brick Brick) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	if brick.Type() != schema.Type {
		return fmt.Errorf("%w: brick type %q registered under schema %q",
			ErrArityMismatch, brick.Type(), schema.Type)
	}
	if !sameNames(brick.Inputs(), schema.InputNames()) {
		return fmt.Errorf("%w: %s inputs %v, schema %v",
			ErrArityMismatch, schema.Type, brick.Inputs(), schema.InputNames())
	}
	if !sameNames(brick.Outputs(), schema.OutputNames()) {
		return fmt.Errorf("%w: %s outputs %v, schema %v",
			ErrArityMismatch, schema.Type, brick.Outputs(), schema.OutputNames())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[schema.Type] = entry{schema: schema, brick: brick}
	return nil
}

// MustRegister регистрирует тип и паникует при ошибке.
// Используется для встроенных bricks.
func (r *Registry) MustRegister(schema engine.BrickSchema, brick Brick) {
	if err := r.Register(schema, brick); err != nil {
		panic(err)
	}
}

// Get возвращает реализацию по типу.
// Возвращает ErrBrickTypeNotFound, если тип не найден.
func (r *Registry) Get(brickType string) (Brick, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[brickType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrBrickTypeNotFound, brickType)
	}

	return e.brick, nil
}

// Schema реализует engine.Schemas.
func (r *Registry) Schema(brickType string) (engine.BrickSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.entries[brickType]
	return e.schema, exists
}

// Schemas возвращает схемы всех типов, отсортированные по типу.
func (r *Registry) Schemas() []engine.BrickSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]engine.BrickSchema, 0, len(r.entries))
	for _, e := range r.entries {
		schemas = append(schemas, e.schema)
	}
	sort.Slice(schemas, func(i, j int) bool {
		return schemas[i].Type < schemas[j].Type
	})
	return schemas
}

// Has проверяет, зарегистрирован ли тип.
func (r *Registry) Has(brickType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.entries[brickType]
	return exists
}

// Types возвращает список всех зарегистрированных типов.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.entries))
	for t := range r.entries {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Count возвращает количество зарегистрированных типов.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Unregister удаляет тип из реестра.
func (r *Registry) Unregister(brickType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, brickType)
}

func sameNames(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	sorted := append([]string(nil), got...)
	sort.Strings(sorted)
	for i := range sorted {
		if sorted[i] != want[i] {
			return false
		}
	}
	return true
}
