package bricks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/bricks/internal/domain"
)

// Ошибки bricks.
var (
	// ErrBrickTypeNotFound — тип brick не найден в реестре.
	ErrBrickTypeNotFound = errors.New("brick type not found")

	// ErrArityMismatch — порты реализации не совпадают со схемой типа.
	ErrArityMismatch = errors.New("brick ports do not match schema")

	// ErrInvalidInput — значение на входе имеет неожиданную форму.
	ErrInvalidInput = errors.New("invalid brick input")

	// ErrInvalidConfig — невалидная конфигурация brick.
	ErrInvalidConfig = errors.New("invalid brick config")

	// ErrEmptyList — на вход пришёл пустой список.
	ErrEmptyList = errors.New("empty list")

	// ErrBrickCancelled — выполнение brick отменено.
	ErrBrickCancelled = errors.New("brick execution cancelled")
)

// Brick — реализация типа brick.
//
// Каждый тип (list_instances, get_first_instance, ...) реализует этот интерфейс.
// Имена портов должны совпадать со схемой, с которой тип регистрируется.
type Brick interface {
	// Type возвращает тег типа.
	Type() string

	// Inputs возвращает имена входов, которые читает Execute.
	Inputs() []string

	// Outputs возвращает имена выходов, которые заполняет Execute.
	Outputs() []string

	// Execute выполняет brick.
	// Ошибка останавливает всё выполнение function.
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// InstanceStore — источник экземпляров баз данных проекта.
//
// Порядок экземпляров определяется хранилищем и должен быть стабильным.
type InstanceStore interface {
	// ListInstances возвращает экземпляры базы с именем databaseName.
	// Возвращает domain.ErrDatabaseNotFound, если такой базы в проекте нет.
	ListInstances(ctx context.Context, projectID uuid.UUID, databaseName string) ([]domain.Instance, error)
}

// Request — входные данные для выполнения brick.
type Request struct {
	// BrickID — идентификатор brick.
	BrickID uuid.UUID

	// BrickType — тег типа brick.
	BrickType string

	// ProjectID — проект function: ограничивает доступ к базам.
	ProjectID uuid.UUID

	// Inputs — значения входов по имени порта.
	// Configuration-backed входы уже подставлены из конфигурации.
	Inputs map[string]any

	// Config — конфигурация brick.
	Config map[string]any

	// Store — хранилище экземпляров.
	Store InstanceStore
}

// Response — результат выполнения brick.
type Response struct {
	// Outputs — значения выходов по имени порта.
	Outputs map[string]any

	// Logs — строки консольного вывода в порядке появления.
	Logs []string
}

// NewRequest создаёт новый Request.
func NewRequest(brick domain.Brick, projectID uuid.UUID, inputs map[string]any, store InstanceStore) *Request {
	if inputs == nil {
		inputs = make(map[string]any)
	}
	config := brick.Config
	if config == nil {
		config = make(map[string]any)
	}
	return &Request{
		BrickID:   brick.ID,
		BrickType: brick.Type,
		ProjectID: projectID,
		Inputs:    inputs,
		Config:    config,
		Store:     store,
	}
}

// NewResponse создаёт новый Response с outputs.
func NewResponse(outputs map[string]any) *Response {
	if outputs == nil {
		outputs = make(map[string]any)
	}
	return &Response{
		Outputs: outputs,
	}
}

// LogResponse возвращает Response без выходов с одной строкой вывода.
func LogResponse(line string) *Response {
	return &Response{
		Outputs: make(map[string]any),
		Logs:    []string{line},
	}
}

// Input возвращает значение входа или ErrInvalidInput, если его нет.
func (r *Request) Input(name string) (any, error) {
	v, ok := r.Inputs[name]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: input %s has no value", ErrInvalidInput, name)
	}
	return v, nil
}

// GetConfigString извлекает строковое значение из конфига.
func GetConfigString(config map[string]any, key string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// checkContext возвращает ошибку, если контекст уже отменён.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrBrickCancelled, ctx.Err())
	default:
		return nil
	}
}
