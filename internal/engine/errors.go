package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Ошибки построения графа.
var (
	// ErrUnknownBrickType — тип brick не зарегистрирован.
	ErrUnknownBrickType = errors.New("unknown brick type")

	// ErrBrickNotFound — brick с таким ID отсутствует в function.
	ErrBrickNotFound = errors.New("brick not found")

	// ErrPortNotFound — у brick нет порта с таким именем и направлением.
	ErrPortNotFound = errors.New("port not found")

	// ErrIncompatibleTypes — тип выхода не совпадает с типом входа.
	ErrIncompatibleTypes = errors.New("incompatible port types")

	// ErrInputAlreadyConnected — к входу уже подключено ребро.
	ErrInputAlreadyConnected = errors.New("input already connected")

	// ErrDuplicateConnection — такое ребро уже существует.
	ErrDuplicateConnection = errors.New("duplicate connection")

	// ErrSelfLoop — попытка соединить brick с самим собой.
	ErrSelfLoop = errors.New("brick cannot be connected to itself")

	// ErrConnectionNotFound — connection с таким ID отсутствует.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrUnknownConfigField — ключ конфигурации не объявлен типом brick.
	ErrUnknownConfigField = errors.New("unknown configuration field")

	// ErrDuplicateBrick — в снимке два brick с одним ID.
	ErrDuplicateBrick = errors.New("duplicate brick id")
)

// Ошибки валидации графа.
var (
	// ErrCyclicGraph — в графе есть цикл.
	ErrCyclicGraph = errors.New("cyclic graph")

	// ErrMissingRequiredInput — обязательный вход не подключён и не сконфигурирован.
	ErrMissingRequiredInput = errors.New("missing required input")
)

// Ошибки схем.
var (
	// ErrInvalidSchema — схема типа brick некорректна.
	ErrInvalidSchema = errors.New("invalid brick schema")
)

// Ошибки рендеринга шаблонов.
var (
	// ErrTemplateRender — ошибка рендеринга шаблона.
	ErrTemplateRender = errors.New("template render failed")

	// ErrTemplateParse — ошибка парсинга шаблона.
	ErrTemplateParse = errors.New("template parse failed")
)

// GraphError — ошибка графа с контекстом.
//
// Используется и при редактировании графа, и при валидации.
type GraphError struct {
	BrickID      uuid.UUID   // brick, к которому относится ошибка
	Port         string      // порт (если применимо)
	ConnectionID uuid.UUID   // connection (если применимо)
	BrickIDs     []uuid.UUID // bricks, образующие цикл
	Message      string      // описание ошибки
	Err          error       // базовая ошибка
}

// Error реализует интерфейс error.
func (e *GraphError) Error() string {
	var sb strings.Builder
	if e.BrickID != uuid.Nil {
		sb.WriteString("brick ")
		sb.WriteString(e.BrickID.String())
		if e.Port != "" {
			sb.WriteString(" port ")
			sb.WriteString(e.Port)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// Unwrap возвращает базовую ошибку.
func (e *GraphError) Unwrap() error {
	return e.Err
}

// NewGraphError создаёт ошибку графа для brick и порта.
func NewGraphError(brickID uuid.UUID, port, message string, err error) *GraphError {
	return &GraphError{
		BrickID: brickID,
		Port:    port,
		Message: message,
		Err:     err,
	}
}

// ValidationErrors — все ошибки первой непройденной категории проверки.
type ValidationErrors struct {
	Errors []*GraphError
}

// Error реализует интерфейс error.
func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, ge := range e.Errors {
		msgs[i] = ge.Error()
	}
	return fmt.Sprintf("validation failed with %d errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap позволяет errors.Is находить любую из вложенных ошибок.
func (e *ValidationErrors) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, ge := range e.Errors {
		errs[i] = ge
	}
	return errs
}

// Has проверяет, есть ли среди ошибок ошибка указанного вида.
func (e *ValidationErrors) Has(target error) bool {
	for _, ge := range e.Errors {
		if errors.Is(ge, target) {
			return true
		}
	}
	return false
}
