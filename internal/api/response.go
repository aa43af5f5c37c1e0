package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/bricks/internal/domain"
	"github.com/shaiso/bricks/internal/engine"
	"github.com/shaiso/bricks/internal/orchestrator"
	"github.com/shaiso/bricks/internal/repo"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest         ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeConflict           ErrorCode = "CONFLICT"
	ErrCodeInvalidState       ErrorCode = "INVALID_STATE"
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeExecutionFailed    ErrorCode = "EXECUTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeInternalError      ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`

	// Errors — все ошибки проверки графа (VALIDATION_FAILED).
	Errors []GraphErrorResponse `json:"errors,omitempty"`

	// FailedBrickID — brick, на котором остановилось выполнение (EXECUTION_FAILED).
	FailedBrickID *uuid.UUID `json:"failed_brick_id,omitempty"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Created отправляет ответ о создании ресурса.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

// Accepted отправляет ответ о принятом в обработку запросе (202).
func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, DataResponse{Data: data})
}

// NoContent отправляет ответ без тела (204).
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound отправляет ошибку 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// Conflict отправляет ошибку 409.
func Conflict(w http.ResponseWriter, message string) {
	Error(w, http.StatusConflict, ErrCodeConflict, message)
}

// InvalidState отправляет ошибку 422.
func InvalidState(w http.ResponseWriter, message string) {
	Error(w, http.StatusUnprocessableEntity, ErrCodeInvalidState, message)
}

// ServiceUnavailable отправляет ошибку 503.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	Error(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// HandleRepoError преобразует ошибку хранилища в HTTP ответ.
func HandleRepoError(w http.ResponseWriter, logger *slog.Logger, err error, notFoundMsg string) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, repo.ErrNotFound):
		NotFound(w, notFoundMsg)
	case errors.Is(err, repo.ErrAlreadyExists):
		Conflict(w, err.Error())
	case errors.Is(err, domain.ErrDatabaseNotFound):
		InvalidState(w, err.Error())
	default:
		InternalError(w, logger, err)
	}
	return true
}

// HandleGraphError преобразует ошибку редактирования графа в HTTP ответ.
//
//   - ссылка на несуществующий brick или connection — 404
//   - занятый вход и дубликат ребра — 409
//   - прочие нарушения правил графа — 400
func HandleGraphError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, engine.ErrBrickNotFound),
		errors.Is(err, engine.ErrConnectionNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, engine.ErrInputAlreadyConnected),
		errors.Is(err, engine.ErrDuplicateConnection):
		Conflict(w, err.Error())
	case errors.Is(err, engine.ErrUnknownBrickType),
		errors.Is(err, engine.ErrPortNotFound),
		errors.Is(err, engine.ErrIncompatibleTypes),
		errors.Is(err, engine.ErrSelfLoop),
		errors.Is(err, engine.ErrUnknownConfigField):
		BadRequest(w, err.Error())
	default:
		return HandleRepoError(w, logger, err, "function not found")
	}
	return true
}

// HandleExecutionError преобразует ошибку запуска в HTTP ответ.
//
// Граф, не прошедший проверку, возвращается со списком всех ошибок,
// ошибка brick — с идентификатором brick.
func HandleExecutionError(w http.ResponseWriter, logger *slog.Logger, err error) bool {
	if err == nil {
		return false
	}

	var verrs *engine.ValidationErrors
	var brickErr *orchestrator.BrickExecutionError

	switch {
	case errors.As(err, &verrs):
		JSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: ErrorDetail{
				Code:    ErrCodeValidationFailed,
				Message: verrs.Error(),
				Errors:  GraphErrorsFromValidation(verrs),
			},
		})
	case errors.As(err, &brickErr):
		id := brickErr.BrickID
		JSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: ErrorDetail{
				Code:          ErrCodeExecutionFailed,
				Message:       brickErr.Error(),
				FailedBrickID: &id,
			},
		})
	case errors.Is(err, context.DeadlineExceeded):
		Error(w, http.StatusGatewayTimeout, ErrCodeTimeout, err.Error())
	case errors.Is(err, orchestrator.ErrExecutionCancelled):
		ServiceUnavailable(w, err.Error())
	case errors.Is(err, orchestrator.ErrFunctionNotFound):
		NotFound(w, "function not found")
	default:
		return HandleRepoError(w, logger, err, "function not found")
	}
	return true
}
