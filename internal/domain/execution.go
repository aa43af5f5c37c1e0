package domain

import (
	"time"

	"github.com/google/uuid"
)

// Execution — результат одного запуска function.
//
// Execution не сохраняется в хранилище: он живёт только
// на время ответа вызывающей стороне (API, CLI или worker).
type Execution struct {
	// ID — идентификатор запуска.
	ID uuid.UUID `json:"id"`

	// FunctionID — function, которая выполнялась.
	FunctionID uuid.UUID `json:"function_id"`

	// Status — итоговый статус.
	Status ExecutionStatus `json:"status"`

	// OutputLines — консольный вывод в порядке появления.
	// Заполняется только при SUCCEEDED: при ошибке вывод отбрасывается целиком.
	OutputLines []string `json:"output_lines"`

	// Error — текст ошибки при FAILED или CANCELLED.
	Error string `json:"error,omitempty"`

	// FailedBrickID — brick, на котором остановилось выполнение.
	FailedBrickID *uuid.UUID `json:"failed_brick_id,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// NewExecution создаёт execution в статусе PENDING.
func NewExecution(functionID uuid.UUID) *Execution {
	return &Execution{
		ID:          uuid.New(),
		FunctionID:  functionID,
		Status:      ExecutionStatusPending,
		OutputLines: []string{},
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если выполнение ещё не завершено.
func (e *Execution) Duration() time.Duration {
	if e.StartedAt == nil || e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(*e.StartedAt)
}

// IsFinished возвращает true, если выполнение завершено (в любом статусе).
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// MarkRunning переводит execution в статус RUNNING.
func (e *Execution) MarkRunning() {
	now := time.Now()
	e.Status = ExecutionStatusRunning
	e.StartedAt = &now
}

// MarkSucceeded переводит execution в статус SUCCEEDED с итоговым выводом.
func (e *Execution) MarkSucceeded(lines []string) {
	now := time.Now()
	e.Status = ExecutionStatusSucceeded
	e.FinishedAt = &now
	e.OutputLines = lines
}

// MarkFailed переводит execution в статус FAILED.
// Накопленный вывод отбрасывается.
func (e *Execution) MarkFailed(err string, brickID *uuid.UUID) {
	now := time.Now()
	e.Status = ExecutionStatusFailed
	e.FinishedAt = &now
	e.Error = err
	e.FailedBrickID = brickID
	e.OutputLines = []string{}
}

// MarkCancelled переводит execution в статус CANCELLED.
func (e *Execution) MarkCancelled(err string) {
	now := time.Now()
	e.Status = ExecutionStatusCancelled
	e.FinishedAt = &now
	e.Error = err
	e.OutputLines = []string{}
}
