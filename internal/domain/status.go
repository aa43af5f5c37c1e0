package domain

// ExecutionStatus — статус выполнения function.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
//	          (или) → CANCELLED (из PENDING или RUNNING)
type ExecutionStatus string

const (
	// ExecutionStatusPending — запрос на выполнение принят, но ещё не начат.
	ExecutionStatusPending ExecutionStatus = "PENDING"

	// ExecutionStatusRunning — выполнение идёт.
	ExecutionStatusRunning ExecutionStatus = "RUNNING"

	// ExecutionStatusSucceeded — все bricks выполнены успешно.
	ExecutionStatusSucceeded ExecutionStatus = "SUCCEEDED"

	// ExecutionStatusFailed — граф не прошёл проверку или brick завершился с ошибкой.
	ExecutionStatusFailed ExecutionStatus = "FAILED"

	// ExecutionStatusCancelled — выполнение прервано отменой контекста.
	ExecutionStatusCancelled ExecutionStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный (выполнение завершено).
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusSucceeded, ExecutionStatusFailed, ExecutionStatusCancelled:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление ExecutionStatus.
func (s ExecutionStatus) String() string {
	return string(s)
}
