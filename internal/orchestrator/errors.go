package orchestrator

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Ошибки оркестратора.
var (
	// ErrFunctionNotFound — function не найдена в хранилище.
	ErrFunctionNotFound = errors.New("function not found")

	// ErrExecutionCancelled — выполнение прервано отменой контекста.
	ErrExecutionCancelled = errors.New("execution cancelled")

	// ErrOutputNotProduced — upstream brick не выдал значение на подключённый выход.
	ErrOutputNotProduced = errors.New("upstream output not produced")

	// ErrNoSnapshotLoader — оркестратор создан без источника снимков.
	ErrNoSnapshotLoader = errors.New("orchestrator has no snapshot loader")
)

// BrickExecutionError — ошибка выполнения конкретного brick.
//
// Выполнение останавливается на первом таком brick,
// накопленный вывод отбрасывается.
type BrickExecutionError struct {
	BrickID   uuid.UUID // brick, на котором остановилось выполнение
	BrickType string    // тип brick
	Err       error     // ошибка реализации brick
}

// Error реализует интерфейс error.
func (e *BrickExecutionError) Error() string {
	return fmt.Sprintf("brick %s (%s) failed: %v", e.BrickID, e.BrickType, e.Err)
}

// Unwrap возвращает базовую ошибку.
func (e *BrickExecutionError) Unwrap() error {
	return e.Err
}
