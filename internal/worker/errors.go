package worker

import "errors"

// Ошибки воркера.
var (
	// ErrInvalidRequest — сообщение runs.requested не удалось разобрать.
	ErrInvalidRequest = errors.New("invalid run request")

	// ErrWorkerStopped — воркер остановлен во время выполнения.
	ErrWorkerStopped = errors.New("worker stopped")
)
