package api

import (
	"net/http"
)

// RunFunction выполняет function синхронно и возвращает консольный вывод.
// POST /api/v1/functions/{id}/run
func (h *Handler) RunFunction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "function")
	if !ok {
		return
	}

	exec, err := h.runner.RunFunction(r.Context(), id)
	if HandleExecutionError(w, h.logger, err) {
		return
	}

	Success(w, ExecutionFromDomain(*exec))
}

// RequestRun ставит выполнение function в очередь.
// Результат придёт событием run.finished.
// POST /api/v1/functions/{id}/runs
func (h *Handler) RequestRun(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "function")
	if !ok {
		return
	}

	if h.publisher == nil {
		ServiceUnavailable(w, "run queue is not configured")
		return
	}

	// Проверяем, что function существует
	if _, err := h.functions.GetByID(r.Context(), id); HandleRepoError(w, h.logger, err, "function not found") {
		return
	}

	requestID, err := h.publisher.PublishRunRequested(r.Context(), id)
	if err != nil {
		h.logger.Warn("failed to publish run.requested", "function_id", id, "error", err)
		ServiceUnavailable(w, "run queue is unavailable")
		return
	}

	Accepted(w, RunRequestedResponse{RequestID: requestID, FunctionID: id})
}
