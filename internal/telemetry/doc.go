// Package telemetry — логи и метрики процессов bricks.
//
//   - logging.go: slog логгер из LOG_LEVEL/LOG_FORMAT, логгер в контексте
//     и поля function_id, execution_id, brick_id
//   - metrics.go: Prometheus метрики выполнений, HTTP и очереди
//
// bricks-api и bricks-worker отдают метрики на /metrics.
package telemetry
